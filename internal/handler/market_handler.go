package handler

import (
	"net/http"
	"strconv"
	"time"

	"messmate/internal/domain"
	"messmate/internal/middleware"
	"messmate/internal/models"
	"messmate/internal/repository"
	"messmate/internal/service"

	"github.com/gin-gonic/gin"
)

type MarketDateHandler struct {
	marketRepo *repository.MarketDateRepository
	roomRepo   *repository.RoomRepository
	notifSvc   *service.NotificationService
}

func NewMarketDateHandler(marketRepo *repository.MarketDateRepository, roomRepo *repository.RoomRepository, notifSvc *service.NotificationService) *MarketDateHandler {
	return &MarketDateHandler{marketRepo: marketRepo, roomRepo: roomRepo, notifSvc: notifSvc}
}

type AssignMarketDateRequest struct {
	RoomID uint   `json:"room_id" binding:"required"`
	UserID uint   `json:"user_id" binding:"required"`
	Date   string `json:"date" binding:"required"`
}

// Create assigns a member to market duty. Manager only; the assignee gets a
// notification.
func (h *MarketDateHandler) Create(c *gin.Context) {
	callerID := middleware.GetUserID(c)
	var req AssignMarketDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return
	}
	manager, err := h.roomRepo.IsManager(callerID, req.RoomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !manager {
		respondError(c, domain.ErrForbidden)
		return
	}
	member, err := h.roomRepo.IsMember(req.UserID, req.RoomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assigned user is not a member of this room"})
		return
	}
	md := &models.MarketDate{
		RoomID: req.RoomID,
		UserID: req.UserID,
		Date:   date,
	}
	if err := h.marketRepo.Create(md); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "market date create failed"})
		return
	}
	if room, err := h.roomRepo.GetByID(req.RoomID); err == nil {
		h.notifSvc.NotifyMarketDateAssigned(req.UserID, room.Name, date)
	}
	c.JSON(http.StatusCreated, md)
}

func (h *MarketDateHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, ok := roomIDQuery(c)
	if !ok {
		return
	}
	member, err := h.roomRepo.IsMember(userID, roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		respondError(c, domain.ErrNotRoomMember)
		return
	}
	list, err := h.marketRepo.ListByRoom(roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"market_dates": list})
}

type UpdateMarketDateRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// Update marks the duty done or not. Allowed for the assignee and for room
// managers.
func (h *MarketDateHandler) Update(c *gin.Context) {
	callerID := middleware.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market date id"})
		return
	}
	var req UpdateMarketDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	md, err := h.marketRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	if md.UserID != callerID {
		manager, err := h.roomRepo.IsManager(callerID, md.RoomID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
			return
		}
		if !manager {
			respondError(c, domain.ErrForbidden)
			return
		}
	}
	if err := h.marketRepo.SetCompleted(md.ID, *req.Completed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	md.Completed = *req.Completed
	c.JSON(http.StatusOK, md)
}
