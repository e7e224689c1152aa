package handler

import (
	"net/http"
	"strconv"

	"messmate/internal/domain"
	"messmate/internal/middleware"
	"messmate/internal/models"
	"messmate/internal/repository"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomRepo *repository.RoomRepository
}

func NewRoomHandler(roomRepo *repository.RoomRepository) *RoomHandler {
	return &RoomHandler{roomRepo: roomRepo}
}

type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// Create makes a room; the creator becomes its first MANAGER.
func (h *RoomHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	room := &models.Room{
		Name:        req.Name,
		Description: req.Description,
		CreatedByID: userID,
	}
	if err := h.roomRepo.Create(room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "room create failed"})
		return
	}
	if err := h.roomRepo.AddMember(&models.RoomMember{
		UserID: userID,
		RoomID: room.ID,
		Role:   domain.RoleManager,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership create failed"})
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	rooms, err := h.roomRepo.ListByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *RoomHandler) Join(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	if _, err := h.roomRepo.GetByID(uint(roomID)); err != nil {
		respondError(c, err)
		return
	}
	already, err := h.roomRepo.IsMember(userID, uint(roomID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if already {
		c.JSON(http.StatusConflict, gin.H{"error": "already a member"})
		return
	}
	if err := h.roomRepo.AddMember(&models.RoomMember{
		UserID: userID,
		RoomID: uint(roomID),
		Role:   domain.RoleMember,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "join failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

func (h *RoomHandler) Members(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	member, err := h.roomRepo.IsMember(userID, uint(roomID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		respondError(c, domain.ErrNotRoomMember)
		return
	}
	members, err := h.roomRepo.Members(uint(roomID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
