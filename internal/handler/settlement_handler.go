package handler

import (
	"net/http"
	"strconv"
	"time"

	"messmate/internal/domain"
	"messmate/internal/middleware"
	"messmate/internal/repository"
	"messmate/internal/service"

	"github.com/gin-gonic/gin"
)

type SettlementHandler struct {
	svc      *service.SettlementService
	roomRepo *repository.RoomRepository
}

func NewSettlementHandler(svc *service.SettlementService, roomRepo *repository.RoomRepository) *SettlementHandler {
	return &SettlementHandler{svc: svc, roomRepo: roomRepo}
}

// Calculations returns the room settlement, or a single member's view when
// userId is given. The window defaults to the current calendar month.
func (h *SettlementHandler) Calculations(c *gin.Context) {
	callerID := middleware.GetUserID(c)
	roomID, ok := roomIDQuery(c)
	if !ok {
		return
	}
	member, err := h.roomRepo.IsMember(callerID, roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		respondError(c, domain.ErrNotRoomMember)
		return
	}

	start, end := service.CurrentMonthRange(time.Now())
	start, end, err = parseDateRange(c, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return
	}

	if v := c.Query("userId"); v != "" {
		userID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
			return
		}
		summary, err := h.svc.ComputeUserSummary(uint(userID), roomID, start, end)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
		return
	}

	summary, err := h.svc.ComputeRoomSummary(roomID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
