package handler

import (
	"net/http"
	"time"

	"messmate/internal/domain"
	"messmate/internal/middleware"
	"messmate/internal/models"
	"messmate/internal/repository"
	"messmate/internal/service"

	"github.com/gin-gonic/gin"
)

type MealHandler struct {
	mealRepo *repository.MealRepository
	roomRepo *repository.RoomRepository
	notifSvc *service.NotificationService
}

func NewMealHandler(mealRepo *repository.MealRepository, roomRepo *repository.RoomRepository, notifSvc *service.NotificationService) *MealHandler {
	return &MealHandler{mealRepo: mealRepo, roomRepo: roomRepo, notifSvc: notifSvc}
}

type ToggleMealRequest struct {
	RoomID uint   `json:"room_id" binding:"required"`
	Date   string `json:"date" binding:"required"`
	Type   string `json:"type" binding:"required"`
}

// Toggle records the meal slot, or removes it if it is already recorded.
func (h *MealHandler) Toggle(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req ToggleMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !domain.ValidMealType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal type"})
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return
	}
	if err := h.requireMember(c, userID, req.RoomID); err != nil {
		return
	}
	meal := &models.Meal{
		UserID: userID,
		RoomID: req.RoomID,
		Date:   date,
		Type:   req.Type,
	}
	added, err := h.mealRepo.Toggle(meal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "meal update failed"})
		return
	}
	if added {
		c.JSON(http.StatusCreated, meal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "meal removed"})
}

func (h *MealHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, ok := roomIDQuery(c)
	if !ok {
		return
	}
	if err := h.requireMember(c, userID, roomID); err != nil {
		return
	}
	start, end := service.CurrentMonthRange(time.Now())
	start, end, err := parseDateRange(c, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return
	}
	meals, err := h.mealRepo.ListByRoom(roomID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

type GuestMealRequest struct {
	RoomID uint   `json:"room_id" binding:"required"`
	Date   string `json:"date" binding:"required"`
	Type   string `json:"type" binding:"required"`
	Count  int    `json:"count" binding:"required"`
}

func (h *MealHandler) CreateGuestMeal(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req GuestMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !domain.ValidMealType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal type"})
		return
	}
	if req.Count < domain.GuestMealMinCount || req.Count > domain.GuestMealMaxCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be between 1 and 10"})
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return
	}
	if err := h.requireMember(c, userID, req.RoomID); err != nil {
		return
	}
	gm := &models.GuestMeal{
		UserID: userID,
		RoomID: req.RoomID,
		Date:   date,
		Type:   req.Type,
		Count:  req.Count,
	}
	if err := h.mealRepo.CreateGuestMeal(gm); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "guest meal create failed"})
		return
	}
	h.notifyManagers(userID, req.RoomID, req.Count, req.Type)
	c.JSON(http.StatusCreated, gm)
}

func (h *MealHandler) ListGuestMeals(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, ok := roomIDQuery(c)
	if !ok {
		return
	}
	if err := h.requireMember(c, userID, roomID); err != nil {
		return
	}
	start, end := service.CurrentMonthRange(time.Now())
	start, end, err := parseDateRange(c, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return
	}
	meals, err := h.mealRepo.ListGuestMealsByRoom(roomID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"guest_meals": meals})
}

func (h *MealHandler) notifyManagers(requesterID, roomID uint, count int, mealType string) {
	managers, err := h.roomRepo.Managers(roomID)
	if err != nil {
		return
	}
	requester, err := h.roomRepo.Members(roomID)
	name := "A member"
	if err == nil {
		for _, m := range requester {
			if m.UserID == requesterID {
				name = m.User.Name
				break
			}
		}
	}
	for _, m := range managers {
		if m.UserID == requesterID {
			continue
		}
		h.notifSvc.NotifyGuestMealAdded(m.UserID, name, count, mealType)
	}
}

func (h *MealHandler) requireMember(c *gin.Context, userID, roomID uint) error {
	member, err := h.roomRepo.IsMember(userID, roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return err
	}
	if !member {
		respondError(c, domain.ErrNotRoomMember)
		return domain.ErrNotRoomMember
	}
	return nil
}
