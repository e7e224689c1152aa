package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"messmate/internal/domain"
	"messmate/internal/middleware"
	"messmate/internal/models"
	"messmate/internal/repository"
	"messmate/internal/service"
	"messmate/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ExpenseHandler struct {
	expenseRepo *repository.ExpenseRepository
	roomRepo    *repository.RoomRepository
	cloud       cloudinary.Client
	notifSvc    *service.NotificationService
	log         *zap.Logger
}

func NewExpenseHandler(expenseRepo *repository.ExpenseRepository, roomRepo *repository.RoomRepository, cloud cloudinary.Client, notifSvc *service.NotificationService, log *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{expenseRepo: expenseRepo, roomRepo: roomRepo, cloud: cloud, notifSvc: notifSvc, log: log}
}

// CreateExpense accepts multipart form data so a receipt image can ride along.
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, amount, date, ok := h.sharedFields(c, userID)
	if !ok {
		return
	}
	description := c.PostForm("description")
	if description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}
	expenseType := c.PostForm("type")
	if expenseType == "" {
		expenseType = domain.ExpenseTypeOther
	}
	e := &models.ExtraExpense{
		RoomID:      roomID,
		AddedByID:   userID,
		Description: description,
		Amount:      amount,
		Type:        expenseType,
		Date:        date,
		ReceiptURL:  h.uploadReceipt(c),
	}
	if err := h.expenseRepo.CreateExpense(e); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "expense create failed"})
		return
	}
	h.notifyRoom(userID, roomID, amount)
	c.JSON(http.StatusCreated, e)
}

func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, ok := roomIDQuery(c)
	if !ok {
		return
	}
	if !h.requireMember(c, userID, roomID) {
		return
	}
	start, end := service.CurrentMonthRange(time.Now())
	start, end, err := parseDateRange(c, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return
	}
	list, err := h.expenseRepo.ListExpenses(roomID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": list})
}

func (h *ExpenseHandler) CreateShoppingItem(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, amount, date, ok := h.sharedFields(c, userID)
	if !ok {
		return
	}
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	item := &models.ShoppingItem{
		RoomID:     roomID,
		AddedByID:  userID,
		Name:       name,
		Amount:     amount,
		Quantity:   c.PostForm("quantity"),
		Date:       date,
		ReceiptURL: h.uploadReceipt(c),
	}
	if err := h.expenseRepo.CreateShoppingItem(item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "shopping item create failed"})
		return
	}
	h.notifyRoom(userID, roomID, amount)
	c.JSON(http.StatusCreated, item)
}

func (h *ExpenseHandler) ListShoppingItems(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, ok := roomIDQuery(c)
	if !ok {
		return
	}
	if !h.requireMember(c, userID, roomID) {
		return
	}
	start, end := service.CurrentMonthRange(time.Now())
	start, end, err := parseDateRange(c, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return
	}
	list, err := h.expenseRepo.ListShoppingItems(roomID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shopping_items": list})
}

// sharedFields validates the form fields common to expenses and shopping
// items and the caller's room membership.
func (h *ExpenseHandler) sharedFields(c *gin.Context, userID uint) (roomID uint, amount float64, date time.Time, ok bool) {
	rid, err := strconv.ParseUint(c.PostForm("room_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room_id"})
		return 0, 0, time.Time{}, false
	}
	amount, err = strconv.ParseFloat(c.PostForm("amount"), 64)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return 0, 0, time.Time{}, false
	}
	date, err = time.Parse(dateLayout, c.PostForm("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return 0, 0, time.Time{}, false
	}
	if !h.requireMember(c, userID, uint(rid)) {
		return 0, 0, time.Time{}, false
	}
	return uint(rid), amount, date, true
}

// uploadReceipt stores an attached receipt if present. Upload failure is
// logged and the entry saved without a receipt; a lost image should not lose
// the expense.
func (h *ExpenseHandler) uploadReceipt(c *gin.Context) string {
	file, _, err := c.Request.FormFile("receipt")
	if err != nil {
		return ""
	}
	defer file.Close()
	url, err := h.cloud.UploadReceipt(c.Request.Context(), file, fmt.Sprintf("receipt-%s", uuid.New().String()[:8]))
	if err != nil {
		h.log.Warn("receipt upload failed", zap.Error(err))
		return ""
	}
	return url
}

// notifyRoom tells the other members a shared cost was recorded.
func (h *ExpenseHandler) notifyRoom(addedByID, roomID uint, amount float64) {
	members, err := h.roomRepo.Members(roomID)
	if err != nil {
		return
	}
	name := "A member"
	for _, m := range members {
		if m.UserID == addedByID {
			name = m.User.Name
			break
		}
	}
	for _, m := range members {
		if m.UserID == addedByID {
			continue
		}
		h.notifSvc.NotifyExpenseAdded(m.UserID, name, amount)
	}
}

func (h *ExpenseHandler) requireMember(c *gin.Context, userID, roomID uint) bool {
	member, err := h.roomRepo.IsMember(userID, roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return false
	}
	if !member {
		respondError(c, domain.ErrNotRoomMember)
		return false
	}
	return true
}
