package service

import (
	"fmt"
	"time"

	"messmate/internal/domain"
	"messmate/internal/models"
	"messmate/internal/repository"

	"go.uber.org/zap"
)

// NotificationService writes in-app notification rows. It is best-effort:
// callers never see an error, a failed write is logged and dropped.
type NotificationService struct {
	repo *repository.NotificationRepository
	log  *zap.Logger
}

func NewNotificationService(repo *repository.NotificationRepository, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, log: log}
}

func (s *NotificationService) notify(userID uint, notifType, message string) {
	err := s.repo.Create(&models.Notification{
		UserID:  userID,
		Type:    notifType,
		Message: message,
	})
	if err != nil {
		s.log.Warn("notification write failed", zap.Uint("user_id", userID), zap.String("type", notifType), zap.Error(err))
	}
}

func (s *NotificationService) NotifyPaymentCompleted(userID uint, amount float64, trxID string) {
	s.notify(userID, domain.NotifPaymentCompleted,
		fmt.Sprintf("Your payment of %.2f has been completed successfully. Transaction ID: %s", amount, trxID))
}

func (s *NotificationService) NotifyGuestMealAdded(managerUserID uint, requesterName string, count int, mealType string) {
	s.notify(managerUserID, domain.NotifGuestMealAdded,
		fmt.Sprintf("%s has requested %d guest meal(s) for %s.", requesterName, count, mealType))
}

func (s *NotificationService) NotifyExpenseAdded(userID uint, addedByName string, amount float64) {
	s.notify(userID, domain.NotifExpenseAdded,
		fmt.Sprintf("%s added a shared expense of %.2f.", addedByName, amount))
}

func (s *NotificationService) NotifyMarketDateAssigned(userID uint, roomName string, date time.Time) {
	s.notify(userID, domain.NotifMarketDate,
		fmt.Sprintf("You have been assigned market duty for %s on %s.", roomName, date.Format("2006-01-02")))
}
