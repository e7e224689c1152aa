package repository

import (
	"time"

	"messmate/internal/domain"
	"messmate/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByRoom(roomID uint, start, end time.Time) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("room_id = ? AND date BETWEEN ? AND ?", roomID, start, end).
		Order("date DESC").Find(&list).Error
	return list, err
}

func (r *PaymentRepository) SumCompletedByUser(userID, roomID uint, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&models.Payment{}).
		Where("user_id = ? AND room_id = ? AND status = ? AND date BETWEEN ? AND ?",
			userID, roomID, domain.PaymentCompleted, start, end).
		Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}

// MarkCompleted is a compare-and-set: the row only transitions if it is still
// PENDING. Returns false when another caller already moved it to a terminal
// state, which lets reconciliation take the idempotent no-op path.
func (r *PaymentRepository) MarkCompleted(id uint, description string) (bool, error) {
	now := time.Now()
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentPending).
		Updates(map[string]interface{}{
			"status":       domain.PaymentCompleted,
			"completed_at": &now,
			"description":  description,
		})
	return res.RowsAffected == 1, res.Error
}

// MarkFailed transitions PENDING -> FAILED under the same compare-and-set rule.
func (r *PaymentRepository) MarkFailed(id uint, description string) (bool, error) {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentPending).
		Updates(map[string]interface{}{
			"status":      domain.PaymentFailed,
			"description": description,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *PaymentRepository) CreateGatewayPayment(gp *models.GatewayPayment) error {
	return r.db.Create(gp).Error
}

func (r *PaymentRepository) GetGatewayPayment(gatewayPaymentID string) (*models.GatewayPayment, error) {
	var gp models.GatewayPayment
	if err := r.db.Where("gateway_payment_id = ?", gatewayPaymentID).First(&gp).Error; err != nil {
		return nil, err
	}
	return &gp, nil
}

func (r *PaymentRepository) GetGatewayPaymentByInvoice(invoiceID string) (*models.GatewayPayment, error) {
	var gp models.GatewayPayment
	if err := r.db.Where("invoice_id = ?", invoiceID).First(&gp).Error; err != nil {
		return nil, err
	}
	return &gp, nil
}

func (r *PaymentRepository) UpdateGatewayPayment(gp *models.GatewayPayment) error {
	return r.db.Save(gp).Error
}

// ListOrphans returns PENDING payments with no gateway mirror row, the state
// left behind when the gateway was unreachable at initiation.
func (r *PaymentRepository) ListOrphans(olderThan time.Time) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.
		Where("status = ? AND method = ? AND created_at < ?", domain.PaymentPending, domain.MethodBkash, olderThan).
		Where("id NOT IN (?)", r.db.Model(&models.GatewayPayment{}).Select("payment_id")).
		Find(&list).Error
	return list, err
}
