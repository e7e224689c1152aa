package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment is the authoritative ledger entry. Status is monotone:
// PENDING -> COMPLETED or PENDING -> FAILED, never backward. Amount is
// immutable once COMPLETED.
type Payment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	RoomID      uint           `gorm:"not null;index" json:"room_id"`
	Amount      float64        `gorm:"not null" json:"amount"`
	Method      string         `gorm:"size:20;not null" json:"method"`
	Status      string         `gorm:"size:20;not null;index" json:"status"`
	Description string         `gorm:"size:255" json:"description"`
	Date        time.Time      `gorm:"not null;index" json:"date"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}

// GatewayPayment mirrors the provider's transaction so the provider's id and
// status vocabulary never leak into Payment. Exactly one row references a
// BKASH Payment; a PENDING Payment with no mirror row means the gateway was
// unreachable at initiation.
type GatewayPayment struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	GatewayPaymentID string         `gorm:"size:100;uniqueIndex;not null" json:"gateway_payment_id"`
	InvoiceID        string         `gorm:"size:100;uniqueIndex;not null" json:"invoice_id"`
	UserID           uint           `gorm:"not null;index" json:"user_id"`
	RoomID           uint           `gorm:"not null;index" json:"room_id"`
	Amount           float64        `gorm:"not null" json:"amount"`
	Status           string         `gorm:"size:30;not null" json:"status"`
	TrxID            string         `gorm:"size:100" json:"trx_id,omitempty"`
	CustomerMsisdn   string         `gorm:"size:30" json:"customer_msisdn,omitempty"`
	PaymentID        uint           `gorm:"not null;uniqueIndex" json:"payment_id"`
	RawCallback      datatypes.JSON `json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	Payment Payment `gorm:"foreignKey:PaymentID" json:"-"`
}

func (GatewayPayment) TableName() string {
	return "gateway_payments"
}
