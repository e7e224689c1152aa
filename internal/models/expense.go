package models

import (
	"time"

	"gorm.io/gorm"
)

// ExtraExpense is a shared cost outside regular shopping (utilities, repairs).
// Settlement pools it into the meal-rate numerator identically to shopping.
type ExtraExpense struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RoomID      uint           `gorm:"not null;index" json:"room_id"`
	AddedByID   uint           `gorm:"not null;index" json:"added_by_id"`
	Description string         `gorm:"size:255;not null" json:"description"`
	Amount      float64        `gorm:"not null" json:"amount"`
	Type        string         `gorm:"size:20;not null;default:'OTHER'" json:"type"`
	Date        time.Time      `gorm:"not null;index" json:"date"`
	ReceiptURL  string         `gorm:"size:512" json:"receipt_url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	AddedBy User `gorm:"foreignKey:AddedByID" json:"added_by,omitempty"`
}

func (ExtraExpense) TableName() string {
	return "extra_expenses"
}

// ShoppingItem is a grocery purchase for the room's shared kitchen.
type ShoppingItem struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RoomID     uint           `gorm:"not null;index" json:"room_id"`
	AddedByID  uint           `gorm:"not null;index" json:"added_by_id"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	Amount     float64        `gorm:"not null" json:"amount"`
	Quantity   string         `gorm:"size:50" json:"quantity,omitempty"`
	Date       time.Time      `gorm:"not null;index" json:"date"`
	ReceiptURL string         `gorm:"size:512" json:"receipt_url,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	AddedBy User `gorm:"foreignKey:AddedByID" json:"added_by,omitempty"`
}

func (ShoppingItem) TableName() string {
	return "shopping_items"
}
