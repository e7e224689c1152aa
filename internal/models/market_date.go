package models

import (
	"time"

	"gorm.io/gorm"
)

// MarketDate assigns a member to shopping duty for the room on a date.
// Managers assign; the assignee (or a manager) checks it off when done.
type MarketDate struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RoomID    uint           `gorm:"not null;index" json:"room_id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Date      time.Time      `gorm:"not null;index" json:"date"`
	Completed bool           `gorm:"not null;default:false" json:"completed"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (MarketDate) TableName() string {
	return "market_dates"
}
