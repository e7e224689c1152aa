package models

import "time"

// Meal is a single attendance mark: one (user, room, date, type) slot.
// Recording the same slot again removes it instead of duplicating.
type Meal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_meals_slot" json:"user_id"`
	RoomID    uint      `gorm:"not null;uniqueIndex:idx_meals_slot;index" json:"room_id"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_meals_slot;index" json:"date"`
	Type      string    `gorm:"size:20;not null;uniqueIndex:idx_meals_slot" json:"type"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Meal) TableName() string {
	return "meals"
}

// GuestMeal is a count of extra meal units a member requests for guests.
// The count joins the room's total-meal denominator and is attributed to the
// requesting member.
type GuestMeal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	RoomID    uint      `gorm:"not null;index" json:"room_id"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	Type      string    `gorm:"size:20;not null" json:"type"`
	Count     int       `gorm:"not null" json:"count"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (GuestMeal) TableName() string {
	return "guest_meals"
}
