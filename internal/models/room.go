package models

import (
	"time"

	"gorm.io/gorm"
)

type Room struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Description string         `gorm:"size:500" json:"description,omitempty"`
	CreatedByID uint           `gorm:"not null;index" json:"created_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Members []RoomMember `gorm:"foreignKey:RoomID" json:"members,omitempty"`
}

func (Room) TableName() string {
	return "rooms"
}

// RoomMember links a user to a room. Role is MEMBER or MANAGER.
type RoomMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_room_members_user_room" json:"user_id"`
	RoomID    uint      `gorm:"not null;uniqueIndex:idx_room_members_user_room;index" json:"room_id"`
	Role      string    `gorm:"size:20;not null;default:'MEMBER'" json:"role"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (RoomMember) TableName() string {
	return "room_members"
}
