package repository

import (
	"errors"

	"messmate/internal/models"

	"gorm.io/gorm"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(room *models.Room) error {
	return r.db.Create(room).Error
}

func (r *RoomRepository) GetByID(id uint) (*models.Room, error) {
	var room models.Room
	if err := r.db.First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) ListByUser(userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.
		Joins("JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ?", userID).
		Find(&rooms).Error
	return rooms, err
}

func (r *RoomRepository) AddMember(m *models.RoomMember) error {
	return r.db.Create(m).Error
}

// IsMember reports whether the user belongs to the room.
func (r *RoomRepository) IsMember(userID, roomID uint) (bool, error) {
	var m models.RoomMember
	err := r.db.Where("user_id = ? AND room_id = ?", userID, roomID).First(&m).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// IsManager reports whether the user holds the MANAGER role in the room.
func (r *RoomRepository) IsManager(userID, roomID uint) (bool, error) {
	var m models.RoomMember
	err := r.db.Where("user_id = ? AND room_id = ? AND role = ?", userID, roomID, "MANAGER").First(&m).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// Members returns the room's membership with users preloaded.
func (r *RoomRepository) Members(roomID uint) ([]models.RoomMember, error) {
	var members []models.RoomMember
	err := r.db.Preload("User").Where("room_id = ?", roomID).Find(&members).Error
	return members, err
}

// Managers returns the members holding the MANAGER role.
func (r *RoomRepository) Managers(roomID uint) ([]models.RoomMember, error) {
	var members []models.RoomMember
	err := r.db.Where("room_id = ? AND role = ?", roomID, "MANAGER").Find(&members).Error
	return members, err
}
