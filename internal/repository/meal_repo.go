package repository

import (
	"errors"
	"time"

	"messmate/internal/models"

	"gorm.io/gorm"
)

type MealRepository struct {
	db *gorm.DB
}

func NewMealRepository(db *gorm.DB) *MealRepository {
	return &MealRepository{db: db}
}

// Toggle records the meal slot if absent or removes it if present, inside one
// transaction so concurrent toggles of the same slot cannot race each other.
// Returns true when the meal was added, false when removed.
func (r *MealRepository) Toggle(m *models.Meal) (bool, error) {
	var added bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Meal
		err := tx.Where("user_id = ? AND room_id = ? AND date = ? AND type = ?",
			m.UserID, m.RoomID, m.Date, m.Type).First(&existing).Error
		if err == nil {
			added = false
			return tx.Delete(&existing).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			added = true
			return tx.Create(m).Error
		}
		return err
	})
	return added, err
}

func (r *MealRepository) ListByRoom(roomID uint, start, end time.Time) ([]models.Meal, error) {
	var meals []models.Meal
	err := r.db.Preload("User").
		Where("room_id = ? AND date BETWEEN ? AND ?", roomID, start, end).
		Order("date DESC").Find(&meals).Error
	return meals, err
}

func (r *MealRepository) CountByRoom(roomID uint, start, end time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.Meal{}).
		Where("room_id = ? AND date BETWEEN ? AND ?", roomID, start, end).
		Count(&n).Error
	return n, err
}

func (r *MealRepository) CountByUser(userID, roomID uint, start, end time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.Meal{}).
		Where("user_id = ? AND room_id = ? AND date BETWEEN ? AND ?", userID, roomID, start, end).
		Count(&n).Error
	return n, err
}

func (r *MealRepository) CreateGuestMeal(g *models.GuestMeal) error {
	return r.db.Create(g).Error
}

func (r *MealRepository) ListGuestMealsByRoom(roomID uint, start, end time.Time) ([]models.GuestMeal, error) {
	var meals []models.GuestMeal
	err := r.db.Preload("User").
		Where("room_id = ? AND date BETWEEN ? AND ?", roomID, start, end).
		Order("date DESC").Find(&meals).Error
	return meals, err
}

func (r *MealRepository) SumGuestMealsByRoom(roomID uint, start, end time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.GuestMeal{}).
		Where("room_id = ? AND date BETWEEN ? AND ?", roomID, start, end).
		Select("COALESCE(SUM(count), 0)").Scan(&n).Error
	return n, err
}

func (r *MealRepository) SumGuestMealsByUser(userID, roomID uint, start, end time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.GuestMeal{}).
		Where("user_id = ? AND room_id = ? AND date BETWEEN ? AND ?", userID, roomID, start, end).
		Select("COALESCE(SUM(count), 0)").Scan(&n).Error
	return n, err
}
