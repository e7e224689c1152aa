package repository

import (
	"time"

	"messmate/internal/models"

	"gorm.io/gorm"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) CreateExpense(e *models.ExtraExpense) error {
	return r.db.Create(e).Error
}

func (r *ExpenseRepository) ListExpenses(roomID uint, start, end time.Time) ([]models.ExtraExpense, error) {
	var list []models.ExtraExpense
	err := r.db.Preload("AddedBy").
		Where("room_id = ? AND date BETWEEN ? AND ?", roomID, start, end).
		Order("date DESC").Find(&list).Error
	return list, err
}

func (r *ExpenseRepository) SumExpenses(roomID uint, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&models.ExtraExpense{}).
		Where("room_id = ? AND date BETWEEN ? AND ?", roomID, start, end).
		Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}

func (r *ExpenseRepository) CreateShoppingItem(s *models.ShoppingItem) error {
	return r.db.Create(s).Error
}

func (r *ExpenseRepository) ListShoppingItems(roomID uint, start, end time.Time) ([]models.ShoppingItem, error) {
	var list []models.ShoppingItem
	err := r.db.Preload("AddedBy").
		Where("room_id = ? AND date BETWEEN ? AND ?", roomID, start, end).
		Order("date DESC").Find(&list).Error
	return list, err
}

func (r *ExpenseRepository) SumShoppingItems(roomID uint, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&models.ShoppingItem{}).
		Where("room_id = ? AND date BETWEEN ? AND ?", roomID, start, end).
		Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	return total, err
}
