package repository

import (
	"messmate/internal/models"

	"gorm.io/gorm"
)

type MarketDateRepository struct {
	db *gorm.DB
}

func NewMarketDateRepository(db *gorm.DB) *MarketDateRepository {
	return &MarketDateRepository{db: db}
}

func (r *MarketDateRepository) Create(m *models.MarketDate) error {
	return r.db.Create(m).Error
}

func (r *MarketDateRepository) GetByID(id uint) (*models.MarketDate, error) {
	var m models.MarketDate
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MarketDateRepository) ListByRoom(roomID uint) ([]models.MarketDate, error) {
	var list []models.MarketDate
	err := r.db.Preload("User").
		Where("room_id = ?", roomID).
		Order("date ASC").Find(&list).Error
	return list, err
}

func (r *MarketDateRepository) SetCompleted(id uint, completed bool) error {
	return r.db.Model(&models.MarketDate{}).
		Where("id = ?", id).
		Update("completed", completed).Error
}
