package repositories

import (
	"context"

	"github.com/lawweapons/bevisdrive/models"

	"gorm.io/gorm"
)

type GormActivityRepository struct {
	db *gorm.DB
}

func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

func (r *GormActivityRepository) Create(_ context.Context, tx *gorm.DB, entry *models.ActivityLog) error {
	return useTx(r.db, tx).Create(entry).Error
}

func (r *GormActivityRepository) ListByUser(_ context.Context, tx *gorm.DB, userID string, limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := useTx(r.db, tx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
