package repositories

import (
	"context"

	"github.com/lawweapons/bevisdrive/models"

	"gorm.io/gorm"
)

type GormPreferenceRepository struct {
	db *gorm.DB
}

func NewGormPreferenceRepository(db *gorm.DB) *GormPreferenceRepository {
	return &GormPreferenceRepository{db: db}
}

func (r *GormPreferenceRepository) GetByOwner(_ context.Context, tx *gorm.DB, ownerID string) (models.UserPreference, error) {
	var pref models.UserPreference
	err := useTx(r.db, tx).Where("owner_id = ?", ownerID).First(&pref).Error
	return pref, err
}

func (r *GormPreferenceRepository) Save(_ context.Context, tx *gorm.DB, pref *models.UserPreference) error {
	return useTx(r.db, tx).Save(pref).Error
}
