package repositories

import (
	"context"
	"time"

	"github.com/lawweapons/bevisdrive/models"

	"gorm.io/gorm"
)

type GormIntentRepository struct {
	db *gorm.DB
}

func NewGormIntentRepository(db *gorm.DB) *GormIntentRepository {
	return &GormIntentRepository{db: db}
}

func (r *GormIntentRepository) Create(_ context.Context, tx *gorm.DB, intent *models.MoveIntent) error {
	return useTx(r.db, tx).Create(intent).Error
}

func (r *GormIntentRepository) GetByID(_ context.Context, tx *gorm.DB, intentID string) (models.MoveIntent, error) {
	var intent models.MoveIntent
	err := useTx(r.db, tx).Where("id = ?", intentID).First(&intent).Error
	return intent, err
}

func (r *GormIntentRepository) Update(_ context.Context, tx *gorm.DB, intentID string, updates map[string]interface{}) error {
	return useTx(r.db, tx).Model(&models.MoveIntent{}).Where("id = ?", intentID).Updates(updates).Error
}

// ListStale returns unfinished intents last touched before the cutoff.
func (r *GormIntentRepository) ListStale(_ context.Context, tx *gorm.DB, before time.Time, limit int) ([]models.MoveIntent, error) {
	query := useTx(r.db, tx).
		Where("status IN ? AND updated_at < ?", []string{models.IntentStatusPending, models.IntentStatusBlobDone}, before).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var intents []models.MoveIntent
	err := query.Find(&intents).Error
	return intents, err
}
