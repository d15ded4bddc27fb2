package repositories

import (
	"context"

	"github.com/lawweapons/bevisdrive/models"

	"gorm.io/gorm"
)

type GormFileVersionRepository struct {
	db *gorm.DB
}

func NewGormFileVersionRepository(db *gorm.DB) *GormFileVersionRepository {
	return &GormFileVersionRepository{db: db}
}

func (r *GormFileVersionRepository) Create(_ context.Context, tx *gorm.DB, version *models.FileVersion) error {
	return useTx(r.db, tx).Create(version).Error
}

func (r *GormFileVersionRepository) ListByFile(_ context.Context, tx *gorm.DB, fileID string) ([]models.FileVersion, error) {
	var versions []models.FileVersion
	err := useTx(r.db, tx).Where("file_id = ?", fileID).Order("version_number DESC").Find(&versions).Error
	return versions, err
}

func (r *GormFileVersionRepository) GetByIDAndFile(_ context.Context, tx *gorm.DB, versionID string, fileID string) (models.FileVersion, error) {
	var version models.FileVersion
	err := useTx(r.db, tx).Where("id = ? AND file_id = ?", versionID, fileID).First(&version).Error
	return version, err
}

func (r *GormFileVersionRepository) MaxVersionNumber(_ context.Context, tx *gorm.DB, fileID string) (int, error) {
	var max int
	err := useTx(r.db, tx).Model(&models.FileVersion{}).
		Where("file_id = ?", fileID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *GormFileVersionRepository) UpdatePath(_ context.Context, tx *gorm.DB, versionID string, path string) error {
	result := useTx(r.db, tx).Model(&models.FileVersion{}).Where("id = ?", versionID).Update("path", path)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormFileVersionRepository) DeleteByID(_ context.Context, tx *gorm.DB, versionID string) error {
	return useTx(r.db, tx).Where("id = ?", versionID).Delete(&models.FileVersion{}).Error
}

func (r *GormFileVersionRepository) DeleteByFile(_ context.Context, tx *gorm.DB, fileID string) error {
	return useTx(r.db, tx).Where("file_id = ?", fileID).Delete(&models.FileVersion{}).Error
}
