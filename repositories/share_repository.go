package repositories

import (
	"context"
	"time"

	"github.com/lawweapons/bevisdrive/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns rewritten when a share is saved again. link_token is deliberately
// absent: a token never changes once issued.
var shareUpsertColumns = []string{"password_hash", "expires_at", "max_views", "updated_at"}

type GormFileShareRepository struct {
	db *gorm.DB
}

func NewGormFileShareRepository(db *gorm.DB) *GormFileShareRepository {
	return &GormFileShareRepository{db: db}
}

func (r *GormFileShareRepository) GetByFileID(_ context.Context, tx *gorm.DB, fileID string) (models.FileShare, error) {
	var share models.FileShare
	err := useTx(r.db, tx).Where("file_id = ?", fileID).First(&share).Error
	return share, err
}

func (r *GormFileShareRepository) GetByToken(_ context.Context, tx *gorm.DB, token string) (models.FileShare, error) {
	var share models.FileShare
	err := useTx(r.db, tx).Where("link_token = ?", token).First(&share).Error
	return share, err
}

func (r *GormFileShareRepository) Upsert(_ context.Context, tx *gorm.DB, share *models.FileShare) error {
	return useTx(r.db, tx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_id"}},
		DoUpdates: clause.AssignmentColumns(shareUpsertColumns),
	}).Create(share).Error
}

func (r *GormFileShareRepository) DeleteByFileID(_ context.Context, tx *gorm.DB, fileID string) error {
	return useTx(r.db, tx).Where("file_id = ?", fileID).Delete(&models.FileShare{}).Error
}

func (r *GormFileShareRepository) IncrementViewCount(_ context.Context, tx *gorm.DB, shareID string) error {
	return useTx(r.db, tx).Model(&models.FileShare{}).Where("id = ?", shareID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

func (r *GormFileShareRepository) DeleteExpired(_ context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	result := useTx(r.db, tx).Where("expires_at IS NOT NULL AND expires_at < ?", now).Delete(&models.FileShare{})
	return result.RowsAffected, result.Error
}

type GormFolderShareRepository struct {
	db *gorm.DB
}

func NewGormFolderShareRepository(db *gorm.DB) *GormFolderShareRepository {
	return &GormFolderShareRepository{db: db}
}

func (r *GormFolderShareRepository) GetByOwnerAndPath(_ context.Context, tx *gorm.DB, ownerID string, folderPath string) (models.FolderShare, error) {
	var share models.FolderShare
	err := useTx(r.db, tx).Where("owner_id = ? AND folder_path = ?", ownerID, folderPath).First(&share).Error
	return share, err
}

func (r *GormFolderShareRepository) GetByToken(_ context.Context, tx *gorm.DB, token string) (models.FolderShare, error) {
	var share models.FolderShare
	err := useTx(r.db, tx).Where("link_token = ?", token).First(&share).Error
	return share, err
}

func (r *GormFolderShareRepository) Upsert(_ context.Context, tx *gorm.DB, share *models.FolderShare) error {
	return useTx(r.db, tx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "folder_path"}},
		DoUpdates: clause.AssignmentColumns(shareUpsertColumns),
	}).Create(share).Error
}

func (r *GormFolderShareRepository) DeleteByOwnerAndPath(_ context.Context, tx *gorm.DB, ownerID string, folderPath string) error {
	return useTx(r.db, tx).Where("owner_id = ? AND folder_path = ?", ownerID, folderPath).Delete(&models.FolderShare{}).Error
}

func (r *GormFolderShareRepository) ListByPathPrefix(_ context.Context, tx *gorm.DB, ownerID string, folderPath string) ([]models.FolderShare, error) {
	var shares []models.FolderShare
	err := useTx(r.db, tx).
		Where("owner_id = ? AND (folder_path = ? OR folder_path LIKE ?)", ownerID, folderPath, escapeLike(folderPath)+"/%").
		Find(&shares).Error
	return shares, err
}

func (r *GormFolderShareRepository) UpdatePath(_ context.Context, tx *gorm.DB, shareID string, folderPath string) error {
	return useTx(r.db, tx).Model(&models.FolderShare{}).Where("id = ?", shareID).Update("folder_path", folderPath).Error
}

func (r *GormFolderShareRepository) IncrementViewCount(_ context.Context, tx *gorm.DB, shareID string) error {
	return useTx(r.db, tx).Model(&models.FolderShare{}).Where("id = ?", shareID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

func (r *GormFolderShareRepository) DeleteExpired(_ context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	result := useTx(r.db, tx).Where("expires_at IS NOT NULL AND expires_at < ?", now).Delete(&models.FolderShare{})
	return result.RowsAffected, result.Error
}

type GormUserShareRepository struct {
	db *gorm.DB
}

func NewGormUserShareRepository(db *gorm.DB) *GormUserShareRepository {
	return &GormUserShareRepository{db: db}
}

func (r *GormUserShareRepository) ListByFile(_ context.Context, tx *gorm.DB, fileID string) ([]models.FileUserShare, error) {
	var shares []models.FileUserShare
	err := useTx(r.db, tx).Where("file_id = ?", fileID).Order("created_at ASC").Find(&shares).Error
	return shares, err
}

func (r *GormUserShareRepository) Create(_ context.Context, tx *gorm.DB, share *models.FileUserShare) error {
	return useTx(r.db, tx).Clauses(clause.OnConflict{DoNothing: true}).Create(share).Error
}

func (r *GormUserShareRepository) Delete(_ context.Context, tx *gorm.DB, fileID string, email string) error {
	return useTx(r.db, tx).Where("file_id = ? AND email = ?", fileID, email).Delete(&models.FileUserShare{}).Error
}

func (r *GormUserShareRepository) DeleteByFile(_ context.Context, tx *gorm.DB, fileID string) error {
	return useTx(r.db, tx).Where("file_id = ?", fileID).Delete(&models.FileUserShare{}).Error
}
