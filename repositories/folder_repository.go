package repositories

import (
	"context"

	"github.com/lawweapons/bevisdrive/models"

	"gorm.io/gorm"
)

type GormFolderRepository struct {
	db *gorm.DB
}

func NewGormFolderRepository(db *gorm.DB) *GormFolderRepository {
	return &GormFolderRepository{db: db}
}

func (r *GormFolderRepository) prefixQuery(db *gorm.DB, ownerID string, path string) *gorm.DB {
	return db.Where("owner_id = ? AND (path = ? OR path LIKE ?)", ownerID, path, escapeLike(path)+"/%")
}

func (r *GormFolderRepository) ListPaths(_ context.Context, tx *gorm.DB, ownerID string) ([]string, error) {
	var paths []string
	err := useTx(r.db, tx).Model(&models.Folder{}).Where("owner_id = ?", ownerID).Order("path ASC").Pluck("path", &paths).Error
	return paths, err
}

func (r *GormFolderRepository) ListByPathPrefix(_ context.Context, tx *gorm.DB, ownerID string, path string) ([]models.Folder, error) {
	var folders []models.Folder
	err := r.prefixQuery(useTx(r.db, tx), ownerID, path).Order("path ASC").Find(&folders).Error
	return folders, err
}

func (r *GormFolderRepository) Ensure(_ context.Context, tx *gorm.DB, ownerID string, path string) (models.Folder, error) {
	folder := models.Folder{OwnerID: ownerID, Path: path}
	err := useTx(r.db, tx).Where("owner_id = ? AND path = ?", ownerID, path).FirstOrCreate(&folder).Error
	return folder, err
}

func (r *GormFolderRepository) UpdatePath(_ context.Context, tx *gorm.DB, folderID uint, path string) error {
	return useTx(r.db, tx).Model(&models.Folder{}).Where("id = ?", folderID).Update("path", path).Error
}

func (r *GormFolderRepository) DeleteByPathPrefix(_ context.Context, tx *gorm.DB, ownerID string, path string) error {
	return r.prefixQuery(useTx(r.db, tx), ownerID, path).Delete(&models.Folder{}).Error
}
