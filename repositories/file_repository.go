package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/lawweapons/bevisdrive/models"

	"gorm.io/gorm"
)

type GormFileRepository struct {
	db *gorm.DB
}

func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) filterQuery(db *gorm.DB, in ListFilesInput) *gorm.DB {
	query := db.Model(&models.File{}).Where("owner_id = ? AND is_trashed = ?", in.OwnerID, in.Trashed)
	if in.Folder != nil {
		query = query.Where("folder = ?", *in.Folder)
	}
	if in.StarredOnly {
		query = query.Where("is_starred = ?", true)
	}
	if in.PublicOnly {
		query = query.Where("is_public = ?", true)
	}
	if in.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *in.CreatedAfter)
	}
	if q := strings.TrimSpace(in.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		query = query.Where("(LOWER(original_name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	if n := strings.TrimSpace(in.NameQuery); n != "" {
		query = query.Where("LOWER(original_name) LIKE ?", "%"+escapeLike(strings.ToLower(n))+"%")
	}
	if m := strings.TrimSpace(in.MimeQuery); m != "" {
		query = query.Where("LOWER(mime_type) LIKE ?", "%"+escapeLike(strings.ToLower(m))+"%")
	}
	return query
}

func (r *GormFileRepository) Create(_ context.Context, tx *gorm.DB, file *models.File) error {
	return useTx(r.db, tx).Create(file).Error
}

func (r *GormFileRepository) GetByID(_ context.Context, tx *gorm.DB, fileID string) (models.File, error) {
	var file models.File
	err := useTx(r.db, tx).Where("id = ?", fileID).First(&file).Error
	return file, err
}

func (r *GormFileRepository) GetByIDAndOwner(_ context.Context, tx *gorm.DB, fileID string, ownerID string) (models.File, error) {
	var file models.File
	err := useTx(r.db, tx).Where("id = ? AND owner_id = ?", fileID, ownerID).First(&file).Error
	return file, err
}

func (r *GormFileRepository) GetByIDsAndOwner(_ context.Context, tx *gorm.DB, ownerID string, fileIDs []string) ([]models.File, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	var files []models.File
	err := useTx(r.db, tx).Where("owner_id = ? AND id IN ?", ownerID, fileIDs).Find(&files).Error
	return files, err
}

func (r *GormFileRepository) FindActiveByName(_ context.Context, tx *gorm.DB, ownerID string, folder string, originalName string) (models.File, error) {
	var file models.File
	err := useTx(r.db, tx).
		Where("owner_id = ? AND folder = ? AND original_name = ? AND is_trashed = ?", ownerID, folder, originalName, false).
		Order("created_at DESC").
		First(&file).Error
	return file, err
}

func (r *GormFileRepository) List(_ context.Context, tx *gorm.DB, in ListFilesInput) ([]models.File, error) {
	sortColumns := map[string]string{
		"name":       "original_name",
		"size":       "size",
		"created_at": "created_at",
	}
	sortCol := sortColumns[in.SortBy]
	if sortCol == "" {
		sortCol = sortColumns["created_at"]
	}

	order := strings.ToUpper(in.Order)
	if order != "ASC" {
		order = "DESC"
	}

	query := r.filterQuery(useTx(r.db, tx), in).Order(sortCol + " " + order).Order("id ASC")
	if in.Offset > 0 {
		query = query.Offset(in.Offset)
	}
	if in.Limit > 0 {
		query = query.Limit(in.Limit)
	}

	var files []models.File
	err := query.Find(&files).Error
	return files, err
}

func (r *GormFileRepository) Count(_ context.Context, tx *gorm.DB, in ListFilesInput) (int64, error) {
	var total int64
	err := r.filterQuery(useTx(r.db, tx), in).Count(&total).Error
	return total, err
}

// ListByFolderPrefix returns every file, trashed or not, in folder or below it.
func (r *GormFileRepository) ListByFolderPrefix(_ context.Context, tx *gorm.DB, ownerID string, folder string) ([]models.File, error) {
	var files []models.File
	err := useTx(r.db, tx).
		Where("owner_id = ? AND (folder = ? OR folder LIKE ?)", ownerID, folder, escapeLike(folder)+"/%").
		Order("folder ASC").Order("created_at ASC").
		Find(&files).Error
	return files, err
}

func (r *GormFileRepository) ListDistinctFolders(_ context.Context, tx *gorm.DB, ownerID string) ([]string, error) {
	var folders []string
	err := useTx(r.db, tx).Model(&models.File{}).
		Where("owner_id = ? AND is_trashed = ? AND folder <> ?", ownerID, false, "").
		Distinct().
		Pluck("folder", &folders).Error
	return folders, err
}

func (r *GormFileRepository) ListTrashedBefore(_ context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]models.File, error) {
	query := useTx(r.db, tx).Where("is_trashed = ? AND trashed_at < ?", true, cutoff).Order("trashed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var files []models.File
	err := query.Find(&files).Error
	return files, err
}

func (r *GormFileRepository) SumSizeByOwner(_ context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := useTx(r.db, tx).Model(&models.File{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	return total, err
}

func (r *GormFileRepository) UpdateByIDAndOwner(_ context.Context, tx *gorm.DB, fileID string, ownerID string, updates map[string]interface{}) error {
	result := useTx(r.db, tx).Model(&models.File{}).Where("id = ? AND owner_id = ?", fileID, ownerID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormFileRepository) DeleteByIDAndOwner(_ context.Context, tx *gorm.DB, fileID string, ownerID string) error {
	return useTx(r.db, tx).Where("id = ? AND owner_id = ?", fileID, ownerID).Delete(&models.File{}).Error
}
