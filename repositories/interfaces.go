package repositories

import (
	"context"
	"time"

	"github.com/lawweapons/bevisdrive/models"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ListFilesInput filters a listing. Trashed selects the trash view; every
// other view only sees active files.
type ListFilesInput struct {
	OwnerID      string
	Trashed      bool
	Folder       *string
	StarredOnly  bool
	PublicOnly   bool
	CreatedAfter *time.Time
	Query        string
	NameQuery    string
	MimeQuery    string
	SortBy       string
	Order        string
	Offset       int
	Limit        int
}

type FileRepository interface {
	Create(ctx context.Context, tx *gorm.DB, file *models.File) error
	GetByID(ctx context.Context, tx *gorm.DB, fileID string) (models.File, error)
	GetByIDAndOwner(ctx context.Context, tx *gorm.DB, fileID string, ownerID string) (models.File, error)
	GetByIDsAndOwner(ctx context.Context, tx *gorm.DB, ownerID string, fileIDs []string) ([]models.File, error)
	FindActiveByName(ctx context.Context, tx *gorm.DB, ownerID string, folder string, originalName string) (models.File, error)
	List(ctx context.Context, tx *gorm.DB, in ListFilesInput) ([]models.File, error)
	Count(ctx context.Context, tx *gorm.DB, in ListFilesInput) (int64, error)
	ListByFolderPrefix(ctx context.Context, tx *gorm.DB, ownerID string, folder string) ([]models.File, error)
	ListDistinctFolders(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error)
	ListTrashedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]models.File, error)
	SumSizeByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error)
	UpdateByIDAndOwner(ctx context.Context, tx *gorm.DB, fileID string, ownerID string, updates map[string]interface{}) error
	DeleteByIDAndOwner(ctx context.Context, tx *gorm.DB, fileID string, ownerID string) error
}

type FolderRepository interface {
	ListPaths(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error)
	ListByPathPrefix(ctx context.Context, tx *gorm.DB, ownerID string, path string) ([]models.Folder, error)
	Ensure(ctx context.Context, tx *gorm.DB, ownerID string, path string) (models.Folder, error)
	UpdatePath(ctx context.Context, tx *gorm.DB, folderID uint, path string) error
	DeleteByPathPrefix(ctx context.Context, tx *gorm.DB, ownerID string, path string) error
}

type FileVersionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, version *models.FileVersion) error
	ListByFile(ctx context.Context, tx *gorm.DB, fileID string) ([]models.FileVersion, error)
	GetByIDAndFile(ctx context.Context, tx *gorm.DB, versionID string, fileID string) (models.FileVersion, error)
	MaxVersionNumber(ctx context.Context, tx *gorm.DB, fileID string) (int, error)
	UpdatePath(ctx context.Context, tx *gorm.DB, versionID string, path string) error
	DeleteByID(ctx context.Context, tx *gorm.DB, versionID string) error
	DeleteByFile(ctx context.Context, tx *gorm.DB, fileID string) error
}

type FileShareRepository interface {
	GetByFileID(ctx context.Context, tx *gorm.DB, fileID string) (models.FileShare, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (models.FileShare, error)
	Upsert(ctx context.Context, tx *gorm.DB, share *models.FileShare) error
	DeleteByFileID(ctx context.Context, tx *gorm.DB, fileID string) error
	IncrementViewCount(ctx context.Context, tx *gorm.DB, shareID string) error
	DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type FolderShareRepository interface {
	GetByOwnerAndPath(ctx context.Context, tx *gorm.DB, ownerID string, folderPath string) (models.FolderShare, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (models.FolderShare, error)
	Upsert(ctx context.Context, tx *gorm.DB, share *models.FolderShare) error
	DeleteByOwnerAndPath(ctx context.Context, tx *gorm.DB, ownerID string, folderPath string) error
	ListByPathPrefix(ctx context.Context, tx *gorm.DB, ownerID string, folderPath string) ([]models.FolderShare, error)
	UpdatePath(ctx context.Context, tx *gorm.DB, shareID string, folderPath string) error
	IncrementViewCount(ctx context.Context, tx *gorm.DB, shareID string) error
	DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type UserShareRepository interface {
	ListByFile(ctx context.Context, tx *gorm.DB, fileID string) ([]models.FileUserShare, error)
	Create(ctx context.Context, tx *gorm.DB, share *models.FileUserShare) error
	Delete(ctx context.Context, tx *gorm.DB, fileID string, email string) error
	DeleteByFile(ctx context.Context, tx *gorm.DB, fileID string) error
}

type ActivityRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.ActivityLog) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]models.ActivityLog, error)
}

type IntentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, intent *models.MoveIntent) error
	GetByID(ctx context.Context, tx *gorm.DB, intentID string) (models.MoveIntent, error)
	Update(ctx context.Context, tx *gorm.DB, intentID string, updates map[string]interface{}) error
	ListStale(ctx context.Context, tx *gorm.DB, before time.Time, limit int) ([]models.MoveIntent, error)
}

type PreferenceRepository interface {
	GetByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (models.UserPreference, error)
	Save(ctx context.Context, tx *gorm.DB, pref *models.UserPreference) error
}

// ShareAttemptRepository counts failed password attempts per share token.
type ShareAttemptRepository interface {
	Failures(ctx context.Context, token string) (int64, error)
	RecordFailure(ctx context.Context, token string, windowSeconds int) (int64, error)
	Reset(ctx context.Context, token string) error
}

type Container struct {
	TxManager     TxManager
	Files         FileRepository
	Folders       FolderRepository
	Versions      FileVersionRepository
	FileShares    FileShareRepository
	FolderShares  FolderShareRepository
	UserShares    UserShareRepository
	Activity      ActivityRepository
	Intents       IntentRepository
	Preferences   PreferenceRepository
	ShareAttempts ShareAttemptRepository
}
