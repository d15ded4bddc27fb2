package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/repositories"
	"github.com/lawweapons/bevisdrive/storage"

	"gorm.io/gorm"
)

const (
	shareTypeFile   = "file"
	shareTypeFolder = "folder"
)

type ShareSettings struct {
	Enabled       bool    `json:"enabled"`
	Password      *string `json:"password"`
	ExpiresInDays *int    `json:"expires_in_days"`
	MaxViews      *int64  `json:"max_views"`
}

type ShareInfo struct {
	Enabled     bool       `json:"enabled"`
	Token       string     `json:"token,omitempty"`
	HasPassword bool       `json:"has_password"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ViewCount   int64      `json:"view_count"`
	MaxViews    *int64     `json:"max_views,omitempty"`
	FolderPath  string     `json:"folder_path,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

type ResolvedShare struct {
	SignedURL string `json:"signedUrl"`
	FileName  string `json:"file_name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
}

type SharedFile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

type FolderShareView struct {
	FolderPath string       `json:"folder_path"`
	Files      []SharedFile `json:"files"`
}

type ShareSettingsConfig struct {
	SignedURLTTL         time.Duration
	MaxPasswordAttempts  int
	AttemptWindowSeconds int
}

// ShareService issues and resolves public links. Resolution checks, in order:
// token present, share exists, not expired, attempt limit, password.
type ShareService interface {
	UpsertFileShare(ctx context.Context, ownerID string, fileID string, settings ShareSettings) (ShareInfo, error)
	GetFileShare(ctx context.Context, ownerID string, fileID string) (ShareInfo, error)
	ResolveShare(ctx context.Context, token string, password *string) (ResolvedShare, error)

	UpsertFolderShare(ctx context.Context, ownerID string, folderPath string, settings ShareSettings) (ShareInfo, error)
	GetFolderShare(ctx context.Context, ownerID string, folderPath string) (ShareInfo, error)
	ResolveFolderShare(ctx context.Context, token string, password *string) (FolderShareView, error)
	ResolveFolderShareFile(ctx context.Context, token string, fileID string, password *string) (ResolvedShare, error)

	AddUserShare(ctx context.Context, ownerID string, fileID string, email string) (models.FileUserShare, error)
	RemoveUserShare(ctx context.Context, ownerID string, fileID string, email string) error
	ListUserShares(ctx context.Context, ownerID string, fileID string) ([]models.FileUserShare, error)
}

type shareService struct {
	txManager    TxManager
	files        repositories.FileRepository
	fileShares   repositories.FileShareRepository
	folderShares repositories.FolderShareRepository
	userShares   repositories.UserShareRepository
	attempts     repositories.ShareAttemptRepository
	blobs        storage.BlobStore
	activity     ActivityService
	cfg          ShareSettingsConfig
	now          func() time.Time
	newToken     func() string
}

func NewShareService(
	txManager TxManager,
	files repositories.FileRepository,
	fileShares repositories.FileShareRepository,
	folderShares repositories.FolderShareRepository,
	userShares repositories.UserShareRepository,
	attempts repositories.ShareAttemptRepository,
	blobs storage.BlobStore,
	activity ActivityService,
	cfg ShareSettingsConfig,
) ShareService {
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 5 * time.Minute
	}
	return &shareService{
		txManager:    txManager,
		files:        files,
		fileShares:   fileShares,
		folderShares: folderShares,
		userShares:   userShares,
		attempts:     attempts,
		blobs:        blobs,
		activity:     activityOrNoop(activity),
		cfg:          cfg,
		now:          nowUTC,
		newToken:     uuid.NewString,
	}
}

// shareFields is what a share row gets from ShareSettings.
type shareFields struct {
	passwordHash *string
	expiresAt    *time.Time
	maxViews     *int64
}

func (s *shareService) buildFields(settings ShareSettings) (shareFields, error) {
	var fields shareFields

	if settings.ExpiresInDays != nil {
		if *settings.ExpiresInDays <= 0 {
			return fields, newAppError(KindValidation, "expires_in_days must be positive", nil)
		}
		expiresAt := s.now().AddDate(0, 0, *settings.ExpiresInDays)
		fields.expiresAt = &expiresAt
	}

	if settings.MaxViews != nil {
		if *settings.MaxViews <= 0 {
			return fields, newAppError(KindValidation, "max_views must be positive", nil)
		}
		maxViews := *settings.MaxViews
		fields.maxViews = &maxViews
	}

	if settings.Password != nil && *settings.Password != "" {
		hash, err := HashSharePassword(*settings.Password)
		if err != nil {
			return fields, newAppError(KindInternal, "failed to hash share password", err)
		}
		fields.passwordHash = &hash
	}
	return fields, nil
}

func (s *shareService) UpsertFileShare(ctx context.Context, ownerID string, fileID string, settings ShareSettings) (ShareInfo, error) {
	file, err := s.files.GetByIDAndOwner(ctx, nil, fileID, ownerID)
	if err != nil {
		return ShareInfo{}, lookupError(err, "file not found", "failed to load file")
	}

	if !settings.Enabled {
		err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
			if err := s.fileShares.DeleteByFileID(ctx, tx, file.ID); err != nil {
				return err
			}
			return s.files.UpdateByIDAndOwner(ctx, tx, file.ID, ownerID, map[string]interface{}{"is_public": false})
		})
		if err != nil {
			return ShareInfo{}, newAppError(KindInternal, "failed to disable share", err)
		}
		s.activity.Record(ctx, ownerID, ActionUnshare, EntityFile, file.ID, file.OriginalName)
		return ShareInfo{Enabled: false}, nil
	}

	fields, err := s.buildFields(settings)
	if err != nil {
		return ShareInfo{}, err
	}

	var share models.FileShare
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := s.fileShares.GetByFileID(ctx, tx, file.ID)
		switch {
		case err == nil:
			share = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			share = models.FileShare{FileID: file.ID, OwnerID: ownerID, LinkToken: s.newToken()}
		default:
			return err
		}

		share.PasswordHash = fields.passwordHash
		share.ExpiresAt = fields.expiresAt
		share.MaxViews = fields.maxViews
		if err := s.fileShares.Upsert(ctx, tx, &share); err != nil {
			return err
		}
		return s.files.UpdateByIDAndOwner(ctx, tx, file.ID, ownerID, map[string]interface{}{"is_public": true})
	})
	if err != nil {
		return ShareInfo{}, newAppError(KindInternal, "failed to save share", err)
	}

	s.activity.Record(ctx, ownerID, ActionShare, EntityFile, file.ID, file.OriginalName)
	return fileShareInfo(share), nil
}

func (s *shareService) GetFileShare(ctx context.Context, ownerID string, fileID string) (ShareInfo, error) {
	if _, err := s.files.GetByIDAndOwner(ctx, nil, fileID, ownerID); err != nil {
		return ShareInfo{}, lookupError(err, "file not found", "failed to load file")
	}
	share, err := s.fileShares.GetByFileID(ctx, nil, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ShareInfo{Enabled: false}, nil
		}
		return ShareInfo{}, newAppError(KindInternal, "failed to load share", err)
	}
	return fileShareInfo(share), nil
}

func (s *shareService) ResolveShare(ctx context.Context, token string, password *string) (resolved ResolvedShare, err error) {
	defer func() { observeShare(shareTypeFile, err) }()

	token = strings.TrimSpace(token)
	if token == "" {
		return ResolvedShare{}, newAppError(KindValidation, "token is required", nil)
	}

	share, err := s.fileShares.GetByToken(ctx, nil, token)
	if err != nil {
		return ResolvedShare{}, lookupError(err, "share not found", "failed to load share")
	}
	if err := s.checkAccess(ctx, token, share.ExpiresAt, share.ViewCount, share.MaxViews, share.PasswordHash, password); err != nil {
		return ResolvedShare{}, err
	}

	file, err := s.files.GetByID(ctx, nil, share.FileID)
	if err != nil {
		return ResolvedShare{}, lookupError(err, "share not found", "failed to load shared file")
	}
	if file.IsTrashed {
		return ResolvedShare{}, newAppError(KindNotFound, "share not found", nil)
	}

	resolved, err = s.signFile(ctx, file)
	if err != nil {
		return ResolvedShare{}, err
	}

	if err := s.fileShares.IncrementViewCount(ctx, nil, share.ID); err != nil {
		logger.Warnf("increment share view count failed: share=%s err=%v", share.ID, err)
	}
	return resolved, nil
}

func (s *shareService) UpsertFolderShare(ctx context.Context, ownerID string, folderPath string, settings ShareSettings) (ShareInfo, error) {
	folder, err := cleanFolder(folderPath)
	if err != nil {
		return ShareInfo{}, err
	}
	if folder == "" {
		return ShareInfo{}, newAppError(KindValidation, "folder path is required", nil)
	}

	if !settings.Enabled {
		if err := s.folderShares.DeleteByOwnerAndPath(ctx, nil, ownerID, folder); err != nil {
			return ShareInfo{}, newAppError(KindInternal, "failed to disable folder share", err)
		}
		s.activity.Record(ctx, ownerID, ActionUnshare, EntityFolder, folder, folder)
		return ShareInfo{Enabled: false, FolderPath: folder}, nil
	}

	fields, err := s.buildFields(settings)
	if err != nil {
		return ShareInfo{}, err
	}

	var share models.FolderShare
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := s.folderShares.GetByOwnerAndPath(ctx, tx, ownerID, folder)
		switch {
		case err == nil:
			share = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			share = models.FolderShare{OwnerID: ownerID, FolderPath: folder, LinkToken: s.newToken()}
		default:
			return err
		}

		share.PasswordHash = fields.passwordHash
		share.ExpiresAt = fields.expiresAt
		share.MaxViews = fields.maxViews
		return s.folderShares.Upsert(ctx, tx, &share)
	})
	if err != nil {
		return ShareInfo{}, newAppError(KindInternal, "failed to save folder share", err)
	}

	s.activity.Record(ctx, ownerID, ActionShare, EntityFolder, folder, folder)
	return folderShareInfo(share), nil
}

func (s *shareService) GetFolderShare(ctx context.Context, ownerID string, folderPath string) (ShareInfo, error) {
	folder, err := cleanFolder(folderPath)
	if err != nil {
		return ShareInfo{}, err
	}
	share, err := s.folderShares.GetByOwnerAndPath(ctx, nil, ownerID, folder)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ShareInfo{Enabled: false, FolderPath: folder}, nil
		}
		return ShareInfo{}, newAppError(KindInternal, "failed to load folder share", err)
	}
	return folderShareInfo(share), nil
}

func (s *shareService) loadFolderShare(ctx context.Context, token string, password *string) (models.FolderShare, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.FolderShare{}, newAppError(KindValidation, "token is required", nil)
	}
	share, err := s.folderShares.GetByToken(ctx, nil, token)
	if err != nil {
		return models.FolderShare{}, lookupError(err, "share not found", "failed to load share")
	}
	if err := s.checkAccess(ctx, token, share.ExpiresAt, share.ViewCount, share.MaxViews, share.PasswordHash, password); err != nil {
		return models.FolderShare{}, err
	}
	return share, nil
}

func (s *shareService) ResolveFolderShare(ctx context.Context, token string, password *string) (view FolderShareView, err error) {
	defer func() { observeShare(shareTypeFolder, err) }()

	share, err := s.loadFolderShare(ctx, token, password)
	if err != nil {
		return FolderShareView{}, err
	}

	folder := share.FolderPath
	files, err := s.files.List(ctx, nil, repositories.ListFilesInput{
		OwnerID: share.OwnerID,
		Folder:  &folder,
		SortBy:  "name",
		Order:   "asc",
	})
	if err != nil {
		return FolderShareView{}, newAppError(KindInternal, "failed to list shared folder", err)
	}

	view = FolderShareView{FolderPath: folder, Files: make([]SharedFile, 0, len(files))}
	for _, f := range files {
		view.Files = append(view.Files, SharedFile{
			ID:        f.ID,
			Name:      f.OriginalName,
			Size:      f.Size,
			MimeType:  f.MimeType,
			CreatedAt: f.CreatedAt,
		})
	}

	if err := s.folderShares.IncrementViewCount(ctx, nil, share.ID); err != nil {
		logger.Warnf("increment folder share view count failed: share=%s err=%v", share.ID, err)
	}
	return view, nil
}

func (s *shareService) ResolveFolderShareFile(ctx context.Context, token string, fileID string, password *string) (resolved ResolvedShare, err error) {
	defer func() { observeShare(shareTypeFolder, err) }()

	share, err := s.loadFolderShare(ctx, token, password)
	if err != nil {
		return ResolvedShare{}, err
	}

	file, err := s.files.GetByIDAndOwner(ctx, nil, fileID, share.OwnerID)
	if err != nil {
		return ResolvedShare{}, lookupError(err, "file not found", "failed to load shared file")
	}
	// Only direct children are covered by a folder share.
	if file.Folder != share.FolderPath || file.IsTrashed {
		return ResolvedShare{}, newAppError(KindNotFound, "file not found", nil)
	}
	resolved, err = s.signFile(ctx, file)
	if err != nil {
		return ResolvedShare{}, err
	}
	// File downloads count against the folder link's view limit too.
	if err := s.folderShares.IncrementViewCount(ctx, nil, share.ID); err != nil {
		logger.Warnf("increment folder share view count failed: share=%s err=%v", share.ID, err)
	}
	return resolved, nil
}

// checkAccess applies expiry, the attempt limiter and the password, in that
// order, so an expired link never reveals whether a password was right.
func (s *shareService) checkAccess(ctx context.Context, token string, expiresAt *time.Time, viewCount int64, maxViews *int64, passwordHash *string, password *string) error {
	if expiresAt != nil && expiresAt.Before(s.now()) {
		return newAppError(KindExpired, "share link has expired", nil)
	}
	if maxViews != nil && viewCount >= *maxViews {
		return newAppError(KindExpired, "share link has reached its view limit", nil)
	}
	if passwordHash == nil || *passwordHash == "" {
		return nil
	}

	if s.limited(ctx, token) {
		return newAppError(KindRateLimited, "too many failed password attempts", nil)
	}
	if password == nil || *password == "" {
		return newAppError(KindAuthRequired, "password required", nil)
	}
	if !VerifySharePassword(*passwordHash, *password) {
		s.recordFailure(ctx, token)
		return newAppError(KindAuthInvalid, "invalid password", nil)
	}
	s.resetFailures(ctx, token)
	return nil
}

func (s *shareService) limited(ctx context.Context, token string) bool {
	if s.attempts == nil || s.cfg.MaxPasswordAttempts <= 0 {
		return false
	}
	failures, err := s.attempts.Failures(ctx, token)
	if err != nil {
		logger.Warnf("read share attempt counter failed: err=%v", err)
		return false
	}
	return failures >= int64(s.cfg.MaxPasswordAttempts)
}

func (s *shareService) recordFailure(ctx context.Context, token string) {
	if s.attempts == nil {
		return
	}
	if _, err := s.attempts.RecordFailure(ctx, token, s.cfg.AttemptWindowSeconds); err != nil {
		logger.Warnf("record share attempt failed: err=%v", err)
	}
}

func (s *shareService) resetFailures(ctx context.Context, token string) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Reset(ctx, token); err != nil {
		logger.Warnf("reset share attempts failed: err=%v", err)
	}
}

func (s *shareService) signFile(ctx context.Context, file models.File) (ResolvedShare, error) {
	url, err := s.blobs.CreateSignedURL(ctx, file.Path, s.cfg.SignedURLTTL, storage.SignedURLOptions{DownloadName: file.OriginalName})
	if err != nil {
		return ResolvedShare{}, newAppError(KindConfiguration, "failed to create download link", err)
	}
	return ResolvedShare{
		SignedURL: url,
		FileName:  file.OriginalName,
		Size:      file.Size,
		MimeType:  file.MimeType,
	}, nil
}

func (s *shareService) AddUserShare(ctx context.Context, ownerID string, fileID string, email string) (models.FileUserShare, error) {
	file, err := s.files.GetByIDAndOwner(ctx, nil, fileID, ownerID)
	if err != nil {
		return models.FileUserShare{}, lookupError(err, "file not found", "failed to load file")
	}
	address, err := normalizeEmail(email)
	if err != nil {
		return models.FileUserShare{}, err
	}

	share := models.FileUserShare{FileID: file.ID, OwnerID: ownerID, Email: address}
	if err := s.userShares.Create(ctx, nil, &share); err != nil {
		return models.FileUserShare{}, newAppError(KindInternal, "failed to add recipient", err)
	}
	s.activity.Record(ctx, ownerID, ActionShareUser, EntityFile, file.ID, address)
	return share, nil
}

func (s *shareService) RemoveUserShare(ctx context.Context, ownerID string, fileID string, email string) error {
	file, err := s.files.GetByIDAndOwner(ctx, nil, fileID, ownerID)
	if err != nil {
		return lookupError(err, "file not found", "failed to load file")
	}
	address, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.userShares.Delete(ctx, nil, file.ID, address); err != nil {
		return newAppError(KindInternal, "failed to remove recipient", err)
	}
	s.activity.Record(ctx, ownerID, ActionUnshareUser, EntityFile, file.ID, address)
	return nil
}

func (s *shareService) ListUserShares(ctx context.Context, ownerID string, fileID string) ([]models.FileUserShare, error) {
	if _, err := s.files.GetByIDAndOwner(ctx, nil, fileID, ownerID); err != nil {
		return nil, lookupError(err, "file not found", "failed to load file")
	}
	shares, err := s.userShares.ListByFile(ctx, nil, fileID)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to list recipients", err)
	}
	return shares, nil
}

func normalizeEmail(email string) (string, error) {
	address, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", newAppError(KindValidation, "invalid email address", err)
	}
	return strings.ToLower(address.Address), nil
}

func fileShareInfo(share models.FileShare) ShareInfo {
	createdAt := share.CreatedAt
	return ShareInfo{
		Enabled:     true,
		Token:       share.LinkToken,
		HasPassword: share.PasswordHash != nil && *share.PasswordHash != "",
		ExpiresAt:   share.ExpiresAt,
		ViewCount:   share.ViewCount,
		MaxViews:    share.MaxViews,
		CreatedAt:   &createdAt,
	}
}

func folderShareInfo(share models.FolderShare) ShareInfo {
	createdAt := share.CreatedAt
	return ShareInfo{
		Enabled:     true,
		Token:       share.LinkToken,
		HasPassword: share.PasswordHash != nil && *share.PasswordHash != "",
		ExpiresAt:   share.ExpiresAt,
		ViewCount:   share.ViewCount,
		MaxViews:    share.MaxViews,
		FolderPath:  share.FolderPath,
		CreatedAt:   &createdAt,
	}
}

func observeShare(shareType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	shareResolutionsTotal.WithLabelValues(shareType, outcome).Inc()
}
