package services

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/repositories"
	"github.com/lawweapons/bevisdrive/storage"
	"github.com/lawweapons/bevisdrive/utils"

	"gorm.io/gorm"
)

const (
	ViewAll        = "all"
	ViewRecent     = "recent"
	ViewShared     = "shared"
	ViewStarred    = "starred"
	ViewFolder     = "folder"
	ViewTrash      = "trash"
	ViewDuplicates = "duplicates"

	recentWindow     = 7 * 24 * time.Hour
	quickSearchLimit = 10
)

type FileListOutput struct {
	Files      []models.File        `json:"files"`
	Pagination utils.PaginationData `json:"pagination"`
}

// ListFilesRequest selects a view and optional search filters on top of it.
// A nil Folder means no folder filter, except in the folder view where it
// means the root.
type ListFilesRequest struct {
	View     string
	Folder   *string
	Query    string
	Type     string
	SortBy   string
	Order    string
	Page     int
	PageSize int
}

type UploadFileInput struct {
	Folder   string
	Name     string
	MimeType string
	Size     int64
	Content  io.Reader
	// Replace turns a same-name upload in the same folder into a new version.
	Replace bool
}

type DownloadLink struct {
	URL       string `json:"url"`
	FileName  string `json:"file_name"`
	ExpiresIn int    `json:"expires_in"`
}

type StorageUsage struct {
	Used      int64 `json:"used"`
	Quota     int64 `json:"quota"`
	Available int64 `json:"available"`
}

type ArchiveResult struct {
	Added   int               `json:"added"`
	Skipped []BatchItemResult `json:"skipped"`
}

type FileServiceSettings struct {
	OwnerDownloadTTL time.Duration
	QuotaBytes       int64
	DefaultPageSize  int
	MaxPageSize      int
	DefaultSortBy    string
	DefaultOrder     string
}

type FileService interface {
	ListFiles(ctx context.Context, ownerID string, req ListFilesRequest) (FileListOutput, error)
	QuickSearch(ctx context.Context, ownerID string, query string) ([]models.File, error)
	GetFile(ctx context.Context, ownerID string, fileID string) (models.File, error)
	UploadFile(ctx context.Context, ownerID string, in UploadFileInput) (models.File, error)
	GetDownloadURL(ctx context.Context, ownerID string, fileID string) (DownloadLink, error)
	ListVersions(ctx context.Context, ownerID string, fileID string) ([]models.FileVersion, error)
	GetVersionDownloadURL(ctx context.Context, ownerID string, fileID string, versionID string) (DownloadLink, error)
	RestoreVersion(ctx context.Context, ownerID string, fileID string, versionID string) (models.File, error)
	ListArchiveEntries(ctx context.Context, ownerID string, folder string) ([]models.File, error)
	WriteArchive(ctx context.Context, files []models.File, w io.Writer) (ArchiveResult, error)
	StorageUsage(ctx context.Context, ownerID string) (StorageUsage, error)
}

type fileService struct {
	txManager TxManager
	files     repositories.FileRepository
	versions  repositories.FileVersionRepository
	move      MoveService
	blobs     storage.BlobStore
	activity  ActivityService
	settings  FileServiceSettings
	now       func() time.Time
}

func NewFileService(
	txManager TxManager,
	files repositories.FileRepository,
	versions repositories.FileVersionRepository,
	move MoveService,
	blobs storage.BlobStore,
	activity ActivityService,
	settings FileServiceSettings,
) FileService {
	if settings.OwnerDownloadTTL <= 0 {
		settings.OwnerDownloadTTL = time.Minute
	}
	if settings.DefaultPageSize <= 0 {
		settings.DefaultPageSize = 50
	}
	if settings.MaxPageSize <= 0 {
		settings.MaxPageSize = 200
	}
	if settings.DefaultSortBy == "" {
		settings.DefaultSortBy = "created_at"
	}
	if settings.DefaultOrder == "" {
		settings.DefaultOrder = "desc"
	}
	return &fileService{
		txManager: txManager,
		files:     files,
		versions:  versions,
		move:      move,
		blobs:     blobs,
		activity:  activityOrNoop(activity),
		settings:  settings,
		now:       nowUTC,
	}
}

func (s *fileService) ListFiles(ctx context.Context, ownerID string, req ListFilesRequest) (FileListOutput, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > s.settings.MaxPageSize {
		pageSize = s.settings.DefaultPageSize
	}

	allowedSortFields := map[string]bool{"name": true, "size": true, "created_at": true}
	sortBy := req.SortBy
	if !allowedSortFields[sortBy] {
		sortBy = s.settings.DefaultSortBy
	}
	order := strings.ToLower(req.Order)
	if order != "asc" && order != "desc" {
		order = s.settings.DefaultOrder
	}

	in := repositories.ListFilesInput{
		OwnerID:   ownerID,
		Query:     req.Query,
		MimeQuery: req.Type,
		SortBy:    sortBy,
		Order:     order,
	}

	if req.Folder != nil {
		folder, err := cleanFolder(*req.Folder)
		if err != nil {
			return FileListOutput{}, err
		}
		in.Folder = &folder
	}

	view := req.View
	if view == "" {
		view = ViewAll
	}
	switch view {
	case ViewAll, ViewDuplicates:
	case ViewRecent:
		since := s.now().Add(-recentWindow)
		in.CreatedAfter = &since
	case ViewShared:
		in.PublicOnly = true
	case ViewStarred:
		in.StarredOnly = true
	case ViewFolder:
		if in.Folder == nil {
			root := ""
			in.Folder = &root
		}
	case ViewTrash:
		in.Trashed = true
	default:
		return FileListOutput{}, newAppError(KindValidation, fmt.Sprintf("unknown view %q", req.View), nil)
	}

	if view == ViewDuplicates {
		return s.listDuplicates(ctx, in, page, pageSize)
	}

	total, err := s.files.Count(ctx, nil, in)
	if err != nil {
		return FileListOutput{}, newAppError(KindInternal, "failed to count files", err)
	}

	in.Offset = (page - 1) * pageSize
	in.Limit = pageSize
	list, err := s.files.List(ctx, nil, in)
	if err != nil {
		return FileListOutput{}, newAppError(KindInternal, "failed to list files", err)
	}
	if list == nil {
		list = []models.File{}
	}

	return FileListOutput{
		Files:      list,
		Pagination: utils.NewPagination(page, pageSize, total),
	}, nil
}

// listDuplicates runs the detector over the whole filtered set and pages the
// result in memory.
func (s *fileService) listDuplicates(ctx context.Context, in repositories.ListFilesInput, page int, pageSize int) (FileListOutput, error) {
	all, err := s.files.List(ctx, nil, in)
	if err != nil {
		return FileListOutput{}, newAppError(KindInternal, "failed to list files", err)
	}
	dups := FindDuplicates(all)

	start := (page - 1) * pageSize
	if start > len(dups) {
		start = len(dups)
	}
	end := start + pageSize
	if end > len(dups) {
		end = len(dups)
	}

	return FileListOutput{
		Files:      dups[start:end],
		Pagination: utils.NewPagination(page, pageSize, int64(len(dups))),
	}, nil
}

func (s *fileService) QuickSearch(ctx context.Context, ownerID string, query string) ([]models.File, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.File{}, nil
	}
	list, err := s.files.List(ctx, nil, repositories.ListFilesInput{
		OwnerID:   ownerID,
		NameQuery: query,
		SortBy:    "created_at",
		Order:     "desc",
		Limit:     quickSearchLimit,
	})
	if err != nil {
		return nil, newAppError(KindInternal, "failed to search files", err)
	}
	if list == nil {
		list = []models.File{}
	}
	return list, nil
}

func (s *fileService) GetFile(ctx context.Context, ownerID string, fileID string) (models.File, error) {
	file, err := s.files.GetByIDAndOwner(ctx, nil, fileID, ownerID)
	if err != nil {
		return models.File{}, lookupError(err, "file not found", "failed to load file")
	}
	return file, nil
}

// UploadFile writes the blob first and the row second. A failed row write
// removes the new blob again.
func (s *fileService) UploadFile(ctx context.Context, ownerID string, in UploadFileInput) (uploaded models.File, err error) {
	defer func() { observeOperation("upload", err) }()

	folder, err := cleanFolder(in.Folder)
	if err != nil {
		return models.File{}, err
	}
	name, err := cleanDisplayName(in.Name)
	if err != nil {
		return models.File{}, err
	}
	if in.Content == nil || in.Size < 0 {
		return models.File{}, newAppError(KindValidation, "file content is required", nil)
	}

	if err := s.checkQuota(ctx, ownerID, in.Size); err != nil {
		return models.File{}, err
	}

	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = getMimeType(name)
	}

	var existing *models.File
	if in.Replace {
		found, err := s.files.FindActiveByName(ctx, nil, ownerID, folder, name)
		switch {
		case err == nil:
			existing = &found
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return models.File{}, newAppError(KindInternal, "failed to look up existing file", err)
		}
	}

	storagePath := BuildStoragePath(ownerID, folder, name)
	if err := s.blobs.Upload(ctx, storagePath, in.Content, in.Size, mimeType); err != nil {
		return models.File{}, newAppError(KindInternal, "failed to store file content", err)
	}

	if existing != nil {
		uploaded, err = s.replaceContent(ctx, *existing, storagePath, in.Size, mimeType)
	} else {
		uploaded = models.File{
			OwnerID:      ownerID,
			Bucket:       s.blobs.Bucket(),
			Path:         storagePath,
			OriginalName: name,
			Size:         in.Size,
			MimeType:     mimeType,
			Tags:         []string{},
			Folder:       folder,
		}
		if createErr := s.files.Create(ctx, nil, &uploaded); createErr != nil {
			err = newAppError(KindInternal, "failed to save file record", createErr)
		}
	}
	if err != nil {
		if rmErr := s.blobs.Remove(ctx, []string{storagePath}); rmErr != nil {
			logger.Errorf("remove orphaned upload failed: path=%s err=%v", storagePath, rmErr)
		}
		return models.File{}, err
	}

	s.activity.Record(ctx, ownerID, ActionUpload, EntityFile, uploaded.ID, uploaded.OriginalName)
	return uploaded, nil
}

func (s *fileService) checkQuota(ctx context.Context, ownerID string, size int64) error {
	if s.settings.QuotaBytes <= 0 {
		return nil
	}
	used, err := s.files.SumSizeByOwner(ctx, nil, ownerID)
	if err != nil {
		return newAppError(KindInternal, "failed to compute storage usage", err)
	}
	if used+size > s.settings.QuotaBytes {
		return newAppErrorWithData(KindValidation, "storage quota exceeded", map[string]interface{}{
			"storage_quota":   s.settings.QuotaBytes,
			"storage_used":    used,
			"available_space": s.settings.QuotaBytes - used,
			"required_space":  size,
		}, nil)
	}
	return nil
}

// replaceContent keeps the current blob as the next version and points the
// record at the new one.
func (s *fileService) replaceContent(ctx context.Context, file models.File, newPath string, size int64, mimeType string) (models.File, error) {
	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		maxVersion, err := s.versions.MaxVersionNumber(ctx, tx, file.ID)
		if err != nil {
			return err
		}
		version := models.FileVersion{
			FileID:        file.ID,
			VersionNumber: maxVersion + 1,
			Path:          file.Path,
			Size:          file.Size,
			CreatedBy:     file.OwnerID,
		}
		if err := s.versions.Create(ctx, tx, &version); err != nil {
			return err
		}
		return s.files.UpdateByIDAndOwner(ctx, tx, file.ID, file.OwnerID, map[string]interface{}{
			"path":      newPath,
			"size":      size,
			"mime_type": mimeType,
			"bucket":    s.blobs.Bucket(),
		})
	})
	if err != nil {
		return models.File{}, newAppError(KindInternal, "failed to save new file version", err)
	}

	file.Path = newPath
	file.Size = size
	file.MimeType = mimeType
	file.Bucket = s.blobs.Bucket()
	return file, nil
}

func (s *fileService) GetDownloadURL(ctx context.Context, ownerID string, fileID string) (DownloadLink, error) {
	file, err := s.GetFile(ctx, ownerID, fileID)
	if err != nil {
		return DownloadLink{}, err
	}
	return s.signOwnerLink(ctx, file.Path, file.OriginalName)
}

// GetVersionDownloadURL signs a link to a superseded version. The suggested
// name is tagged with the version number, e.g. "report.pdf (v2)".
func (s *fileService) GetVersionDownloadURL(ctx context.Context, ownerID string, fileID string, versionID string) (DownloadLink, error) {
	file, err := s.GetFile(ctx, ownerID, fileID)
	if err != nil {
		return DownloadLink{}, err
	}
	version, err := s.versions.GetByIDAndFile(ctx, nil, versionID, file.ID)
	if err != nil {
		return DownloadLink{}, lookupError(err, "version not found", "failed to load version")
	}
	return s.signOwnerLink(ctx, version.Path, fmt.Sprintf("%s (v%d)", file.OriginalName, version.VersionNumber))
}

func (s *fileService) signOwnerLink(ctx context.Context, blobPath string, downloadName string) (DownloadLink, error) {
	url, err := s.blobs.CreateSignedURL(ctx, blobPath, s.settings.OwnerDownloadTTL, storage.SignedURLOptions{DownloadName: downloadName})
	if err != nil {
		return DownloadLink{}, newAppError(KindConfiguration, "failed to create download link", err)
	}
	return DownloadLink{
		URL:       url,
		FileName:  downloadName,
		ExpiresIn: int(s.settings.OwnerDownloadTTL / time.Second),
	}, nil
}

func (s *fileService) ListVersions(ctx context.Context, ownerID string, fileID string) ([]models.FileVersion, error) {
	if _, err := s.GetFile(ctx, ownerID, fileID); err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByFile(ctx, nil, fileID)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to list versions", err)
	}
	if versions == nil {
		versions = []models.FileVersion{}
	}
	return versions, nil
}

// RestoreVersion swaps metadata. A version blob still stored under an
// earlier folder is first moved next to the file so the restored path is
// derivable from the current folder.
func (s *fileService) RestoreVersion(ctx context.Context, ownerID string, fileID string, versionID string) (models.File, error) {
	file, err := s.GetFile(ctx, ownerID, fileID)
	if err != nil {
		return models.File{}, err
	}
	version, err := s.versions.GetByIDAndFile(ctx, nil, versionID, file.ID)
	if err != nil {
		return models.File{}, lookupError(err, "version not found", "failed to load version")
	}
	if version, err = s.move.RelocateVersion(ctx, file, version); err != nil {
		return models.File{}, err
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		maxVersion, err := s.versions.MaxVersionNumber(ctx, tx, file.ID)
		if err != nil {
			return err
		}
		current := models.FileVersion{
			FileID:        file.ID,
			VersionNumber: maxVersion + 1,
			Path:          file.Path,
			Size:          file.Size,
			CreatedBy:     ownerID,
		}
		if err := s.versions.Create(ctx, tx, &current); err != nil {
			return err
		}
		if err := s.files.UpdateByIDAndOwner(ctx, tx, file.ID, ownerID, map[string]interface{}{
			"path": version.Path,
			"size": version.Size,
		}); err != nil {
			return err
		}
		return s.versions.DeleteByID(ctx, tx, version.ID)
	})
	if err != nil {
		return models.File{}, newAppError(KindInternal, "failed to restore version", err)
	}

	s.activity.Record(ctx, ownerID, ActionRestoreVersion, EntityFile, file.ID, file.OriginalName)

	file.Path = version.Path
	file.Size = version.Size
	return file, nil
}

func (s *fileService) ListArchiveEntries(ctx context.Context, ownerID string, folder string) ([]models.File, error) {
	cleaned, err := cleanFolder(folder)
	if err != nil {
		return nil, err
	}
	files, err := s.files.List(ctx, nil, repositories.ListFilesInput{
		OwnerID: ownerID,
		Folder:  &cleaned,
		SortBy:  "name",
		Order:   "asc",
	})
	if err != nil {
		return nil, newAppError(KindInternal, "failed to list folder", err)
	}
	if len(files) == 0 {
		return nil, newAppError(KindNotFound, "folder has no files", nil)
	}
	return files, nil
}

// WriteArchive streams files into a zip one at a time. Entries whose content
// cannot be read are skipped and reported; only a broken writer aborts.
func (s *fileService) WriteArchive(ctx context.Context, files []models.File, w io.Writer) (ArchiveResult, error) {
	result := ArchiveResult{Skipped: []BatchItemResult{}}
	zw := zip.NewWriter(w)
	names := make(map[string]int, len(files))

	for _, file := range files {
		rc, err := s.blobs.Download(ctx, file.Path)
		if err != nil {
			logger.Warnf("archive skipped file: file=%s path=%s err=%v", file.ID, file.Path, err)
			result.Skipped = append(result.Skipped, BatchItemResult{ID: file.ID, Kind: KindOf(err), Error: err.Error()})
			continue
		}

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     uniqueEntryName(names, file.OriginalName),
			Method:   zip.Deflate,
			Modified: file.CreatedAt,
		})
		if err != nil {
			rc.Close()
			return result, newAppError(KindInternal, "failed to write archive", err)
		}
		_, err = io.Copy(entry, rc)
		rc.Close()
		if err != nil {
			return result, newAppError(KindInternal, "failed to write archive", err)
		}
		result.Added++
	}

	if err := zw.Close(); err != nil {
		return result, newAppError(KindInternal, "failed to finish archive", err)
	}
	return result, nil
}

func uniqueEntryName(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

func (s *fileService) StorageUsage(ctx context.Context, ownerID string) (StorageUsage, error) {
	used, err := s.files.SumSizeByOwner(ctx, nil, ownerID)
	if err != nil {
		return StorageUsage{}, newAppError(KindInternal, "failed to compute storage usage", err)
	}
	usage := StorageUsage{Used: used, Quota: s.settings.QuotaBytes}
	if usage.Quota > 0 {
		usage.Available = usage.Quota - used
		if usage.Available < 0 {
			usage.Available = 0
		}
	}
	return usage, nil
}
