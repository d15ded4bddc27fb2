package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/repositories"
	"github.com/lawweapons/bevisdrive/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LifecycleService owns the trash and star axes of a file plus hard delete
// and the metadata-only edits.
type LifecycleService interface {
	Trash(ctx context.Context, ownerID string, fileID string) (models.File, error)
	Restore(ctx context.Context, ownerID string, fileID string) (models.File, error)
	Delete(ctx context.Context, ownerID string, fileID string) error
	Purge(ctx context.Context, file models.File) error
	CompleteDelete(ctx context.Context, intent models.MoveIntent) error
	Star(ctx context.Context, ownerID string, fileID string) (models.File, error)
	Unstar(ctx context.Context, ownerID string, fileID string) (models.File, error)
	TrashBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult
	RestoreBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult
	DeleteBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult
	StarBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult
	UnstarBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult
	EmptyTrash(ctx context.Context, ownerID string) (BatchResult, error)
	Rename(ctx context.Context, ownerID string, fileID string, name string) (models.File, error)
	UpdateTags(ctx context.Context, ownerID string, fileID string, tags []string) (models.File, error)
}

type lifecycleService struct {
	txManager  TxManager
	files      repositories.FileRepository
	versions   repositories.FileVersionRepository
	fileShares repositories.FileShareRepository
	userShares repositories.UserShareRepository
	journal    intentJournal
	blobs      storage.BlobStore
	activity   ActivityService
	now        func() time.Time
}

func NewLifecycleService(
	txManager TxManager,
	files repositories.FileRepository,
	versions repositories.FileVersionRepository,
	fileShares repositories.FileShareRepository,
	userShares repositories.UserShareRepository,
	intents repositories.IntentRepository,
	blobs storage.BlobStore,
	activity ActivityService,
) LifecycleService {
	return &lifecycleService{
		txManager:  txManager,
		files:      files,
		versions:   versions,
		fileShares: fileShares,
		userShares: userShares,
		journal:    intentJournal{intents: intents},
		blobs:      blobs,
		activity:   activityOrNoop(activity),
		now:        nowUTC,
	}
}

func (s *lifecycleService) load(ctx context.Context, ownerID string, fileID string) (models.File, error) {
	file, err := s.files.GetByIDAndOwner(ctx, nil, fileID, ownerID)
	if err != nil {
		return models.File{}, lookupError(err, "file not found", "failed to load file")
	}
	return file, nil
}

func (s *lifecycleService) update(ctx context.Context, file models.File, updates map[string]interface{}) error {
	if err := s.files.UpdateByIDAndOwner(ctx, nil, file.ID, file.OwnerID, updates); err != nil {
		return lookupError(err, "file not found", "failed to update file")
	}
	return nil
}

func (s *lifecycleService) Trash(ctx context.Context, ownerID string, fileID string) (models.File, error) {
	file, err := s.load(ctx, ownerID, fileID)
	if err != nil {
		return models.File{}, err
	}
	if file.IsTrashed {
		return file, nil
	}

	trashedAt := s.now()
	if err := s.update(ctx, file, map[string]interface{}{"is_trashed": true, "trashed_at": trashedAt}); err != nil {
		return models.File{}, err
	}
	s.activity.Record(ctx, ownerID, ActionTrash, EntityFile, file.ID, file.OriginalName)

	file.IsTrashed = true
	file.TrashedAt = &trashedAt
	return file, nil
}

func (s *lifecycleService) Restore(ctx context.Context, ownerID string, fileID string) (models.File, error) {
	file, err := s.load(ctx, ownerID, fileID)
	if err != nil {
		return models.File{}, err
	}
	if !file.IsTrashed && file.TrashedAt == nil {
		return file, nil
	}

	if err := s.update(ctx, file, map[string]interface{}{"is_trashed": false, "trashed_at": nil}); err != nil {
		return models.File{}, err
	}
	s.activity.Record(ctx, ownerID, ActionRestore, EntityFile, file.ID, file.OriginalName)

	file.IsTrashed = false
	file.TrashedAt = nil
	return file, nil
}

func (s *lifecycleService) Delete(ctx context.Context, ownerID string, fileID string) error {
	file, err := s.load(ctx, ownerID, fileID)
	if err != nil {
		return err
	}
	if err := s.Purge(ctx, file); err != nil {
		return err
	}
	s.activity.Record(ctx, ownerID, ActionDelete, EntityFile, file.ID, file.OriginalName)
	return nil
}

// Purge removes the blobs of a file and its versions, then its rows. A blob
// failure leaves the metadata untouched.
func (s *lifecycleService) Purge(ctx context.Context, file models.File) (err error) {
	defer func() { observeOperation("delete", err) }()

	versions, err := s.versions.ListByFile(ctx, nil, file.ID)
	if err != nil {
		return newAppError(KindInternal, "failed to load file versions", err)
	}
	paths := make([]string, 0, len(versions)+1)
	paths = append(paths, file.Path)
	for _, v := range versions {
		paths = append(paths, v.Path)
	}

	intent := models.MoveIntent{
		OwnerID:    file.OwnerID,
		FileID:     file.ID,
		Operation:  models.IntentOperationDelete,
		FromPath:   file.Path,
		FromFolder: file.Folder,
	}
	if err := s.journal.begin(ctx, &intent); err != nil {
		return newAppError(KindInternal, "failed to record delete intent", err)
	}

	if err := s.blobs.Remove(ctx, paths); err != nil {
		s.journal.fail(ctx, intent.ID, err)
		return newAppError(KindInternal, "failed to remove file content", err)
	}
	s.journal.blobDone(ctx, intent.ID)

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.deleteRows(ctx, tx, file, intent.ID)
	})
	if err != nil {
		consistencyErrorsTotal.WithLabelValues(models.IntentOperationDelete).Inc()
		s.journal.note(ctx, intent.ID, err)
		logger.L().Error("delete metadata failed after blob removal",
			zap.String("intent_id", intent.ID),
			zap.String("file_id", file.ID),
			zap.String("path", file.Path),
			zap.Error(err))
		return newConsistencyError(intent.ID, file.ID, err)
	}
	return nil
}

// CompleteDelete finishes the metadata step of a delete intent whose blobs are
// already gone. A row that no longer exists only closes the intent.
func (s *lifecycleService) CompleteDelete(ctx context.Context, intent models.MoveIntent) error {
	file, err := s.files.GetByIDAndOwner(ctx, nil, intent.FileID, intent.OwnerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	missing := err != nil
	return s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if missing {
			return s.journal.complete(ctx, tx, intent.ID)
		}
		return s.deleteRows(ctx, tx, file, intent.ID)
	})
}

func (s *lifecycleService) deleteRows(ctx context.Context, tx *gorm.DB, file models.File, intentID string) error {
	if err := s.versions.DeleteByFile(ctx, tx, file.ID); err != nil {
		return err
	}
	if err := s.fileShares.DeleteByFileID(ctx, tx, file.ID); err != nil {
		return err
	}
	if err := s.userShares.DeleteByFile(ctx, tx, file.ID); err != nil {
		return err
	}
	if err := s.files.DeleteByIDAndOwner(ctx, tx, file.ID, file.OwnerID); err != nil {
		return err
	}
	return s.journal.complete(ctx, tx, intentID)
}

func (s *lifecycleService) Star(ctx context.Context, ownerID string, fileID string) (models.File, error) {
	return s.setStarred(ctx, ownerID, fileID, true)
}

func (s *lifecycleService) Unstar(ctx context.Context, ownerID string, fileID string) (models.File, error) {
	return s.setStarred(ctx, ownerID, fileID, false)
}

func (s *lifecycleService) setStarred(ctx context.Context, ownerID string, fileID string, starred bool) (models.File, error) {
	file, err := s.load(ctx, ownerID, fileID)
	if err != nil {
		return models.File{}, err
	}
	if file.IsStarred == starred {
		return file, nil
	}
	if err := s.update(ctx, file, map[string]interface{}{"is_starred": starred}); err != nil {
		return models.File{}, err
	}

	action := ActionUnstar
	if starred {
		action = ActionStar
	}
	s.activity.Record(ctx, ownerID, action, EntityFile, file.ID, file.OriginalName)

	file.IsStarred = starred
	return file, nil
}

func (s *lifecycleService) TrashBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult {
	return runBatch(fileIDs, func(id string) error {
		_, err := s.Trash(ctx, ownerID, id)
		return err
	})
}

func (s *lifecycleService) RestoreBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult {
	return runBatch(fileIDs, func(id string) error {
		_, err := s.Restore(ctx, ownerID, id)
		return err
	})
}

func (s *lifecycleService) DeleteBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult {
	return runBatch(fileIDs, func(id string) error {
		return s.Delete(ctx, ownerID, id)
	})
}

func (s *lifecycleService) StarBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult {
	return runBatch(fileIDs, func(id string) error {
		_, err := s.Star(ctx, ownerID, id)
		return err
	})
}

func (s *lifecycleService) UnstarBulk(ctx context.Context, ownerID string, fileIDs []string) BatchResult {
	return runBatch(fileIDs, func(id string) error {
		_, err := s.Unstar(ctx, ownerID, id)
		return err
	})
}

func (s *lifecycleService) EmptyTrash(ctx context.Context, ownerID string) (BatchResult, error) {
	trashed, err := s.files.List(ctx, nil, repositories.ListFilesInput{OwnerID: ownerID, Trashed: true})
	if err != nil {
		return BatchResult{}, newAppError(KindInternal, "failed to list trash", err)
	}
	ids := make([]string, 0, len(trashed))
	for _, f := range trashed {
		ids = append(ids, f.ID)
	}
	return s.DeleteBulk(ctx, ownerID, ids), nil
}

// Rename ignores empty and unchanged names.
func (s *lifecycleService) Rename(ctx context.Context, ownerID string, fileID string, name string) (models.File, error) {
	file, err := s.load(ctx, ownerID, fileID)
	if err != nil {
		return models.File{}, err
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == file.OriginalName {
		return file, nil
	}
	trimmed, err = cleanDisplayName(trimmed)
	if err != nil {
		return models.File{}, err
	}

	if err := s.update(ctx, file, map[string]interface{}{"original_name": trimmed}); err != nil {
		return models.File{}, err
	}
	s.activity.Record(ctx, ownerID, ActionRename, EntityFile, file.ID, trimmed)

	file.OriginalName = trimmed
	return file, nil
}

func (s *lifecycleService) UpdateTags(ctx context.Context, ownerID string, fileID string, tags []string) (models.File, error) {
	file, err := s.load(ctx, ownerID, fileID)
	if err != nil {
		return models.File{}, err
	}

	normalized := normalizeTags(tags)
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return models.File{}, newAppError(KindInternal, "failed to encode tags", err)
	}
	if err := s.files.UpdateByIDAndOwner(ctx, nil, file.ID, ownerID, map[string]interface{}{"tags": string(encoded)}); err != nil {
		return models.File{}, lookupError(err, "file not found", "failed to update tags")
	}
	s.activity.Record(ctx, ownerID, ActionTag, EntityFile, file.ID, file.OriginalName)

	file.Tags = normalized
	return file, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
