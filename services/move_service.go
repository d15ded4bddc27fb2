package services

import (
	"context"
	"errors"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/pathtree"
	"github.com/lawweapons/bevisdrive/repositories"
	"github.com/lawweapons/bevisdrive/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MoveService relocates files. Every relocation is blob move first, then the
// metadata update, bracketed by an intent record.
type MoveService interface {
	MoveFile(ctx context.Context, ownerID string, fileID string, targetFolder string) (models.File, error)
	MoveBulk(ctx context.Context, ownerID string, fileIDs []string, targetFolder string) (BatchResult, error)
	RenameFolder(ctx context.Context, ownerID string, oldPath string, newPath string) (BatchResult, error)
	CompleteMove(ctx context.Context, intent models.MoveIntent) error
	RelocateVersion(ctx context.Context, file models.File, version models.FileVersion) (models.FileVersion, error)
	CompleteVersionMove(ctx context.Context, intent models.MoveIntent) error
}

type moveService struct {
	txManager TxManager
	files     repositories.FileRepository
	versions  repositories.FileVersionRepository
	journal   intentJournal
	blobs     storage.BlobStore
	activity  ActivityService
}

func NewMoveService(
	txManager TxManager,
	files repositories.FileRepository,
	versions repositories.FileVersionRepository,
	intents repositories.IntentRepository,
	blobs storage.BlobStore,
	activity ActivityService,
) MoveService {
	return &moveService{
		txManager: txManager,
		files:     files,
		versions:  versions,
		journal:   intentJournal{intents: intents},
		blobs:     blobs,
		activity:  activityOrNoop(activity),
	}
}

func (s *moveService) MoveFile(ctx context.Context, ownerID string, fileID string, targetFolder string) (models.File, error) {
	target, err := cleanFolder(targetFolder)
	if err != nil {
		return models.File{}, err
	}
	return s.moveByID(ctx, ownerID, fileID, target)
}

func (s *moveService) MoveBulk(ctx context.Context, ownerID string, fileIDs []string, targetFolder string) (BatchResult, error) {
	target, err := cleanFolder(targetFolder)
	if err != nil {
		return BatchResult{}, err
	}
	return runBatch(fileIDs, func(id string) error {
		_, err := s.moveByID(ctx, ownerID, id, target)
		return err
	}), nil
}

// RenameFolder relocates every file in oldPath or below it, one at a time.
// Explicit folder rows and folder shares are the caller's concern.
func (s *moveService) RenameFolder(ctx context.Context, ownerID string, oldPath string, newPath string) (BatchResult, error) {
	from, err := cleanFolder(oldPath)
	if err != nil {
		return BatchResult{}, err
	}
	to, err := cleanFolder(newPath)
	if err != nil {
		return BatchResult{}, err
	}
	if from == "" || to == "" {
		return BatchResult{}, newAppError(KindValidation, "folder path is required", nil)
	}
	if from == to {
		return BatchResult{Items: []BatchItemResult{}}, nil
	}
	if pathtree.IsWithin(to, from) {
		return BatchResult{}, newAppError(KindValidation, "a folder cannot be moved into itself", nil)
	}

	affected, err := s.files.ListByFolderPrefix(ctx, nil, ownerID, from)
	if err != nil {
		return BatchResult{}, newAppError(KindInternal, "failed to list folder contents", err)
	}

	result := BatchResult{Items: make([]BatchItemResult, 0, len(affected))}
	for _, file := range affected {
		_, moveErr := s.relocate(ctx, file, pathtree.RenamePrefix(file.Folder, from, to))
		result.add(file.ID, moveErr)
	}

	logger.Infof("folder rename %q -> %q: owner=%s moved=%d failed=%d", from, to, ownerID, result.Succeeded, result.Failed)
	return result, nil
}

// CompleteMove applies the metadata step of a move intent whose blob is
// already at ToPath.
func (s *moveService) CompleteMove(ctx context.Context, intent models.MoveIntent) error {
	return s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.files.UpdateByIDAndOwner(ctx, tx, intent.FileID, intent.OwnerID, map[string]interface{}{
			"path":   intent.ToPath,
			"folder": intent.ToFolder,
		}); err != nil {
			return err
		}
		return s.journal.complete(ctx, tx, intent.ID)
	})
}

func (s *moveService) moveByID(ctx context.Context, ownerID string, fileID string, target string) (models.File, error) {
	file, err := s.files.GetByIDAndOwner(ctx, nil, fileID, ownerID)
	if err != nil {
		return models.File{}, lookupError(err, "file not found", "failed to load file")
	}
	return s.relocate(ctx, file, target)
}

func (s *moveService) relocate(ctx context.Context, file models.File, target string) (moved models.File, err error) {
	if file.Folder == target {
		return file, nil
	}
	defer func() { observeOperation("move", err) }()

	newPath := ComputeTargetPath(file.OwnerID, target, nameComponent(file.Path))

	intent := models.MoveIntent{
		OwnerID:    file.OwnerID,
		FileID:     file.ID,
		Operation:  models.IntentOperationMove,
		FromPath:   file.Path,
		ToPath:     newPath,
		FromFolder: file.Folder,
		ToFolder:   target,
	}
	if err := s.journal.begin(ctx, &intent); err != nil {
		return models.File{}, newAppError(KindInternal, "failed to record move intent", err)
	}

	if err := s.blobs.Move(ctx, file.Path, newPath); err != nil {
		s.journal.fail(ctx, intent.ID, err)
		if errors.Is(err, storage.ErrObjectNotFound) {
			return models.File{}, newAppError(KindNotFound, "file content is missing from storage", err)
		}
		return models.File{}, newAppError(KindInternal, "failed to move file content", err)
	}
	s.journal.blobDone(ctx, intent.ID)

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.files.UpdateByIDAndOwner(ctx, tx, file.ID, file.OwnerID, map[string]interface{}{
			"path":   newPath,
			"folder": target,
		}); err != nil {
			return err
		}
		return s.journal.complete(ctx, tx, intent.ID)
	})
	if err != nil {
		consistencyErrorsTotal.WithLabelValues(models.IntentOperationMove).Inc()
		s.journal.note(ctx, intent.ID, err)
		logger.L().Error("move metadata update failed after blob move",
			zap.String("intent_id", intent.ID),
			zap.String("file_id", file.ID),
			zap.String("from", file.Path),
			zap.String("to", newPath),
			zap.Error(err))
		return models.File{}, newConsistencyError(intent.ID, file.ID, err)
	}

	s.activity.Record(ctx, file.OwnerID, ActionMove, EntityFile, file.ID, file.OriginalName)

	file.Path = newPath
	file.Folder = target
	return file, nil
}

// RelocateVersion moves a version blob that was left behind by an earlier
// move or folder rename to the path derived from the file's current folder.
// A version already in place is returned unchanged.
func (s *moveService) RelocateVersion(ctx context.Context, file models.File, version models.FileVersion) (models.FileVersion, error) {
	newPath := ComputeTargetPath(file.OwnerID, file.Folder, nameComponent(version.Path))
	if version.Path == newPath {
		return version, nil
	}

	intent := models.MoveIntent{
		OwnerID:    file.OwnerID,
		FileID:     file.ID,
		VersionID:  version.ID,
		Operation:  models.IntentOperationMove,
		FromPath:   version.Path,
		ToPath:     newPath,
		FromFolder: file.Folder,
		ToFolder:   file.Folder,
	}
	if err := s.journal.begin(ctx, &intent); err != nil {
		return models.FileVersion{}, newAppError(KindInternal, "failed to record move intent", err)
	}

	if err := s.blobs.Move(ctx, version.Path, newPath); err != nil {
		s.journal.fail(ctx, intent.ID, err)
		if errors.Is(err, storage.ErrObjectNotFound) {
			return models.FileVersion{}, newAppError(KindNotFound, "version content is missing from storage", err)
		}
		return models.FileVersion{}, newAppError(KindInternal, "failed to move version content", err)
	}
	s.journal.blobDone(ctx, intent.ID)

	if err := s.CompleteVersionMove(ctx, intent); err != nil {
		consistencyErrorsTotal.WithLabelValues(models.IntentOperationMove).Inc()
		s.journal.note(ctx, intent.ID, err)
		logger.L().Error("version metadata update failed after blob move",
			zap.String("intent_id", intent.ID),
			zap.String("file_id", file.ID),
			zap.String("version_id", version.ID),
			zap.String("from", version.Path),
			zap.String("to", newPath),
			zap.Error(err))
		return models.FileVersion{}, newConsistencyError(intent.ID, file.ID, err)
	}

	version.Path = newPath
	return version, nil
}

// CompleteVersionMove applies the metadata step of a version move intent.
func (s *moveService) CompleteVersionMove(ctx context.Context, intent models.MoveIntent) error {
	return s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.versions.UpdatePath(ctx, tx, intent.VersionID, intent.ToPath); err != nil {
			return err
		}
		return s.journal.complete(ctx, tx, intent.ID)
	})
}
