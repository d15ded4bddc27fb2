package services

import (
	"context"
	"errors"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/pathtree"
	"github.com/lawweapons/bevisdrive/repositories"

	"gorm.io/gorm"
)

type FolderService interface {
	ListFolders(ctx context.Context, ownerID string) ([]*pathtree.Node, error)
	CreateFolder(ctx context.Context, ownerID string, folderPath string) (models.Folder, error)
	DeleteFolder(ctx context.Context, ownerID string, folderPath string) error
	RenameFolder(ctx context.Context, ownerID string, oldPath string, newPath string) (BatchResult, error)
}

type folderService struct {
	txManager    TxManager
	folders      repositories.FolderRepository
	files        repositories.FileRepository
	folderShares repositories.FolderShareRepository
	move         MoveService
	prefs        PreferencesService
	activity     ActivityService
}

func NewFolderService(
	txManager TxManager,
	folders repositories.FolderRepository,
	files repositories.FileRepository,
	folderShares repositories.FolderShareRepository,
	move MoveService,
	prefs PreferencesService,
	activity ActivityService,
) FolderService {
	return &folderService{
		txManager:    txManager,
		folders:      folders,
		files:        files,
		folderShares: folderShares,
		move:         move,
		prefs:        prefs,
		activity:     activityOrNoop(activity),
	}
}

// ListFolders merges the folders implied by active files with the explicit
// folder rows and decorates the tree with the owner's folder appearance.
func (s *folderService) ListFolders(ctx context.Context, ownerID string) ([]*pathtree.Node, error) {
	implied, err := s.files.ListDistinctFolders(ctx, nil, ownerID)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to list folders", err)
	}
	explicit, err := s.folders.ListPaths(ctx, nil, ownerID)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to list folders", err)
	}

	tree := pathtree.BuildTree(append(implied, explicit...))

	if s.prefs != nil {
		pref, err := s.prefs.Load(ctx, ownerID)
		if err != nil {
			logger.Warnf("load folder appearance failed: owner=%s err=%v", ownerID, err)
			return tree, nil
		}
		pathtree.Walk(tree, func(node *pathtree.Node) {
			if look, ok := pref.FolderAppearance[node.Path]; ok {
				node.Icon = look.Icon
				node.Color = look.Color
			}
		})
	}
	return tree, nil
}

func (s *folderService) CreateFolder(ctx context.Context, ownerID string, folderPath string) (models.Folder, error) {
	folder, err := requireFolder(folderPath)
	if err != nil {
		return models.Folder{}, err
	}

	created, err := s.folders.Ensure(ctx, nil, ownerID, folder)
	if err != nil {
		return models.Folder{}, newAppError(KindInternal, "failed to create folder", err)
	}
	s.activity.Record(ctx, ownerID, ActionFolderCreate, EntityFolder, folder, pathtree.Base(folder))
	return created, nil
}

// DeleteFolder only removes empty folders. Trashed files do not keep a folder
// alive.
func (s *folderService) DeleteFolder(ctx context.Context, ownerID string, folderPath string) error {
	folder, err := requireFolder(folderPath)
	if err != nil {
		return err
	}

	contents, err := s.files.ListByFolderPrefix(ctx, nil, ownerID, folder)
	if err != nil {
		return newAppError(KindInternal, "failed to list folder contents", err)
	}
	for _, f := range contents {
		if !f.IsTrashed {
			return newAppError(KindValidation, "folder is not empty", nil)
		}
	}

	rows, err := s.folders.ListByPathPrefix(ctx, nil, ownerID, folder)
	if err != nil {
		return newAppError(KindInternal, "failed to load folder", err)
	}
	if len(rows) == 0 && len(contents) == 0 {
		return newAppError(KindNotFound, "folder not found", nil)
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.folders.DeleteByPathPrefix(ctx, tx, ownerID, folder); err != nil {
			return err
		}
		shares, err := s.folderShares.ListByPathPrefix(ctx, tx, ownerID, folder)
		if err != nil {
			return err
		}
		for _, share := range shares {
			if err := s.folderShares.DeleteByOwnerAndPath(ctx, tx, ownerID, share.FolderPath); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return newAppError(KindInternal, "failed to delete folder", err)
	}

	s.activity.Record(ctx, ownerID, ActionFolderDelete, EntityFolder, folder, pathtree.Base(folder))
	return nil
}

// RenameFolder moves every file below oldPath first, then rewrites explicit
// folder rows and folder share paths. Files that failed to move stay behind
// and keep the old folder visible.
func (s *folderService) RenameFolder(ctx context.Context, ownerID string, oldPath string, newPath string) (BatchResult, error) {
	from, err := requireFolder(oldPath)
	if err != nil {
		return BatchResult{}, err
	}
	to, err := requireFolder(newPath)
	if err != nil {
		return BatchResult{}, err
	}

	contents, err := s.files.ListByFolderPrefix(ctx, nil, ownerID, from)
	if err != nil {
		return BatchResult{}, newAppError(KindInternal, "failed to list folder contents", err)
	}
	rows, err := s.folders.ListByPathPrefix(ctx, nil, ownerID, from)
	if err != nil {
		return BatchResult{}, newAppError(KindInternal, "failed to load folder", err)
	}
	if len(contents) == 0 && len(rows) == 0 {
		return BatchResult{}, newAppError(KindNotFound, "folder not found", nil)
	}

	result, err := s.move.RenameFolder(ctx, ownerID, from, to)
	if err != nil {
		return BatchResult{}, err
	}
	if from == to {
		return result, nil
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		for _, row := range rows {
			if _, err := s.folders.Ensure(ctx, tx, ownerID, pathtree.RenamePrefix(row.Path, from, to)); err != nil {
				return err
			}
		}
		if len(rows) > 0 {
			if err := s.folders.DeleteByPathPrefix(ctx, tx, ownerID, from); err != nil {
				return err
			}
		}
		return s.renameShares(ctx, tx, ownerID, from, to)
	})
	if err != nil {
		return result, newAppError(KindInternal, "files moved but folder records could not be renamed", err)
	}

	s.activity.Record(ctx, ownerID, ActionFolderRename, EntityFolder, to, pathtree.Base(to))
	return result, nil
}

// renameShares moves folder shares along with their folder. A share already
// present at the target path wins over the moved one.
func (s *folderService) renameShares(ctx context.Context, tx *gorm.DB, ownerID string, from string, to string) error {
	shares, err := s.folderShares.ListByPathPrefix(ctx, tx, ownerID, from)
	if err != nil {
		return err
	}
	for _, share := range shares {
		target := pathtree.RenamePrefix(share.FolderPath, from, to)
		_, err := s.folderShares.GetByOwnerAndPath(ctx, tx, ownerID, target)
		switch {
		case err == nil:
			if err := s.folderShares.DeleteByOwnerAndPath(ctx, tx, ownerID, share.FolderPath); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := s.folderShares.UpdatePath(ctx, tx, share.ID, target); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

func requireFolder(folderPath string) (string, error) {
	folder, err := cleanFolder(folderPath)
	if err != nil {
		return "", err
	}
	if folder == "" {
		return "", newAppError(KindValidation, "folder path is required", nil)
	}
	return folder, nil
}
