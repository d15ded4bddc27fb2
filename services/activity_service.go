package services

import (
	"context"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/repositories"
)

const (
	ActionUpload         = "upload"
	ActionRename         = "rename"
	ActionTag            = "tag"
	ActionMove           = "move"
	ActionTrash          = "trash"
	ActionRestore        = "restore"
	ActionDelete         = "delete"
	ActionStar           = "star"
	ActionUnstar         = "unstar"
	ActionShare          = "share"
	ActionUnshare        = "unshare"
	ActionShareUser      = "share_user"
	ActionUnshareUser    = "unshare_user"
	ActionRestoreVersion = "restore_version"
	ActionFolderCreate   = "folder_create"
	ActionFolderDelete   = "folder_delete"
	ActionFolderRename   = "folder_rename"

	EntityFile   = "file"
	EntityFolder = "folder"
)

const defaultActivityLimit = 50

type ActivityService interface {
	Record(ctx context.Context, userID, action, entityType, entityID, entityName string)
	List(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error)
}

type activityService struct {
	activity repositories.ActivityRepository
}

func NewActivityService(activity repositories.ActivityRepository) ActivityService {
	return &activityService{activity: activity}
}

// Record never fails the caller. A lost audit entry is logged instead.
func (s *activityService) Record(ctx context.Context, userID, action, entityType, entityID, entityName string) {
	if s == nil || s.activity == nil {
		return
	}
	entry := models.ActivityLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if err := s.activity.Create(ctx, nil, &entry); err != nil {
		logger.Warnf("record activity failed: user=%s action=%s entity=%s err=%v", userID, action, entityID, err)
	}
}

func (s *activityService) List(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultActivityLimit
	}
	entries, err := s.activity.ListByUser(ctx, nil, userID, limit)
	if err != nil {
		return nil, newAppError(KindInternal, "failed to load activity", err)
	}
	return entries, nil
}

func activityOrNoop(activity ActivityService) ActivityService {
	if activity == nil {
		return &activityService{}
	}
	return activity
}
