package services

import (
	"time"

	"github.com/lawweapons/bevisdrive/config"
	"github.com/lawweapons/bevisdrive/repositories"
	"github.com/lawweapons/bevisdrive/storage"
)

type Container struct {
	Activity    ActivityService
	Move        MoveService
	Lifecycle   LifecycleService
	Share       ShareService
	File        FileService
	Folder      FolderService
	Preferences PreferencesService
	Cleanup     CleanupService
	Blobs       storage.BlobStore
}

// Settings carries the tunables each service takes at construction.
type Settings struct {
	File               FileServiceSettings
	Share              ShareSettingsConfig
	Cleanup            CleanupSettings
	PreferenceCacheLen int
	PreferenceCacheTTL time.Duration
}

func SettingsFromConfig(cfg *config.Config) Settings {
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return Settings{
		File: FileServiceSettings{
			OwnerDownloadTTL: seconds(cfg.Share.OwnerDownloadTTLSeconds),
			QuotaBytes:       cfg.Quota.DefaultBytes,
			DefaultPageSize:  cfg.Pagination.DefaultPageSize,
			MaxPageSize:      cfg.Pagination.MaxPageSize,
			DefaultSortBy:    cfg.Pagination.DefaultSortBy,
			DefaultOrder:     cfg.Pagination.DefaultOrder,
		},
		Share: ShareSettingsConfig{
			SignedURLTTL:         seconds(cfg.Share.SignedURLTTLSeconds),
			MaxPasswordAttempts:  cfg.Share.MaxPasswordAttempts,
			AttemptWindowSeconds: cfg.Share.AttemptWindowSeconds,
		},
		Cleanup: CleanupSettings{
			TrashRetention:    time.Duration(cfg.Trash.RetentionDays) * 24 * time.Hour,
			TrashInterval:     seconds(cfg.Trash.CleanupInterval),
			ReconcileEnabled:  cfg.Reconcile.Enabled,
			ReconcileInterval: seconds(cfg.Reconcile.IntervalSeconds),
			StaleAfter:        seconds(cfg.Reconcile.StaleAfterSeconds),
			BatchSize:         cfg.Reconcile.BatchSize,
		},
		PreferenceCacheLen: cfg.Preferences.CacheSize,
		PreferenceCacheTTL: seconds(cfg.Preferences.CacheTTLSeconds),
	}
}

func NewContainer(repos repositories.Container, blobs storage.BlobStore, settings Settings) *Container {
	activity := NewActivityService(repos.Activity)
	move := NewMoveService(repos.TxManager, repos.Files, repos.Versions, repos.Intents, blobs, activity)
	lifecycle := NewLifecycleService(repos.TxManager, repos.Files, repos.Versions, repos.FileShares, repos.UserShares, repos.Intents, blobs, activity)
	prefs := NewPreferencesService(repos.Preferences, settings.PreferenceCacheLen, settings.PreferenceCacheTTL)

	container := &Container{
		Activity:    activity,
		Move:        move,
		Lifecycle:   lifecycle,
		Share:       NewShareService(repos.TxManager, repos.Files, repos.FileShares, repos.FolderShares, repos.UserShares, repos.ShareAttempts, blobs, activity, settings.Share),
		File:        NewFileService(repos.TxManager, repos.Files, repos.Versions, move, blobs, activity, settings.File),
		Folder:      NewFolderService(repos.TxManager, repos.Folders, repos.Files, repos.FolderShares, move, prefs, activity),
		Preferences: prefs,
		Cleanup:     NewCleanupService(repos.Files, repos.FileShares, repos.FolderShares, repos.Intents, blobs, move, lifecycle, settings.Cleanup),
		Blobs:       blobs,
	}
	SetCleanupService(container.Cleanup)
	return container
}
