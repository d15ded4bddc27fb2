package services

import (
	"context"
	"errors"
	"time"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/repositories"
	"github.com/lawweapons/bevisdrive/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	decisionCompleted  = "completed"
	decisionRolledBack = "rolled_back"
	decisionFailed     = "failed"
	decisionSkipped    = "skipped"
)

type CleanupSettings struct {
	TrashRetention    time.Duration
	TrashInterval     time.Duration
	ReconcileEnabled  bool
	ReconcileInterval time.Duration
	StaleAfter        time.Duration
	BatchSize         int
}

type ReconcileReport struct {
	Examined   int `json:"examined"`
	Completed  int `json:"completed"`
	RolledBack int `json:"rolled_back"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// CleanupService runs the background sweeps: trash retention, expired share
// rows and reconciliation of intents left behind by interrupted operations.
type CleanupService interface {
	PurgeExpiredTrash(ctx context.Context) (int, error)
	PurgeExpiredShares(ctx context.Context) (int64, error)
	Reconcile(ctx context.Context) (ReconcileReport, error)
	RunOnce(ctx context.Context)
	Settings() CleanupSettings
}

type cleanupService struct {
	files        repositories.FileRepository
	fileShares   repositories.FileShareRepository
	folderShares repositories.FolderShareRepository
	intents      repositories.IntentRepository
	journal      intentJournal
	blobs        storage.BlobStore
	move         MoveService
	lifecycle    LifecycleService
	settings     CleanupSettings
	now          func() time.Time
}

func NewCleanupService(
	files repositories.FileRepository,
	fileShares repositories.FileShareRepository,
	folderShares repositories.FolderShareRepository,
	intents repositories.IntentRepository,
	blobs storage.BlobStore,
	move MoveService,
	lifecycle LifecycleService,
	settings CleanupSettings,
) CleanupService {
	if settings.TrashInterval <= 0 {
		settings.TrashInterval = time.Hour
	}
	if settings.ReconcileInterval <= 0 {
		settings.ReconcileInterval = 5 * time.Minute
	}
	if settings.StaleAfter <= 0 {
		settings.StaleAfter = 2 * time.Minute
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = 100
	}
	return &cleanupService{
		files:        files,
		fileShares:   fileShares,
		folderShares: folderShares,
		intents:      intents,
		journal:      intentJournal{intents: intents},
		blobs:        blobs,
		move:         move,
		lifecycle:    lifecycle,
		settings:     settings,
		now:          nowUTC,
	}
}

var cleanupSvc CleanupService

func SetCleanupService(svc CleanupService) {
	cleanupSvc = svc
}

// StartCleanupWorkers launches the sweep loops. They stop with ctx.
func StartCleanupWorkers(ctx context.Context) {
	if cleanupSvc == nil {
		logger.Warnf("cleanup service not configured, background sweeps disabled")
		return
	}
	settings := cleanupSvc.Settings()
	go runEvery(ctx, settings.TrashInterval, func() {
		if _, err := cleanupSvc.PurgeExpiredTrash(ctx); err != nil {
			logger.Errorf("trash cleanup failed: %v", err)
		}
		if _, err := cleanupSvc.PurgeExpiredShares(ctx); err != nil {
			logger.Errorf("share cleanup failed: %v", err)
		}
	})
	if settings.ReconcileEnabled {
		go runEvery(ctx, settings.ReconcileInterval, func() {
			if _, err := cleanupSvc.Reconcile(ctx); err != nil {
				logger.Errorf("reconcile failed: %v", err)
			}
		})
	}
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (s *cleanupService) Settings() CleanupSettings {
	return s.settings
}

func (s *cleanupService) RunOnce(ctx context.Context) {
	if _, err := s.Reconcile(ctx); err != nil {
		logger.Errorf("reconcile failed: %v", err)
	}
	if _, err := s.PurgeExpiredTrash(ctx); err != nil {
		logger.Errorf("trash cleanup failed: %v", err)
	}
	if _, err := s.PurgeExpiredShares(ctx); err != nil {
		logger.Errorf("share cleanup failed: %v", err)
	}
}

// PurgeExpiredTrash hard deletes files trashed longer than the retention
// period, one at a time. Zero retention keeps trash forever.
func (s *cleanupService) PurgeExpiredTrash(ctx context.Context) (int, error) {
	if s.settings.TrashRetention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.settings.TrashRetention)
	expired, err := s.files.ListTrashedBefore(ctx, nil, cutoff, s.settings.BatchSize)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, file := range expired {
		if err := s.lifecycle.Purge(ctx, file); err != nil {
			logger.Warnf("purge expired trash failed: file=%s owner=%s err=%v", file.ID, file.OwnerID, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		cleanupDeletedTotal.WithLabelValues("trash").Add(float64(deleted))
		logger.Infof("purged %d expired trash files", deleted)
	}
	return deleted, nil
}

func (s *cleanupService) PurgeExpiredShares(ctx context.Context) (int64, error) {
	now := s.now()
	fileShares, err := s.fileShares.DeleteExpired(ctx, nil, now)
	if err != nil {
		return 0, err
	}
	folderShares, err := s.folderShares.DeleteExpired(ctx, nil, now)
	if err != nil {
		return fileShares, err
	}

	cleanupDeletedTotal.WithLabelValues("file_share").Add(float64(fileShares))
	cleanupDeletedTotal.WithLabelValues("folder_share").Add(float64(folderShares))
	if total := fileShares + folderShares; total > 0 {
		logger.Infof("purged %d expired share links", total)
	}
	return fileShares + folderShares, nil
}

// Reconcile resolves intents that stayed open longer than StaleAfter.
// blob_done intents get their metadata step replayed. pending intents are
// decided by probing the blob store.
func (s *cleanupService) Reconcile(ctx context.Context) (ReconcileReport, error) {
	reconcileRunsTotal.Inc()

	stale, err := s.intents.ListStale(ctx, nil, s.now().Add(-s.settings.StaleAfter), s.settings.BatchSize)
	if err != nil {
		return ReconcileReport{}, err
	}

	var report ReconcileReport
	for _, intent := range stale {
		report.Examined++
		decision := s.reconcileOne(ctx, intent)
		reconcileDecisionsTotal.WithLabelValues(decision).Inc()
		switch decision {
		case decisionCompleted:
			report.Completed++
		case decisionRolledBack:
			report.RolledBack++
		case decisionFailed:
			report.Failed++
		default:
			report.Skipped++
		}
		logger.L().Info("reconcile intent",
			zap.String("intent_id", intent.ID),
			zap.String("operation", intent.Operation),
			zap.String("file_id", intent.FileID),
			zap.String("status", intent.Status),
			zap.String("decision", decision))
	}
	return report, nil
}

func (s *cleanupService) reconcileOne(ctx context.Context, intent models.MoveIntent) string {
	if err := s.intents.Update(ctx, nil, intent.ID, map[string]interface{}{"attempts": intent.Attempts + 1}); err != nil {
		logger.Warnf("bump intent attempts failed: intent=%s err=%v", intent.ID, err)
	}

	switch intent.Operation {
	case models.IntentOperationMove:
		return s.reconcileMove(ctx, intent)
	case models.IntentOperationDelete:
		return s.reconcileDelete(ctx, intent)
	default:
		s.journal.fail(ctx, intent.ID, errors.New("unknown intent operation"))
		return decisionFailed
	}
}

func (s *cleanupService) reconcileMove(ctx context.Context, intent models.MoveIntent) string {
	if intent.Status == models.IntentStatusPending {
		target, err := s.blobs.Exists(ctx, intent.ToPath)
		if err != nil {
			return s.blobCheckFailed(ctx, intent, err)
		}
		source, err := s.blobs.Exists(ctx, intent.FromPath)
		if err != nil {
			return s.blobCheckFailed(ctx, intent, err)
		}

		switch {
		case source:
			s.journal.fail(ctx, intent.ID, errors.New("blob was not moved"))
			return decisionRolledBack
		case !target:
			s.journal.fail(ctx, intent.ID, errors.New("blob missing at both source and target"))
			logger.L().Error("reconcile found no blob for move",
				zap.String("intent_id", intent.ID),
				zap.String("file_id", intent.FileID),
				zap.String("from", intent.FromPath),
				zap.String("to", intent.ToPath))
			return decisionFailed
		}
	}

	complete := s.move.CompleteMove
	if intent.VersionID != "" {
		complete = s.move.CompleteVersionMove
	}
	if err := complete(ctx, intent); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.journal.fail(ctx, intent.ID, errors.New("file or version no longer exists"))
			return decisionFailed
		}
		s.journal.note(ctx, intent.ID, err)
		logger.L().Error("reconcile move metadata failed",
			zap.String("intent_id", intent.ID),
			zap.String("file_id", intent.FileID),
			zap.String("version_id", intent.VersionID),
			zap.Error(err))
		return decisionSkipped
	}
	return decisionCompleted
}

func (s *cleanupService) reconcileDelete(ctx context.Context, intent models.MoveIntent) string {
	if intent.Status == models.IntentStatusPending {
		source, err := s.blobs.Exists(ctx, intent.FromPath)
		if err != nil {
			return s.blobCheckFailed(ctx, intent, err)
		}
		if source {
			s.journal.fail(ctx, intent.ID, errors.New("blob was not removed"))
			return decisionRolledBack
		}
	}

	if err := s.lifecycle.CompleteDelete(ctx, intent); err != nil {
		s.journal.note(ctx, intent.ID, err)
		logger.L().Error("reconcile delete metadata failed",
			zap.String("intent_id", intent.ID),
			zap.String("file_id", intent.FileID),
			zap.Error(err))
		return decisionSkipped
	}
	return decisionCompleted
}

// blobCheckFailed leaves the intent open for the next sweep.
func (s *cleanupService) blobCheckFailed(ctx context.Context, intent models.MoveIntent, err error) string {
	s.journal.note(ctx, intent.ID, err)
	logger.L().Warn("reconcile blob check failed", zap.String("intent_id", intent.ID), zap.Error(err))
	return decisionSkipped
}
