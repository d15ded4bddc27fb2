package services

import (
	"context"
	"time"

	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/models"
	"github.com/lawweapons/bevisdrive/repositories"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// intentJournal wraps the intent table used around blob operations. The
// blob store and the metadata store share no transaction, so every blob step
// is bracketed by a durable record that reconciliation can pick up.
type intentJournal struct {
	intents repositories.IntentRepository
}

func (j intentJournal) begin(ctx context.Context, intent *models.MoveIntent) error {
	intent.Status = models.IntentStatusPending
	return j.intents.Create(ctx, nil, intent)
}

func (j intentJournal) blobDone(ctx context.Context, intentID string) {
	if err := j.intents.Update(ctx, nil, intentID, map[string]interface{}{"status": models.IntentStatusBlobDone}); err != nil {
		logger.Warnf("mark intent blob_done failed: intent=%s err=%v", intentID, err)
	}
}

func (j intentJournal) fail(ctx context.Context, intentID string, cause error) {
	updates := map[string]interface{}{"status": models.IntentStatusFailed}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	if err := j.intents.Update(ctx, nil, intentID, updates); err != nil {
		logger.Warnf("mark intent failed failed: intent=%s err=%v", intentID, err)
	}
}

// note keeps the intent open but records why the metadata step failed.
func (j intentJournal) note(ctx context.Context, intentID string, cause error) {
	if err := j.intents.Update(ctx, nil, intentID, map[string]interface{}{"last_error": cause.Error()}); err != nil {
		logger.Warnf("annotate intent failed: intent=%s err=%v", intentID, err)
	}
}

// complete must run inside the metadata transaction.
func (j intentJournal) complete(ctx context.Context, tx *gorm.DB, intentID string) error {
	return j.intents.Update(ctx, tx, intentID, map[string]interface{}{
		"status":     models.IntentStatusCompleted,
		"last_error": "",
	})
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
