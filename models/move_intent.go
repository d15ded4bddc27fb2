package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	IntentOperationMove   = "move"
	IntentOperationDelete = "delete"

	IntentStatusPending   = "pending"
	IntentStatusBlobDone  = "blob_done"
	IntentStatusCompleted = "completed"
	IntentStatusFailed    = "failed"
)

// MoveIntent is written before a blob operation whose metadata counterpart
// lives in another store. An intent that never reaches completed or failed
// is picked up by reconciliation. A non-empty VersionID means the blob
// belongs to that file version rather than to the file's current content.
type MoveIntent struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID    string    `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	FileID     string    `gorm:"type:varchar(36);not null;index" json:"file_id"`
	VersionID  string    `gorm:"type:varchar(36)" json:"version_id,omitempty"`
	Operation  string    `gorm:"type:varchar(16);not null" json:"operation"`
	FromPath   string    `gorm:"type:varchar(1024);not null" json:"from_path"`
	ToPath     string    `gorm:"type:varchar(1024)" json:"to_path"`
	FromFolder string    `gorm:"type:varchar(512)" json:"from_folder"`
	ToFolder   string    `gorm:"type:varchar(512)" json:"to_folder"`
	Status     string    `gorm:"type:varchar(16);not null;default:pending;index:idx_status_updated" json:"status"`
	LastError  string    `gorm:"type:text" json:"last_error"`
	Attempts   int       `gorm:"not null;default:0" json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `gorm:"index:idx_status_updated" json:"updated_at"`
}

func (i *MoveIntent) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
