package models

import "time"

// Folder records a folder created explicitly, so that it survives with no
// files in it.
type Folder struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID   string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_owner_path" json:"owner_id"`
	Path      string    `gorm:"type:varchar(512);not null;uniqueIndex:idx_owner_path" json:"path"`
	CreatedAt time.Time `json:"created_at"`
}
