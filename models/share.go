package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileShare struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	FileID       string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"file_id"`
	OwnerID      string     `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	LinkToken    string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"link_token"`
	PasswordHash *string    `gorm:"type:varchar(255)" json:"-"`
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at"`
	ViewCount    int64      `gorm:"not null;default:0" json:"view_count"`
	MaxViews     *int64     `json:"max_views"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (s *FileShare) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// FolderShare covers the files whose folder equals FolderPath exactly.
type FolderShare struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID      string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_owner_folder_share" json:"owner_id"`
	FolderPath   string     `gorm:"type:varchar(512);not null;uniqueIndex:idx_owner_folder_share" json:"folder_path"`
	LinkToken    string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"link_token"`
	PasswordHash *string    `gorm:"type:varchar(255)" json:"-"`
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at"`
	ViewCount    int64      `gorm:"not null;default:0" json:"view_count"`
	MaxViews     *int64     `json:"max_views"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (s *FolderShare) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// FileUserShare only records who the owner meant to share a file with.
type FileUserShare struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_file_recipient" json:"file_id"`
	OwnerID   string    `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_file_recipient" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
