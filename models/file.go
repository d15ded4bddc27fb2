package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is the metadata row of one stored object. Folder is a "/"-delimited
// path with no identity of its own; the empty string is the root.
type File struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID      string     `gorm:"type:varchar(64);not null;index:idx_owner_folder" json:"owner_id"`
	Bucket       string     `gorm:"type:varchar(255)" json:"bucket"`
	Path         string     `gorm:"type:varchar(1024);not null" json:"path"`
	OriginalName string     `gorm:"type:varchar(255);not null" json:"original_name"`
	Description  string     `gorm:"type:text" json:"description"`
	Size         int64      `gorm:"not null" json:"size"`
	MimeType     string     `gorm:"type:varchar(255)" json:"mime_type"`
	Tags         []string   `gorm:"type:text;serializer:json" json:"tags"`
	Folder       string     `gorm:"type:varchar(512);not null;default:'';index:idx_owner_folder" json:"folder"`
	IsPublic     bool       `gorm:"default:false" json:"is_public"`
	IsStarred    bool       `gorm:"default:false;index" json:"is_starred"`
	IsTrashed    bool       `gorm:"default:false;index" json:"is_trashed"`
	TrashedAt    *time.Time `json:"trashed_at"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (f *File) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// FileVersion keeps a superseded blob of a file. VersionNumber grows per file.
type FileVersion struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	FileID        string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_file_version" json:"file_id"`
	VersionNumber int       `gorm:"not null;uniqueIndex:idx_file_version" json:"version_number"`
	Path          string    `gorm:"type:varchar(1024);not null" json:"path"`
	Size          int64     `gorm:"not null" json:"size"`
	CreatedBy     string    `gorm:"type:varchar(64)" json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

func (v *FileVersion) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
