package models

import "time"

type FolderAppearance struct {
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// UserPreference holds client cosmetic state. Nothing in the file engine
// reads it.
type UserPreference struct {
	OwnerID          string                      `gorm:"type:varchar(64);primaryKey" json:"owner_id"`
	Theme            string                      `gorm:"type:varchar(16);default:dark" json:"theme"`
	ViewMode         string                      `gorm:"type:varchar(16);default:list" json:"view_mode"`
	SortBy           string                      `gorm:"type:varchar(32);default:created_at" json:"sort_by"`
	SortDirection    string                      `gorm:"type:varchar(8);default:desc" json:"sort_direction"`
	FolderAppearance map[string]FolderAppearance `gorm:"type:text;serializer:json" json:"folder_appearance"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}
