package models

import "time"

type ActivityLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Action     string    `gorm:"type:varchar(32);not null;index" json:"action"`
	EntityType string    `gorm:"type:varchar(16);not null" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(512)" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(512)" json:"entity_name"`
	CreatedAt  time.Time `gorm:"index;autoCreateTime" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_log"
}
