package models

import "time"

// AbstractStatusHistory tracks historical status changes for abstracts.
type AbstractStatusHistory struct {
	HistoryID  int64     `gorm:"primaryKey;column:history_id" json:"history_id"`
	AbstractID int64     `gorm:"column:abstract_id;index" json:"abstract_id"`
	OldStatus  *string   `gorm:"column:old_status" json:"old_status"`
	NewStatus  string    `gorm:"column:new_status" json:"new_status"`
	ChangedBy  string    `gorm:"column:changed_by" json:"changed_by"`
	Comments   *string   `gorm:"column:comments" json:"comments"`
	ChangedAt  time.Time `gorm:"column:changed_at" json:"changed_at"`
}

// TableName specifies the table for AbstractStatusHistory.
func (AbstractStatusHistory) TableName() string {
	return "abstract_status_history"
}
