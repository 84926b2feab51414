package models

import (
	"time"
)

const (
	CleaningInProgress = "in_progress"
	CleaningDone       = "done"
)

// CleaningLog records one service-complete cycle of a table.
type CleaningLog struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TableID     string     `gorm:"type:varchar(36);not null;index" json:"tableId"`
	TableNumber int        `gorm:"not null" json:"tableNumber"`
	Status      string     `gorm:"type:varchar(15);not null;default:'in_progress'" json:"status"`
	StartedAt   time.Time  `gorm:"not null" json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}
