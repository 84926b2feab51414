package models

import (
	"time"
)

// Collection names a group of records observers can subscribe to.
type Collection string

const (
	CollectionTables    Collection = "tables"
	CollectionCustomers Collection = "customers"
)

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// DBChange is one row of the change log written together with every mutation.
// Origin identifies the process that wrote it.
type DBChange struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Collection Collection `gorm:"type:varchar(50);not null;index:idx_collection_action" json:"collection"`
	RecordID   string     `gorm:"type:varchar(36);not null" json:"recordId"`
	ActionType string     `gorm:"type:varchar(10);not null;index:idx_collection_action" json:"actionType"`
	Origin     string     `gorm:"type:varchar(36);not null" json:"origin"`
	ChangedAt  time.Time  `gorm:"not null;index" json:"changedAt"`
}
