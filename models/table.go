package models

import "time"

type TableStatus string

const (
	TableAvailable TableStatus = "Available"
	TableOccupied  TableStatus = "Occupied"
	TableReserved  TableStatus = "Reserved"
	TableCleaning  TableStatus = "Cleaning"
)

// tableTransitions lists every status change a table may take. A table never
// reaches a terminal state.
var tableTransitions = map[TableStatus][]TableStatus{
	TableAvailable: {TableOccupied, TableReserved},
	TableOccupied:  {TableCleaning, TableAvailable},
	TableCleaning:  {TableAvailable},
	TableReserved:  {TableAvailable},
}

func (s TableStatus) Valid() bool {
	_, ok := tableTransitions[s]
	return ok
}

// CanTransitionTo reports whether a table in status s may move to next.
func (s TableStatus) CanTransitionTo(next TableStatus) bool {
	for _, allowed := range tableTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Table struct {
	ID            string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Number        int         `gorm:"not null;uniqueIndex" json:"number"`
	Capacity      int         `gorm:"not null" json:"capacity"`
	Status        TableStatus `gorm:"type:varchar(20);not null;default:'Available';index" json:"status"`
	OccupiedSince *time.Time  `json:"occupiedSince"`
	CreatedAt     time.Time   `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time   `gorm:"not null" json:"updatedAt"`
}
