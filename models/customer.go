package models

import (
	"time"
)

type CustomerStatus string

const (
	CustomerWaiting  CustomerStatus = "Waiting"
	CustomerAssigned CustomerStatus = "Assigned"
	CustomerSeated   CustomerStatus = "Seated"
)

func (s CustomerStatus) Valid() bool {
	switch s {
	case CustomerWaiting, CustomerAssigned, CustomerSeated:
		return true
	}
	return false
}

// Customer is one queue entry. WaitTime and WaitTimeUpdatedAt are the
// authoritative countdown; every displayed value is derived from them.
type Customer struct {
	ID                string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	Phone             string         `gorm:"type:varchar(10);not null" json:"phone"`
	PartySize         int            `gorm:"not null" json:"partySize"`
	Status            CustomerStatus `gorm:"type:varchar(20);not null;default:'Waiting';index" json:"status"`
	TableNumber       *int           `json:"tableNumber"`
	JoinedAt          time.Time      `gorm:"not null;index" json:"joinedAt"`
	AssignedAt        *time.Time     `json:"assignedAt,omitempty"`
	WaitTime          float64        `gorm:"not null" json:"waitTime"`
	WaitTimeInitial   float64        `gorm:"not null" json:"waitTimeInitial"`
	WaitTimeUpdatedAt time.Time      `gorm:"not null" json:"waitTimeUpdatedAt"`
	TimerReset        bool           `gorm:"not null;default:false" json:"timerReset"`
	CreatedAt         time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updatedAt"`
}
