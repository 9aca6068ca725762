package models

import "time"

const (
	SessionActive = "active"
	SessionClosed = "closed"
)

// TableSession is created when a table is occupied and closed exactly once
// when the table is freed. Closed sessions are immutable.
type TableSession struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	TableID     string     `gorm:"type:varchar(36);index;not null" json:"table_id"`
	WaiterID    *string    `gorm:"type:varchar(36)" json:"waiter_id,omitempty"`
	ClientCount int        `gorm:"not null;default:1" json:"client_count"`
	Status      string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

func (TableSession) TableName() string { return CollectionSessions }

func (s TableSession) EntityID() string { return s.ID }
