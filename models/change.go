package models

import "time"

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// ChangeRow is one committed change recorded by the reference remote service.
// The feed monitor delivers unprocessed rows in changed_at order, per collection.
type ChangeRow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Collection string    `gorm:"type:varchar(50);not null;index:idx_coll_action" json:"collection"`
	RecordID   string    `gorm:"type:varchar(36);not null" json:"record_id"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_coll_action" json:"action_type"`
	NewData    []byte    `gorm:"type:text" json:"new_data,omitempty"`
	OldData    []byte    `gorm:"type:text" json:"old_data,omitempty"`
	ChangedAt  time.Time `gorm:"not null" json:"changed_at"`
	Processed  bool      `gorm:"default:false;index:idx_processed" json:"processed"`
}

func (ChangeRow) TableName() string { return "change_log" }

// Asset is an uploaded binary object (product images), addressed by id.
type Asset struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Data      []byte    `gorm:"type:blob" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Asset) TableName() string { return "assets" }
