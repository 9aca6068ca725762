package models

import "time"

const (
	TableFree     = "free"
	TableOccupied = "occupied"
	TableWaiting  = "waiting"
	TablePaying   = "paying"
)

type Table struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ZoneID           string    `gorm:"type:varchar(36);index" json:"zone_id"`
	Number           int       `gorm:"not null" json:"number"`
	Capacity         int       `gorm:"not null;default:4" json:"capacity"`
	Status           string    `gorm:"type:varchar(20);not null;default:'free'" json:"status"`
	CurrentSessionID *string   `gorm:"type:varchar(36)" json:"current_session_id"`
	QRCode           string    `gorm:"type:varchar(255)" json:"qr_code"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Table) TableName() string { return CollectionTables }

func (t Table) EntityID() string { return t.ID }
