package models

import "time"

type Zone struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Type      string    `gorm:"type:varchar(50)" json:"type,omitempty"`
	Floor     int       `json:"floor,omitempty"`
	Capacity  int       `json:"capacity,omitempty"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Zone) TableName() string { return CollectionZones }

func (z Zone) EntityID() string { return z.ID }
