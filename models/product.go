package models

import "time"

type Product struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	Price      float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID *string   `gorm:"type:varchar(36);index" json:"category_id"`
	ImageURL   string    `gorm:"type:varchar(255)" json:"image_url,omitempty"`
	Stock      int       `json:"stock"`
	Active     bool      `gorm:"default:true" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Product) TableName() string { return CollectionProducts }

func (p Product) EntityID() string { return p.ID }

type Category struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	StationID *string   `gorm:"type:varchar(36);index" json:"station_id"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string { return CollectionCategories }

func (c Category) EntityID() string { return c.ID }

// Station is a kitchen preparation area (grill, bar, dessert...).
type Station struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (Station) TableName() string { return CollectionStations }

func (s Station) EntityID() string { return s.ID }
