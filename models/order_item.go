package models

import "time"

const (
	ItemPending = "pending"
	ItemReady   = "ready"
)

type OrderItem struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID    string     `gorm:"type:varchar(36);index;not null" json:"order_id"`
	ProductID  string     `gorm:"type:varchar(36);index;not null" json:"product_id"`
	Quantity   int        `gorm:"not null;default:1" json:"quantity"`
	UnitPrice  float64    `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Notes      string     `gorm:"type:text" json:"notes,omitempty"`
	Status     string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (OrderItem) TableName() string { return CollectionOrderItems }

func (i OrderItem) EntityID() string { return i.ID }

// Subtotal is quantity times unit price.
func (i OrderItem) Subtotal() float64 { return float64(i.Quantity) * i.UnitPrice }
