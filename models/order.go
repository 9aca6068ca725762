package models

import "time"

const (
	OrderPending    = "pending"
	OrderInProgress = "in_progress"
	OrderPaid       = "paid"
	OrderCancelled  = "cancelled"
)

type Order struct {
	ID                string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID         string     `gorm:"type:varchar(36);index;not null" json:"session_id"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Notes             string     `gorm:"type:text" json:"notes,omitempty"`
	KitchenStartedAt  *time.Time `json:"kitchen_started_at"`
	KitchenFinishedAt *time.Time `json:"kitchen_finished_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Order) TableName() string { return CollectionOrders }

func (o Order) EntityID() string { return o.ID }

// Active reports whether the order still belongs on the kitchen board.
func (o Order) Active() bool {
	return o.Status == OrderPending || o.Status == OrderInProgress
}
