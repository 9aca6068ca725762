package models

import "time"

const (
	ShiftOpen   = "open"
	ShiftClosed = "closed"

	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// CashShift is a cash-register shift. At most one shift may be open at a time.
type CashShift struct {
	ID                string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Status            string     `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	BaseAmount        float64    `gorm:"type:decimal(10,2);not null" json:"base_amount"`
	OpenedBy          string     `gorm:"type:varchar(36)" json:"opened_by"`
	ClosedBy          *string    `gorm:"type:varchar(36)" json:"closed_by,omitempty"`
	OpenedAt          time.Time  `json:"opened_at"`
	ClosedAt          *time.Time `json:"closed_at"`
	FinalCashExpected *float64   `gorm:"type:decimal(10,2)" json:"final_cash_expected"`
	FinalCashReal     *float64   `gorm:"type:decimal(10,2)" json:"final_cash_real"`
	Difference        *float64   `gorm:"type:decimal(10,2)" json:"difference"`
	Notes             string     `gorm:"type:text" json:"notes,omitempty"`
}

func (CashShift) TableName() string { return CollectionShifts }

func (s CashShift) EntityID() string { return s.ID }

// CashTransaction is a manual cash movement within a shift, immutable once created.
type CashTransaction struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ShiftID     string    `gorm:"type:varchar(36);index;not null" json:"shift_id"`
	Type        string    `gorm:"type:varchar(20);not null" json:"type"`
	Amount      float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	UserID      string    `gorm:"type:varchar(36)" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (CashTransaction) TableName() string { return CollectionTransactions }

func (t CashTransaction) EntityID() string { return t.ID }
