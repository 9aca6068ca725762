// Package cash manages cash-register shifts and manual cash movements.
package cash

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/remote"
	"github.com/aruizmx/comandero/store"
	"github.com/aruizmx/comandero/utils"
)

type Register struct {
	svc          remote.Service
	shifts       *store.Store[models.CashShift]
	transactions *store.Store[models.CashTransaction]

	Now func() time.Time
}

func NewRegister(
	svc remote.Service,
	shifts *store.Store[models.CashShift],
	transactions *store.Store[models.CashTransaction],
) *Register {
	return &Register{
		svc:          svc,
		shifts:       shifts,
		transactions: transactions,
		Now:          time.Now,
	}
}

// CurrentShift returns the open shift, if any.
func (r *Register) CurrentShift() (models.CashShift, bool) {
	for _, s := range r.shifts.Snapshot() {
		if s.Status == models.ShiftOpen {
			return s, true
		}
	}
	return models.CashShift{}, false
}

// OpenShift opens a new shift. At most one shift may be open system-wide;
// the local snapshot is checked first, the remote service is the backstop.
func (r *Register) OpenShift(ctx context.Context, baseAmount float64, userID string) (models.CashShift, error) {
	if open, ok := r.CurrentShift(); ok {
		return models.CashShift{}, utils.Validationf("open shift", "shift %s is already open", open.ID)
	}

	shift := models.CashShift{
		ID:         uuid.NewString(),
		Status:     models.ShiftOpen,
		BaseAmount: baseAmount,
		OpenedBy:   userID,
		OpenedAt:   r.Now(),
	}
	created, err := remote.InsertAs[models.CashShift](ctx, r.svc, models.CollectionShifts, shift)
	if err != nil {
		return models.CashShift{}, err
	}
	r.shifts.Upsert(created)
	return created, nil
}

// CloseShift closes an open shift exactly once, recording the counted cash
// and the difference against the expectation.
func (r *Register) CloseShift(ctx context.Context, shiftID string, expected, real float64, notes, closedBy string) (models.CashShift, error) {
	shift, ok := r.shifts.Get(shiftID)
	if !ok {
		return models.CashShift{}, utils.Validationf("close shift", "unknown shift %s", shiftID)
	}
	if shift.Status != models.ShiftOpen {
		return models.CashShift{}, utils.Validationf("close shift", "shift %s is already closed", shiftID)
	}

	patch := map[string]any{
		"status":              models.ShiftClosed,
		"closed_at":           r.Now(),
		"closed_by":           closedBy,
		"final_cash_expected": expected,
		"final_cash_real":     real,
		"difference":          real - expected,
		"notes":               notes,
	}
	if _, err := r.svc.Update(ctx, models.CollectionShifts, shiftID, patch); err != nil {
		return models.CashShift{}, err
	}
	closed, _ := r.shifts.Patch(shiftID, patch)
	return closed, nil
}

// AddTransaction records a manual income or expense within a shift.
// Transactions are immutable once created.
func (r *Register) AddTransaction(ctx context.Context, shiftID, txType string, amount float64, description, userID string) (models.CashTransaction, error) {
	if txType != models.TransactionIncome && txType != models.TransactionExpense {
		return models.CashTransaction{}, utils.Validationf("add transaction", "invalid type %q", txType)
	}
	shift, ok := r.shifts.Get(shiftID)
	if !ok {
		return models.CashTransaction{}, utils.Validationf("add transaction", "unknown shift %s", shiftID)
	}
	if shift.Status != models.ShiftOpen {
		return models.CashTransaction{}, utils.Validationf("add transaction", "shift %s is closed", shiftID)
	}

	tx := models.CashTransaction{
		ID:          uuid.NewString(),
		ShiftID:     shiftID,
		Type:        txType,
		Amount:      amount,
		Description: description,
		UserID:      userID,
		CreatedAt:   r.Now(),
	}
	created, err := remote.InsertAs[models.CashTransaction](ctx, r.svc, models.CollectionTransactions, tx)
	if err != nil {
		return models.CashTransaction{}, fmt.Errorf("add transaction: %w", err)
	}
	r.transactions.Upsert(created)
	return created, nil
}

// ShiftTransactions lists the transactions of one shift, newest first.
func (r *Register) ShiftTransactions(shiftID string) []models.CashTransaction {
	var out []models.CashTransaction
	for _, t := range r.transactions.Snapshot() {
		if t.ShiftID == shiftID {
			out = append(out, t)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
