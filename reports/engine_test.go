package reports_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/reports"
	"github.com/aruizmx/comandero/store"
)

type engineStores struct {
	orders       *store.Store[models.Order]
	items        *store.Store[models.OrderItem]
	products     *store.Store[models.Product]
	sessions     *store.Store[models.TableSession]
	shifts       *store.Store[models.CashShift]
	transactions *store.Store[models.CashTransaction]
}

func newEngine() (*reports.Engine, *engineStores) {
	s := &engineStores{
		orders:       store.New[models.Order](models.CollectionOrders),
		items:        store.New[models.OrderItem](models.CollectionOrderItems),
		products:     store.New[models.Product](models.CollectionProducts),
		sessions:     store.New[models.TableSession](models.CollectionSessions),
		shifts:       store.New[models.CashShift](models.CollectionShifts),
		transactions: store.New[models.CashTransaction](models.CollectionTransactions),
	}
	e := reports.NewEngine(s.orders, s.items, s.products, s.sessions, s.shifts, s.transactions)
	return e, s
}

func TestEngineMonthlyRecomputesOnlyWhenStoresMove(t *testing.T) {
	e, s := newEngine()
	w := reports.MonthWindow(time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC))
	when := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)

	s.orders.Upsert(models.Order{ID: "o1", Status: models.OrderPaid, CreatedAt: when, UpdatedAt: when})
	s.items.Upsert(models.OrderItem{ID: "i1", OrderID: "o1", Quantity: 2, UnitPrice: 100})

	first := e.Monthly(w)
	assert.Equal(t, 200.0, first.TotalSales)

	// No store moved: the same value comes back.
	assert.Equal(t, first, e.Monthly(w))

	// A mutation invalidates the memo.
	s.items.Upsert(models.OrderItem{ID: "i2", OrderID: "o1", Quantity: 1, UnitPrice: 50})
	assert.Equal(t, 250.0, e.Monthly(w).TotalSales)

	// A different window is a different key even with unchanged stores.
	other := reports.MonthWindow(time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 0.0, e.Monthly(other).TotalSales)
}

func TestEngineShiftSummary(t *testing.T) {
	e, s := newEngine()
	opened := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	s.shifts.Upsert(models.CashShift{ID: "s1", Status: models.ShiftOpen, BaseAmount: 1000, OpenedAt: opened})
	s.orders.Upsert(models.Order{ID: "o1", Status: models.OrderPaid, UpdatedAt: opened.Add(time.Hour)})
	s.items.Upsert(models.OrderItem{ID: "i1", OrderID: "o1", Quantity: 1, UnitPrice: 300})
	s.transactions.Upsert(models.CashTransaction{ID: "tx1", ShiftID: "s1", Type: models.TransactionExpense, Amount: 100})

	sum, err := e.Shift("s1")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, sum.ExpectedTotal)

	_, err = e.Shift("ghost")
	assert.Error(t, err)
}
