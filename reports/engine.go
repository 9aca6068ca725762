package reports

import (
	"sync"

	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/store"
	"github.com/aruizmx/comandero/utils"
)

// Engine serves the derived aggregates, memoized on the versions of the input
// stores so repeated reads without data changes never recompute.
type Engine struct {
	orders       *store.Store[models.Order]
	items        *store.Store[models.OrderItem]
	products     *store.Store[models.Product]
	sessions     *store.Store[models.TableSession]
	shifts       *store.Store[models.CashShift]
	transactions *store.Store[models.CashTransaction]

	mu sync.Mutex

	monthlyKey   monthlyKey
	monthlyVal   MonthlyStats
	monthlyValid bool

	shiftKey   shiftKey
	shiftVal   ShiftSummary
	shiftValid bool
}

type versions struct {
	orders, items, products, sessions, shifts, transactions uint64
}

type monthlyKey struct {
	v versions
	w Window
}

type shiftKey struct {
	v       versions
	shiftID string
}

func NewEngine(
	orders *store.Store[models.Order],
	items *store.Store[models.OrderItem],
	products *store.Store[models.Product],
	sessions *store.Store[models.TableSession],
	shifts *store.Store[models.CashShift],
	transactions *store.Store[models.CashTransaction],
) *Engine {
	return &Engine{
		orders:       orders,
		items:        items,
		products:     products,
		sessions:     sessions,
		shifts:       shifts,
		transactions: transactions,
	}
}

func (e *Engine) versions() versions {
	return versions{
		orders:       e.orders.Version(),
		items:        e.items.Version(),
		products:     e.products.Version(),
		sessions:     e.sessions.Version(),
		shifts:       e.shifts.Version(),
		transactions: e.transactions.Version(),
	}
}

// Monthly returns the report for the window, recomputing only when an input
// store moved since the last call.
func (e *Engine) Monthly(w Window) MonthlyStats {
	key := monthlyKey{v: e.versions(), w: w}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.monthlyValid && e.monthlyKey == key {
		return e.monthlyVal
	}

	e.monthlyVal = Monthly(
		e.orders.Snapshot(),
		e.items.Snapshot(),
		e.products.Snapshot(),
		e.sessions.Snapshot(),
		e.transactions.Snapshot(),
		w,
	)
	e.monthlyKey = key
	e.monthlyValid = true
	return e.monthlyVal
}

// Shift returns the expected-cash summary for one shift.
func (e *Engine) Shift(shiftID string) (ShiftSummary, error) {
	shift, ok := e.shifts.Get(shiftID)
	if !ok {
		return ShiftSummary{}, utils.Validationf("shift summary", "unknown shift %s", shiftID)
	}

	key := shiftKey{v: e.versions(), shiftID: shiftID}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shiftValid && e.shiftKey == key {
		return e.shiftVal, nil
	}

	e.shiftVal = SummarizeShift(
		shift,
		e.transactions.Snapshot(),
		e.orders.Snapshot(),
		e.items.Snapshot(),
	)
	e.shiftKey = key
	e.shiftValid = true
	return e.shiftVal, nil
}
