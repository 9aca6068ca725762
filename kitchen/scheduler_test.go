package kitchen_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruizmx/comandero/kitchen"
	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/remote"
	"github.com/aruizmx/comandero/store"
)

type fixture struct {
	svc        *remote.MemoryService
	orders     *store.Store[models.Order]
	items      *store.Store[models.OrderItem]
	products   *store.Store[models.Product]
	categories *store.Store[models.Category]
	sched      *kitchen.Scheduler
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		svc:        remote.NewMemoryService(),
		orders:     store.New[models.Order](models.CollectionOrders),
		items:      store.New[models.OrderItem](models.CollectionOrderItems),
		products:   store.New[models.Product](models.CollectionProducts),
		categories: store.New[models.Category](models.CollectionCategories),
	}
	f.sched = kitchen.NewScheduler(kitchen.DefaultConfig(), f.svc, f.orders, f.items, f.products, f.categories)
	f.sched.Now = func() time.Time { return now }
	// Recompute with the pinned clock.
	f.sched.SetStation(kitchen.StationAll)
	return f
}

func at(base time.Time, min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func boardIDs(board []kitchen.Ticket) []string {
	ids := make([]string, 0, len(board))
	for _, tk := range board {
		ids = append(ids, tk.Order.ID)
	}
	return ids
}

func TestBoardOrdersByUrgencyThenStatusThenAge(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := at(base, 30) // 10:30
	f := newFixture(t, now)

	f.orders.ReplaceAll([]models.Order{
		{ID: "A", Status: models.OrderPending, CreatedAt: at(base, 5)},      // 25m old, critical
		{ID: "B", Status: models.OrderPending, CreatedAt: base},             // 30m old, critical
		{ID: "C", Status: models.OrderInProgress, CreatedAt: at(base, 15)},  // 15m old, warning
		{ID: "D", Status: models.OrderPending, CreatedAt: at(base, 28)},     // 2m old, normal
		{ID: "E", Status: models.OrderInProgress, CreatedAt: at(base, 25)},  // 5m old, normal
		{ID: "F", Status: models.OrderPaid, CreatedAt: base},                // not active
	})

	// Critical before warning before normal; within a tier in_progress
	// before pending; within that FIFO by creation.
	assert.Equal(t, []string{"B", "A", "C", "E", "D"}, boardIDs(f.sched.Board()))
}

func TestTickReclassifiesWithoutDataChange(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, at(base, 5))

	f.orders.ReplaceAll([]models.Order{
		{ID: "A", Status: models.OrderPending, CreatedAt: base},
	})
	assert.Equal(t, kitchen.PriorityNormal, f.sched.Board()[0].Priority)

	// Same data, later clock: the periodic recompute escalates the ticket.
	f.sched.Now = func() time.Time { return at(base, 25) }
	f.sched.SetStation(kitchen.StationAll)
	assert.Equal(t, kitchen.PriorityCritical, f.sched.Board()[0].Priority)
}

func TestStationFilterKeepsOrdersWithAtLeastOneStationItem(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, at(base, 1))

	grill := "st-grill"
	catGrill := "cat-grill"
	catBar := "cat-bar"
	f.categories.ReplaceAll([]models.Category{
		{ID: catGrill, Name: "Grill", StationID: &grill},
		{ID: catBar, Name: "Bar"},
	})
	f.products.ReplaceAll([]models.Product{
		{ID: "p-steak", Name: "Steak", CategoryID: &catGrill},
		{ID: "p-beer", Name: "Beer", CategoryID: &catBar},
	})
	f.orders.ReplaceAll([]models.Order{
		{ID: "mixed", Status: models.OrderPending, CreatedAt: base},
		{ID: "bar-only", Status: models.OrderPending, CreatedAt: base},
	})
	f.items.ReplaceAll([]models.OrderItem{
		{ID: "i1", OrderID: "mixed", ProductID: "p-steak", Status: models.ItemPending, Quantity: 1},
		{ID: "i2", OrderID: "mixed", ProductID: "p-beer", Status: models.ItemPending, Quantity: 1},
		{ID: "i3", OrderID: "bar-only", ProductID: "p-beer", Status: models.ItemPending, Quantity: 1},
	})

	f.sched.SetStation(grill)
	board := f.sched.Board()
	require.Len(t, board, 1)
	assert.Equal(t, "mixed", board[0].Order.ID)
	// The ticket still carries all of the order's items.
	assert.Len(t, board[0].Items, 2)

	f.sched.SetStation(kitchen.StationAll)
	assert.Len(t, f.sched.Board(), 2)
}

func TestProgressCountsReadyItems(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, at(base, 1))

	f.orders.ReplaceAll([]models.Order{
		{ID: "o1", Status: models.OrderInProgress, CreatedAt: base},
	})
	f.items.ReplaceAll([]models.OrderItem{
		{ID: "i1", OrderID: "o1", ProductID: "p1", Status: models.ItemReady, Quantity: 1},
		{ID: "i2", OrderID: "o1", ProductID: "p1", Status: models.ItemPending, Quantity: 1},
		{ID: "i3", OrderID: "o1", ProductID: "p1", Status: models.ItemPending, Quantity: 1},
		{ID: "i4", OrderID: "o1", ProductID: "p1", Status: models.ItemReady, Quantity: 1},
	})

	board := f.sched.Board()
	require.Len(t, board, 1)
	assert.InDelta(t, 50.0, board[0].Progress, 0.001)
}

func TestToggleItemWritesRemoteFirstThenPatchesStore(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := at(base, 5)
	f := newFixture(t, now)
	ctx := context.Background()

	seed := models.OrderItem{ID: "i1", OrderID: "o1", ProductID: "p1", Status: models.ItemPending, Quantity: 1, CreatedAt: base}
	_, err := f.svc.Insert(ctx, models.CollectionOrderItems, seed)
	require.NoError(t, err)
	f.items.Upsert(seed)

	require.NoError(t, f.sched.ToggleItem(ctx, "i1"))

	got, ok := f.items.Get("i1")
	require.True(t, ok)
	assert.Equal(t, models.ItemReady, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(now))
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(base))

	// Toggle back down clears the finish stamp.
	require.NoError(t, f.sched.ToggleItem(ctx, "i1"))
	got, _ = f.items.Get("i1")
	assert.Equal(t, models.ItemPending, got.Status)
	assert.Nil(t, got.FinishedAt)
}

func TestToggleItemRejectsUnknownItem(t *testing.T) {
	f := newFixture(t, time.Now())
	err := f.sched.ToggleItem(context.Background(), "nope")
	assert.Error(t, err)
}

func TestToggleItemKeepsStoreUntouchedWhenRemoteFails(t *testing.T) {
	f := newFixture(t, time.Now())
	ctx := context.Background()

	seed := models.OrderItem{ID: "i1", OrderID: "o1", ProductID: "p1", Status: models.ItemPending, Quantity: 1}
	f.items.Upsert(seed)
	// Item exists locally but not remotely, so the update fails.
	err := f.sched.ToggleItem(ctx, "i1")
	assert.Error(t, err)

	got, _ := f.items.Get("i1")
	assert.Equal(t, models.ItemPending, got.Status)
}

func TestMarkStationReadyScopesToCurrentStation(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, at(base, 5))
	ctx := context.Background()

	grill := "st-grill"
	catGrill := "cat-grill"
	catBar := "cat-bar"
	f.categories.ReplaceAll([]models.Category{
		{ID: catGrill, Name: "Grill", StationID: &grill},
		{ID: catBar, Name: "Bar"},
	})
	f.products.ReplaceAll([]models.Product{
		{ID: "p-steak", Name: "Steak", CategoryID: &catGrill},
		{ID: "p-beer", Name: "Beer", CategoryID: &catBar},
	})
	items := []models.OrderItem{
		{ID: "i1", OrderID: "o1", ProductID: "p-steak", Status: models.ItemPending, Quantity: 1, CreatedAt: base},
		{ID: "i2", OrderID: "o1", ProductID: "p-beer", Status: models.ItemPending, Quantity: 1, CreatedAt: base},
	}
	for _, it := range items {
		_, err := f.svc.Insert(ctx, models.CollectionOrderItems, it)
		require.NoError(t, err)
	}
	f.items.ReplaceAll(items)

	f.sched.SetStation(grill)
	require.NoError(t, f.sched.MarkStationReady(ctx, "o1"))

	steak, _ := f.items.Get("i1")
	beer, _ := f.items.Get("i2")
	assert.Equal(t, models.ItemReady, steak.Status)
	assert.Equal(t, models.ItemPending, beer.Status)
}
