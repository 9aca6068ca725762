// Package kitchen derives the kitchen display board: a strict total order over
// active orders, recomputed on every store change and on a wall-clock tick,
// because urgency is a function of current time.
package kitchen

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/remote"
	"github.com/aruizmx/comandero/store"
	"github.com/aruizmx/comandero/utils"
)

const (
	PriorityCritical = "critical"
	PriorityWarning  = "warning"
	PriorityNormal   = "normal"

	// StationAll disables station filtering.
	StationAll = "all"
)

var priorityWeight = map[string]int{
	PriorityCritical: 3,
	PriorityWarning:  2,
	PriorityNormal:   1,
}

type Config struct {
	WarningAfter  time.Duration // order age that escalates to warning
	CriticalAfter time.Duration // order age that escalates to critical
	Tick          time.Duration // re-sort cadence with no data change
}

func DefaultConfig() Config {
	return Config{
		WarningAfter:  10 * time.Minute,
		CriticalAfter: 20 * time.Minute,
		Tick:          30 * time.Second,
	}
}

// TicketItem is an order item joined with its product name and station.
type TicketItem struct {
	models.OrderItem
	ProductName string `json:"product_name"`
	StationID   string `json:"station_id,omitempty"`
}

// Ticket is one kitchen display card.
type Ticket struct {
	Order    models.Order `json:"order"`
	Items    []TicketItem `json:"items"`
	Priority string       `json:"priority"`
	Progress float64      `json:"progress"` // percent of items ready
}

// Scheduler is a pure projection over the orders, items, products and
// categories stores. It owns no state beyond the last computed board, the
// selected station and the tick timer; it never mutates the stores it reads.
type Scheduler struct {
	cfg Config
	svc remote.Service
	Now func() time.Time

	orders     *store.Store[models.Order]
	items      *store.Store[models.OrderItem]
	products   *store.Store[models.Product]
	categories *store.Store[models.Category]

	mu         sync.Mutex
	station    string
	board      []Ticket
	subs       []func([]Ticket)
	stop       chan struct{}
	lastOrders []models.Order
	lastItems  []models.OrderItem
	lastProds  []models.Product
	lastCats   []models.Category
}

func NewScheduler(
	cfg Config,
	svc remote.Service,
	orders *store.Store[models.Order],
	items *store.Store[models.OrderItem],
	products *store.Store[models.Product],
	categories *store.Store[models.Category],
) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = 30 * time.Second
	}
	s := &Scheduler{
		cfg:        cfg,
		svc:        svc,
		Now:        time.Now,
		orders:     orders,
		items:      items,
		products:   products,
		categories: categories,
		station:    StationAll,
		lastOrders: orders.Snapshot(),
		lastItems:  items.Snapshot(),
		lastProds:  products.Snapshot(),
		lastCats:   categories.Snapshot(),
	}

	// Store callbacks hand over the fresh snapshot; reading the store back
	// from inside its own notification would self-deadlock.
	orders.Subscribe(func(snap []models.Order) {
		s.mu.Lock()
		s.lastOrders = snap
		s.recomputeLocked()
		s.mu.Unlock()
	})
	items.Subscribe(func(snap []models.OrderItem) {
		s.mu.Lock()
		s.lastItems = snap
		s.recomputeLocked()
		s.mu.Unlock()
	})
	products.Subscribe(func(snap []models.Product) {
		s.mu.Lock()
		s.lastProds = snap
		s.recomputeLocked()
		s.mu.Unlock()
	})
	categories.Subscribe(func(snap []models.Category) {
		s.mu.Lock()
		s.lastCats = snap
		s.recomputeLocked()
		s.mu.Unlock()
	})

	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()
	return s
}

// Start begins the periodic re-sort.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.cfg.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				s.recomputeLocked()
				s.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// SetStation scopes the board to one station, or StationAll.
func (s *Scheduler) SetStation(stationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stationID == "" {
		stationID = StationAll
	}
	s.station = stationID
	s.recomputeLocked()
}

func (s *Scheduler) Station() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.station
}

// Board returns the last computed ticket order.
func (s *Scheduler) Board() []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Ticket, len(s.board))
	copy(out, s.board)
	return out
}

// Subscribe registers fn for every recompute.
func (s *Scheduler) Subscribe(fn func([]Ticket)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// PriorityLevel classifies an order by elapsed time since creation.
func (s *Scheduler) PriorityLevel(order models.Order, now time.Time) string {
	age := now.Sub(order.CreatedAt)
	switch {
	case age >= s.cfg.CriticalAfter:
		return PriorityCritical
	case age >= s.cfg.WarningAfter:
		return PriorityWarning
	default:
		return PriorityNormal
	}
}

// ElapsedMinutes is the board's age label for a ticket.
func (s *Scheduler) ElapsedMinutes(order models.Order) int {
	return int(s.Now().Sub(order.CreatedAt) / time.Minute)
}

func (s *Scheduler) recomputeLocked() {
	now := s.Now()

	stationOf := stationIndex(s.lastProds, s.lastCats)
	nameOf := make(map[string]string, len(s.lastProds))
	for _, p := range s.lastProds {
		nameOf[p.ID] = p.Name
	}

	itemsByOrder := make(map[string][]TicketItem)
	for _, it := range s.lastItems {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], TicketItem{
			OrderItem:   it,
			ProductName: nameOf[it.ProductID],
			StationID:   stationOf[it.ProductID],
		})
	}

	var board []Ticket
	for _, o := range s.lastOrders {
		if !o.Active() {
			continue
		}
		items := itemsByOrder[o.ID]
		if s.station != StationAll && !hasStationItem(items, s.station) {
			continue
		}
		board = append(board, Ticket{
			Order:    o,
			Items:    items,
			Priority: s.PriorityLevel(o, now),
			Progress: progress(items),
		})
	}

	sort.SliceStable(board, func(i, j int) bool {
		a, b := board[i], board[j]
		if priorityWeight[a.Priority] != priorityWeight[b.Priority] {
			return priorityWeight[a.Priority] > priorityWeight[b.Priority]
		}
		if a.Order.Status != b.Order.Status {
			if a.Order.Status == models.OrderInProgress {
				return true
			}
			if b.Order.Status == models.OrderInProgress {
				return false
			}
		}
		return a.Order.CreatedAt.Before(b.Order.CreatedAt)
	})

	s.board = board
	for _, fn := range s.subs {
		fn(board)
	}
}

// stationIndex maps product id to station id via the product's category.
func stationIndex(products []models.Product, categories []models.Category) map[string]string {
	catStation := make(map[string]string, len(categories))
	for _, c := range categories {
		if c.StationID != nil {
			catStation[c.ID] = *c.StationID
		}
	}
	out := make(map[string]string, len(products))
	for _, p := range products {
		if p.CategoryID != nil {
			out[p.ID] = catStation[*p.CategoryID]
		}
	}
	return out
}

func hasStationItem(items []TicketItem, stationID string) bool {
	for _, it := range items {
		if it.StationID == stationID {
			return true
		}
	}
	return false
}

func progress(items []TicketItem) float64 {
	if len(items) == 0 {
		return 0
	}
	ready := 0
	for _, it := range items {
		if it.Status == models.ItemReady {
			ready++
		}
	}
	return float64(ready) / float64(len(items)) * 100
}

// ToggleItem flips an item between pending and ready, stamping finished_at on
// the way up. Remote write first, then the optimistic patch; the feed echo of
// the same change is idempotent.
func (s *Scheduler) ToggleItem(ctx context.Context, itemID string) error {
	item, ok := s.items.Get(itemID)
	if !ok {
		return utils.Validationf("toggle item", "unknown item %s", itemID)
	}

	patch := map[string]any{}
	if item.Status == models.ItemReady {
		patch["status"] = models.ItemPending
		patch["finished_at"] = nil
	} else {
		patch["status"] = models.ItemReady
		patch["finished_at"] = s.Now()
		if item.StartedAt == nil {
			patch["started_at"] = item.CreatedAt
		}
	}

	if _, err := s.svc.Update(ctx, models.CollectionOrderItems, itemID, patch); err != nil {
		return err
	}
	s.items.Patch(itemID, patch)
	return nil
}

// MarkStationReady marks every pending item of the order that belongs to the
// scheduler's current station (all items when unfiltered).
func (s *Scheduler) MarkStationReady(ctx context.Context, orderID string) error {
	s.mu.Lock()
	station := s.station
	items := s.lastItems
	stationOf := stationIndex(s.lastProds, s.lastCats)
	s.mu.Unlock()

	now := s.Now()
	for _, it := range items {
		if it.OrderID != orderID || it.Status == models.ItemReady {
			continue
		}
		if station != StationAll && stationOf[it.ProductID] != station {
			continue
		}
		patch := map[string]any{
			"status":      models.ItemReady,
			"finished_at": now,
		}
		if it.StartedAt == nil {
			patch["started_at"] = it.CreatedAt
		}
		if _, err := s.svc.Update(ctx, models.CollectionOrderItems, it.ID, patch); err != nil {
			return err
		}
		s.items.Patch(it.ID, patch)
	}
	return nil
}
