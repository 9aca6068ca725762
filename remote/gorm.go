package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/utils"
)

// ErrUnknownCollection is returned for a collection name outside the schema.
var ErrUnknownCollection = errors.New("unknown collection")

type factories struct {
	one   func() any
	slice func() any
	id    func(any) string
}

var schema = map[string]factories{
	models.CollectionTables:       typed[models.Table](),
	models.CollectionZones:        typed[models.Zone](),
	models.CollectionSessions:     typed[models.TableSession](),
	models.CollectionOrders:       typed[models.Order](),
	models.CollectionOrderItems:   typed[models.OrderItem](),
	models.CollectionProducts:     typed[models.Product](),
	models.CollectionCategories:   typed[models.Category](),
	models.CollectionStations:     typed[models.Station](),
	models.CollectionShifts:       typed[models.CashShift](),
	models.CollectionTransactions: typed[models.CashTransaction](),
}

func typed[T interface{ EntityID() string }]() factories {
	return factories{
		one:   func() any { return new(T) },
		slice: func() any { return new([]T) },
		id:    func(v any) string { return (*v.(*T)).EntityID() },
	}
}

// Migrate creates the full schema, the change log and the asset table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Table{},
		&models.Zone{},
		&models.TableSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.Product{},
		&models.Category{},
		&models.Station{},
		&models.CashShift{},
		&models.CashTransaction{},
		&models.ChangeRow{},
		&models.Asset{},
	)
}

type handlerEntry struct {
	id int
	fn func(ChangeEvent)
}

// GormService is the reference implementation of Service. Every write runs in
// a transaction that also appends a change-log row; a polling monitor delivers
// unprocessed rows to subscribed handlers in changed_at order.
type GormService struct {
	db       *gorm.DB
	Interval time.Duration

	mu       sync.Mutex
	handlers map[string][]handlerEntry
	global   []handlerEntry
	nextID   int
	stop     chan struct{}
}

func NewGormService(db *gorm.DB) *GormService {
	return &GormService{
		db:       db,
		Interval: time.Second,
		handlers: make(map[string][]handlerEntry),
	}
}

func (g *GormService) Query(ctx context.Context, collection string, f Filter) ([]json.RawMessage, error) {
	fac, ok := schema[collection]
	if !ok {
		return nil, fmt.Errorf("query %s: %w", collection, ErrUnknownCollection)
	}

	q := g.db.WithContext(ctx)
	for col, v := range f.Eq {
		q = q.Where(fmt.Sprintf("%s = ?", col), v)
	}
	for col, v := range f.Neq {
		q = q.Where(fmt.Sprintf("%s <> ?", col), v)
	}
	if f.OrderBy != "" {
		q = q.Order(f.OrderBy + " ASC")
	}

	slicePtr := fac.slice()
	if err := q.Find(slicePtr).Error; err != nil {
		return nil, err
	}

	b, err := json.Marshal(slicePtr)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	return raws, json.Unmarshal(b, &raws)
}

func (g *GormService) Insert(ctx context.Context, collection string, record any) (json.RawMessage, error) {
	fac, ok := schema[collection]
	if !ok {
		return nil, fmt.Errorf("insert %s: %w", collection, ErrUnknownCollection)
	}

	ptr, err := decodeRecord(fac, record, true)
	if err != nil {
		return nil, err
	}

	var img []byte
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ptr).Error; err != nil {
			return err
		}
		img, err = json.Marshal(ptr)
		if err != nil {
			return err
		}
		return tx.Create(&models.ChangeRow{
			Collection: collection,
			RecordID:   fac.id(ptr),
			ActionType: models.ActionInsert,
			NewData:    img,
			ChangedAt:  time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (g *GormService) Update(ctx context.Context, collection string, id string, patch any) (json.RawMessage, error) {
	fac, ok := schema[collection]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", collection, ErrUnknownCollection)
	}

	rawPatch, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}

	var img []byte
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ptr := fac.one()
		if err := tx.First(ptr, "id = ?", id).Error; err != nil {
			return err
		}
		old, err := json.Marshal(ptr)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(rawPatch, ptr); err != nil {
			return err
		}
		if err := tx.Save(ptr).Error; err != nil {
			return err
		}
		img, err = json.Marshal(ptr)
		if err != nil {
			return err
		}
		return tx.Create(&models.ChangeRow{
			Collection: collection,
			RecordID:   id,
			ActionType: models.ActionUpdate,
			NewData:    img,
			OldData:    old,
			ChangedAt:  time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (g *GormService) Delete(ctx context.Context, collection string, id string) error {
	fac, ok := schema[collection]
	if !ok {
		return fmt.Errorf("delete %s: %w", collection, ErrUnknownCollection)
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ptr := fac.one()
		if err := tx.First(ptr, "id = ?", id).Error; err != nil {
			return err
		}
		old, err := json.Marshal(ptr)
		if err != nil {
			return err
		}
		if err := tx.Delete(ptr).Error; err != nil {
			return err
		}
		return tx.Create(&models.ChangeRow{
			Collection: collection,
			RecordID:   id,
			ActionType: models.ActionDelete,
			OldData:    old,
			ChangedAt:  time.Now(),
		}).Error
	})
}

func (g *GormService) SubscribeChanges(collection string, handler func(ChangeEvent)) (func(), error) {
	if _, ok := schema[collection]; !ok {
		return nil, fmt.Errorf("subscribe %s: %w", collection, ErrUnknownCollection)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.handlers[collection] = append(g.handlers[collection], handlerEntry{id: id, fn: handler})

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		hs := g.handlers[collection]
		for i, h := range hs {
			if h.id == id {
				g.handlers[collection] = append(hs[:i], hs[i+1:]...)
				return
			}
		}
	}, nil
}

// SubscribeAllChanges registers a handler for every collection. The AMQP
// bridge fans changes out to the broker through this.
func (g *GormService) SubscribeAllChanges(handler func(ChangeEvent)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.global = append(g.global, handlerEntry{id: id, fn: handler})

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, h := range g.global {
			if h.id == id {
				g.global = append(g.global[:i], g.global[i+1:]...)
				return
			}
		}
	}
}

func (g *GormService) UploadAsset(ctx context.Context, name string, data []byte) (string, error) {
	asset := models.Asset{
		ID:   uuid.NewString(),
		Name: name,
		Data: data,
	}
	if err := g.db.WithContext(ctx).Create(&asset).Error; err != nil {
		return "", err
	}
	return "/assets/" + asset.ID, nil
}

// Asset loads an uploaded object by id.
func (g *GormService) Asset(ctx context.Context, id string) (*models.Asset, error) {
	var asset models.Asset
	if err := g.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// StartMonitor begins polling the change log and dispatching to handlers.
func (g *GormService) StartMonitor() {
	g.mu.Lock()
	if g.stop != nil {
		g.mu.Unlock()
		return
	}
	g.stop = make(chan struct{})
	stop := g.stop
	g.mu.Unlock()

	go func() {
		ticker := time.NewTicker(g.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.checkChanges()
			case <-stop:
				return
			}
		}
	}()
}

func (g *GormService) StopMonitor() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop != nil {
		close(g.stop)
		g.stop = nil
	}
}

// checkChanges drains unprocessed change rows in commit order, dispatches
// them and marks them processed, all inside one transaction. A failed commit
// redelivers the batch, which is why delivery is at-least-once.
func (g *GormService) checkChanges() {
	tx := g.db.Begin()

	var rows []models.ChangeRow
	if err := tx.Where("processed = ?", false).
		Order("changed_at ASC, id ASC").
		Limit(100).
		Find(&rows).Error; err != nil {
		tx.Rollback()
		utils.ErrorLogger.Printf("change monitor: fetching changes: %v", err)
		return
	}

	for _, row := range rows {
		ev := ChangeEvent{
			Type:       row.ActionType,
			Collection: row.Collection,
			New:        row.NewData,
			Old:        row.OldData,
		}
		for _, h := range g.snapshotHandlers(row.Collection) {
			h(ev)
		}
		if err := tx.Model(&models.ChangeRow{}).
			Where("id = ?", row.ID).
			Update("processed", true).Error; err != nil {
			tx.Rollback()
			utils.ErrorLogger.Printf("change monitor: marking change %d processed: %v", row.ID, err)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		utils.ErrorLogger.Printf("change monitor: commit: %v", err)
		tx.Rollback()
	}
}

func (g *GormService) snapshotHandlers(collection string) []func(ChangeEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]func(ChangeEvent), 0, len(g.handlers[collection])+len(g.global))
	for _, h := range g.handlers[collection] {
		out = append(out, h.fn)
	}
	for _, h := range g.global {
		out = append(out, h.fn)
	}
	return out
}

// decodeRecord decodes an arbitrary record into the collection's typed
// struct, assigning a fresh uuid when the caller left the id empty.
func decodeRecord(fac factories, record any, assignID bool) (any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if assignID {
		if id, _ := m["id"].(string); id == "" {
			m["id"] = uuid.NewString()
		}
	}
	raw, err = json.Marshal(m)
	if err != nil {
		return nil, err
	}
	ptr := fac.one()
	if err := json.Unmarshal(raw, ptr); err != nil {
		return nil, err
	}
	return ptr, nil
}
