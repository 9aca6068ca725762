package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aruizmx/comandero/models"
)

// MemoryService is a map-backed Service with synchronous change delivery.
// Unit tests run against it; it also serves as a standalone demo backend.
// The Fail* hooks, when set, are consulted before every matching write and
// may inject an error, for partial-failure tests.
type MemoryService struct {
	mu      sync.Mutex
	records map[string]map[string]map[string]any
	order   map[string][]string
	subs    map[string][]handlerEntry
	nextID  int
	assets  map[string][]byte

	FailInsert func(collection string) error
	FailUpdate func(collection, id string) error
	FailDelete func(collection, id string) error
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		records: make(map[string]map[string]map[string]any),
		order:   make(map[string][]string),
		subs:    make(map[string][]handlerEntry),
		assets:  make(map[string][]byte),
	}
}

func (m *MemoryService) Query(_ context.Context, collection string, f Filter) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []map[string]any
	for _, id := range m.order[collection] {
		rec := m.records[collection][id]
		if matches(rec, f) {
			out = append(out, rec)
		}
	}
	if f.OrderBy != "" {
		col := f.OrderBy
		sort.SliceStable(out, func(i, j int) bool {
			return fmt.Sprint(out[i][col]) < fmt.Sprint(out[j][col])
		})
	}

	raws := make([]json.RawMessage, 0, len(out))
	for _, rec := range out {
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		raws = append(raws, b)
	}
	return raws, nil
}

func (m *MemoryService) Insert(_ context.Context, collection string, record any) (json.RawMessage, error) {
	rec, err := toMap(record)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if hook := m.FailInsert; hook != nil {
		if err := hook(collection); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}

	id, _ := rec["id"].(string)
	if id == "" {
		id = uuid.NewString()
		rec["id"] = id
	}
	if m.records[collection] == nil {
		m.records[collection] = make(map[string]map[string]any)
	}
	if _, exists := m.records[collection][id]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("insert %s: duplicate id %s", collection, id)
	}
	m.records[collection][id] = rec
	m.order[collection] = append(m.order[collection], id)
	img, err := json.Marshal(rec)
	handlers := m.handlersLocked(collection)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	dispatch(handlers, ChangeEvent{Type: models.ActionInsert, Collection: collection, New: img})
	return img, nil
}

func (m *MemoryService) Update(_ context.Context, collection string, id string, patch any) (json.RawMessage, error) {
	p, err := toMap(patch)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if hook := m.FailUpdate; hook != nil {
		if err := hook(collection, id); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}

	rec, ok := m.records[collection][id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("update %s: no record %s", collection, id)
	}
	old, err := json.Marshal(rec)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	for k, v := range p {
		rec[k] = v
	}
	img, err := json.Marshal(rec)
	handlers := m.handlersLocked(collection)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	dispatch(handlers, ChangeEvent{Type: models.ActionUpdate, Collection: collection, New: img, Old: old})
	return img, nil
}

func (m *MemoryService) Delete(_ context.Context, collection string, id string) error {
	m.mu.Lock()
	if hook := m.FailDelete; hook != nil {
		if err := hook(collection, id); err != nil {
			m.mu.Unlock()
			return err
		}
	}

	rec, ok := m.records[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("delete %s: no record %s", collection, id)
	}
	old, err := json.Marshal(rec)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	delete(m.records[collection], id)
	for i, oid := range m.order[collection] {
		if oid == id {
			m.order[collection] = append(m.order[collection][:i], m.order[collection][i+1:]...)
			break
		}
	}
	handlers := m.handlersLocked(collection)
	m.mu.Unlock()

	dispatch(handlers, ChangeEvent{Type: models.ActionDelete, Collection: collection, Old: old})
	return nil
}

func (m *MemoryService) SubscribeChanges(collection string, handler func(ChangeEvent)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[collection] = append(m.subs[collection], handlerEntry{id: id, fn: handler})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		hs := m.subs[collection]
		for i, h := range hs {
			if h.id == id {
				m.subs[collection] = append(hs[:i], hs[i+1:]...)
				return
			}
		}
	}, nil
}

func (m *MemoryService) UploadAsset(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.assets[id] = append([]byte(nil), data...)
	return "/assets/" + id, nil
}

func (m *MemoryService) handlersLocked(collection string) []func(ChangeEvent) {
	out := make([]func(ChangeEvent), 0, len(m.subs[collection]))
	for _, h := range m.subs[collection] {
		out = append(out, h.fn)
	}
	return out
}

func dispatch(handlers []func(ChangeEvent), ev ChangeEvent) {
	for _, h := range handlers {
		h(ev)
	}
}

func toMap(record any) (map[string]any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func matches(rec map[string]any, f Filter) bool {
	for k, v := range f.Eq {
		if fmt.Sprint(rec[k]) != fmt.Sprint(v) {
			return false
		}
	}
	for k, v := range f.Neq {
		if fmt.Sprint(rec[k]) == fmt.Sprint(v) {
			return false
		}
	}
	return true
}
