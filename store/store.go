package store

import (
	"encoding/json"
	"sync"

	"github.com/aruizmx/comandero/utils"
)

// Entity is anything the store can hold, addressed by an opaque string id.
type Entity interface {
	EntityID() string
}

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event is one decoded change-feed event. Payload carries the new record for
// inserts, the changed fields for updates, and is empty for deletes.
type Event struct {
	Op      Op
	ID      string
	Payload json.RawMessage
}

// Store is the authoritative local cache of one collection. Remote events and
// optimistic local writes go through the same merge rule, so a later echo of
// an already-applied change is a no-op.
//
// Subscribers are notified synchronously, in mutation order, with a copy of
// the new snapshot. A subscriber must not mutate the store from its callback.
type Store[T Entity] struct {
	collection string

	mu      sync.RWMutex
	items   []T
	index   map[string]int
	version uint64
	subs    []subscriber[T]
	nextSub int
}

type subscriber[T Entity] struct {
	id int
	fn func([]T)
}

func New[T Entity](collection string) *Store[T] {
	return &Store[T]{
		collection: collection,
		index:      make(map[string]int),
	}
}

func (s *Store[T]) Collection() string { return s.collection }

// ReplaceAll swaps the whole snapshot in one transition, keeping the order of
// the given slice. Used after a bulk fetch.
func (s *Store[T]) ReplaceAll(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make([]T, 0, len(items))
	s.index = make(map[string]int, len(items))
	for _, it := range items {
		id := it.EntityID()
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = len(s.items)
		s.items = append(s.items, it)
	}
	s.bumpAndNotify()
}

// ApplyRemote merges one change-feed event into the snapshot.
// Insert of a known id is an idempotent no-op (a local optimistic insert may
// race its own echo). Update of an unknown id is treated as an insert, which
// self-heals a missed insert event. Delete of an unknown id is a no-op.
// Undecodable payloads are merge anomalies: logged and dropped.
func (s *Store[T]) ApplyRemote(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Op {
	case OpInsert:
		if _, ok := s.index[ev.ID]; ok {
			return
		}
		s.decodeAndAppend(ev)
	case OpUpdate:
		pos, ok := s.index[ev.ID]
		if !ok {
			s.decodeAndAppend(ev)
			return
		}
		merged := s.items[pos]
		if err := json.Unmarshal(ev.Payload, &merged); err != nil {
			utils.ErrorLogger.Printf("store[%s]: dropping undecodable update for %s: %v",
				s.collection, ev.ID, err)
			return
		}
		s.items[pos] = merged
		s.bumpAndNotify()
	case OpDelete:
		if _, ok := s.index[ev.ID]; !ok {
			return
		}
		s.removeLocked(ev.ID)
		s.bumpAndNotify()
	default:
		utils.ErrorLogger.Printf("store[%s]: unknown op %q for %s", s.collection, ev.Op, ev.ID)
	}
}

func (s *Store[T]) decodeAndAppend(ev Event) {
	var item T
	if err := json.Unmarshal(ev.Payload, &item); err != nil {
		utils.ErrorLogger.Printf("store[%s]: dropping undecodable %s for %s: %v",
			s.collection, ev.Op, ev.ID, err)
		return
	}
	s.index[item.EntityID()] = len(s.items)
	s.items = append(s.items, item)
	s.bumpAndNotify()
}

// Upsert applies a local, not-yet-confirmed full record: replaces the entity
// if present, appends it otherwise.
func (s *Store[T]) Upsert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := item.EntityID()
	if pos, ok := s.index[id]; ok {
		s.items[pos] = item
	} else {
		s.index[id] = len(s.items)
		s.items = append(s.items, item)
	}
	s.bumpAndNotify()
}

// Patch applies a local partial update through the same field-level merge rule
// as remote updates. Returns the merged entity, or false if the id is unknown.
func (s *Store[T]) Patch(id string, patch any) (T, bool) {
	var zero T
	raw, err := json.Marshal(patch)
	if err != nil {
		utils.ErrorLogger.Printf("store[%s]: unmarshalable patch for %s: %v", s.collection, id, err)
		return zero, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return zero, false
	}
	merged := s.items[pos]
	if err := json.Unmarshal(raw, &merged); err != nil {
		utils.ErrorLogger.Printf("store[%s]: dropping bad patch for %s: %v", s.collection, id, err)
		return zero, false
	}
	s.items[pos] = merged
	s.bumpAndNotify()
	return merged, true
}

// Remove applies a local delete. Unknown ids are a no-op.
func (s *Store[T]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return
	}
	s.removeLocked(id)
	s.bumpAndNotify()
}

func (s *Store[T]) removeLocked(id string) {
	pos := s.index[id]
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.items); i++ {
		s.index[s.items[i].EntityID()] = i
	}
}

// Snapshot returns a copy of the current snapshot. Callers own the slice but
// must treat the entities as read-only views.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store[T]) snapshotLocked() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos, ok := s.index[id]; ok {
		return s.items[pos], true
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Version is a monotonic counter bumped on every successful mutation. Derived
// projections memoize on it.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn for every subsequent mutation. The returned func
// unsubscribes.
func (s *Store[T]) Subscribe(fn func([]T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store[T]) bumpAndNotify() {
	s.version++
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, sub := range s.subs {
		sub.fn(snap)
	}
}
