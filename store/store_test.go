package store_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/store"
)

func tableStore() *store.Store[models.Table] {
	return store.New[models.Table](models.CollectionTables)
}

func insertEvent(id string, number, capacity int) store.Event {
	payload, _ := json.Marshal(map[string]any{"id": id, "number": number, "capacity": capacity})
	return store.Event{Op: store.OpInsert, ID: id, Payload: payload}
}

func updateEvent(id string, fields map[string]any) store.Event {
	fields["id"] = id
	payload, _ := json.Marshal(fields)
	return store.Event{Op: store.OpUpdate, ID: id, Payload: payload}
}

func TestReplaceAllKeepsOrder(t *testing.T) {
	s := tableStore()
	s.ReplaceAll([]models.Table{
		{ID: "b", Number: 2},
		{ID: "a", Number: 1},
	})

	snap := s.Snapshot()
	assert.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].ID)
	assert.Equal(t, "a", snap[1].ID)
}

func TestInsertCollisionIsIdempotent(t *testing.T) {
	s := tableStore()
	// A local optimistic insert may race its own change-feed echo.
	s.Upsert(models.Table{ID: "t1", Number: 7, Status: models.TableOccupied})
	s.ApplyRemote(insertEvent("t1", 7, 4))

	snap := s.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, models.TableOccupied, snap[0].Status)
}

func TestUpdateMergesFieldByField(t *testing.T) {
	s := tableStore()
	s.ApplyRemote(insertEvent("t1", 1, 1))

	s.ApplyRemote(updateEvent("t1", map[string]any{"number": 2}))
	s.ApplyRemote(updateEvent("t1", map[string]any{"capacity": 3}))

	got, ok := s.Get("t1")
	assert.True(t, ok)
	assert.Equal(t, 2, got.Number)
	assert.Equal(t, 3, got.Capacity)
}

func TestUpdateReplayIsIdempotent(t *testing.T) {
	s := tableStore()
	s.ApplyRemote(insertEvent("t1", 1, 4))

	ev := updateEvent("t1", map[string]any{"status": models.TableWaiting})
	s.ApplyRemote(ev)
	once := s.Snapshot()
	s.ApplyRemote(ev)
	twice := s.Snapshot()

	assert.Equal(t, once, twice)
}

func TestUpdateOfUnknownIDSelfHealsAsInsert(t *testing.T) {
	s := tableStore()
	s.ApplyRemote(updateEvent("ghost", map[string]any{"number": 9}))

	got, ok := s.Get("ghost")
	assert.True(t, ok)
	assert.Equal(t, 9, got.Number)
}

func TestDeleteUnknownIDIsNoOp(t *testing.T) {
	s := tableStore()
	s.ApplyRemote(insertEvent("t1", 1, 4))
	before := s.Version()

	s.ApplyRemote(store.Event{Op: store.OpDelete, ID: "nope"})

	assert.Equal(t, before, s.Version())
	assert.Equal(t, 1, s.Len())
}

func TestUndecodablePayloadIsDropped(t *testing.T) {
	s := tableStore()
	s.ApplyRemote(insertEvent("t1", 1, 4))

	s.ApplyRemote(store.Event{Op: store.OpUpdate, ID: "t1", Payload: []byte("{not json")})

	got, _ := s.Get("t1")
	assert.Equal(t, 1, got.Number)
}

func TestPatchUsesSameMergeRule(t *testing.T) {
	s := tableStore()
	s.ApplyRemote(insertEvent("t1", 1, 4))

	merged, ok := s.Patch("t1", map[string]any{"status": models.TablePaying})
	assert.True(t, ok)
	assert.Equal(t, models.TablePaying, merged.Status)
	assert.Equal(t, 4, merged.Capacity)

	_, ok = s.Patch("missing", map[string]any{"status": models.TableFree})
	assert.False(t, ok)
}

func TestSubscribersSeeEveryMutationInOrder(t *testing.T) {
	s := tableStore()

	var seen [][]string
	unsubscribe := s.Subscribe(func(snap []models.Table) {
		ids := make([]string, 0, len(snap))
		for _, t := range snap {
			ids = append(ids, t.ID)
		}
		seen = append(seen, ids)
	})

	s.ApplyRemote(insertEvent("a", 1, 4))
	s.ApplyRemote(insertEvent("b", 2, 4))
	s.ApplyRemote(store.Event{Op: store.OpDelete, ID: "a"})

	assert.Equal(t, [][]string{{"a"}, {"a", "b"}, {"b"}}, seen)

	unsubscribe()
	s.ApplyRemote(insertEvent("c", 3, 4))
	assert.Len(t, seen, 3)
}

func TestVersionBumpsOnlyOnRealMutations(t *testing.T) {
	s := tableStore()
	assert.Equal(t, uint64(0), s.Version())

	s.ApplyRemote(insertEvent("a", 1, 4))
	v1 := s.Version()
	assert.Greater(t, v1, uint64(0))

	// Idempotent no-ops do not move the version.
	s.ApplyRemote(insertEvent("a", 1, 4))
	s.ApplyRemote(store.Event{Op: store.OpDelete, ID: "zzz"})
	assert.Equal(t, v1, s.Version())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := tableStore()
	s.ApplyRemote(insertEvent("a", 1, 4))

	snap := s.Snapshot()
	snap[0].Number = 99

	got, _ := s.Get("a")
	assert.Equal(t, 1, got.Number)
}
