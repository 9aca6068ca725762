package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruizmx/comandero/models"
)

func TestMemoryServiceQueryFilters(t *testing.T) {
	m := NewMemoryService()
	ctx := context.Background()

	for _, o := range []models.Order{
		{ID: "o1", SessionID: "s1", Status: models.OrderPending},
		{ID: "o2", SessionID: "s1", Status: models.OrderCancelled},
		{ID: "o3", SessionID: "s2", Status: models.OrderPending},
	} {
		_, err := m.Insert(ctx, models.CollectionOrders, o)
		require.NoError(t, err)
	}

	got, err := QueryAs[models.Order](ctx, m, models.CollectionOrders, Filter{
		Eq:  map[string]any{"session_id": "s1"},
		Neq: map[string]any{"status": models.OrderCancelled},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].ID)
}

func TestMemoryServiceDispatchesSynchronously(t *testing.T) {
	m := NewMemoryService()
	ctx := context.Background()

	var types []string
	cancel, err := m.SubscribeChanges(models.CollectionTables, func(ev ChangeEvent) {
		types = append(types, ev.Type)
	})
	require.NoError(t, err)

	created, err := InsertAs[models.Table](ctx, m, models.CollectionTables, models.Table{Number: 1})
	require.NoError(t, err)
	_, err = m.Update(ctx, models.CollectionTables, created.ID, map[string]any{"status": models.TableOccupied})
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, models.CollectionTables, created.ID))

	assert.Equal(t, []string{models.ActionInsert, models.ActionUpdate, models.ActionDelete}, types)

	cancel()
	_, err = m.Insert(ctx, models.CollectionTables, models.Table{Number: 2})
	require.NoError(t, err)
	assert.Len(t, types, 3)
}

func TestMemoryServiceFailHooks(t *testing.T) {
	m := NewMemoryService()
	ctx := context.Background()

	m.FailInsert = func(collection string) error {
		if collection == models.CollectionOrders {
			return errors.New("down")
		}
		return nil
	}
	_, err := m.Insert(ctx, models.CollectionOrders, models.Order{ID: "o1"})
	assert.Error(t, err)
	// Other collections are unaffected.
	_, err = m.Insert(ctx, models.CollectionTables, models.Table{ID: "t1"})
	assert.NoError(t, err)
}
