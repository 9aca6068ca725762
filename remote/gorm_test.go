package remote

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aruizmx/comandero/models"
)

func newTestService(t *testing.T) *GormService {
	t.Helper()
	// A named shared-cache database keeps every pooled connection on the
	// same in-memory store while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return NewGormService(db)
}

func TestInsertQueryRoundTrip(t *testing.T) {
	g := newTestService(t)
	ctx := context.Background()

	created, err := InsertAs[models.Table](ctx, g, models.CollectionTables,
		models.Table{Number: 7, Capacity: 4, Status: models.TableFree})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := QueryAs[models.Table](ctx, g, models.CollectionTables, Filter{
		Eq: map[string]any{"number": 7},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, created.ID, got[0].ID)
	assert.Equal(t, 4, got[0].Capacity)
}

func TestQueryFiltersAndOrder(t *testing.T) {
	g := newTestService(t)
	ctx := context.Background()

	for _, tbl := range []models.Table{
		{Number: 3, Status: models.TableFree},
		{Number: 1, Status: models.TableOccupied},
		{Number: 2, Status: models.TableFree},
	} {
		_, err := g.Insert(ctx, models.CollectionTables, tbl)
		require.NoError(t, err)
	}

	got, err := QueryAs[models.Table](ctx, g, models.CollectionTables, Filter{
		Neq:     map[string]any{"status": models.TableOccupied},
		OrderBy: "number",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Number)
	assert.Equal(t, 3, got[1].Number)
}

func TestUnknownCollectionIsRejected(t *testing.T) {
	g := newTestService(t)
	ctx := context.Background()

	_, err := g.Query(ctx, "nope", Filter{})
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = g.Insert(ctx, "nope", models.Table{})
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = g.Update(ctx, "nope", "id", map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownCollection)
	err = g.Delete(ctx, "nope", "id")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = g.SubscribeChanges("nope", func(ChangeEvent) {})
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestUpdateMergesPatchOverStoredRecord(t *testing.T) {
	g := newTestService(t)
	ctx := context.Background()

	created, err := InsertAs[models.Table](ctx, g, models.CollectionTables,
		models.Table{Number: 5, Capacity: 4, Status: models.TableFree})
	require.NoError(t, err)

	_, err = g.Update(ctx, models.CollectionTables, created.ID, map[string]any{
		"status": models.TableOccupied,
	})
	require.NoError(t, err)

	got, err := QueryAs[models.Table](ctx, g, models.CollectionTables, Filter{
		Eq: map[string]any{"id": created.ID},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.TableOccupied, got[0].Status)
	// Untouched fields survive the patch.
	assert.Equal(t, 5, got[0].Number)
	assert.Equal(t, 4, got[0].Capacity)
}

func TestChangeLogDeliversWritesInOrderExactlyOnce(t *testing.T) {
	g := newTestService(t)
	ctx := context.Background()

	var events []ChangeEvent
	cancel, err := g.SubscribeChanges(models.CollectionTables, func(ev ChangeEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	defer cancel()

	created, err := InsertAs[models.Table](ctx, g, models.CollectionTables,
		models.Table{Number: 9, Status: models.TableFree})
	require.NoError(t, err)
	_, err = g.Update(ctx, models.CollectionTables, created.ID, map[string]any{"status": models.TableOccupied})
	require.NoError(t, err)
	require.NoError(t, g.Delete(ctx, models.CollectionTables, created.ID))

	g.checkChanges()
	require.Len(t, events, 3)
	assert.Equal(t, models.ActionInsert, events[0].Type)
	assert.Equal(t, models.ActionUpdate, events[1].Type)
	assert.Equal(t, models.ActionDelete, events[2].Type)
	assert.NotEmpty(t, events[2].Old)

	// A processed row is never redelivered.
	g.checkChanges()
	assert.Len(t, events, 3)
}

func TestCancelledSubscriptionStopsDelivery(t *testing.T) {
	g := newTestService(t)
	ctx := context.Background()

	count := 0
	cancel, err := g.SubscribeChanges(models.CollectionTables, func(ChangeEvent) { count++ })
	require.NoError(t, err)
	cancel()

	_, err = g.Insert(ctx, models.CollectionTables, models.Table{Number: 1})
	require.NoError(t, err)
	g.checkChanges()
	assert.Equal(t, 0, count)
}

func TestGlobalHandlerSeesEveryCollection(t *testing.T) {
	g := newTestService(t)
	ctx := context.Background()

	var collections []string
	cancel := g.SubscribeAllChanges(func(ev ChangeEvent) {
		collections = append(collections, ev.Collection)
	})
	defer cancel()

	_, err := g.Insert(ctx, models.CollectionTables, models.Table{Number: 1})
	require.NoError(t, err)
	_, err = g.Insert(ctx, models.CollectionZones, models.Zone{Name: "Salon"})
	require.NoError(t, err)

	g.checkChanges()
	assert.Equal(t, []string{models.CollectionTables, models.CollectionZones}, collections)
}

func TestUploadAssetRoundTrip(t *testing.T) {
	g := newTestService(t)
	ctx := context.Background()

	url, err := g.UploadAsset(ctx, "menu.png", []byte{0x89, 0x50})
	require.NoError(t, err)
	require.Contains(t, url, "/assets/")

	id := url[len("/assets/"):]
	asset, err := g.Asset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "menu.png", asset.Name)
	assert.Equal(t, []byte{0x89, 0x50}, asset.Data)
}
