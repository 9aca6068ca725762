package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruizmx/comandero/catalog"
	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/remote"
	"github.com/aruizmx/comandero/store"
)

func newManager() (*catalog.Manager, *store.Store[models.Product], *store.Store[models.Category]) {
	products := store.New[models.Product](models.CollectionProducts)
	categories := store.New[models.Category](models.CollectionCategories)
	m := catalog.NewManager(remote.NewMemoryService(), products, categories)
	return m, products, categories
}

func TestProductLifecycle(t *testing.T) {
	m, products, _ := newManager()
	ctx := context.Background()

	created, err := m.CreateProduct(ctx, models.Product{Name: "Tacos", Price: 150, Active: true})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	require.NoError(t, m.UpdateProduct(ctx, created.ID, map[string]any{"price": 180.0}))
	got, ok := products.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, 180.0, got.Price)
	assert.Equal(t, "Tacos", got.Name)

	require.NoError(t, m.DeleteProduct(ctx, created.ID))
	assert.Equal(t, 0, products.Len())
}

func TestCategoryLifecycle(t *testing.T) {
	m, _, categories := newManager()
	ctx := context.Background()

	station := "st-bar"
	created, err := m.CreateCategory(ctx, models.Category{Name: "Drinks", StationID: &station})
	require.NoError(t, err)

	require.NoError(t, m.UpdateCategory(ctx, created.ID, map[string]any{"name": "Bebidas"}))
	got, _ := categories.Get(created.ID)
	assert.Equal(t, "Bebidas", got.Name)
	require.NotNil(t, got.StationID)
	assert.Equal(t, station, *got.StationID)

	require.NoError(t, m.DeleteCategory(ctx, created.ID))
	assert.Equal(t, 0, categories.Len())
}

func TestUploadImageReturnsAssetURL(t *testing.T) {
	m, _, _ := newManager()

	url, err := m.UploadImage(context.Background(), "foto.png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/assets/"))

	other, err := m.UploadImage(context.Background(), "foto.png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.NotEqual(t, url, other)
}
