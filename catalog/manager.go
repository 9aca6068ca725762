// Package catalog manages the product and category catalog, including product
// image storage through the remote asset primitive.
package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/remote"
	"github.com/aruizmx/comandero/store"
)

type Manager struct {
	svc        remote.Service
	products   *store.Store[models.Product]
	categories *store.Store[models.Category]
}

func NewManager(
	svc remote.Service,
	products *store.Store[models.Product],
	categories *store.Store[models.Category],
) *Manager {
	return &Manager{svc: svc, products: products, categories: categories}
}

func (m *Manager) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	created, err := remote.InsertAs[models.Product](ctx, m.svc, models.CollectionProducts, p)
	if err != nil {
		return models.Product{}, err
	}
	m.products.Upsert(created)
	return created, nil
}

func (m *Manager) UpdateProduct(ctx context.Context, id string, patch map[string]any) error {
	if _, err := m.svc.Update(ctx, models.CollectionProducts, id, patch); err != nil {
		return err
	}
	m.products.Patch(id, patch)
	return nil
}

func (m *Manager) DeleteProduct(ctx context.Context, id string) error {
	if err := m.svc.Delete(ctx, models.CollectionProducts, id); err != nil {
		return err
	}
	m.products.Remove(id)
	return nil
}

func (m *Manager) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	created, err := remote.InsertAs[models.Category](ctx, m.svc, models.CollectionCategories, c)
	if err != nil {
		return models.Category{}, err
	}
	m.categories.Upsert(created)
	return created, nil
}

func (m *Manager) UpdateCategory(ctx context.Context, id string, patch map[string]any) error {
	if _, err := m.svc.Update(ctx, models.CollectionCategories, id, patch); err != nil {
		return err
	}
	m.categories.Patch(id, patch)
	return nil
}

func (m *Manager) DeleteCategory(ctx context.Context, id string) error {
	if err := m.svc.Delete(ctx, models.CollectionCategories, id); err != nil {
		return err
	}
	m.categories.Remove(id)
	return nil
}

// UploadImage stores a product image and returns its URL. The object name is
// randomized so re-uploads of the same filename never collide.
func (m *Manager) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	ext := "bin"
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		ext = filename[i+1:]
	}
	name := fmt.Sprintf("%s_%d.%s", randomToken(), time.Now().UnixMilli(), ext)
	return m.svc.UploadAsset(ctx, name, data)
}

func randomToken() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
