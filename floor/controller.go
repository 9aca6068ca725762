// Package floor coordinates table occupancy: the free -> occupied -> free
// state machine, the table session lifecycle and the order bulk transitions
// that happen when a table is settled.
package floor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/remote"
	"github.com/aruizmx/comandero/store"
	"github.com/aruizmx/comandero/utils"
)

type Controller struct {
	svc      remote.Service
	tables   *store.Store[models.Table]
	zones    *store.Store[models.Zone]
	sessions *store.Store[models.TableSession]
	orders   *store.Store[models.Order]

	// BaseURL prefixes the QR code url written on table creation.
	BaseURL string
	Now     func() time.Time
}

func NewController(
	svc remote.Service,
	tables *store.Store[models.Table],
	zones *store.Store[models.Zone],
	sessions *store.Store[models.TableSession],
	orders *store.Store[models.Order],
) *Controller {
	return &Controller{
		svc:      svc,
		tables:   tables,
		zones:    zones,
		sessions: sessions,
		orders:   orders,
		Now:      time.Now,
	}
}

// Occupy opens a session on a free table and moves the table to occupied.
// The status check is local only; two terminals racing here are serialized by
// nothing but the remote service. If the session insert succeeds and the
// table update fails, the session is left orphaned-active and the returned
// error says so; it is never retried silently.
func (c *Controller) Occupy(ctx context.Context, tableID string, partySize int, waiterID string) (models.TableSession, error) {
	var zero models.TableSession

	table, ok := c.tables.Get(tableID)
	if !ok {
		return zero, utils.Validationf("occupy", "unknown table %s", tableID)
	}
	if table.Status != models.TableFree {
		return zero, utils.Validationf("occupy", "table %d is %s, not free", table.Number, table.Status)
	}
	if partySize < 1 {
		partySize = 1
	}

	session := models.TableSession{
		ID:          uuid.NewString(),
		TableID:     tableID,
		ClientCount: partySize,
		Status:      models.SessionActive,
		StartTime:   c.Now(),
	}
	if waiterID != "" {
		session.WaiterID = &waiterID
	}

	created, err := remote.InsertAs[models.TableSession](ctx, c.svc, models.CollectionSessions, session)
	if err != nil {
		return zero, fmt.Errorf("occupy: creating session: %w", err)
	}
	c.sessions.Upsert(created)

	patch := map[string]any{
		"status":             models.TableOccupied,
		"current_session_id": created.ID,
	}
	if _, err := c.svc.Update(ctx, models.CollectionTables, tableID, patch); err != nil {
		return created, fmt.Errorf(
			"occupy: session %s is active but table %s could not be updated (orphaned session): %w",
			created.ID, tableID, err)
	}
	c.tables.Patch(tableID, patch)

	return created, nil
}

// Free settles a table: every non-cancelled order of the session is marked
// paid, then the session is closed, then the table goes back to free. The
// order of steps matters: financial aggregation joins paid orders against
// closed sessions, so a closed session must never be observable with unpaid
// orders. Partial failures abort the remaining steps and surface as an
// aggregated error.
func (c *Controller) Free(ctx context.Context, tableID string, sessionID string) error {
	table, ok := c.tables.Get(tableID)
	if !ok {
		return utils.Validationf("free", "unknown table %s", tableID)
	}
	if sessionID == "" && table.CurrentSessionID != nil {
		sessionID = *table.CurrentSessionID
	}

	if sessionID != "" {
		if err := c.settleSession(ctx, sessionID); err != nil {
			return err
		}
	}

	patch := map[string]any{
		"status":             models.TableFree,
		"current_session_id": nil,
	}
	if _, err := c.svc.Update(ctx, models.CollectionTables, tableID, patch); err != nil {
		return fmt.Errorf("free: session %s closed but table %s still occupied: %w", sessionID, tableID, err)
	}
	c.tables.Patch(tableID, patch)
	return nil
}

func (c *Controller) settleSession(ctx context.Context, sessionID string) error {
	now := c.Now()

	open, err := remote.QueryAs[models.Order](ctx, c.svc, models.CollectionOrders, remote.Filter{
		Eq:  map[string]any{"session_id": sessionID},
		Neq: map[string]any{"status": models.OrderCancelled},
	})
	if err != nil {
		return fmt.Errorf("free: fetching session orders: %w", err)
	}

	var errs *multierror.Error
	for _, o := range open {
		if o.Status == models.OrderPaid {
			continue
		}
		patch := map[string]any{
			"status":     models.OrderPaid,
			"updated_at": now,
		}
		if _, err := c.svc.Update(ctx, models.CollectionOrders, o.ID, patch); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("marking order %s paid: %w", o.ID, err))
			continue
		}
		c.orders.Patch(o.ID, patch)
	}
	if err := errs.ErrorOrNil(); err != nil {
		// Session stays open so the unpaid orders remain attached to an
		// active session; the caller decides how to recover.
		return fmt.Errorf("free: session %s not closed: %w", sessionID, err)
	}

	patch := map[string]any{
		"status":   models.SessionClosed,
		"end_time": now,
	}
	if _, err := c.svc.Update(ctx, models.CollectionSessions, sessionID, patch); err != nil {
		return fmt.Errorf("free: orders paid but session %s not closed: %w", sessionID, err)
	}
	c.sessions.Patch(sessionID, patch)
	return nil
}

// ChangeStatus overwrites a table status without touching the session. This
// is the manual-correction escape hatch: it does not validate against the
// state machine, and the caller owns the occupied/session invariant.
func (c *Controller) ChangeStatus(ctx context.Context, tableID string, status string) error {
	patch := map[string]any{"status": status}
	if _, err := c.svc.Update(ctx, models.CollectionTables, tableID, patch); err != nil {
		return err
	}
	c.tables.Patch(tableID, patch)
	return nil
}

// CreateTable registers a table and stamps its QR url.
func (c *Controller) CreateTable(ctx context.Context, table models.Table) (models.Table, error) {
	if table.ID == "" {
		table.ID = uuid.NewString()
	}
	if table.Status == "" {
		table.Status = models.TableFree
	}
	if table.QRCode == "" {
		table.QRCode = c.BaseURL + "/client/menu/" + table.ID
	}

	created, err := remote.InsertAs[models.Table](ctx, c.svc, models.CollectionTables, table)
	if err != nil {
		return models.Table{}, err
	}
	c.tables.Upsert(created)
	return created, nil
}

func (c *Controller) UpdateTable(ctx context.Context, id string, patch map[string]any) error {
	if _, err := c.svc.Update(ctx, models.CollectionTables, id, patch); err != nil {
		return err
	}
	c.tables.Patch(id, patch)
	return nil
}

func (c *Controller) DeleteTable(ctx context.Context, id string) error {
	if err := c.svc.Delete(ctx, models.CollectionTables, id); err != nil {
		return err
	}
	c.tables.Remove(id)
	return nil
}

func (c *Controller) CreateZone(ctx context.Context, zone models.Zone) (models.Zone, error) {
	if zone.ID == "" {
		zone.ID = uuid.NewString()
	}
	created, err := remote.InsertAs[models.Zone](ctx, c.svc, models.CollectionZones, zone)
	if err != nil {
		return models.Zone{}, err
	}
	c.zones.Upsert(created)
	return created, nil
}

func (c *Controller) UpdateZone(ctx context.Context, id string, patch map[string]any) error {
	// Joined table data must never reach the zone record.
	delete(patch, "tables")
	if _, err := c.svc.Update(ctx, models.CollectionZones, id, patch); err != nil {
		return err
	}
	c.zones.Patch(id, patch)
	return nil
}

func (c *Controller) DeleteZone(ctx context.Context, id string) error {
	if err := c.svc.Delete(ctx, models.CollectionZones, id); err != nil {
		return err
	}
	c.zones.Remove(id)
	return nil
}
