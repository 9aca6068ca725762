// Package changefeed decodes raw change events from the remote service and
// routes them into entity stores.
package changefeed

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/remote"
	"github.com/aruizmx/comandero/store"
	"github.com/aruizmx/comandero/utils"
)

// Adapter owns one remote subscription per registered collection and turns
// each ChangeEvent into a store.Event for the bound sink. Nothing an event
// does (unknown collection, undecodable payload, a panicking sink) may stop
// delivery of future events.
type Adapter struct {
	feed remote.FeedSource

	mu      sync.Mutex
	sinks   map[string]func(store.Event)
	cancels []func()
}

func New(feed remote.FeedSource) *Adapter {
	return &Adapter{
		feed:  feed,
		sinks: make(map[string]func(store.Event)),
	}
}

// Register binds a collection to a sink and subscribes to its change stream.
func (a *Adapter) Register(collection string, sink func(store.Event)) error {
	a.mu.Lock()
	a.sinks[collection] = sink
	a.mu.Unlock()

	cancel, err := a.feed.SubscribeChanges(collection, func(ev remote.ChangeEvent) {
		a.handle(collection, ev)
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.cancels = append(a.cancels, cancel)
	a.mu.Unlock()
	return nil
}

// Bind registers a store under its own collection name.
func Bind[T store.Entity](a *Adapter, s *store.Store[T]) error {
	return a.Register(s.Collection(), s.ApplyRemote)
}

// Close cancels every subscription.
func (a *Adapter) Close() {
	a.mu.Lock()
	cancels := a.cancels
	a.cancels = nil
	a.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (a *Adapter) handle(subscribed string, ev remote.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			utils.ErrorLogger.Printf("changefeed: recovered from sink panic on %s: %v", subscribed, r)
		}
	}()

	collection := ev.Collection
	if collection == "" {
		collection = subscribed
	}

	a.mu.Lock()
	sink, ok := a.sinks[collection]
	a.mu.Unlock()
	if !ok {
		utils.ErrorLogger.Printf("changefeed: ignoring event for unknown collection %q", collection)
		return
	}

	sev, ok := decode(ev)
	if !ok {
		utils.ErrorLogger.Printf("changefeed: ignoring undecodable %s event on %s", ev.Type, collection)
		return
	}
	sink(sev)
}

// decode maps a raw change event onto a store event. Deletes identify the
// record through the old image, inserts and updates through the new one.
func decode(ev remote.ChangeEvent) (store.Event, bool) {
	var op store.Op
	switch strings.ToUpper(ev.Type) {
	case models.ActionInsert:
		op = store.OpInsert
	case models.ActionUpdate:
		op = store.OpUpdate
	case models.ActionDelete:
		op = store.OpDelete
	default:
		return store.Event{}, false
	}

	payload := ev.New
	if op == store.OpDelete {
		payload = ev.Old
	}

	var ident struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &ident); err != nil || ident.ID == "" {
		return store.Event{}, false
	}

	out := store.Event{Op: op, ID: ident.ID}
	if op != store.OpDelete {
		out.Payload = ev.New
	}
	return out, true
}
