// Package remote defines the contract of the remote data service the sync
// core runs against, plus a gorm-backed reference implementation, an
// in-memory implementation and an AMQP change-feed bridge.
package remote

import (
	"context"
	"encoding/json"
)

// ChangeEvent is one committed change delivered to feed handlers. New carries
// the record image for inserts and updates, Old carries the previous image for
// updates and deletes. Delivery is at-least-once, order-preserving per
// collection, with no guarantee across collections.
type ChangeEvent struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	New        json.RawMessage `json:"new,omitempty"`
	Old        json.RawMessage `json:"old,omitempty"`
}

// Filter narrows a Query: equality pairs, inequality pairs and an optional
// order-by column (ascending).
type Filter struct {
	Eq      map[string]any
	Neq     map[string]any
	OrderBy string
}

// Service is the remote data service. The sync core consumes nothing else.
type Service interface {
	Query(ctx context.Context, collection string, f Filter) ([]json.RawMessage, error)
	Insert(ctx context.Context, collection string, record any) (json.RawMessage, error)
	Update(ctx context.Context, collection string, id string, patch any) (json.RawMessage, error)
	Delete(ctx context.Context, collection string, id string) error
	SubscribeChanges(collection string, handler func(ChangeEvent)) (func(), error)
	UploadAsset(ctx context.Context, name string, data []byte) (string, error)
}

// FeedSource is the subscription half of Service, for deployments that take
// their feed from a different channel than their writes (see AMQPFeed).
type FeedSource interface {
	SubscribeChanges(collection string, handler func(ChangeEvent)) (func(), error)
}

// QueryAs runs svc.Query and decodes every record into T.
func QueryAs[T any](ctx context.Context, svc Service, collection string, f Filter) ([]T, error) {
	raws, err := svc.Query(ctx, collection, f)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// InsertAs runs svc.Insert and decodes the stored record back into T.
func InsertAs[T any](ctx context.Context, svc Service, collection string, record any) (T, error) {
	var v T
	raw, err := svc.Insert(ctx, collection, record)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(raw, &v)
	return v, err
}

type withFeed struct {
	Service
	feed FeedSource
}

func (w withFeed) SubscribeChanges(collection string, handler func(ChangeEvent)) (func(), error) {
	return w.feed.SubscribeChanges(collection, handler)
}

// WithFeed returns svc with its change subscription replaced by feed. Used to
// pair the gorm service with an AMQP feed on secondary terminals.
func WithFeed(svc Service, feed FeedSource) Service {
	return withFeed{Service: svc, feed: feed}
}
