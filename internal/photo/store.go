package photo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Direction is the sort direction of an ordered query.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Store is the document-store abstraction photo records are persisted in.
// Implementations can be in-memory, SQLite, or Firestore; the Repository does
// not need to know which one is used. Field values equal to ServerTimestamp are
// replaced by the store's own write time.
type Store interface {
	// Add writes a new document to collection and returns its assigned ID.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)

	// OrderedBy returns every document in collection ordered by field.
	OrderedBy(ctx context.Context, collection, field string, dir Direction) ([]Document, error)
}

// InMemoryStore is a concurrency-safe in-memory implementation of Store.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
	now         func() time.Time
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		collections: make(map[string][]Document),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Add implements Store.Add.
func (s *InMemoryStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc := Document{ID: uuid.NewString(), Fields: resolveFields(fields, s.now())}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], doc)
	return doc.ID, nil
}

// OrderedBy implements Store.OrderedBy. Only time.Time and string fields are
// orderable; in ascending order documents missing the field come first.
func (s *InMemoryStore) OrderedBy(ctx context.Context, collection, field string, dir Direction) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	docs := make([]Document, len(s.collections[collection]))
	copy(docs, s.collections[collection])
	s.mu.RUnlock()

	var sortErr error
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i].Fields[field], docs[j].Fields[field]
		if dir == Desc {
			a, b = b, a
		}
		less, err := lessField(a, b)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, fmt.Errorf("order %s by %s: %w", collection, field, sortErr)
	}
	return docs, nil
}

// resolveFields copies fields, replacing ServerTimestamp with now.
func resolveFields(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = now
		}
		out[k] = v
	}
	return out
}

func lessField(a, b any) (bool, error) {
	if a == nil {
		return b != nil, nil
	}
	if b == nil {
		return false, nil
	}

	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return av.Before(bv), nil
	case string:
		bv, ok := b.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return av < bv, nil
	default:
		return false, fmt.Errorf("unorderable field type %T", a)
	}
}
