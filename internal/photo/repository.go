package photo

import (
	"context"
)

// Repository defines the contract for persisting and listing photo records.
type Repository interface {
	// Create records a new photo with the given image URL and a
	// server-generated timestamp, returning the store-assigned ID.
	Create(ctx context.Context, imageURL string) (string, error)

	// List returns every photo record, most recent first. The order is the
	// store's; callers must not re-sort.
	List(ctx context.Context) ([]Photo, error)
}

// StoreRepository implements Repository on top of a document Store.
type StoreRepository struct {
	store      Store
	collection string
}

// NewInMemoryRepository constructs a repository with a default in-memory store.
func NewInMemoryRepository() *StoreRepository {
	return NewStoreRepository(NewInMemoryStore(), DefaultCollection)
}

// NewStoreRepository constructs a repository that keeps photo records in
// collection of store. An empty collection means DefaultCollection.
func NewStoreRepository(store Store, collection string) *StoreRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &StoreRepository{store: store, collection: collection}
}

// Create implements Repository.Create.
func (r *StoreRepository) Create(ctx context.Context, imageURL string) (string, error) {
	return r.store.Add(ctx, r.collection, map[string]any{
		FieldImageURL:  imageURL,
		FieldTimestamp: ServerTimestamp,
	})
}

// List implements Repository.List.
func (r *StoreRepository) List(ctx context.Context) ([]Photo, error) {
	docs, err := r.store.OrderedBy(ctx, r.collection, FieldTimestamp, Desc)
	if err != nil {
		return nil, err
	}

	photos := make([]Photo, 0, len(docs))
	for _, doc := range docs {
		photos = append(photos, Photo{ID: doc.ID, Fields: doc.Fields})
	}
	return photos, nil
}
