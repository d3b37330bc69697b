package photo

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreStore is a Store backed by Cloud Firestore. Ordering and server
// timestamps are resolved by Firestore itself.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to the Firestore database of projectID. When
// credentialsFile is empty, application default credentials are used.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// Add implements Store.Add.
func (s *FirestoreStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	data := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = firestore.ServerTimestamp
		}
		data[k] = v
	}

	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// OrderedBy implements Store.OrderedBy.
func (s *FirestoreStore) OrderedBy(ctx context.Context, collection, field string, dir Direction) ([]Document, error) {
	fsDir := firestore.Asc
	if dir == Desc {
		fsDir = firestore.Desc
	}

	snaps, err := s.client.Collection(collection).OrderBy(field, fsDir).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return docs, nil
}
