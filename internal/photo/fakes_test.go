package photo

import (
	"context"
	"sync"
	"time"
)

// newSteppingStore returns an InMemoryStore whose clock advances one second
// per write, so ordering by timestamp is deterministic.
func newSteppingStore() *InMemoryStore {
	s := NewInMemoryStore()
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
	return s
}

type fakeUploader struct {
	mu    sync.Mutex
	calls []string
	opts  []UploadOptions
	url   string
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, imageData string, opts UploadOptions) (UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, imageData)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return UploadResult{}, f.err
	}
	return UploadResult{SecureURL: f.url}, nil
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingStore wraps a Store, counting calls and optionally failing them.
type recordingStore struct {
	Store
	adds    int
	queries int
	addErr  error
	listErr error
	docs    []Document // when set, returned verbatim by OrderedBy
	lastDir Direction
	lastCol string
	lastFld string
}

func (s *recordingStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	s.adds++
	s.lastCol = collection
	if s.addErr != nil {
		return "", s.addErr
	}
	return s.Store.Add(ctx, collection, fields)
}

func (s *recordingStore) OrderedBy(ctx context.Context, collection, field string, dir Direction) ([]Document, error) {
	s.queries++
	s.lastCol, s.lastFld, s.lastDir = collection, field, dir
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.docs != nil {
		return s.docs, nil
	}
	return s.Store.OrderedBy(ctx, collection, field, dir)
}
