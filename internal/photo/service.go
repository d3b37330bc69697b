package photo

import (
	"context"
	"errors"
)

// Default object-storage hints for kiosk photos.
const (
	DefaultFolder         = "photo-opp"
	DefaultResourceType   = "image"
	DefaultTransformation = "q_auto:good"
)

// ErrMissingImageData is returned when an upload carries no image payload.
var ErrMissingImageData = errors.New("image data is required")

// Service relays images to object storage and records them in the repository.
// Upload and persistence are not transactional: if Create fails after a
// successful upload the stored object is left orphaned.
type Service struct {
	uploader Uploader
	repo     Repository
	opts     UploadOptions
}

// NewService returns a Service. Empty fields of opts fall back to the
// package defaults.
func NewService(uploader Uploader, repo Repository, opts UploadOptions) *Service {
	if opts.Folder == "" {
		opts.Folder = DefaultFolder
	}
	if opts.ResourceType == "" {
		opts.ResourceType = DefaultResourceType
	}
	if opts.Transformation == "" {
		opts.Transformation = DefaultTransformation
	}
	return &Service{uploader: uploader, repo: repo, opts: opts}
}

// Upload stores imageData and records it, returning the public URL exactly as
// object storage reported it. Capability errors are returned unwrapped so
// their message reaches the client verbatim.
func (s *Service) Upload(ctx context.Context, imageData string) (string, error) {
	if imageData == "" {
		return "", ErrMissingImageData
	}

	res, err := s.uploader.Upload(ctx, imageData, s.opts)
	if err != nil {
		return "", err
	}

	if _, err := s.repo.Create(ctx, res.SecureURL); err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

// List returns all photo records, most recent first.
func (s *Service) List(ctx context.Context) ([]Photo, error) {
	return s.repo.List(ctx)
}
