package kiosk

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tiagofoks/photo-app-challenge/internal/capture"
)

// MsgUploadFallback is shown when the backend gives no message of its own.
const MsgUploadFallback = "Erro ao fazer upload da imagem."

var (
	// ErrNoCapture means the review screen was opened without a captured photo.
	ErrNoCapture = errors.New("no captured photo to review")
	// ErrUploadInFlight rejects a second approval while one is running.
	ErrUploadInFlight = errors.New("upload already in progress")
)

// UploadError is a failed approval with the message to show the visitor.
type UploadError struct {
	Message string
	Err     error
}

func (e *UploadError) Error() string { return e.Message }

func (e *UploadError) Unwrap() error { return e.Err }

// PhotoUploader sends an approved photo to the backend. Client implements it.
type PhotoUploader interface {
	Upload(ctx context.Context, imageData string) (string, error)
}

// Review is the review screen: the visitor approves the captured photo or
// retakes it.
type Review struct {
	session  *Session
	uploader PhotoUploader
	nav      Navigator
	log      *slog.Logger

	mu        sync.Mutex
	artifact  *capture.Artifact
	uploading bool
	lastErr   string
}

// NewReview returns a Review bound to session.
func NewReview(session *Session, uploader PhotoUploader, nav Navigator, log *slog.Logger) *Review {
	return &Review{session: session, uploader: uploader, nav: nav, log: log}
}

// Load takes the captured photo out of the session. Without one, the kiosk
// is sent back to the capture screen.
func (r *Review) Load() (capture.Artifact, error) {
	a, ok := r.session.TakeCapture()
	if !ok {
		r.nav.Navigate(RouteCapture)
		return capture.Artifact{}, ErrNoCapture
	}

	r.mu.Lock()
	r.artifact = &a
	r.lastErr = ""
	r.mu.Unlock()
	return a, nil
}

// Approve uploads the loaded photo. On success the public URL goes into the
// session and the kiosk moves to the final screen. On failure the photo is
// kept so the visitor can try again, and an *UploadError carries the message
// to display.
func (r *Review) Approve(ctx context.Context) error {
	r.mu.Lock()
	if r.artifact == nil {
		r.mu.Unlock()
		return ErrNoCapture
	}
	if r.uploading {
		r.mu.Unlock()
		return ErrUploadInFlight
	}
	r.uploading = true
	r.lastErr = ""
	dataURI := r.artifact.DataURI
	r.mu.Unlock()

	url, err := r.uploader.Upload(ctx, dataURI)

	r.mu.Lock()
	r.uploading = false
	if err != nil {
		msg := MsgUploadFallback
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		r.lastErr = msg
		r.mu.Unlock()

		r.log.Error("upload failed", slog.String("session", r.session.ID()), slog.String("error", err.Error()))
		return &UploadError{Message: msg, Err: err}
	}
	r.artifact = nil
	r.mu.Unlock()

	r.log.Info("photo approved", slog.String("session", r.session.ID()), slog.String("image_url", url))
	r.session.SetFinalURL(url)
	r.nav.Navigate(RouteFinal)
	return nil
}

// Retake discards the photo and returns to the capture screen.
func (r *Review) Retake() {
	r.mu.Lock()
	r.artifact = nil
	r.lastErr = ""
	r.mu.Unlock()
	r.nav.Navigate(RouteCapture)
}

// Uploading reports whether an approval is in flight; the UI disables its
// controls meanwhile.
func (r *Review) Uploading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploading
}

// LastError returns the message of the last failed approval.
func (r *Review) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}
