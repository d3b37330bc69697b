package kiosk

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tiagofoks/photo-app-challenge/internal/capture"
)

// Route is a kiosk screen.
type Route string

const (
	RouteStart   Route = "/"
	RouteCapture Route = "/capture"
	RouteReview  Route = "/review"
	RouteFinal   Route = "/final"
)

// Navigator moves the kiosk to another screen.
type Navigator interface {
	Navigate(to Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(to Route)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(to Route) { f(to) }

// Session carries data between screens for one visitor: the captured artifact
// from capture to review, and the public URL from review to the final screen.
type Session struct {
	id string

	mu       sync.Mutex
	artifact *capture.Artifact
	finalURL string
}

// NewSession returns an empty session with a fresh ID.
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// StoreCapture implements capture.ArtifactSink, replacing any earlier capture.
func (s *Session) StoreCapture(a capture.Artifact) {
	s.mu.Lock()
	s.artifact = &a
	s.mu.Unlock()
}

// TakeCapture returns the stored artifact and clears it.
func (s *Session) TakeCapture() (capture.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifact == nil {
		return capture.Artifact{}, false
	}
	a := *s.artifact
	s.artifact = nil
	return a, true
}

// SetFinalURL records the public URL shown on the final screen.
func (s *Session) SetFinalURL(url string) {
	s.mu.Lock()
	s.finalURL = url
	s.mu.Unlock()
}

// FinalURL returns the recorded public URL, if any.
func (s *Session) FinalURL() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalURL, s.finalURL != ""
}

// Reset clears the session for the next visitor and assigns a new ID.
func (s *Session) Reset() {
	s.mu.Lock()
	s.artifact = nil
	s.finalURL = ""
	s.id = uuid.NewString()
	s.mu.Unlock()
}
