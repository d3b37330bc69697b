package kiosk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// Final screen defaults.
const (
	DefaultDwell  = 15 * time.Second
	DefaultQRSize = 256
)

// ErrNoFinalURL means the final screen was opened without an uploaded photo.
var ErrNoFinalURL = errors.New("no photo url to display")

// QRCode is the rendered final screen.
type QRCode struct {
	URL string
	PNG []byte
}

// FinalDisplay shows the public URL as a QR code, then returns the kiosk to
// the start screen after the dwell time.
type FinalDisplay struct {
	session *Session
	nav     Navigator
	dwell   time.Duration
	size    int

	mu    sync.Mutex
	timer *time.Timer
}

// NewFinalDisplay returns a FinalDisplay. Zero dwell or size use the defaults.
func NewFinalDisplay(session *Session, nav Navigator, dwell time.Duration, size int) *FinalDisplay {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	return &FinalDisplay{session: session, nav: nav, dwell: dwell, size: size}
}

// Show renders the QR code and arms the return to start. Without a URL in the
// session the kiosk returns to start immediately.
func (f *FinalDisplay) Show() (QRCode, error) {
	url, ok := f.session.FinalURL()
	if !ok {
		f.nav.Navigate(RouteStart)
		return QRCode{}, ErrNoFinalURL
	}

	png, err := qrcode.Encode(url, qrcode.Highest, f.size)
	if err != nil {
		return QRCode{}, fmt.Errorf("render qr code: %w", err)
	}

	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.dwell, func() {
		f.session.Reset()
		f.nav.Navigate(RouteStart)
	})
	f.mu.Unlock()

	return QRCode{URL: url, PNG: png}, nil
}

// Close cancels a pending return to start.
func (f *FinalDisplay) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
