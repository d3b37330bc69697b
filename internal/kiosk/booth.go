package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tiagofoks/photo-app-challenge/internal/capture"
	"github.com/tiagofoks/photo-app-challenge/internal/platform/config"
)

// Booth runs the kiosk screens headlessly: capture, review with automatic
// approval, and the final QR screen.
type Booth struct {
	cfg      *config.Kiosk
	device   capture.Device
	uploader PhotoUploader
	log      *slog.Logger

	session *Session

	mu     sync.Mutex
	route  Route
	routes chan Route
}

// NewBooth returns a Booth capturing from device and uploading through
// uploader.
func NewBooth(cfg *config.Kiosk, device capture.Device, uploader PhotoUploader, log *slog.Logger) *Booth {
	return &Booth{
		cfg:      cfg,
		device:   device,
		uploader: uploader,
		log:      log,
		session:  NewSession(),
		route:    RouteStart,
		routes:   make(chan Route, 16),
	}
}

// Navigate implements Navigator. Routes are logged and queued for WaitForStart.
func (b *Booth) Navigate(to Route) {
	b.mu.Lock()
	b.route = to
	b.mu.Unlock()

	b.log.Debug("navigate", slog.String("session", b.session.ID()), slog.String("route", string(to)))
	select {
	case b.routes <- to:
	default:
	}
}

// Route returns the current screen.
func (b *Booth) Route() Route {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.route
}

// Session returns the booth's visitor session.
func (b *Booth) Session() *Session { return b.session }

// Cycle is the outcome of one visitor cycle.
type Cycle struct {
	Artifact capture.Artifact
	QR       QRCode
	// OverlayErr is set when the photo was captured without its overlay.
	OverlayErr error
}

// RunCycle captures one photo, approves it, and shows the final screen. The
// returned FinalDisplay has its return-to-start timer armed; callers Close it
// or wait for RouteStart with WaitForStart.
func (b *Booth) RunCycle(ctx context.Context) (*Cycle, *FinalDisplay, error) {
	b.Navigate(RouteCapture)

	var overlay capture.OverlayLoader
	if b.cfg.Capture.OverlayPath != "" {
		overlay = capture.FileOverlay{Path: b.cfg.Capture.OverlayPath}
	}
	comp := capture.NewCompositor(overlay, capture.CompositorOptions{
		Width:   b.cfg.Capture.TargetWidth,
		Height:  b.cfg.Capture.TargetHeight,
		Quality: b.cfg.Capture.JPEGQuality,
	})

	handed := make(chan struct{}, 1)
	captureErrs := make(chan error, 1)
	var overlayErr error
	orch := capture.NewOrchestrator(b.device, comp, b.session, capture.OrchestratorOptions{
		CountdownStart:    b.cfg.Capture.CountdownStart,
		CountdownInterval: b.cfg.Capture.CountdownInterval,
		OnTick: func(n int) {
			b.log.Info("countdown", slog.Int("remaining", n))
		},
		OnCaptureError: func(err error) {
			if errors.Is(err, capture.ErrOverlayLoad) {
				b.log.Warn("overlay unavailable, photo captured without it", slog.String("error", err.Error()))
				overlayErr = err
				return
			}
			select {
			case captureErrs <- err:
			default:
			}
		},
		OnHandoff: func(capture.Artifact) {
			handed <- struct{}{}
			b.Navigate(RouteReview)
		},
	})
	defer orch.Close()

	if err := orch.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("start camera: %w", err)
	}
	if err := orch.Trigger(); err != nil {
		return nil, nil, fmt.Errorf("trigger capture: %w", err)
	}

	select {
	case <-handed:
	case err := <-captureErrs:
		return nil, nil, fmt.Errorf("capture: %w", err)
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	review := NewReview(b.session, b.uploader, b, b.log)
	art, err := review.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := review.Approve(ctx); err != nil {
		return nil, nil, err
	}

	final := NewFinalDisplay(b.session, b, b.cfg.Display.Dwell, b.cfg.Display.QRSize)
	qr, err := final.Show()
	if err != nil {
		return nil, nil, err
	}

	return &Cycle{Artifact: art, QR: qr, OverlayErr: overlayErr}, final, nil
}

// WaitForStart blocks until the kiosk navigates back to the start screen.
func (b *Booth) WaitForStart(ctx context.Context) error {
	for {
		select {
		case r := <-b.routes:
			if r == RouteStart {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
