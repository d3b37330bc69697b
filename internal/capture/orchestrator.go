package capture

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the capture page state.
type State string

const (
	StateIdle       State = "idle"
	StateError      State = "error"
	StateReady      State = "ready"
	StateCounting   State = "counting"
	StateProcessing State = "processing"
	StateHandedOff  State = "handed-off"
	StateClosed     State = "closed"
)

// ErrNotReady is returned by Trigger outside the ready state.
var ErrNotReady = errors.New("capture not ready")

// ArtifactSink receives the artifact at handoff.
type ArtifactSink interface {
	StoreCapture(a Artifact)
}

// OrchestratorOptions wires callbacks and countdown settings. All callbacks
// are optional and run without the orchestrator's lock held.
type OrchestratorOptions struct {
	CountdownStart    int
	CountdownInterval time.Duration

	OnTick func(remaining int)
	// OnCaptureError reports capture failures, including a non-fatal overlay
	// failure that still hands off.
	OnCaptureError func(err error)
	// OnHandoff runs after the artifact is stored; the caller navigates to
	// review from here.
	OnHandoff func(a Artifact)
}

// Orchestrator drives camera -> countdown -> compositor -> handoff for one
// capture page and serializes them through its state machine, so at most one
// countdown and one compositing pass are in flight.
type Orchestrator struct {
	compositor *Compositor
	handoff    ArtifactSink
	opts       OrchestratorOptions

	frames    *FrameSink
	camera    *Camera
	countdown *Countdown

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	lastErr string
}

// NewOrchestrator returns an idle orchestrator for device. Call Start to
// acquire the camera.
func NewOrchestrator(device Device, compositor *Compositor, handoff ArtifactSink, opts OrchestratorOptions) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		compositor: compositor,
		handoff:    handoff,
		opts:       opts,
		frames:     &FrameSink{},
		ctx:        ctx,
		cancel:     cancel,
		state:      StateIdle,
	}
	o.camera = NewCamera(device, o.frames, CameraOptions{
		OnReady: func(Stream) { o.cameraReady() },
		OnError: o.cameraError,
	})
	o.countdown = NewCountdown(CountdownOptions{
		Start:      opts.CountdownStart,
		Interval:   opts.CountdownInterval,
		OnTick:     opts.OnTick,
		OnComplete: o.capture,
	})
	return o
}

// Start acquires the camera, releasing any stream from a previous Start.
// A failure leaves the orchestrator in StateError.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.countdown.Stop()
	o.mu.Lock()
	if o.state == StateClosed {
		o.mu.Unlock()
		return ErrCameraClosed
	}
	if o.state != StateHandedOff {
		o.state = StateIdle
	}
	o.mu.Unlock()
	return o.camera.Start(ctx)
}

// Trigger starts the countdown. It only succeeds in StateReady, so repeated
// activation while counting or processing is rejected.
func (o *Orchestrator) Trigger() error {
	o.mu.Lock()
	if o.state != StateReady {
		o.mu.Unlock()
		return ErrNotReady
	}
	o.state = StateCounting
	o.mu.Unlock()

	o.countdown.Start()
	return nil
}

// CanTrigger reports whether the capture control should be enabled.
func (o *Orchestrator) CanTrigger() bool {
	return o.State() == StateReady
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastError returns the message of the last camera or capture error.
func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Countdown returns the countdown snapshot for display.
func (o *Orchestrator) Countdown() CountdownState {
	return o.countdown.State()
}

// StreamLost returns the orchestrator to idle and cancels any countdown.
func (o *Orchestrator) StreamLost() {
	o.countdown.Stop()
	o.mu.Lock()
	if o.state != StateHandedOff && o.state != StateClosed {
		o.state = StateIdle
	}
	o.mu.Unlock()
}

// Close tears the page down: the countdown is cancelled and the camera
// stream released. A capture still compositing is discarded, never handed
// off.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.state != StateHandedOff {
		o.state = StateClosed
	}
	o.mu.Unlock()

	o.cancel()
	o.countdown.Stop()
	o.camera.Close()
}

func (o *Orchestrator) cameraReady() {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateIdle, StateError, StateReady:
		o.state = StateReady
		o.lastErr = ""
	}
}

func (o *Orchestrator) cameraError(message string) {
	o.countdown.Stop()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateHandedOff || o.state == StateClosed {
		return
	}
	o.state = StateError
	o.lastErr = message
}

// capture runs on countdown completion.
func (o *Orchestrator) capture() {
	o.mu.Lock()
	if o.state != StateCounting {
		o.mu.Unlock()
		return
	}
	o.state = StateProcessing
	o.mu.Unlock()

	art, err := o.compositor.Composite(o.ctx, o.frames)

	o.mu.Lock()
	if o.state != StateProcessing {
		// Stream lost or page closed while compositing.
		o.mu.Unlock()
		return
	}
	if art == nil {
		o.state = StateReady
		if !o.camera.Ready() {
			o.state = StateIdle
		}
		if err != nil {
			o.lastErr = err.Error()
		}
		o.mu.Unlock()
		if err != nil && o.opts.OnCaptureError != nil {
			o.opts.OnCaptureError(err)
		}
		return
	}
	o.state = StateHandedOff
	if err != nil {
		o.lastErr = err.Error()
	}
	o.mu.Unlock()

	o.handoff.StoreCapture(*art)
	if err != nil && o.opts.OnCaptureError != nil {
		o.opts.OnCaptureError(err)
	}
	if o.opts.OnHandoff != nil {
		o.opts.OnHandoff(*art)
	}
}
