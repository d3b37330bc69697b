package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	// Still-image devices accept PNG and JPEG files.
	_ "image/jpeg"
	_ "image/png"
)

// Stream is a live video stream bound to a camera device.
type Stream interface {
	// Frame returns the current video frame.
	Frame() (image.Image, error)
	// Stop releases the device. Camera calls it exactly once per stream.
	Stop()
}

// Device is a video input that can be opened.
type Device interface {
	Acquire(ctx context.Context) (Stream, error)
}

// DeviceFunc adapts a function to Device.
type DeviceFunc func(ctx context.Context) (Stream, error)

// Acquire implements Device.
func (f DeviceFunc) Acquire(ctx context.Context) (Stream, error) { return f(ctx) }

// Sink displays a bound stream. Bind(nil) unbinds.
type Sink interface {
	Bind(s Stream)
}

// Device errors. Device implementations wrap one of these so ClassifyError
// can map them to a user-facing message.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrSecurityBlocked  = errors.New("camera blocked by security policy")
	ErrDeviceNotFound   = errors.New("no camera device found")
	ErrDeviceBusy       = errors.New("camera in use or unreadable")
	ErrOverconstrained  = errors.New("camera cannot satisfy constraints")

	ErrStreamStopped     = errors.New("stream stopped")
	ErrCameraClosed      = errors.New("camera closed")
	ErrAcquireSuperseded = errors.New("acquisition superseded by a newer start")
)

// ErrorKind classifies camera acquisition failures.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission-denied"
	KindNoDevice         ErrorKind = "no-device"
	KindUnreadable       ErrorKind = "device-unreadable"
	KindGeneric          ErrorKind = "generic"
)

// CameraError is a classified acquisition failure with a localized message.
type CameraError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CameraError) Error() string { return e.Message }

func (e *CameraError) Unwrap() error { return e.Err }

// ClassifyError maps a device error to its kind and pt-BR message.
func ClassifyError(err error) *CameraError {
	var ce *CameraError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrSecurityBlocked):
		return &CameraError{
			Kind:    KindPermissionDenied,
			Message: "Permissão de câmera negada. Por favor, permita o acesso à câmera nas configurações do seu navegador.",
			Err:     err,
		}
	case errors.Is(err, ErrDeviceNotFound):
		return &CameraError{Kind: KindNoDevice, Message: "Nenhuma câmera encontrada.", Err: err}
	case errors.Is(err, ErrDeviceBusy), errors.Is(err, ErrOverconstrained):
		return &CameraError{Kind: KindUnreadable, Message: "A câmera já está em uso ou há um problema de hardware.", Err: err}
	default:
		return &CameraError{Kind: KindGeneric, Message: "Não foi possível acessar a câmera.", Err: err}
	}
}

// CameraOptions carries the camera callbacks. Both are optional and are
// invoked without internal locks held.
type CameraOptions struct {
	OnReady func(Stream)
	OnError func(message string)
}

// boundStream stops its stream at most once.
type boundStream struct {
	Stream
	once sync.Once
}

func (b *boundStream) release() { b.once.Do(b.Stream.Stop) }

// Camera owns the single active stream of one sink. Re-starting or closing
// releases the previous stream; a stream whose acquisition finishes after
// Close or after a newer Start is released without ever being bound.
type Camera struct {
	device Device
	sink   Sink
	opts   CameraOptions

	mu      sync.Mutex
	gen     uint64
	active  *boundStream
	ready   bool
	lastErr *CameraError
	closed  bool
}

// NewCamera returns a Camera acquiring from device and binding to sink.
func NewCamera(device Device, sink Sink, opts CameraOptions) *Camera {
	return &Camera{device: device, sink: sink, opts: opts}
}

// Start acquires the device and binds the stream. No retry is attempted; a
// failure is classified, reported through OnError, and returned.
func (c *Camera) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCameraClosed
	}
	c.gen++
	gen := c.gen
	prev := c.detachLocked()
	c.mu.Unlock()

	if prev != nil {
		prev.release()
	}

	stream, err := c.device.Acquire(ctx)

	c.mu.Lock()
	if c.closed || gen != c.gen {
		closed := c.closed
		c.mu.Unlock()
		if stream != nil {
			stream.Stop()
		}
		if closed {
			return ErrCameraClosed
		}
		return ErrAcquireSuperseded
	}

	if err != nil {
		cerr := ClassifyError(err)
		c.lastErr = cerr
		c.mu.Unlock()
		if c.opts.OnError != nil {
			c.opts.OnError(cerr.Message)
		}
		return cerr
	}
	if stream == nil {
		c.mu.Unlock()
		return errors.New("device returned no stream")
	}

	c.active = &boundStream{Stream: stream}
	c.ready = true
	c.lastErr = nil
	c.sink.Bind(stream)
	c.mu.Unlock()

	if c.opts.OnReady != nil {
		c.opts.OnReady(stream)
	}
	return nil
}

// Close releases the bound stream. It is safe to call more than once.
func (c *Camera) Close() {
	c.mu.Lock()
	c.closed = true
	prev := c.detachLocked()
	c.mu.Unlock()

	if prev != nil {
		prev.release()
	}
}

// Ready reports whether a stream is bound.
func (c *Camera) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Err returns the last classified error, or nil after a successful Start.
func (c *Camera) Err() *CameraError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// detachLocked unbinds the active stream and returns it for release.
// Caller must hold c.mu.
func (c *Camera) detachLocked() *boundStream {
	prev := c.active
	c.active = nil
	c.ready = false
	if prev != nil {
		c.sink.Bind(nil)
	}
	return prev
}

// FrameSink is a Sink that also serves frames of the bound stream, the way a
// video element is both display and capture source.
type FrameSink struct {
	mu     sync.RWMutex
	stream Stream
}

// Bind implements Sink.
func (s *FrameSink) Bind(stream Stream) {
	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
}

// Frame returns the current frame of the bound stream.
func (s *FrameSink) Frame() (image.Image, error) {
	s.mu.RLock()
	stream := s.stream
	s.mu.RUnlock()
	if stream == nil {
		return nil, ErrNoSource
	}
	return stream.Frame()
}

// StillStream is a Stream that serves one fixed image.
type StillStream struct {
	img image.Image

	mu      sync.Mutex
	stopped bool
	stops   int
}

// NewStillStream returns a stream serving img.
func NewStillStream(img image.Image) *StillStream {
	return &StillStream{img: img}
}

// Frame implements Stream.
func (s *StillStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStreamStopped
	}
	return s.img, nil
}

// Stop implements Stream.
func (s *StillStream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.stops++
	s.mu.Unlock()
}

// Stops returns how many times Stop was called.
func (s *StillStream) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// StillDevice is a Device whose frames come from an image file. The kiosk
// CLI uses it for headless runs.
type StillDevice struct {
	Path string
}

// Acquire implements Device.
func (d StillDevice) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(d.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, d.Path)
	}
	if errors.Is(err, os.ErrPermission) {
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, d.Path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrDeviceBusy, d.Path, err)
	}
	return NewStillStream(img), nil
}
