package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

// Compositor defaults: a 9:16 portrait canvas encoded at JPEG quality 90.
const (
	DefaultTargetWidth  = 540
	DefaultTargetHeight = 960
	DefaultJPEGQuality  = 90
)

// JPEGDataURIPrefix prefixes every artifact's data URI.
const JPEGDataURIPrefix = "data:image/jpeg;base64,"

// Capture failures.
var (
	ErrNoSource    = errors.New("no video source")
	ErrNoCanvas    = errors.New("no drawable canvas")
	ErrOverlayLoad = errors.New("overlay load failed")
)

// CaptureError is a capture failure carrying the message shown to the user.
type CaptureError struct {
	Message string
	Err     error
}

func (e *CaptureError) Error() string { return e.Message }

func (e *CaptureError) Unwrap() error { return e.Err }

// FrameSource yields the frame to capture. Stream and FrameSink satisfy it.
type FrameSource interface {
	Frame() (image.Image, error)
}

// OverlayLoader loads the overlay drawn over every photo.
type OverlayLoader interface {
	Load(ctx context.Context) (image.Image, error)
	// Location names the asset in error messages.
	Location() string
}

// FileOverlay loads a PNG or JPEG overlay from disk on every capture.
type FileOverlay struct {
	Path string
}

// Load implements OverlayLoader.
func (o FileOverlay) Load(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(o.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode overlay: %w", err)
	}
	return img, nil
}

// Location implements OverlayLoader.
func (o FileOverlay) Location() string { return o.Path }

// ImageOverlay is an already decoded overlay.
type ImageOverlay struct {
	Image image.Image
	Name  string
}

// Load implements OverlayLoader.
func (o ImageOverlay) Load(context.Context) (image.Image, error) {
	if o.Image == nil {
		return nil, errors.New("overlay image is nil")
	}
	return o.Image, nil
}

// Location implements OverlayLoader.
func (o ImageOverlay) Location() string { return o.Name }

// Artifact is one composited photo.
type Artifact struct {
	DataURI string
	Width   int
	Height  int
}

// CompositorOptions configures a Compositor. Zero values use the defaults.
type CompositorOptions struct {
	Width   int
	Height  int
	Quality int
}

// Compositor crops a frame to the target aspect ratio, scales it to fill the
// target exactly, draws the overlay on top, and encodes a JPEG data URI.
type Compositor struct {
	overlay OverlayLoader
	width   int
	height  int
	quality int
}

// NewCompositor returns a Compositor. overlay may be nil for bare photos.
func NewCompositor(overlay OverlayLoader, opts CompositorOptions) *Compositor {
	if opts.Width == 0 {
		opts.Width = DefaultTargetWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultTargetHeight
	}
	if opts.Quality == 0 {
		opts.Quality = DefaultJPEGQuality
	}
	return &Compositor{overlay: overlay, width: opts.Width, height: opts.Height, quality: opts.Quality}
}

// CropRect returns the centered region of a srcW x srcH frame that has the
// dstW:dstH aspect ratio. A relatively wider source loses equal left and right
// margins and keeps its full height; a taller one loses top and bottom
// margins and keeps its full width. The cropped side is never narrower than
// one pixel. The rectangle is relative to (0,0).
func CropRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}

	if srcW*dstH > srcH*dstW {
		w := (srcH*dstW + dstH/2) / dstH
		if w < 1 {
			w = 1
		}
		if w > srcW {
			w = srcW
		}
		x := (srcW - w) / 2
		return image.Rect(x, 0, x+w, srcH)
	}

	h := (srcW*dstH + dstW/2) / dstW
	if h < 1 {
		h = 1
	}
	if h > srcH {
		h = srcH
	}
	y := (srcH - h) / 2
	return image.Rect(0, y, srcW, y+h)
}

// Composite captures one frame from src and returns the composited artifact.
//
// When the overlay cannot be loaded the photo alone is still returned, together
// with a *CaptureError wrapping ErrOverlayLoad: callers must check the
// artifact before the error. Any other error comes with a nil artifact.
func (c *Compositor) Composite(ctx context.Context, src FrameSource) (*Artifact, error) {
	if src == nil {
		return nil, &CaptureError{Message: "Vídeo não disponível para captura.", Err: ErrNoSource}
	}
	frame, err := src.Frame()
	if err != nil || frame == nil {
		return nil, &CaptureError{Message: "Vídeo não disponível para captura.", Err: errors.Join(ErrNoSource, err)}
	}

	fb := frame.Bounds()
	if fb.Empty() || c.width <= 0 || c.height <= 0 {
		return nil, &CaptureError{Message: "Não foi possível obter o contexto 2D do canvas.", Err: ErrNoCanvas}
	}

	crop := CropRect(fb.Dx(), fb.Dy(), c.width, c.height).Add(fb.Min)
	if crop.Empty() {
		return nil, &CaptureError{Message: "Não foi possível obter o contexto 2D do canvas.", Err: ErrNoCanvas}
	}
	cropped := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(cropped, cropped.Bounds(), frame, crop.Min, draw.Src)

	canvas := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	photo := resize.Resize(uint(c.width), uint(c.height), cropped, resize.Bilinear)
	draw.Draw(canvas, canvas.Bounds(), photo, photo.Bounds().Min, draw.Src)

	var overlayErr error
	if c.overlay != nil {
		ov, err := c.overlay.Load(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			overlayErr = &CaptureError{
				Message: fmt.Sprintf("Erro ao carregar a imagem da moldura em: %s.", c.overlay.Location()),
				Err:     errors.Join(ErrOverlayLoad, err),
			}
		} else {
			scaled := resize.Resize(uint(c.width), uint(c.height), ov, resize.Bilinear)
			draw.Draw(canvas, canvas.Bounds(), scaled, scaled.Bounds().Min, draw.Over)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, &CaptureError{Message: "Não foi possível codificar a imagem.", Err: err}
	}

	art := &Artifact{
		DataURI: JPEGDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   c.width,
		Height:  c.height,
	}
	return art, overlayErr
}

// DecodeDataURI decodes a JPEG data URI produced by Composite.
func DecodeDataURI(dataURI string) (image.Image, error) {
	if !strings.HasPrefix(dataURI, JPEGDataURIPrefix) {
		return nil, errors.New("not a jpeg data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURI, JPEGDataURIPrefix))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return jpeg.Decode(bytes.NewReader(raw))
}
