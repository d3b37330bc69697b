package kiosk

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiagofoks/photo-app-challenge/internal/capture"
	"github.com/tiagofoks/photo-app-challenge/internal/photo"
	"github.com/tiagofoks/photo-app-challenge/internal/platform/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// routeLog is a Navigator that records every navigation.
type routeLog struct {
	mu     sync.Mutex
	routes []Route
}

func (n *routeLog) Navigate(to Route) {
	n.mu.Lock()
	n.routes = append(n.routes, to)
	n.mu.Unlock()
}

func (n *routeLog) all() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Route(nil), n.routes...)
}

// stubUploader returns url or err and counts calls.
type stubUploader struct {
	mu    sync.Mutex
	url   string
	err   error
	calls []string
	block chan struct{}
}

func (u *stubUploader) Upload(ctx context.Context, imageData string) (string, error) {
	u.mu.Lock()
	u.calls = append(u.calls, imageData)
	block := u.block
	u.mu.Unlock()
	if block != nil {
		<-block
	}
	return u.url, u.err
}

func (u *stubUploader) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

// photoUploader fakes object storage for the backend under test.
type photoUploader struct {
	url string
	err error
}

func (u *photoUploader) Upload(context.Context, string, photo.UploadOptions) (photo.UploadResult, error) {
	if u.err != nil {
		return photo.UploadResult{}, u.err
	}
	return photo.UploadResult{SecureURL: u.url}, nil
}

func newBackend(t *testing.T, up photo.Uploader) *httptest.Server {
	t.Helper()
	svc := photo.NewService(up, photo.NewInMemoryRepository(), photo.UploadOptions{})
	h := photo.NewHandler(svc, discardLogger(), nil)

	r := chi.NewRouter()
	r.Get("/", h.Liveness)
	r.Post("/api/upload", h.Upload)
	r.Get("/api/photos", h.ListPhotos)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_HandoffClearsOnTake(t *testing.T) {
	s := NewSession()
	require.NotEmpty(t, s.ID())

	_, ok := s.TakeCapture()
	assert.False(t, ok)

	s.StoreCapture(capture.Artifact{DataURI: "data:image/jpeg;base64,AAAA", Width: 540, Height: 960})
	a, ok := s.TakeCapture()
	require.True(t, ok)
	assert.Equal(t, 540, a.Width)

	_, ok = s.TakeCapture()
	assert.False(t, ok, "second take must find nothing")

	s.SetFinalURL("https://res.cloudinary.com/x.jpg")
	url, ok := s.FinalURL()
	assert.True(t, ok)
	assert.Equal(t, "https://res.cloudinary.com/x.jpg", url)

	id := s.ID()
	s.Reset()
	_, ok = s.FinalURL()
	assert.False(t, ok)
	assert.NotEqual(t, id, s.ID())
}

func TestReview_LoadWithoutCaptureRedirects(t *testing.T) {
	nav := &routeLog{}
	r := NewReview(NewSession(), &stubUploader{}, nav, discardLogger())

	_, err := r.Load()
	assert.ErrorIs(t, err, ErrNoCapture)
	assert.Equal(t, []Route{RouteCapture}, nav.all())
	assert.ErrorIs(t, r.Approve(context.Background()), ErrNoCapture)
}

func TestReview_ApproveSuccess(t *testing.T) {
	session := NewSession()
	session.StoreCapture(capture.Artifact{DataURI: "data:image/jpeg;base64,AAAA"})
	nav := &routeLog{}
	up := &stubUploader{url: "https://res.cloudinary.com/photo.jpg"}
	r := NewReview(session, up, nav, discardLogger())

	_, err := r.Load()
	require.NoError(t, err)
	require.NoError(t, r.Approve(context.Background()))

	assert.Equal(t, []string{"data:image/jpeg;base64,AAAA"}, up.calls)
	url, ok := session.FinalURL()
	assert.True(t, ok)
	assert.Equal(t, "https://res.cloudinary.com/photo.jpg", url)
	assert.Equal(t, []Route{RouteFinal}, nav.all())
}

func TestReview_ApproveFailureKeepsPhoto(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"backend message", &APIError{StatusCode: 500, Message: "Erro interno do servidor ao processar a imagem."},
			"Erro interno do servidor ao processar a imagem."},
		{"no message", &APIError{StatusCode: 502}, MsgUploadFallback},
		{"transport", errors.New("connection refused"), MsgUploadFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewSession()
			session.StoreCapture(capture.Artifact{DataURI: "data:image/jpeg;base64,AAAA"})
			nav := &routeLog{}
			up := &stubUploader{err: tt.err}
			r := NewReview(session, up, nav, discardLogger())
			_, err := r.Load()
			require.NoError(t, err)

			err = r.Approve(context.Background())
			var ue *UploadError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.want, ue.Message)
			assert.Equal(t, tt.want, r.LastError())
			assert.Empty(t, nav.all())

			// Retry uses the same photo.
			up.err = nil
			up.url = "https://res.cloudinary.com/retry.jpg"
			require.NoError(t, r.Approve(context.Background()))
			assert.Equal(t, 2, up.callCount())
			assert.Equal(t, up.calls[0], up.calls[1])
		})
	}
}

func TestReview_ApproveRejectsConcurrentUpload(t *testing.T) {
	session := NewSession()
	session.StoreCapture(capture.Artifact{DataURI: "data:image/jpeg;base64,AAAA"})
	up := &stubUploader{url: "https://res.cloudinary.com/p.jpg", block: make(chan struct{})}
	r := NewReview(session, up, &routeLog{}, discardLogger())
	_, err := r.Load()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Approve(context.Background()) }()

	require.Eventually(t, r.Uploading, time.Second, time.Millisecond)
	assert.ErrorIs(t, r.Approve(context.Background()), ErrUploadInFlight)

	close(up.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, up.callCount())
	assert.False(t, r.Uploading())
}

func TestReview_Retake(t *testing.T) {
	session := NewSession()
	session.StoreCapture(capture.Artifact{DataURI: "data:image/jpeg;base64,AAAA"})
	nav := &routeLog{}
	r := NewReview(session, &stubUploader{}, nav, discardLogger())
	_, err := r.Load()
	require.NoError(t, err)

	r.Retake()
	assert.Equal(t, []Route{RouteCapture}, nav.all())
	assert.ErrorIs(t, r.Approve(context.Background()), ErrNoCapture)
}

func TestFinalDisplay_NoURLReturnsToStart(t *testing.T) {
	nav := &routeLog{}
	f := NewFinalDisplay(NewSession(), nav, time.Hour, 0)

	_, err := f.Show()
	assert.ErrorIs(t, err, ErrNoFinalURL)
	assert.Equal(t, []Route{RouteStart}, nav.all())
}

func TestFinalDisplay_ShowsQRThenReturns(t *testing.T) {
	session := NewSession()
	session.SetFinalURL("https://res.cloudinary.com/photo.jpg")
	nav := &routeLog{}
	f := NewFinalDisplay(session, nav, 20*time.Millisecond, 0)

	qr, err := f.Show()
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/photo.jpg", qr.URL)

	img, err := png.Decode(bytes.NewReader(qr.PNG))
	require.NoError(t, err)
	assert.Equal(t, DefaultQRSize, img.Bounds().Dx())

	require.Eventually(t, func() bool { return len(nav.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Route{RouteStart}, nav.all())
	_, ok := session.FinalURL()
	assert.False(t, ok, "session is reset for the next visitor")
}

func TestFinalDisplay_CloseCancelsReturn(t *testing.T) {
	session := NewSession()
	session.SetFinalURL("https://res.cloudinary.com/photo.jpg")
	nav := &routeLog{}
	f := NewFinalDisplay(session, nav, 20*time.Millisecond, 0)

	_, err := f.Show()
	require.NoError(t, err)
	f.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, nav.all())
}

func TestClient_AgainstBackend(t *testing.T) {
	srv := newBackend(t, &photoUploader{url: "https://res.cloudinary.com/demo/a.jpg"})
	c := NewClient(srv.URL+"/", time.Second)

	photos, err := c.ListPhotos(context.Background())
	require.NoError(t, err)
	assert.Empty(t, photos)

	url, err := c.Upload(context.Background(), "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/a.jpg", url)

	photos, err = c.ListPhotos(context.Background())
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.NotEmpty(t, photos[0].ID)
	assert.Equal(t, "https://res.cloudinary.com/demo/a.jpg", photos[0].ImageURL())
}

func TestClient_ErrorResponses(t *testing.T) {
	srv := newBackend(t, &photoUploader{err: errors.New("cloudinary down")})
	c := NewClient(srv.URL, time.Second)

	_, err := c.Upload(context.Background(), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, photo.MsgMissingImageData, apiErr.Message)

	_, err = c.Upload(context.Background(), "data:image/jpeg;base64,AAAA")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, photo.MsgUploadFailed, apiErr.Message)
	assert.Equal(t, "cloudinary down", apiErr.Detail)
}

func TestBooth_RunCycle(t *testing.T) {
	srv := newBackend(t, &photoUploader{url: "https://res.cloudinary.com/demo/booth.jpg"})

	cfg := testKioskConfig()
	stream := capture.NewStillStream(solidFrame(1280, 720))
	device := capture.DeviceFunc(func(context.Context) (capture.Stream, error) { return stream, nil })
	b := NewBooth(cfg, device, NewClient(srv.URL, time.Second), discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cycle, final, err := b.RunCycle(ctx)
	require.NoError(t, err)
	defer final.Close()

	assert.Equal(t, "https://res.cloudinary.com/demo/booth.jpg", cycle.QR.URL)
	assert.NotEmpty(t, cycle.QR.PNG)
	assert.Equal(t, 540, cycle.Artifact.Width)
	assert.ErrorIs(t, cycle.OverlayErr, capture.ErrOverlayLoad, "overlay path does not exist")
	assert.Equal(t, RouteFinal, b.Route())

	require.NoError(t, b.WaitForStart(ctx))
	assert.Equal(t, RouteStart, b.Route())
	assert.Equal(t, 1, stream.Stops(), "camera released after capture")

	photos, err := NewClient(srv.URL, time.Second).ListPhotos(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 1)
}

func TestBooth_RunCycleCameraError(t *testing.T) {
	cfg := testKioskConfig()
	device := capture.DeviceFunc(func(context.Context) (capture.Stream, error) {
		return nil, capture.ErrPermissionDenied
	})
	b := NewBooth(cfg, device, &stubUploader{}, discardLogger())

	_, _, err := b.RunCycle(context.Background())
	var ce *capture.CameraError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, capture.KindPermissionDenied, ce.Kind)
}

func testKioskConfig() *config.Kiosk {
	cfg := config.DefaultKioskConfig()
	cfg.Capture.CountdownInterval = time.Millisecond
	cfg.Capture.OverlayPath = "testdata/missing-frame.png"
	cfg.Display.Dwell = 20 * time.Millisecond
	return cfg
}

func solidFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 200, G: 120, B: 40, A: 255}}, image.Point{}, draw.Src)
	return img
}
