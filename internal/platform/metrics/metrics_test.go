package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestRequestMiddleware_counts_errors_and_skips(t *testing.T) {
	m := New()
	mw := RequestMiddleware(m, "/metrics")

	ok := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	bad := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	bad.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/upload", nil))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	out := scrape(t, m)
	if !strings.Contains(out, "photobooth_requests_total 2") {
		t.Errorf("expected 2 counted requests:\n%s", out)
	}
	if !strings.Contains(out, "photobooth_errors_total 1") {
		t.Errorf("expected 1 error:\n%s", out)
	}
}

func TestUploadStarted(t *testing.T) {
	m := New()
	done := m.UploadStarted()
	if out := scrape(t, m); !strings.Contains(out, "photobooth_uploads_in_flight 1") {
		t.Errorf("expected 1 upload in flight:\n%s", out)
	}
	done()
	m.IncPhotosUploaded()

	out := scrape(t, m)
	if !strings.Contains(out, "photobooth_uploads_in_flight 0") {
		t.Errorf("expected 0 uploads in flight:\n%s", out)
	}
	if !strings.Contains(out, "photobooth_upload_duration_seconds_count 1") {
		t.Errorf("expected one observed upload:\n%s", out)
	}
	if !strings.Contains(out, "photobooth_photos_uploaded_total 1") {
		t.Errorf("expected 1 uploaded photo:\n%s", out)
	}
}
