package photo

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/tiagofoks/photo-app-challenge/internal/platform/metrics"
)

// Client-facing messages. The kiosk UI is pt-BR.
const (
	MsgMissingImageData = "Dados da imagem não fornecidos."
	MsgUploadOK         = "Upload e registro bem-sucedidos!"
	MsgUploadFailed     = "Erro interno do servidor ao processar a imagem."
	MsgListFailed       = "Erro interno do servidor ao buscar fotos."
	MsgLiveness         = "Photo Opp Backend is running!"
)

// Handler exposes the photo booth HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Liveness handles GET /.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, MsgLiveness)
}

// Upload handles POST /api/upload.
// Body: { "imageData": "data:image/jpeg;base64,..." }, or the same field
// form-encoded.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUpload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.log.Info("upload body too large", slog.Int64("limit", maxErr.Limit))
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Message: MsgUploadFailed, Error: err.Error()})
			return
		}
		h.log.Debug("invalid upload body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: MsgMissingImageData})
		return
	}

	if req.ImageData == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: MsgMissingImageData})
		return
	}

	if h.metrics != nil {
		done := h.metrics.UploadStarted()
		defer done()
	}

	imageURL, err := h.svc.Upload(r.Context(), req.ImageData)
	if err != nil {
		h.log.Error("upload failed", slog.String("error", err.Error()))
		if h.metrics != nil {
			h.metrics.IncUploadFailures()
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: MsgUploadFailed, Error: err.Error()})
		return
	}

	h.log.Info("photo uploaded", slog.String("image_url", imageURL))
	if h.metrics != nil {
		h.metrics.IncPhotosUploaded()
	}
	writeJSON(w, http.StatusOK, UploadResponse{Message: MsgUploadOK, ImageURL: imageURL})
}

// ListPhotos handles GET /api/photos.
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error("list photos failed", slog.String("error", err.Error()))
		if h.metrics != nil {
			h.metrics.IncListFailures()
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: MsgListFailed, Error: err.Error()})
		return
	}

	if photos == nil {
		photos = []Photo{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Photos: photos})
}

// decodeUpload reads the upload body. An empty body is not an error; the
// caller rejects the missing image data.
func decodeUpload(r *http.Request) (UploadRequest, error) {
	var req UploadRequest
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.ImageData = r.PostForm.Get("imageData")
		return req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
