package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tiagofoks/photo-app-challenge/internal/photo"
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	// Message is the backend's "message" field, empty if the body had none.
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %d", e.StatusCode)
}

// Client calls the photo backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL. timeout bounds each request; zero
// means no limit.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Upload posts a data URI to /api/upload and returns the public image URL.
func (c *Client) Upload(ctx context.Context, imageData string) (string, error) {
	body, err := json.Marshal(photo.UploadRequest{ImageData: imageData})
	if err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out photo.UploadResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.ImageURL, nil
}

// ListPhotos fetches the photo records, most recent first.
func (c *Client) ListPhotos(ctx context.Context) ([]photo.Photo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/photos", nil)
	if err != nil {
		return nil, err
	}

	var out photo.ListResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Photos, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er photo.ErrorResponse
		if json.Unmarshal(data, &er) == nil {
			apiErr.Message = er.Message
			apiErr.Detail = er.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
