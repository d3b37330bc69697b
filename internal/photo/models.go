package photo

import (
	"encoding/json"
)

// DefaultCollection is the document-store collection holding photo records.
const DefaultCollection = "photos"

// Field names of a stored photo record.
const (
	FieldImageURL  = "imageUrl"
	FieldTimestamp = "timestamp"
)

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp is a field value that a Store replaces with its own
// creation time when the document is written.
var ServerTimestamp = serverTimestamp{}

// Document is a stored record: the identifier assigned by the store plus the
// fields as they were written.
type Document struct {
	ID     string
	Fields map[string]any
}

// Photo is a persisted photo record as returned by the list endpoint.
// It serializes as {"id": ..., <fields>...}, fields spread verbatim.
type Photo struct {
	ID     string
	Fields map[string]any
}

// ImageURL returns the stored image URL, or "" if the field is missing.
func (p Photo) ImageURL() string {
	s, _ := p.Fields[FieldImageURL].(string)
	return s
}

// MarshalJSON implements json.Marshaler.
func (p Photo) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Fields)+1)
	out["id"] = p.ID
	for k, v := range p.Fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Photo) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if id, ok := raw["id"].(string); ok {
		p.ID = id
	}
	delete(raw, "id")
	p.Fields = raw
	return nil
}

// UploadRequest is the body of POST /api/upload.
type UploadRequest struct {
	ImageData string `json:"imageData"`
}

// UploadResponse is the success body of POST /api/upload.
type UploadResponse struct {
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
}

// ListResponse is the success body of GET /api/photos.
type ListResponse struct {
	Photos []Photo `json:"photos"`
}

// ErrorResponse is the body of every 4xx/5xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// UploadOptions are the object-storage transform hints sent with each upload.
type UploadOptions struct {
	Folder         string
	ResourceType   string
	Transformation string
	UploadPreset   string
}

// UploadResult is what object storage returns for a stored image.
type UploadResult struct {
	SecureURL string
	PublicID  string
}
