package photo

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader is the object-storage capability images are sent to.
type Uploader interface {
	Upload(ctx context.Context, imageData string, opts UploadOptions) (UploadResult, error)
}

// CloudinaryUploader uploads images to Cloudinary.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader builds an uploader from a cloudinary:// URL.
func NewCloudinaryUploader(cloudinaryURL string) (*CloudinaryUploader, error) {
	if cloudinaryURL == "" {
		return nil, errors.New("cloudinary url is required")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryUploader{cld: cld}, nil
}

// Upload implements Uploader. imageData may be a data URI or a remote URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, imageData string, opts UploadOptions) (UploadResult, error) {
	resp, err := u.cld.Upload.Upload(ctx, imageData, uploader.UploadParams{
		Folder:         opts.Folder,
		ResourceType:   opts.ResourceType,
		Transformation: opts.Transformation,
		UploadPreset:   opts.UploadPreset,
	})
	if err != nil {
		return UploadResult{}, err
	}
	// API-level failures come back in the body with a nil error.
	if resp.Error.Message != "" {
		return UploadResult{}, errors.New(resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return UploadResult{}, errors.New("upload returned no secure url")
	}
	return UploadResult{SecureURL: resp.SecureURL, PublicID: resp.PublicID}, nil
}
