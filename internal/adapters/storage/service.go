// Package storage provides the object storage adapter for visit evidence
// photos, backed by a MinIO S3-compatible bucket.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// PresignedURLTTL is the default expiration time for presigned URLs (15 minutes).
const PresignedURLTTL = 15 * time.Minute

// PresignedURL contains the URL and metadata for a presigned upload/download operation.
type PresignedURL struct {
	URL        string    `json:"url"`
	StorageKey string    `json:"storageKey"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// PhotoMeta is what the adapter learns by inspecting the uploaded bytes:
// pixel dimensions plus, for JPEGs carrying EXIF data, the capture time.
type PhotoMeta struct {
	Width      int
	Height     int
	CapturedAt *time.Time
}

// PhotoStore defines object storage operations for visit evidence photos.
type PhotoStore interface {
	// Upload stores photo bytes under a visit-scoped key and returns the
	// key plus metadata extracted from the image itself.
	Upload(ctx context.Context, visitID uuid.UUID, fileName, contentType string, data []byte) (string, PhotoMeta, error)

	// PresignUpload creates a presigned PUT URL so field clients on slow
	// links can push photos straight to the bucket.
	PresignUpload(ctx context.Context, visitID uuid.UUID, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)

	// PresignDownload creates a presigned GET URL for a stored photo.
	PresignDownload(ctx context.Context, storageKey string) (*PresignedURL, error)

	// Download streams a stored photo directly.
	// The caller is responsible for closing the returned io.ReadCloser.
	Download(ctx context.Context, storageKey string) (io.ReadCloser, error)

	// Delete removes a stored photo.
	Delete(ctx context.Context, storageKey string) error

	// EnsureBucket creates the photo bucket if it doesn't exist.
	EnsureBucket(ctx context.Context) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketVisitPhotos() string
	IsMinIOEnabled() bool
}
