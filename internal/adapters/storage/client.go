package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOService implements PhotoStore using MinIO.
type MinIOService struct {
	client      *minio.Client
	bucket      string
	maxFileSize int64
}

// NewMinIOService creates a new MinIO photo store.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client:      client,
		bucket:      cfg.GetMinioBucketVisitPhotos(),
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}, nil
}

// EnsureBucket creates the photo bucket if it doesn't exist.
func (s *MinIOService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// objectKey builds a visit-scoped key with a UUID fragment so repeated
// uploads of the same file never overwrite each other.
func objectKey(visitID uuid.UUID, fileName string) string {
	ext := path.Ext(fileName)
	baseName := strings.TrimSuffix(path.Base(fileName), ext)
	uniqueFileName := fmt.Sprintf("%s_%s%s", baseName, uuid.New().String()[:8], ext)
	return filepath.ToSlash(filepath.Join("visits", visitID.String(), uniqueFileName))
}

// Upload stores photo bytes and returns the storage key plus the metadata
// extracted from the image itself.
func (s *MinIOService) Upload(ctx context.Context, visitID uuid.UUID, fileName, contentType string, data []byte) (string, PhotoMeta, error) {
	if err := s.ValidateContentType(contentType); err != nil {
		return "", PhotoMeta{}, err
	}
	if err := s.ValidateFileSize(int64(len(data))); err != nil {
		return "", PhotoMeta{}, err
	}

	meta, err := inspectPhoto(data)
	if err != nil {
		return "", PhotoMeta{}, err
	}

	key := objectKey(visitID, fileName)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", PhotoMeta{}, fmt.Errorf("failed to upload photo %s: %w", key, err)
	}

	return key, meta, nil
}

// PresignUpload creates a presigned URL for uploading a photo.
func (s *MinIOService) PresignUpload(ctx context.Context, visitID uuid.UUID, fileName, contentType string, sizeBytes int64) (*PresignedURL, error) {
	if err := s.ValidateContentType(contentType); err != nil {
		return nil, err
	}
	if err := s.ValidateFileSize(sizeBytes); err != nil {
		return nil, err
	}

	key := objectKey(visitID, fileName)
	expiresAt := time.Now().Add(PresignedURLTTL)
	presignedURL, err := s.client.PresignedPutObject(ctx, s.bucket, key, PresignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	return &PresignedURL{
		URL:        presignedURL.String(),
		StorageKey: key,
		ExpiresAt:  expiresAt,
	}, nil
}

// PresignDownload creates a presigned URL for downloading a stored photo.
func (s *MinIOService) PresignDownload(ctx context.Context, storageKey string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)

	reqParams := make(url.Values)
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, storageKey, PresignedURLTTL, reqParams)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURL{
		URL:        presignedURL.String(),
		StorageKey: storageKey,
		ExpiresAt:  expiresAt,
	}, nil
}

// Download streams a stored photo directly from storage.
// The caller is responsible for closing the returned io.ReadCloser.
func (s *MinIOService) Download(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", storageKey, err)
	}
	return obj, nil
}

// Delete removes a stored photo from storage.
func (s *MinIOService) Delete(ctx context.Context, storageKey string) error {
	err := s.client.RemoveObject(ctx, s.bucket, storageKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", storageKey, err)
	}
	return nil
}

// Compile-time check that MinIOService implements PhotoStore.
var _ PhotoStore = (*MinIOService)(nil)
