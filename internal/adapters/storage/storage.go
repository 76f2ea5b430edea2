// Package storage provides the MinIO-backed media store used by webhook
// ingest for inbound WhatsApp media.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"zapdesk_backend/platform/config"
)

// PresignedURLTTL is the expiration for media download links.
const PresignedURLTTL = 15 * time.Minute

// MediaStore persists inbound media and issues download links.
type MediaStore interface {
	Store(ctx context.Context, workspaceID uuid.UUID, fileName, contentType string, data []byte) (string, error)
	DownloadURL(ctx context.Context, fileKey string) (string, error)
}

// MinIOStore implements MediaStore over a single media bucket, with one
// folder per workspace.
type MinIOStore struct {
	client      *minio.Client
	bucket      string
	maxFileSize int64
}

// NewMinIOStore creates the media store. Returns nil without error when
// MinIO is not configured; ingest then skips media persistence.
func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStore{
		client:      client,
		bucket:      cfg.GetMinioBucketMedia(),
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}, nil
}

var _ MediaStore = (*MinIOStore)(nil)

// EnsureBucket creates the media bucket if it does not exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Store writes one media payload and returns its object key.
func (s *MinIOStore) Store(ctx context.Context, workspaceID uuid.UUID, fileName, contentType string, data []byte) (string, error) {
	if int64(len(data)) > s.maxFileSize {
		return "", fmt.Errorf("media of %d bytes exceeds the %d byte limit", len(data), s.maxFileSize)
	}

	ext := path.Ext(fileName)
	base := strings.TrimSuffix(path.Base(fileName), ext)
	if base == "" || base == "." {
		base = "media"
	}
	fileKey := fmt.Sprintf("%s/%s_%s%s", workspaceID, base, uuid.New().String()[:8], ext)

	_, err := s.client.PutObject(ctx, s.bucket, fileKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// DownloadURL issues a presigned link for one stored object.
func (s *MinIOStore) DownloadURL(ctx context.Context, fileKey string) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, fileKey, PresignedURLTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", fileKey, err)
	}
	return presigned.String(), nil
}
