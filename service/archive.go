package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/emhgit/pdf-voice-assistant/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveService keeps an object-storage copy of uploaded artifacts. It is
// optional: a nil *ArchiveService is valid and every method is a no-op on it.
// Archive failures are logged, never surfaced to the client; the in-memory
// session remains the owner of every buffer.
type ArchiveService struct {
	client *minio.Client
	bucket string
}

// NewArchiveService creates the archive client, or (nil, nil) when the
// archive is disabled in config.
func NewArchiveService(cfg *config.MinioConfig) (*ArchiveService, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &ArchiveService{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *ArchiveService) EnsureBucket(ctx context.Context) error {
	if s == nil {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// StoreArtifact uploads one session artifact as <token>/<kind>/<filename>.
// Intended to be called from a goroutine; errors are logged here.
func (s *ArchiveService) StoreArtifact(ctx context.Context, token, kind, filename string, data []byte, contentType string) {
	if s == nil {
		return
	}

	objectName := fmt.Sprintf("%s/%s/%s", token, kind, filename)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		slog.Warn("failed to archive artifact",
			"session_id", token,
			"object", objectName,
			"error", err,
		)
		return
	}

	slog.Debug("artifact archived", "session_id", token, "object", objectName)
}
