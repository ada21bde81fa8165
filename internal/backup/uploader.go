// Package backup provides optional S3-compatible offsite storage for
// exported snapshots. When no bucket is configured the NoopUploader is
// used and the agent stays local-only.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/critterhaus/burrow/internal/config"
)

// ErrNotConfigured is returned when snapshot backup is not configured.
var ErrNotConfigured = errors.New("snapshot backup not configured")

// Uploader stores exported snapshots offsite.
type Uploader interface {
	// Upload stores a snapshot payload for the given device under a
	// timestamped object key. Returns the object key.
	Upload(ctx context.Context, deviceID string, snapshot []byte) (string, error)
}

// s3Client defines the minimal minio.Client operations used by
// S3Uploader. This interface enables testing with mock implementations.
type s3Client interface {
	PutObject(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Uploader uploads snapshots to S3-compatible storage.
type S3Uploader struct {
	client s3Client
	bucket string
	now    func() time.Time
}

var _ Uploader = (*S3Uploader)(nil)

// Upload stores the snapshot payload and returns its object key.
func (u *S3Uploader) Upload(ctx context.Context, deviceID string, snapshot []byte) (string, error) {
	key := objectKey(deviceID, u.now())
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if _, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(snapshot), int64(len(snapshot)), opts); err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	return key, nil
}

// NoopUploader is used when backup storage is not configured.
type NoopUploader struct{}

// Upload returns ErrNotConfigured.
func (u *NoopUploader) Upload(ctx context.Context, deviceID string, snapshot []byte) (string, error) {
	return "", ErrNotConfigured
}

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.BackupConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create backup client: %w", err)
	}

	return &S3Uploader{
		client: client,
		bucket: cfg.Bucket,
		now:    time.Now,
	}, nil
}

// objectKey returns the object key for a device's snapshot.
// Convention: {device_id}/snapshots/{timestamp}.json
func objectKey(deviceID string, t time.Time) string {
	return fmt.Sprintf("%s/snapshots/%s.json", deviceID, t.UTC().Format("20060102T150405Z"))
}
