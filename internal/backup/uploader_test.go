package backup

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/critterhaus/burrow/internal/config"
)

type mockS3 struct {
	bucket      string
	object      string
	body        []byte
	size        int64
	putErr      error
	contentType string
}

func (m *mockS3) PutObject(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if m.putErr != nil {
		return minio.UploadInfo{}, m.putErr
	}
	m.bucket = bucket
	m.object = objectName
	m.size = size
	m.contentType = opts.ContentType
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.body = data
	return minio.UploadInfo{Bucket: bucket, Key: objectName, Size: size}, nil
}

func TestS3Uploader_Upload(t *testing.T) {
	mock := &mockS3{}
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	u := &S3Uploader{
		client: mock,
		bucket: "critterhaus-backups",
		now:    func() time.Time { return fixed },
	}

	payload := []byte(`{"pets": [], "version": 1}`)
	key, err := u.Upload(context.Background(), "device-1", payload)
	if err != nil {
		t.Fatal(err)
	}

	want := "device-1/snapshots/20260314T092653Z.json"
	if key != want {
		t.Errorf("Expected key %q, got %q", want, key)
	}
	if mock.bucket != "critterhaus-backups" {
		t.Errorf("Expected bucket forwarded, got %q", mock.bucket)
	}
	if string(mock.body) != string(payload) {
		t.Errorf("Expected payload uploaded, got %q", mock.body)
	}
	if mock.size != int64(len(payload)) {
		t.Errorf("Expected size %d, got %d", len(payload), mock.size)
	}
	if mock.contentType != "application/json" {
		t.Errorf("Expected json content type, got %q", mock.contentType)
	}
}

func TestS3Uploader_UploadError(t *testing.T) {
	mock := &mockS3{putErr: errors.New("access denied")}
	u := &S3Uploader{client: mock, bucket: "b", now: time.Now}

	_, err := u.Upload(context.Background(), "device-1", []byte(`{}`))
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Errorf("Expected wrapped cause, got %v", err)
	}
}

func TestNoopUploader(t *testing.T) {
	u := &NoopUploader{}
	_, err := u.Upload(context.Background(), "device-1", []byte(`{}`))
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestNewUploader_DisabledWithoutBucket(t *testing.T) {
	u, err := NewUploader(config.BackupConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.(*NoopUploader); !ok {
		t.Errorf("Expected NoopUploader, got %T", u)
	}
}

func TestNewUploader_Configured(t *testing.T) {
	u, err := NewUploader(config.BackupConfig{
		Endpoint:  "s3.us-east-1.amazonaws.com",
		Bucket:    "critterhaus-backups",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.(*S3Uploader); !ok {
		t.Errorf("Expected S3Uploader, got %T", u)
	}
}
