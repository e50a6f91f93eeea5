// Package backup copies the persisted database to S3-compatible storage and
// hands out pre-signed download URLs. When no bucket is configured the
// NoopUploader is used and every S3 operation is skipped.
package backup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sethvargo/go-retry"

	"github.com/hyperengineering/invrestore/internal/config"
)

// ErrNotConfigured is returned when backup storage is not configured.
var ErrNotConfigured = errors.New("backup storage not configured")

// ObjectName is the key, below the configured prefix, of the uploaded file.
const ObjectName = "invrestore.dat"

// Uploader uploads database files and generates pre-signed download URLs.
type Uploader interface {
	// Upload copies the file at filePath to the backup location.
	Upload(ctx context.Context, filePath string) error

	// PresignedURL returns a pre-signed URL for downloading the latest backup.
	// Returns ErrNotConfigured when backups are disabled.
	PresignedURL(ctx context.Context) (url string, expiry time.Time, err error)
}

// s3Client defines the minimal minio.Client operations used by S3Uploader.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath string) error
	PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error)
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath string) error {
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

func (w *minioClientWrapper) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	return w.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
}

// S3Uploader uploads backups to S3-compatible storage.
type S3Uploader struct {
	client    s3Client
	bucket    string
	key       string
	urlExpiry time.Duration
	backoff   func() retry.Backoff
}

// Upload uploads the file, retrying transient failures with exponential
// backoff.
func (u *S3Uploader) Upload(ctx context.Context, filePath string) error {
	err := retry.Do(ctx, u.backoff(), func(ctx context.Context) error {
		if err := u.client.FPutObject(ctx, u.bucket, u.key, filePath); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload backup to S3: %w", err)
	}
	return nil
}

// PresignedURL returns a pre-signed GET URL for the backup.
func (u *S3Uploader) PresignedURL(ctx context.Context) (string, time.Time, error) {
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, u.key, u.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate pre-signed URL: %w", err)
	}
	expiry := time.Now().Add(u.urlExpiry)
	return presigned.String(), expiry, nil
}

// NoopUploader is used when backups are not configured.
type NoopUploader struct{}

// Upload is a no-op when backups are not configured.
func (u *NoopUploader) Upload(ctx context.Context, filePath string) error {
	return nil
}

// PresignedURL returns ErrNotConfigured.
func (u *NoopUploader) PresignedURL(ctx context.Context) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.BackupConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := cfg.UseSSL
	endpoint := stripScheme(cfg.Endpoint, &useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client:    &minioClientWrapper{client: client},
		bucket:    cfg.Bucket,
		key:       objectKey(cfg.Prefix),
		urlExpiry: time.Duration(cfg.URLExpiry),
		backoff:   defaultBackoff,
	}, nil
}

func defaultBackoff() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
}

// stripScheme removes an http:// or https:// prefix from endpoint. An
// explicit scheme overrides useSSL.
func stripScheme(endpoint string, useSSL *bool) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		*useSSL = true
		return strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		*useSSL = false
		return strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

// objectKey returns the S3 object key for the backup.
// Convention: {prefix}/invrestore.dat
func objectKey(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ObjectName
	}
	return path.Join(prefix, ObjectName)
}
