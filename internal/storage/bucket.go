package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketScheme prefixes folder paths served from an S3-compatible bucket.
const BucketScheme = "s3://"

// BucketConfig holds the connection settings shared by all bucket folders.
type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewMinioClient connects to an S3-compatible endpoint.
func NewMinioClient(cfg BucketConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage: bucket endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create minio client: %w", err)
	}
	return client, nil
}

// ParseBucketPath splits "s3://bucket/prefix" into bucket and prefix.
func ParseBucketPath(folderPath string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(folderPath, BucketScheme) {
		return "", "", fmt.Errorf("storage: %q is not a bucket path", folderPath)
	}
	u, err := url.Parse(folderPath)
	if err != nil {
		return "", "", fmt.Errorf("storage: parse bucket path: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("storage: bucket name missing in %q", folderPath)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

// IsBucketPath reports whether a folder path names a bucket.
func IsBucketPath(folderPath string) bool {
	return strings.HasPrefix(folderPath, BucketScheme)
}

// BucketStore persists artifacts as objects under a bucket prefix.
type BucketStore struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewBucketStore(client *minio.Client, bucket, prefix string) *BucketStore {
	return &BucketStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *BucketStore) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *BucketStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.objectKey(cleanKey), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType(cleanKey)})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}
	return cleanKey, nil
}

func (s *BucketStore) Read(ctx context.Context, key string) ([]byte, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(cleanKey), minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	defer func() {
		_ = obj.Close()
	}()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (s *BucketStore) Remove(ctx context.Context, key string) error {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(cleanKey), minio.RemoveObjectOptions{}); err != nil {
		if translate(err) == ErrNotExist {
			return nil
		}
		return fmt.Errorf("storage: remove object: %w", err)
	}
	return nil
}

func translate(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotExist
	}
	return fmt.Errorf("storage: bucket: %w", err)
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
