package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"convo/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient stores uploaded chat images and resolves the opaque refs
// attached to user messages.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(cfg config.Config) (*MinIOClient, error) {
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: false,
		},
	)
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(context.Background(), cfg.MinIOBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinIOClient{client: client, bucket: cfg.MinIOBucket}, nil
}

// UploadImage stores the image and returns its ref in img://<key> form.
func (m *MinIOClient) UploadImage(ctx context.Context, contentType string, size int64, r io.Reader) (string, error) {
	key := fmt.Sprintf("images/%s", uuid.New().String())
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return "img://" + key, nil
}

// ResolveImage turns an img:// ref into a presigned URL the model backend
// can fetch.
func (m *MinIOClient) ResolveImage(ctx context.Context, ref string) (string, error) {
	const prefix = "img://"
	if len(ref) <= len(prefix) || ref[:len(prefix)] != prefix {
		return "", fmt.Errorf("not an image ref: %q", ref)
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, ref[len(prefix):], 15*time.Minute, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
