package archive

import (
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
)

// MinIO uploads objects to a MinIO or other S3-compatible endpoint.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIO returns an archive writing to bucket under the given key
// prefix.
func NewMinIO(client *minio.Client, bucket, prefix string) *MinIO {
	return &MinIO{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Put uploads one object.
func (a *MinIO) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, path.Join(a.prefix, name), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
