package archive

import (
	"context"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 uploads objects to an AWS S3 bucket through the SDK's managed
// uploader, which switches to multipart transfers for large
// snapshots.
type S3 struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3 returns an archive writing to bucket under the given key
// prefix.
func NewS3(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

// Put uploads one object. The uploader derives part sizes from the
// body itself, so size is not forwarded.
func (a *S3) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(path.Join(a.prefix, name)),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	return err
}
