package archive

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Destination is a parsed archive target.
type Destination struct {
	Scheme   string // "s3", "minio" or "local"
	Endpoint string // minio only
	Bucket   string
	Prefix   string
	Path     string // local only
	Secure   bool   // minio only
}

// ParseDestination parses an archive target. Supported forms:
//
//	s3://bucket/prefix
//	minio://endpoint/bucket/prefix
//	/path/to/dir
//
// MinIO endpoints use TLS unless the URL carries ?secure=false.
func ParseDestination(s string) (Destination, error) {
	switch {
	case strings.HasPrefix(s, "s3://"):
		u, err := url.Parse(s)
		if err != nil {
			return Destination{}, fmt.Errorf("archive: parse destination %q: %w", s, err)
		}
		if u.Host == "" {
			return Destination{}, fmt.Errorf("archive: destination %q has no bucket", s)
		}
		return Destination{
			Scheme: "s3",
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}, nil

	case strings.HasPrefix(s, "minio://"):
		u, err := url.Parse(s)
		if err != nil {
			return Destination{}, fmt.Errorf("archive: parse destination %q: %w", s, err)
		}
		if u.Host == "" {
			return Destination{}, fmt.Errorf("archive: destination %q has no endpoint", s)
		}

		bucket, prefix, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
		if bucket == "" {
			return Destination{}, fmt.Errorf("archive: destination %q has no bucket", s)
		}

		secure := true
		if v := u.Query().Get("secure"); v != "" {
			secure, err = strconv.ParseBool(v)
			if err != nil {
				return Destination{}, fmt.Errorf("archive: destination %q: invalid secure value: %w", s, err)
			}
		}

		return Destination{
			Scheme:   "minio",
			Endpoint: u.Host,
			Bucket:   bucket,
			Prefix:   prefix,
			Secure:   secure,
		}, nil

	case strings.Contains(s, "://"):
		return Destination{}, fmt.Errorf("archive: unsupported destination scheme in %q", s)

	case s == "":
		return Destination{}, fmt.Errorf("archive: empty destination")

	default:
		return Destination{Scheme: "local", Path: s}, nil
	}
}

// New parses dest and builds its backend. S3 credentials come from
// the default AWS chain, MinIO credentials from the MINIO_ACCESS_KEY
// and MINIO_SECRET_KEY (or MINIO_ROOT_USER and MINIO_ROOT_PASSWORD)
// environment variables.
func New(ctx context.Context, dest string) (Archive, error) {
	d, err := ParseDestination(dest)
	if err != nil {
		return nil, err
	}

	switch d.Scheme {
	case "s3":
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("archive: load aws config: %w", err)
		}
		return NewS3(s3.NewFromConfig(cfg), d.Bucket, d.Prefix), nil

	case "minio":
		client, err := minio.New(d.Endpoint, &minio.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: d.Secure,
		})
		if err != nil {
			return nil, fmt.Errorf("archive: minio client: %w", err)
		}
		return NewMinIO(client, d.Bucket, d.Prefix), nil

	default:
		return NewLocal(d.Path), nil
	}
}
