// Package artifact stores build outputs in the deployment bucket.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stackfn-io/stackfn/internal/logging"
)

// Location identifies an uploaded artifact: the storage binding patched
// into a function node after its deferred build completes.
type Location struct {
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	Version string `json:"version,omitempty"`
}

// Store uploads bundles to S3, content-addressed by digest so an
// unchanged bundle re-uses its existing object.
type Store struct {
	bucket string
	client *s3.Client
}

func NewStore(ctx context.Context, bucket, region string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("artifact store requires a bucket")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return &Store{bucket: bucket, client: s3.NewFromConfig(cfg)}, nil
}

// NewStoreWithClient is used by tests and callers that manage their own client.
func NewStoreWithClient(bucket string, client *s3.Client) *Store {
	return &Store{bucket: bucket, client: client}
}

// Upload puts the bundle at path into the bucket and returns its location,
// including the object version when the bucket is versioned.
func (s *Store) Upload(ctx context.Context, path string) (*Location, error) {
	digest, err := fileDigest(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("artifacts/%s.zip", digest)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer f.Close()

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload artifact to s3://%s/%s: %w", s.bucket, key, err)
	}

	loc := &Location{Bucket: s.bucket, Key: key, Version: aws.ToString(out.VersionId)}
	logging.Debug("uploaded artifact", "bucket", loc.Bucket, "key", loc.Key, "version", loc.Version)
	return loc, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash artifact %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
