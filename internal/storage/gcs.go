package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOptions configures the Google Cloud Storage backend. Endpoint is only set
// when talking to an emulator.
type GCSOptions struct {
	Bucket   string
	Prefix   string
	Endpoint string
}

// GCS stores artifacts as objects in a single bucket.
type GCS struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	name   string
	prefix string
}

// NewGCS connects to the bucket using application default credentials.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCS, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("storage: gcs bucket is required")
	}
	var clientOpts []option.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
	}
	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: create gcs client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(opts.Bucket),
		name:   opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

func (g *GCS) Describe() string {
	if g.prefix == "" {
		return "gs://" + g.name
	}
	return "gs://" + g.name + "/" + g.prefix
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) objectName(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return joinObjectName(g.prefix, key), nil
}

func joinObjectName(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func (g *GCS) Put(ctx context.Context, key string, r io.Reader) error {
	name, err := g.objectName(key)
	if err != nil {
		return err
	}
	w := g.bucket.Object(name).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", name, err)
	}
	return nil
}

func (g *GCS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	name, err := g.objectName(key)
	if err != nil {
		return nil, err
	}
	rc, err := g.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return rc, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	name, err := g.objectName(key)
	if err != nil {
		return err
	}
	err = g.bucket.Object(name).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	name, err := g.objectName(key)
	if err != nil {
		return false, err
	}
	_, err = g.bucket.Object(name).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	return true, nil
}
