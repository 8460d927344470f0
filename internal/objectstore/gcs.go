package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/api/option"

	conf "github.com/trunov/mediashrink/internal/config"
)

// GCS is the Google Cloud Storage backend. Buckets are addressed per call.
type GCS struct {
	client *storage.Client
}

func NewGCS(ctx context.Context, cfg *conf.GCSConfig) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCS{client: client}, nil
}

func (g *GCS) object(bucket, key string) *storage.ObjectHandle {
	return g.client.Bucket(bucket).Object(key)
}

func (g *GCS) Size(ctx context.Context, bucket, key string) (int64, error) {
	attrs, err := g.object(bucket, key).Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %q: %w", key, err)
	}
	return attrs.Size, nil
}

func (g *GCS) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	r, err := g.object(bucket, key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to download %q: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read body for %q: %w", key, err)
	}
	return data, nil
}

func (g *GCS) Put(ctx context.Context, bucket, key string, payload []byte, contentType string) error {
	w := g.object(bucket, key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to stream %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload of %q: %w", key, err)
	}
	return nil
}

func (g *GCS) DownloadFile(ctx context.Context, bucket, key, path string) error {
	r, err := g.object(bucket, key).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to download %q: %w", key, err)
	}
	defer r.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func (g *GCS) UploadFile(ctx context.Context, path, bucket, key string) error {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect type of %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := g.object(bucket, key).NewWriter(ctx)
	w.ContentType = mime.String()

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to stream %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload of %q: %w", key, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
