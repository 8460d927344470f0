package use_case

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/trunov/mediashrink/internal/entities"
	"github.com/trunov/mediashrink/internal/metrics"
	"github.com/trunov/mediashrink/internal/processor"
)

const (
	kindImage = "image"
	kindVideo = "video"
)

type ObjectStore interface {
	Size(ctx context.Context, bucket, key string) (int64, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, payload []byte, contentType string) error
	DownloadFile(ctx context.Context, bucket, key, path string) error
	UploadFile(ctx context.Context, path, bucket, key string) error
}

type StatusStore interface {
	Upsert(ctx context.Context, rec entities.ProcessingRecord) error
	Get(ctx context.Context, key string) (entities.ProcessingRecord, error)
}

type VideoDownscaler interface {
	Downscale(ctx context.Context, path string) error
}

// FailureRecorder receives errors that are never returned to the caller.
type FailureRecorder interface {
	StatusWriteFailed(ctx context.Context, rec entities.ProcessingRecord, err error)
	TransformFailed(ctx context.Context, kind, key string, err error)
}

type useCase struct {
	objects     ObjectStore
	statuses    StatusStore
	video       VideoDownscaler
	recorder    FailureRecorder
	metrics     *metrics.Registry
	imageLimits processor.Limits
	workDir     string
}

func New(objects ObjectStore, statuses StatusStore, video VideoDownscaler, recorder FailureRecorder, reg *metrics.Registry, imageLimits processor.Limits, workDir string) *useCase {
	return &useCase{
		objects:     objects,
		statuses:    statuses,
		video:       video,
		recorder:    recorder,
		metrics:     reg,
		imageLimits: imageLimits,
		workDir:     workDir,
	}
}

func (c *useCase) ProcessImage(ctx context.Context, bucket, key string) error {
	return c.track(ctx, kindImage, key, func(ctx context.Context) error {
		return c.shrinkImage(ctx, bucket, key)
	})
}

func (c *useCase) ProcessVideo(ctx context.Context, bucket, key string) error {
	return c.track(ctx, kindVideo, key, func(ctx context.Context) error {
		return c.shrinkVideo(ctx, bucket, key)
	})
}

func (c *useCase) Status(ctx context.Context, key string) (entities.ProcessingRecord, error) {
	return c.statuses.Get(ctx, key)
}

// track brackets transform with status writes: in progress before, then done
// or failed with the error message. Once started, the transform runs to
// completion even if the caller goes away.
func (c *useCase) track(ctx context.Context, kind, key string, transform func(context.Context) error) error {
	logger := log.Ctx(ctx).With().Str("kind", kind).Str("object_key", key).Logger()
	ctx = logger.WithContext(context.WithoutCancel(ctx))

	c.markStatus(ctx, entities.InProgress(key))

	if err := transform(ctx); err != nil {
		c.recorder.TransformFailed(ctx, kind, key, err)
		c.markStatus(ctx, entities.Failed(key, err))
		c.metrics.ObserveProcess(ctx, kind, "failed")
		return err
	}

	c.markStatus(ctx, entities.Done(key))
	c.metrics.ObserveProcess(ctx, kind, "ok")
	logger.Info().Msg("object processed")
	return nil
}

// markStatus never fails the request.
func (c *useCase) markStatus(ctx context.Context, rec entities.ProcessingRecord) {
	if err := c.statuses.Upsert(ctx, rec); err != nil {
		c.recorder.StatusWriteFailed(ctx, rec, err)
	}
}

func (c *useCase) shrinkImage(ctx context.Context, bucket, key string) error {
	size, err := c.objects.Size(ctx, bucket, key)
	if err != nil {
		return err
	}

	if size <= c.imageLimits.MaxBytes {
		log.Ctx(ctx).Info().Int64("size", size).Int64("budget", c.imageLimits.MaxBytes).Msg("image already within budget")
		return nil
	}

	data, err := c.objects.Get(ctx, bucket, key)
	if err != nil {
		return err
	}

	out, err := processor.ResizeToBudget(data, size, c.imageLimits)
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().Int64("size", size).Int("resized", len(out)).Msg("image resized")

	return c.objects.Put(ctx, bucket, key, out, mimetype.Detect(out).String())
}

func (c *useCase) shrinkVideo(ctx context.Context, bucket, key string) error {
	dir, err := os.MkdirTemp(c.workDir, "video-*")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("dir", dir).Msg("failed to remove work dir")
		}
	}()

	path := filepath.Join(dir, localName(key))

	if err := c.objects.DownloadFile(ctx, bucket, key, path); err != nil {
		return err
	}
	if err := c.video.Downscale(ctx, path); err != nil {
		return err
	}
	return c.objects.UploadFile(ctx, path, bucket, key)
}

// localName is the file name used for key inside a work dir. Keys whose base
// is not a plain name ("", ".", "..", "/") fall back to "input".
func localName(key string) string {
	base := filepath.Base(key)
	switch base {
	case ".", "..", string(filepath.Separator):
		return "input"
	}
	return base
}
