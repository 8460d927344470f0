// Package reporting is the side channel for failures that are never returned
// to the HTTP caller: they are logged and sent to Sentry.
package reporting

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/trunov/mediashrink/internal/entities"
)

type Recorder struct{}

func New() *Recorder { return &Recorder{} }

func (Recorder) StatusWriteFailed(ctx context.Context, rec entities.ProcessingRecord, err error) {
	log.Ctx(ctx).Error().Err(err).
		Str("object_key", rec.ObjectKey).
		Int("processed", rec.Processed).
		Msg("error updating status store")

	capture(ctx, err, map[string]string{"stage": "status_write", "object_key": rec.ObjectKey})
}

func (Recorder) TransformFailed(ctx context.Context, kind, key string, err error) {
	log.Ctx(ctx).Error().Err(err).Str("kind", kind).Str("object_key", key).Msg("error processing object")

	capture(ctx, err, map[string]string{"stage": "transform", "kind": kind, "object_key": key})
}

func capture(ctx context.Context, err error, tags map[string]string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}
