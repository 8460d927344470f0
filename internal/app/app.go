package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trunov/mediashrink/internal/config"
	"github.com/trunov/mediashrink/internal/metrics"
	"github.com/trunov/mediashrink/internal/processor"
	"github.com/trunov/mediashrink/internal/reporting"
	"github.com/trunov/mediashrink/internal/transport/handler"
	"github.com/trunov/mediashrink/internal/transport/router"
	use_case "github.com/trunov/mediashrink/internal/use-case"
	"github.com/trunov/mediashrink/internal/video"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	HttpServer *http.Server
	closers    []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	objects, err := a.objectStore(ctx, &cfg.ObjectStore)
	if err != nil {
		a.close()
		return nil, err
	}

	statuses, err := a.statusStore(ctx, &cfg.StatusStore)
	if err != nil {
		a.close()
		return nil, err
	}

	reg := metrics.NewRegistry()

	uc := use_case.New(
		objects,
		statuses,
		video.New(cfg.Video.FFmpegPath, cfg.Video.ScaleFactor),
		reporting.New(),
		reg,
		processor.Limits{MaxBytes: cfg.Image.MaxBytes, MaxPixels: cfg.Image.MaxPixels},
		cfg.Video.WorkDir,
	)

	h := handler.New(uc, cfg)
	r := router.NewRouter(h, reg)

	a.HttpServer = &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	log.Info().
		Str("object_store", cfg.ObjectStore.Driver).
		Str("status_store", cfg.StatusStore.Driver).
		Int64("image_budget", cfg.Image.MaxBytes).
		Msg("app initialized")

	return a, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// releases the stores.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.HttpServer.Addr).Msg("starting server")
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.HttpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to release resource")
		}
	}
	a.closers = nil
}
