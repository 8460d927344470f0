package redisholder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/trunov/mediashrink/internal/config"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Build connects to the configured nodes, cluster first with a single-node
// fallback, and keeps the connection healthy until ctx is done. Closing the
// holder is left to the caller.
func Build(ctx context.Context, cfg *config.RedisConfig) (*Holder, error) {
	var cl redis.UniversalClient
	cl, err := newClusterClient(ctx, cfg)
	if err != nil {
		clusterErr := err
		cl, err = newClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create redis client: %w", err)
		}
		log.Warn().Err(clusterErr).Msg("redis: cluster client failed; using single-node client")
	}

	h := NewHolder(cl)

	if cfg.HealthCheckInterval > 0 {
		go healthLoop(ctx, h, cfg)
	}

	return h, nil
}

func healthLoop(ctx context.Context, h *Holder, cfg *config.RedisConfig) {
	interval := seconds(cfg.HealthCheckInterval)
	log.Info().Dur("interval", interval).Msg("redis: health loop started")

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Err(ctx.Err()).Msg("redis: health loop stopped")
			return
		case <-t.C:
			checkAndReconnect(ctx, h, cfg)
		}
	}
}

func checkAndReconnect(ctx context.Context, h *Holder, cfg *config.RedisConfig) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := h.Get().Ping(pingCtx).Err()
	cancel()

	if err == nil {
		return
	}
	log.Warn().Err(err).Msg("redis: ping failed; attempting reconnect")

	newCl, newErr := newClusterClient(ctx, cfg)
	if newErr != nil {
		newCl, newErr = newClient(ctx, cfg)
	}
	if newErr != nil {
		log.Error().Err(newErr).Msg("redis: reconnect failed")
		return
	}

	if old := h.swap(newCl); old != nil {
		_ = old.Close()
	}
	log.Info().Msg("redis: reconnected successfully")
}

func newClusterClient(ctx context.Context, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if len(cfg.Nodes) < 1 {
		return nil, errors.New("no nodes defined")
	}

	nodeAddrs := make([]string, 0, len(cfg.Nodes))
	for _, node := range cfg.Nodes {
		nodeAddrs = append(nodeAddrs, node.Addr())
	}

	cl := redis.NewClusterClient(&redis.ClusterOptions{
		RouteByLatency: true,
		Password:       cfg.Password,
		Addrs:          nodeAddrs,
		DialTimeout:    seconds(cfg.DialTimeout),
		ReadTimeout:    seconds(cfg.ReadTimeout),
		WriteTimeout:   seconds(cfg.WriteTimeout),
		PoolSize:       cfg.PoolSize,
		PoolTimeout:    30 * time.Second,
	})

	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("error pinging redis cluster: %w", err)
	}

	return cl, nil
}

func newClient(ctx context.Context, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	var stickyErr = errors.New("no nodes defined")

	for _, node := range cfg.Nodes {
		cl := redis.NewClient(&redis.Options{
			Addr:         node.Addr(),
			Password:     cfg.Password,
			DB:           cfg.DatabaseID,
			DialTimeout:  seconds(cfg.DialTimeout),
			ReadTimeout:  seconds(cfg.ReadTimeout),
			WriteTimeout: seconds(cfg.WriteTimeout),
			PoolSize:     cfg.PoolSize,
		})

		if err := cl.Ping(ctx).Err(); err != nil {
			_ = cl.Close()
			stickyErr = fmt.Errorf("error pinging redis server: %w", err)
			continue
		}

		return cl, nil
	}

	return nil, stickyErr
}
