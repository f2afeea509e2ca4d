package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"shortgen/internal/adapter/repo"
	"shortgen/internal/infra"
)

const abandonedMessage = "run abandoned"

// staleFailer is the part of the short repository the sweeper needs.
type staleFailer interface {
	FailStale(ctx context.Context, before time.Time, message string) ([]string, error)
}

type sweeper struct {
	repo     staleFailer
	after    time.Duration
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func main() {
	infra.LoadDotEnv()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("component", "sweeper").Logger()
	if cfg.IsLocal() {
		logger.Fatal().Msg("worker: local mode keeps runs in the api process, nothing to sweep")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	s := &sweeper{
		repo:     repo.NewShortRepository(infra.NewSQLRunner(pool, logger)),
		after:    cfg.StaleRunAfter,
		interval: cfg.SweepInterval,
		logger:   logger,
		now:      time.Now,
	}
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// Run sweeps once per interval until ctx ends. Sweep errors are logged and
// retried on the next tick.
func (s *sweeper) Run(ctx context.Context) error {
	s.logger.Info().Dur("stale_after", s.after).Dur("interval", s.interval).Msg("worker: started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.sweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("worker: sweep failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sweepOnce marks every run that has not progressed within the stale window
// as FAILED so it can be triggered again.
func (s *sweeper) sweepOnce(ctx context.Context) ([]string, error) {
	before := s.now().Add(-s.after)
	ids, err := s.repo.FailStale(ctx, before, abandonedMessage)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.logger.Warn().Str("job_id", id).Time("stale_before", before).Msg("worker: run abandoned")
	}
	return ids, nil
}
