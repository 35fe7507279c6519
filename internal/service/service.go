package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"crypto-price-tracker/internal/alerting"
	"crypto-price-tracker/internal/cache"
	"crypto-price-tracker/internal/fetcher"
	"crypto-price-tracker/internal/metrics"
	"crypto-price-tracker/internal/scheduler"
	"crypto-price-tracker/internal/storage"
)

// Service orchestrates the periodic fetch, persistence, and alerting cycle
// plus the low-frequency housekeeping cycle.
type Service struct {
	scheduler    *scheduler.Scheduler
	housekeeping *scheduler.Scheduler
	provider     fetcher.Provider
	store        storage.SnapshotStore
	latest       cache.LatestCache
	detector     *alerting.Detector
	metrics      metrics.Sink
	pruner       storage.Pruner
	retention    time.Duration
	logger       zerolog.Logger
}

// New constructs the ingestion service.
func New(
	sched *scheduler.Scheduler,
	housekeeping *scheduler.Scheduler,
	provider fetcher.Provider,
	store storage.SnapshotStore,
	latest cache.LatestCache,
	detector *alerting.Detector,
	sink metrics.Sink,
	pruner storage.Pruner,
	retention time.Duration,
	logger zerolog.Logger,
) *Service {
	if latest == nil {
		latest = cache.NewNop()
	}
	if sink == nil {
		sink = metrics.NewNopSink()
	}
	return &Service{
		scheduler:    sched,
		housekeeping: housekeeping,
		provider:     provider,
		store:        store,
		latest:       latest,
		detector:     detector,
		metrics:      sink,
		pruner:       pruner,
		retention:    retention,
		logger:       logger.With().Str("component", "service").Logger(),
	}
}

// Run drives both cycles until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.scheduler.Run(ctx, s.RunCycle)
	})

	if s.housekeeping != nil {
		g.Go(func() error {
			return s.housekeeping.Run(ctx, s.RunHousekeeping)
		})
	}

	return g.Wait()
}

// RunCycle executes one fetch, persist, detect pass. A failure at any stage
// ends the cycle; the duration and success metrics are emitted exactly once
// on every exit path.
func (s *Service) RunCycle(ctx context.Context, tick time.Time) error {
	start := time.Now()
	success := false

	defer func() {
		s.metrics.Publish("ScheduledUpdateDuration", float64(time.Since(start).Milliseconds()), "Milliseconds")
		outcome := 0.0
		if success {
			outcome = 1.0
		}
		s.metrics.Publish("ScheduledUpdateSuccess", outcome, "Count")
	}()

	snapshots, err := s.provider.FetchSnapshots(ctx)
	if err != nil {
		return s.failCycle(tick, fmt.Errorf("fetch snapshots: %w", err))
	}

	if err := s.store.AppendSnapshots(ctx, snapshots); err != nil {
		return s.failCycle(tick, fmt.Errorf("persist snapshots: %w", err))
	}

	for _, snapshot := range snapshots {
		if err := s.latest.SetLatest(ctx, snapshot); err != nil {
			s.logger.Warn().Err(err).Str("symbol", snapshot.Symbol).Msg("failed to refresh latest-price cache")
		}
		s.detector.Observe(ctx, snapshot)
	}

	success = true
	s.metrics.Publish("ScheduledUpdateCount", 1, "Count")
	s.metrics.Publish("CryptocurrenciesUpdated", float64(len(snapshots)), "Count")
	s.logger.Info().Time("tick", tick).Int("count", len(snapshots)).Msg("cycle complete")
	return nil
}

func (s *Service) failCycle(tick time.Time, err error) error {
	s.logger.Error().Err(err).Time("tick", tick).Msg("cycle failed")
	s.metrics.Publish("ScheduledUpdateErrors", 1, "Count")
	return err
}

// RunHousekeeping prunes records beyond the retention window. Without a
// configured retention it is a placeholder that does nothing.
func (s *Service) RunHousekeeping(ctx context.Context, tick time.Time) error {
	if s.retention <= 0 || s.pruner == nil {
		s.logger.Debug().Time("tick", tick).Msg("housekeeping: retention disabled, nothing to do")
		return nil
	}

	cutoff := time.Now().UTC().Add(-s.retention)
	deleted, err := s.pruner.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("housekeeping prune failed")
		return err
	}

	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("pruned expired snapshots")
	}
	return nil
}
