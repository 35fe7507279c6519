package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-price-tracker/internal/alerting"
	"crypto-price-tracker/internal/cache"
	"crypto-price-tracker/internal/config"
	"crypto-price-tracker/internal/fetcher"
	"crypto-price-tracker/internal/metrics"
	"crypto-price-tracker/internal/scheduler"
	"crypto-price-tracker/internal/service"
	"crypto-price-tracker/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newProvider() fetcher.Provider {
	return fetcher.NewCoinGecko(fetcher.CoinGeckoOptions{
		BaseURL:    a.Config.Provider.BaseURL,
		APIKey:     a.Config.Provider.APIKey,
		VsCurrency: a.Config.Provider.VsCurrency,
		Order:      a.Config.Provider.Order,
		PerPage:    a.Config.Provider.PerPage,
		Timeout:    a.Config.Provider.RequestTimeout,
		UserAgent:  a.Config.Provider.UserAgent,
	}, a.Logger)
}

// newNotifier returns the configured delivery channel, or nil to let the
// detector fall back to log-only delivery.
func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newMetrics(ctx context.Context) metrics.Sink {
	switch a.Config.Metrics.Backend {
	case "none":
		return metrics.NewNopSink()
	case "cloudwatch":
		sink, err := metrics.NewCloudWatchSink(ctx, a.Config.Metrics.Namespace, a.Config.Metrics.Region, a.Config.App.Name, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("cloudwatch unavailable, falling back to log metrics")
			return metrics.NewLogSink(a.Logger)
		}
		return sink
	default:
		return metrics.NewLogSink(a.Logger)
	}
}

// openStore selects the PostgreSQL store when a DSN is configured and the
// in-memory store otherwise.
func (a *App) openStore(ctx context.Context) (storage.SnapshotStore, storage.Pruner, func(), error) {
	if a.Config.Database.DSN == "" {
		a.Logger.Warn().Msg("database.dsn not configured; using in-memory store")
		memory := storage.NewMemory()
		return memory, memory, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, nil, err
	}

	store := storage.NewStore(pool, a.Logger)
	return store, store, store.Close, nil
}

func (a *App) openCache(ctx context.Context) (cache.LatestCache, func()) {
	if a.Config.Cache.RedisAddr == "" {
		return cache.NewNop(), nil
	}

	redisCache, err := cache.NewRedis(ctx, a.Config.Cache.RedisAddr, a.Config.Cache.RedisPassword, a.Config.Cache.RedisDB, a.Config.Cache.TTL)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("redis unavailable, latest-price cache disabled")
		return cache.NewNop(), nil
	}
	return redisCache, func() { _ = redisCache.Close() }
}

// newRegistry builds the threshold registry seeded from configuration.
func (a *App) newRegistry() *alerting.Registry {
	registry := alerting.NewRegistry()
	for symbol, threshold := range a.Config.Alerting.Thresholds {
		registry.Set(symbol, decimal.NewFromFloat(threshold))
	}
	return registry
}

// Run executes the long-running ingestion service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, pruner, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	latest, closeCache := a.openCache(ctx)
	if closeCache != nil {
		defer closeCache()
	}

	sink := a.newMetrics(ctx)

	// With alerting disabled the detector runs against an empty registry
	// and can never fire.
	registry := alerting.NewRegistry()
	detector := alerting.NewDetector(registry, nil, metrics.NewNopSink(), a.Logger)
	if a.Config.Alerting.Enabled {
		registry = a.newRegistry()
		detector = alerting.NewDetector(registry, a.newNotifier(), sink, a.Logger)
	}

	sched := scheduler.New(scheduler.Options{
		Interval:        a.Config.Scheduler.Interval,
		AlignToInterval: a.Config.Scheduler.AlignToInterval,
		StartupDelay:    a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	housekeeping := scheduler.New(scheduler.Options{
		Interval: a.Config.Scheduler.HousekeepingInterval,
	}, a.Logger.With().Str("cycle", "housekeeping").Logger())

	svc := service.New(sched, housekeeping, a.newProvider(), store, latest, detector, sink, pruner, a.Config.Retention.MaxAge, a.Logger)

	a.Logger.Info().
		Dur("interval", a.Config.Scheduler.Interval).
		Bool("alerting", a.Config.Alerting.Enabled).
		Int("thresholds", len(registry.GetAll())).
		Msg("starting price tracking service")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("price tracking service stopped")
	return nil
}

// ExportOptions hold parameters for exporting a symbol's price history.
type ExportOptions struct {
	Symbol    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Symbol string
}
