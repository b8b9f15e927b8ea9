package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"riven-sniper/internal/alerting"
	"riven-sniper/internal/classify"
	"riven-sniper/internal/config"
	"riven-sniper/internal/dedup"
	"riven-sniper/internal/fetch"
	"riven-sniper/internal/scheduler"
	"riven-sniper/internal/service"
	"riven-sniper/internal/stats"
	"riven-sniper/internal/storage"
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

func (a *App) newAggregator() *stats.Aggregator {
	return stats.NewAggregator(stats.Options{
		Capacity:   a.Config.Stats.HistoryCap,
		MinSamples: a.Config.Stats.MinSamples,
		Percentile: a.Config.Stats.Percentile,
	})
}

func (a *App) newClassifier(agg *stats.Aggregator) *classify.Classifier {
	return classify.New(classify.Options{
		Threshold: decimal.NewFromFloat(a.Config.Deals.Threshold),
		MaxPrice:  decimal.NewFromFloat(a.Config.Stats.MaxPrice),
	}, agg)
}

func (a *App) newSeenStore() dedup.SeenStore {
	if a.Config.Dedupe.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr: a.Config.Dedupe.RedisAddr,
			DB:   a.Config.Dedupe.RedisDB,
		})
		return dedup.NewRedisStore(client, a.Config.Dedupe.Retention)
	}
	return dedup.NewMemoryStore(a.Config.Dedupe.Retention)
}

func (a *App) newFetchers() []fetch.ListingFetcher {
	var fetchers []fetch.ListingFetcher
	if a.Config.Sources.RivenMarket.Enabled {
		rm := a.Config.Sources.RivenMarket
		fetchers = append(fetchers, fetch.NewRivenMarket(fetch.RivenMarketOptions{
			BaseURL:   rm.BaseURL,
			PageLimit: rm.PageLimit,
			Timeout:   rm.Timeout,
			UserAgent: rm.UserAgent,
		}, a.Logger))
	}
	if a.Config.Sources.WarframeMarket.Enabled {
		wm := a.Config.Sources.WarframeMarket
		fetchers = append(fetchers, fetch.NewWarframeMarket(fetch.WarframeMarketOptions{
			BaseURL:   wm.BaseURL,
			Platform:  wm.Platform,
			Language:  wm.Language,
			Timeout:   wm.Timeout,
			UserAgent: wm.UserAgent,
		}, a.Logger))
	}
	return fetchers
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}

	var notifiers []alerting.Notifier
	for _, channel := range a.Config.Alerting.Channels {
		switch channel {
		case "pushover":
			cfg := a.Config.Alerting.Pushover
			notifiers = append(notifiers, alerting.NewPushoverNotifier(cfg.Token, cfg.UserKey, cfg.APIBase, a.Config.Alerting.Timeout, a.Logger))
		case "telegram":
			cfg := a.Config.Alerting.Telegram
			notifiers = append(notifiers, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Config.Alerting.Timeout, a.Logger))
		}
	}
	if len(notifiers) == 0 {
		return nil
	}
	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return alerting.NewMulti(notifiers...)
}

func (a *App) pollerOptions() scheduler.Options {
	p := a.Config.Poller
	return scheduler.Options{
		Interval:      p.Interval,
		Jitter:        p.Jitter,
		FetchTimeout:  p.FetchTimeout,
		BackoffBase:   p.BackoffBase,
		BackoffFactor: p.BackoffFactor,
		BackoffCap:    p.BackoffCap,
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database.DSN, a.Config.Database.MaxOpenConns, a.Config.Database.MaxIdleConns)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running deal-detection service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; state will not survive restarts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	agg := a.newAggregator()
	seen := a.newSeenStore()

	if store != nil {
		if err := a.restoreState(ctx, store, agg, seen); err != nil {
			a.Logger.Error().Err(err).Msg("failed to restore persisted state; starting cold")
		}
	}

	svc := service.New(a.pollerOptions(), a.newClassifier(agg), seen, a.newNotifier(), alertStoreOrNil(store), a.newFetchers(), a.Logger)

	if store != nil {
		go a.checkpointLoop(ctx, store, agg, seen)
	}

	a.Logger.Info().Msg("starting deal-detection service")
	err = svc.Run(ctx)

	if store != nil {
		a.saveState(store, agg, seen)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("deal-detection service stopped")
	return nil
}

func alertStoreOrNil(store *storage.Store) storage.AlertStore {
	if store == nil {
		return nil
	}
	return store
}

func (a *App) restoreState(ctx context.Context, store *storage.Store, agg *stats.Aggregator, seen dedup.SeenStore) error {
	snapshot, err := store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}

	agg.Restore(snapshot.Histories)
	if memory, ok := seen.(*dedup.MemoryStore); ok {
		memory.Restore(snapshot.Seen)
	}

	a.Logger.Info().
		Int("fingerprints", len(snapshot.Histories)).
		Int("seen_keys", len(snapshot.Seen)).
		Msg("restored persisted state")
	return nil
}

// checkpointLoop writes periodic snapshots until the run context ends. The
// final snapshot on shutdown is taken by Run itself.
func (a *App) checkpointLoop(ctx context.Context, store *storage.Store, agg *stats.Aggregator, seen dedup.SeenStore) {
	interval := a.Config.Database.CheckpointInterval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.saveState(store, agg, seen)
		}
	}
}

func (a *App) saveState(store *storage.Store, agg *stats.Aggregator, seen dedup.SeenStore) {
	snapshot := storage.Snapshot{Histories: agg.Snapshot()}
	if memory, ok := seen.(*dedup.MemoryStore); ok {
		snapshot.Seen = memory.Snapshot()
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.SaveSnapshot(saveCtx, snapshot); err != nil {
		a.Logger.Error().Err(err).Msg("failed to checkpoint state")
		return
	}
	a.Logger.Debug().Int("fingerprints", len(snapshot.Histories)).Msg("state checkpointed")
}

// BackfillOptions configure the seed scrape.
type BackfillOptions struct {
	MaxPages int
	DryRun   bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting one fingerprint's history.
type ExportOptions struct {
	Fingerprint string
	From        *time.Time
	To          *time.Time
	PNGPath     string
	CSVPath     string
	MaxPoints   int
}

// SimulateOptions configure the synthetic alert flow.
type SimulateOptions struct {
	Weapon   string
	Price    float64
	Baseline float64
}
