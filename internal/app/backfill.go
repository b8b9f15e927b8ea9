package app

import (
	"context"
	"errors"
	"time"

	"riven-sniper/internal/dedup"
	"riven-sniper/internal/fetch"
	"riven-sniper/internal/normalize"
	"riven-sniper/internal/storage"
)

// Backfill seeds the price histories with a full riven.market scrape so fair
// values are warm before the first poll. 逐页抓取，遇到错误即停止。
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	if !a.Config.Sources.RivenMarket.Enabled {
		return errors.New("sources.riven_market must be enabled for backfill")
	}

	var store *storage.Store
	if !opts.DryRun {
		opened, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if opened == nil {
			return errors.New("database.dsn not configured; use --dry-run to scrape without persisting")
		}
		defer closeStore()
		store = opened
	} else {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be persisted")
	}

	rm := a.Config.Sources.RivenMarket
	fetcher := fetch.NewRivenMarket(fetch.RivenMarketOptions{
		BaseURL:   rm.BaseURL,
		PageLimit: rm.PageLimit,
		Timeout:   rm.Timeout,
		UserAgent: rm.UserAgent,
	}, a.Logger)

	agg := a.newAggregator()
	classifier := a.newClassifier(agg)

	totalScraped := 0
	malformed := 0
	start := time.Now()

	page := 1
	totalPages := 1
	for page <= totalPages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raws, pages, err := fetcher.FetchPage(ctx, page)
		if err != nil {
			a.Logger.Error().Err(err).Int("page", page).Msg("backfill stopped on page error")
			break
		}
		if page == 1 && pages > 0 {
			totalPages = pages
			if opts.MaxPages > 0 && totalPages > opts.MaxPages {
				totalPages = opts.MaxPages
			}
			a.Logger.Info().Int("pages", totalPages).Msg("backfill page count resolved")
		}

		observedAt := time.Now().UTC()
		for _, raw := range raws {
			listing, err := normalize.Normalize(raw, observedAt)
			if err != nil {
				malformed++
				continue
			}
			// Evaluate records the observation with the troll cut applied;
			// verdicts are discarded during seeding.
			classifier.Evaluate(listing)
			totalScraped++
		}

		a.Logger.Info().Int("page", page).Int("pages", totalPages).Int("records", len(raws)).Msg("backfill page done")
		page++
	}

	if store != nil {
		snapshot := storage.Snapshot{Histories: agg.Snapshot(), Seen: map[string]time.Time{}}
		if err := a.mergeSeen(ctx, store, &snapshot); err != nil {
			return err
		}
		if err := store.SaveSnapshot(ctx, snapshot); err != nil {
			return err
		}
	}

	a.Logger.Info().
		Int("listings", totalScraped).
		Int("malformed", malformed).
		Dur("duration", time.Since(start)).
		Msg("backfill complete")
	return nil
}

// mergeSeen carries the existing seen-key set into the fresh snapshot so a
// backfill never re-arms alerts for already-claimed listings.
func (a *App) mergeSeen(ctx context.Context, store *storage.Store, snapshot *storage.Snapshot) error {
	existing, err := store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}

	keep := dedup.NewMemoryStore(a.Config.Dedupe.Retention)
	keep.Restore(existing.Seen)
	snapshot.Seen = keep.Snapshot()
	return nil
}
