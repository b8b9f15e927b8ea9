// Package service wires the deal-detection pipeline: fetch batches flow
// through normalize -> classify -> dedup -> notify.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"riven-sniper/internal/alerting"
	"riven-sniper/internal/classify"
	"riven-sniper/internal/dedup"
	"riven-sniper/internal/fetch"
	"riven-sniper/internal/model"
	"riven-sniper/internal/normalize"
	"riven-sniper/internal/scheduler"
	"riven-sniper/internal/storage"
)

// Service orchestrates both marketplace pollers over the shared aggregator,
// dedup store, and notifier.
type Service struct {
	classifier *classify.Classifier
	seen       dedup.SeenStore
	notifier   alerting.Notifier
	alertStore storage.AlertStore
	logger     zerolog.Logger
	now        func() time.Time

	pollerOpts scheduler.Options
	fetchers   []fetch.ListingFetcher
}

// New constructs the service. alertStore and notifier may be nil (audit and
// delivery disabled respectively); fetchers share the pipeline but poll
// independently.
func New(pollerOpts scheduler.Options, classifier *classify.Classifier, seen dedup.SeenStore, notifier alerting.Notifier, alertStore storage.AlertStore, fetchers []fetch.ListingFetcher, logger zerolog.Logger) *Service {
	return &Service{
		classifier: classifier,
		seen:       seen,
		notifier:   notifier,
		alertStore: alertStore,
		logger:     logger.With().Str("component", "service").Logger(),
		now:        time.Now,
		pollerOpts: pollerOpts,
		fetchers:   fetchers,
	}
}

// Run starts one poller per marketplace and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if len(s.fetchers) == 0 {
		return errors.New("no marketplace fetchers configured")
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, fetcher := range s.fetchers {
		poller := scheduler.New(s.pollerOpts, fetcher, s.ProcessBatch, s.logger)
		group.Go(func() error { return poller.Run(ctx) })
	}
	return group.Wait()
}

// BatchResult summarises one processed batch.
type BatchResult struct {
	Records   int
	Malformed int
	Deals     int
	Alerted   int
}

// ProcessBatch runs one marketplace's fetched records through the pipeline
// sequentially. A malformed record is logged and skipped; it never aborts
// the batch.
func (s *Service) ProcessBatch(ctx context.Context, marketplace model.Marketplace, raws []model.RawListing) {
	result := BatchResult{Records: len(raws)}
	observedAt := s.now().UTC()

	for _, raw := range raws {
		listing, err := normalize.Normalize(raw, observedAt)
		if err != nil {
			result.Malformed++
			s.logMalformed(marketplace, raw, err)
			continue
		}

		verdict := s.classifier.Evaluate(listing)
		if !verdict.IsDeal {
			continue
		}
		result.Deals++

		if s.alertListing(ctx, verdict) {
			result.Alerted++
		}
	}

	s.logger.Info().
		Str("marketplace", string(marketplace)).
		Int("records", result.Records).
		Int("malformed", result.Malformed).
		Int("deals", result.Deals).
		Int("alerted", result.Alerted).
		Msg("batch processed")
}

// alertListing claims the listing in the seen store and pushes the alert.
// The claim is not reverted on delivery failure: a discovered-but-undelivered
// deal beats a notification storm from a flaky channel.
func (s *Service) alertListing(ctx context.Context, verdict classify.Verdict) bool {
	listing := verdict.Listing

	shouldAlert, err := s.seen.ShouldAlert(ctx, listing.SeenKey())
	if err != nil {
		s.logger.Error().Err(err).Str("listing", listing.SourceID).Msg("seen store lookup failed")
		return false
	}
	if !shouldAlert {
		return false
	}

	if s.alertStore != nil {
		record := storage.DealAlertRecord{
			ListingID:   listing.SourceID,
			Marketplace: string(listing.Marketplace),
			Weapon:      listing.Weapon,
			Fingerprint: string(verdict.Fingerprint),
			Price:       listing.Price,
			Baseline:    verdict.Baseline,
			Discount:    verdict.Discount,
			Seller:      listing.Seller,
		}
		if err := s.alertStore.InsertDealAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("listing", listing.SourceID).Msg("failed to persist alert record")
		}
	}

	if s.notifier == nil {
		return true
	}

	alert := alerting.Alert{
		Weapon:      listing.Weapon,
		Stats:       listing.Stats,
		Price:       listing.Price,
		Baseline:    verdict.Baseline,
		Discount:    verdict.Discount,
		Seller:      listing.Seller,
		Marketplace: listing.Marketplace,
		SourceURL:   alerting.SourceLink(listing.Marketplace, listing.RawID, listing.Weapon),
		ObservedAt:  listing.ObservedAt,
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		// Deal stays claimed; see above.
		s.logger.Error().Err(err).Str("listing", listing.SourceID).Msg("failed to dispatch alert")
	}
	return true
}

func (s *Service) logMalformed(marketplace model.Marketplace, raw model.RawListing, err error) {
	evt := s.logger.Warn().Str("marketplace", string(marketplace))
	var malformedErr *normalize.MalformedRecordError
	if errors.As(err, &malformedErr) {
		evt = evt.Str("raw_id", malformedErr.RawID).Str("reason", malformedErr.Reason)
	} else {
		evt = evt.Err(err)
	}
	evt.Msg("skipping malformed record")
}
