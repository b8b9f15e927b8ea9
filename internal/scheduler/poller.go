// Package scheduler drives the periodic fetch cycles, one poller per
// marketplace.
package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"riven-sniper/internal/fetch"
	"riven-sniper/internal/model"
)

// BatchFunc consumes one successfully fetched batch of raw records.
type BatchFunc func(ctx context.Context, marketplace model.Marketplace, raws []model.RawListing)

// State is the poller's position in its cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateBackoff
)

// Options tune a poller.
type Options struct {
	Interval      time.Duration
	Jitter        time.Duration
	FetchTimeout  time.Duration
	BackoffBase   time.Duration
	BackoffFactor float64
	BackoffCap    time.Duration
}

// Poller runs the Idle -> Fetching -> (Success | Failure) cycle for a single
// marketplace. Failures back off exponentially for this source only; each
// marketplace owns its own Poller, so one source's outage never delays the
// other.
type Poller struct {
	opts    Options
	fetcher fetch.ListingFetcher
	handle  BatchFunc
	logger  zerolog.Logger

	state    State
	failures int
}

// New constructs a Poller. Interval must be validated by config before this
// point; a non-positive interval is a programming error.
func New(opts Options, fetcher fetch.ListingFetcher, handle BatchFunc, logger zerolog.Logger) *Poller {
	if opts.Interval <= 0 {
		panic("scheduler: poll interval must be positive")
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffFactor < 1 {
		opts.BackoffFactor = 2
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}

	return &Poller{
		opts:    opts,
		fetcher: fetcher,
		handle:  handle,
		logger: logger.With().
			Str("component", "poller").
			Str("marketplace", string(fetcher.Marketplace())).
			Logger(),
	}
}

// Run blocks, executing fetch cycles until ctx is cancelled. The first cycle
// starts after one interval.
func (p *Poller) Run(ctx context.Context) error {
	for {
		p.state = StateIdle
		if err := sleepCtx(ctx, p.nextDelay()); err != nil {
			return err
		}

		p.state = StateFetching
		raws, err := p.fetchOnce(ctx)
		if err != nil {
			p.failures++
			p.state = StateBackoff
			p.logFailure(err)
			continue
		}
		p.failures = 0

		p.logger.Debug().Int("records", len(raws)).Msg("batch fetched")
		p.handle(ctx, p.fetcher.Marketplace(), raws)
	}
}

// fetchOnce runs a single fetch attempt. The fetch context is detached from
// the run context so that a shutdown request lets an in-flight fetch finish
// (bounded by FetchTimeout) instead of killing it mid-parse.
func (p *Poller) fetchOnce(ctx context.Context) ([]model.RawListing, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.FetchTimeout)
	defer cancel()
	return p.fetcher.Fetch(fetchCtx)
}

// nextDelay picks the wait before the next attempt: backoff while failing,
// otherwise the jittered poll interval.
func (p *Poller) nextDelay() time.Duration {
	if p.failures > 0 {
		return p.backoff()
	}

	delay := p.opts.Interval
	if p.opts.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(2*p.opts.Jitter))) - p.opts.Jitter
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// backoff returns base * factor^(failures-1), capped.
func (p *Poller) backoff() time.Duration {
	delay := float64(p.opts.BackoffBase)
	for i := 1; i < p.failures; i++ {
		delay *= p.opts.BackoffFactor
		if delay >= float64(p.opts.BackoffCap) {
			return p.opts.BackoffCap
		}
	}
	if delay > float64(p.opts.BackoffCap) {
		return p.opts.BackoffCap
	}
	return time.Duration(delay)
}

func (p *Poller) logFailure(err error) {
	evt := p.logger.Warn().Err(err).Int("attempt", p.failures).Dur("backoff", p.backoff())
	var fetchErr *fetch.FetchError
	if errors.As(err, &fetchErr) {
		evt = evt.Str("kind", string(fetchErr.Kind))
	}
	evt.Msg("fetch failed")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
