// Package stats owns the per-fingerprint price histories that define fair
// value. The Aggregator is shared by both polling cycles and guards its maps
// with a single coarse mutex; at a 10s cadence and low fingerprint
// cardinality finer locking buys nothing.
package stats

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one (price, timestamp) sample in a fingerprint's history.
type Observation struct {
	Price      decimal.Decimal
	ObservedAt time.Time
}

// Options tune the aggregator.
type Options struct {
	// Capacity bounds each fingerprint's history; eviction is oldest-first.
	Capacity int
	// MinSamples is the cold-start guard: FairValue reports unknown until a
	// fingerprint has at least this many observations.
	MinSamples int
	// Percentile of the sample used as the fair-value baseline, in (0, 1].
	Percentile float64
}

// Aggregator maintains bounded price histories keyed by fingerprint.
type Aggregator struct {
	opts Options

	mu        sync.Mutex
	histories map[Fingerprint][]Observation
}

// NewAggregator constructs an Aggregator. Options are validated at config
// load; invalid values here are programming errors and panic.
func NewAggregator(opts Options) *Aggregator {
	if opts.Capacity <= 0 {
		panic("stats: history capacity must be positive")
	}
	if opts.MinSamples <= 0 {
		panic("stats: minimum sample count must be positive")
	}
	if opts.Percentile <= 0 || opts.Percentile > 1 {
		panic(fmt.Sprintf("stats: percentile %v outside (0, 1]", opts.Percentile))
	}
	return &Aggregator{
		opts:      opts,
		histories: make(map[Fingerprint][]Observation),
	}
}

// RecordObservation appends a price sample to the fingerprint's history,
// evicting the oldest entry once capacity is exceeded. It always succeeds.
func (a *Aggregator) RecordObservation(fp Fingerprint, price decimal.Decimal, observedAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	history := append(a.histories[fp], Observation{Price: price, ObservedAt: observedAt})
	if len(history) > a.opts.Capacity {
		history = history[len(history)-a.opts.Capacity:]
	}
	a.histories[fp] = history
}

// FairValue returns the baseline percentile of the fingerprint's history.
// The second return is false while the sample is below MinSamples.
func (a *Aggregator) FairValue(fp Fingerprint) (decimal.Decimal, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	history := a.histories[fp]
	if len(history) < a.opts.MinSamples {
		return decimal.Decimal{}, false
	}

	prices := make([]decimal.Decimal, len(history))
	for i, obs := range history {
		prices[i] = obs.Price
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

	return percentile(prices, a.opts.Percentile), true
}

// SampleCount reports how many observations a fingerprint currently holds.
func (a *Aggregator) SampleCount(fp Fingerprint) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.histories[fp])
}

// Snapshot returns a deep copy of every history, ordered oldest-first, for
// checkpointing. The copy round-trips exactly through Restore.
func (a *Aggregator) Snapshot() map[Fingerprint][]Observation {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[Fingerprint][]Observation, len(a.histories))
	for fp, history := range a.histories {
		cp := make([]Observation, len(history))
		copy(cp, history)
		out[fp] = cp
	}
	return out
}

// Restore replaces the aggregator's state with a previously snapshotted one,
// re-applying the capacity bound in case configuration shrank between runs.
func (a *Aggregator) Restore(snapshot map[Fingerprint][]Observation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.histories = make(map[Fingerprint][]Observation, len(snapshot))
	for fp, history := range snapshot {
		cp := make([]Observation, len(history))
		copy(cp, history)
		if len(cp) > a.opts.Capacity {
			cp = cp[len(cp)-a.opts.Capacity:]
		}
		a.histories[fp] = cp
	}
}

// percentile computes the nearest-rank percentile of a sorted sample. The
// result is always a member of the sample, so it lies within [min, max].
func percentile(sorted []decimal.Decimal, p float64) decimal.Decimal {
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
