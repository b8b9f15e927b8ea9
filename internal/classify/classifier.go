// Package classify turns normalized listings into deal verdicts against the
// aggregator's fair-value baselines.
package classify

import (
	"github.com/shopspring/decimal"

	"riven-sniper/internal/model"
	"riven-sniper/internal/stats"
)

// Verdict is the ephemeral result of evaluating one listing.
type Verdict struct {
	Listing     model.Listing
	Fingerprint stats.Fingerprint
	Baseline    decimal.Decimal
	BaselineOK  bool
	IsDeal      bool
	Discount    decimal.Decimal
}

// Options tune the classifier.
type Options struct {
	// Threshold is the minimum discount ratio for a deal, e.g. 0.30.
	Threshold decimal.Decimal
	// MaxPrice filters unrealistic troll listings out of both history and
	// classification. Zero disables the cut.
	MaxPrice decimal.Decimal
}

// Classifier evaluates listings. The listing's own observation is excluded
// from the baseline that judges it: FairValue is read before the observation
// is recorded, so the current price never damps its own discount.
type Classifier struct {
	opts Options
	agg  *stats.Aggregator
}

// New constructs a Classifier over a shared aggregator.
func New(opts Options, agg *stats.Aggregator) *Classifier {
	return &Classifier{opts: opts, agg: agg}
}

// Evaluate computes the listing's fingerprint, reads the current baseline,
// records the observation, and returns the verdict. Listings above the
// troll cut are neither recorded nor flagged. Deterministic given aggregator
// state; no I/O.
func (c *Classifier) Evaluate(listing model.Listing) Verdict {
	fp := stats.FingerprintOf(listing)
	verdict := Verdict{Listing: listing, Fingerprint: fp}

	if !c.opts.MaxPrice.IsZero() && listing.Price.GreaterThan(c.opts.MaxPrice) {
		return verdict
	}

	baseline, ok := c.agg.FairValue(fp)
	c.agg.RecordObservation(fp, listing.Price, listing.ObservedAt)

	if !ok {
		return verdict
	}
	verdict.Baseline = baseline
	verdict.BaselineOK = true

	if !listing.Price.IsPositive() || baseline.IsZero() {
		return verdict
	}

	verdict.Discount = baseline.Sub(listing.Price).Div(baseline)
	verdict.IsDeal = verdict.Discount.GreaterThanOrEqual(c.opts.Threshold)
	return verdict
}
