package classify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riven-sniper/internal/model"
	"riven-sniper/internal/stats"
)

func testListing(price int64) model.Listing {
	return model.Listing{
		SourceID:    "rm_1",
		Marketplace: model.RivenMarket,
		Weapon:      "soma_prime",
		Stats: []model.Stat{
			{Name: "crit_damage", Value: decimal.NewFromInt(110)},
			{Name: "multishot", Value: decimal.NewFromInt(85)},
		},
		Price:      decimal.NewFromInt(price),
		Seller:     "seller",
		ObservedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		RawID:      "1",
	}
}

func seededClassifier(t *testing.T, threshold float64, prices ...int64) (*Classifier, *stats.Aggregator) {
	t.Helper()
	agg := stats.NewAggregator(stats.Options{Capacity: 200, MinSamples: 5, Percentile: 0.25})
	fp := stats.FingerprintOf(testListing(0))
	for _, p := range prices {
		agg.RecordObservation(fp, decimal.NewFromInt(p), time.Now())
	}
	c := New(Options{Threshold: decimal.NewFromFloat(threshold), MaxPrice: decimal.NewFromInt(50000)}, agg)
	return c, agg
}

func TestEvaluateFlagsDeal(t *testing.T) {
	c, _ := seededClassifier(t, 0.30, 100, 110, 90, 105, 95)

	// Baseline is the 25th percentile of [90 95 100 105 110] = 95; 60 is a
	// ~36.8% discount.
	verdict := c.Evaluate(testListing(60))
	if !verdict.BaselineOK {
		t.Fatal("baseline should be known")
	}
	if !verdict.Baseline.Equal(decimal.NewFromInt(95)) {
		t.Fatalf("expected baseline 95, got %s", verdict.Baseline)
	}
	if !verdict.IsDeal {
		t.Fatalf("expected a deal, discount %s", verdict.Discount)
	}
	if verdict.Discount.LessThan(decimal.NewFromFloat(0.36)) || verdict.Discount.GreaterThan(decimal.NewFromFloat(0.37)) {
		t.Fatalf("unexpected discount %s", verdict.Discount)
	}
}

func TestEvaluateBelowThresholdNotDeal(t *testing.T) {
	c, _ := seededClassifier(t, 0.30, 100, 100, 100, 100, 100)

	verdict := c.Evaluate(testListing(80))
	if verdict.IsDeal {
		t.Fatalf("20%% under baseline should not pass a 30%% threshold, discount %s", verdict.Discount)
	}
}

func TestEvaluateExactThresholdIsDeal(t *testing.T) {
	c, _ := seededClassifier(t, 0.30, 100, 100, 100, 100, 100)

	verdict := c.Evaluate(testListing(70))
	if !verdict.IsDeal {
		t.Fatalf("discount exactly at threshold should flag, got %s", verdict.Discount)
	}
}

func TestEvaluateColdStart(t *testing.T) {
	c, agg := seededClassifier(t, 0.30, 100, 110)

	verdict := c.Evaluate(testListing(10))
	if verdict.BaselineOK || verdict.IsDeal {
		t.Fatal("no verdict should be possible below MinSamples")
	}
	// The observation is still recorded.
	if agg.SampleCount(verdict.Fingerprint) != 3 {
		t.Fatalf("observation not recorded, count %d", agg.SampleCount(verdict.Fingerprint))
	}
}

func TestEvaluateExcludesOwnObservation(t *testing.T) {
	c, _ := seededClassifier(t, 0.30, 100, 100, 100, 100, 100)

	// If the 10p listing fed its own baseline the discount would shrink; the
	// baseline must still read 100 at evaluation time.
	verdict := c.Evaluate(testListing(10))
	if !verdict.Baseline.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("listing influenced its own baseline: %s", verdict.Baseline)
	}
	if !verdict.IsDeal {
		t.Fatal("90% discount should flag")
	}
}

func TestEvaluateTrollCut(t *testing.T) {
	c, agg := seededClassifier(t, 0.30, 100, 100, 100, 100, 100)

	verdict := c.Evaluate(testListing(60000))
	if verdict.IsDeal || verdict.BaselineOK {
		t.Fatal("listings above the max price must be skipped entirely")
	}
	if agg.SampleCount(verdict.Fingerprint) != 5 {
		t.Fatal("troll listing must not pollute the history")
	}
}

func TestEvaluateNonPositivePrice(t *testing.T) {
	c, _ := seededClassifier(t, 0.30, 100, 100, 100, 100, 100)

	verdict := c.Evaluate(testListing(0))
	if verdict.IsDeal {
		t.Fatal("zero-priced listing must never flag as a deal")
	}
}
