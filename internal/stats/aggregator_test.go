package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testAggregator(capacity, minSamples int, percentile float64) *Aggregator {
	return NewAggregator(Options{Capacity: capacity, MinSamples: minSamples, Percentile: percentile})
}

func record(a *Aggregator, fp Fingerprint, prices ...int64) {
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		a.RecordObservation(fp, decimal.NewFromInt(p), at.Add(time.Duration(i)*time.Second))
	}
}

func TestFairValueUnknownBelowMinSamples(t *testing.T) {
	agg := testAggregator(200, 5, 0.25)
	fp := Fingerprint("soma_prime|crit_damage:4")

	record(agg, fp, 100, 110, 90, 105)

	if _, ok := agg.FairValue(fp); ok {
		t.Fatal("fair value should be unknown with fewer than MinSamples observations")
	}

	record(agg, fp, 95)
	if _, ok := agg.FairValue(fp); !ok {
		t.Fatal("fair value should be known at MinSamples observations")
	}
}

func TestFairValuePercentile(t *testing.T) {
	agg := testAggregator(200, 5, 0.25)
	fp := Fingerprint("soma_prime|crit_damage:4")

	record(agg, fp, 100, 110, 90, 105, 95)

	value, ok := agg.FairValue(fp)
	if !ok {
		t.Fatal("fair value should be known")
	}
	// Nearest rank: ceil(0.25*5) = 2nd of [90 95 100 105 110].
	if !value.Equal(decimal.NewFromInt(95)) {
		t.Fatalf("expected fair value 95, got %s", value)
	}

	min := decimal.NewFromInt(90)
	max := decimal.NewFromInt(110)
	if value.LessThan(min) || value.GreaterThan(max) {
		t.Fatalf("fair value %s outside observed range [%s, %s]", value, min, max)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	agg := testAggregator(3, 1, 1.0)
	fp := Fingerprint("soma_prime|damage:3")

	record(agg, fp, 10, 20, 30, 40)

	if got := agg.SampleCount(fp); got != 3 {
		t.Fatalf("expected 3 retained observations, got %d", got)
	}

	// With percentile 1.0 the fair value is the max; the evicted 10 must not
	// appear anywhere in the snapshot.
	snapshot := agg.Snapshot()
	for _, obs := range snapshot[fp] {
		if obs.Price.Equal(decimal.NewFromInt(10)) {
			t.Fatal("oldest observation should have been evicted")
		}
	}

	value, ok := agg.FairValue(fp)
	if !ok || !value.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected max 40, got %s (ok=%v)", value, ok)
	}
}

func TestFingerprintIsolation(t *testing.T) {
	agg := testAggregator(200, 1, 0.5)
	a := Fingerprint("soma_prime|crit_damage:4")
	b := Fingerprint("kuva_bramma|crit_damage:4")

	record(agg, a, 100)
	record(agg, b, 9000)

	value, ok := agg.FairValue(a)
	if !ok || !value.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("fingerprint histories must not bleed into each other: got %s", value)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	agg := testAggregator(200, 5, 0.25)
	fp := Fingerprint("soma_prime|crit_damage:4")
	record(agg, fp, 100, 110, 90, 105, 95)

	snapshot := agg.Snapshot()

	restored := testAggregator(200, 5, 0.25)
	restored.Restore(snapshot)

	want, _ := agg.FairValue(fp)
	got, ok := restored.FairValue(fp)
	if !ok || !got.Equal(want) {
		t.Fatalf("restored fair value %s, want %s", got, want)
	}
	if restored.SampleCount(fp) != agg.SampleCount(fp) {
		t.Fatal("restored sample count differs")
	}
}

func TestRestoreReappliesCapacity(t *testing.T) {
	agg := testAggregator(200, 1, 1.0)
	fp := Fingerprint("soma_prime|damage:3")
	record(agg, fp, 10, 20, 30, 40, 50)

	shrunk := testAggregator(2, 1, 1.0)
	shrunk.Restore(agg.Snapshot())

	if got := shrunk.SampleCount(fp); got != 2 {
		t.Fatalf("expected capacity bound 2 after restore, got %d", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	agg := testAggregator(200, 1, 1.0)
	fp := Fingerprint("soma_prime|damage:3")
	record(agg, fp, 10)

	snapshot := agg.Snapshot()
	snapshot[fp][0].Price = decimal.NewFromInt(999)

	value, _ := agg.FairValue(fp)
	if !value.Equal(decimal.NewFromInt(10)) {
		t.Fatal("mutating a snapshot must not affect aggregator state")
	}
}
