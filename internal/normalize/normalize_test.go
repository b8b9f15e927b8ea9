package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riven-sniper/internal/model"
)

var observedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func rivenRaw(stats ...model.RawStat) model.RawListing {
	return model.RawListing{
		Marketplace: model.RivenMarket,
		RivenMarket: &model.RivenMarketRaw{
			ID:     "12345",
			Seller: "seller_one",
			Weapon: "Soma Prime",
			Stats:  stats,
			Price:  "350",
		},
	}
}

func TestNormalizeRivenMarket(t *testing.T) {
	raw := rivenRaw(
		model.RawStat{Name: "Multi", Value: decimal.NewFromFloat(88.2)},
		model.RawStat{Name: "CritDmg", Value: decimal.NewFromFloat(120.5)},
	)

	listing, err := Normalize(raw, observedAt)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if listing.SourceID != "rm_12345" {
		t.Fatalf("unexpected source id %q", listing.SourceID)
	}
	if listing.Weapon != "soma_prime" {
		t.Fatalf("weapon not canonicalized: %q", listing.Weapon)
	}
	if len(listing.Stats) != 2 {
		t.Fatalf("expected 2 stats, got %d", len(listing.Stats))
	}
	if listing.Stats[0].Name != "crit_damage" || listing.Stats[1].Name != "multishot" {
		t.Fatalf("stats not sorted canonically: %+v", listing.Stats)
	}
	if !listing.Price.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("unexpected price %s", listing.Price)
	}
	if !listing.ObservedAt.Equal(observedAt) {
		t.Fatalf("observedAt not carried through")
	}
}

func TestNormalizeStatOrderIndependent(t *testing.T) {
	a := rivenRaw(
		model.RawStat{Name: "Damage", Value: decimal.NewFromInt(90)},
		model.RawStat{Name: "Toxin", Value: decimal.NewFromInt(60)},
	)
	b := rivenRaw(
		model.RawStat{Name: "Toxin", Value: decimal.NewFromInt(60)},
		model.RawStat{Name: "Damage", Value: decimal.NewFromInt(90)},
	)

	la, err := Normalize(a, observedAt)
	if err != nil {
		t.Fatalf("Normalize a: %v", err)
	}
	lb, err := Normalize(b, observedAt)
	if err != nil {
		t.Fatalf("Normalize b: %v", err)
	}

	for i := range la.Stats {
		if la.Stats[i].Name != lb.Stats[i].Name {
			t.Fatalf("stat order differs: %+v vs %+v", la.Stats, lb.Stats)
		}
	}
}

func TestNormalizeWarframeMarketNegative(t *testing.T) {
	raw := model.RawListing{
		Marketplace: model.WarframeMarket,
		WarframeMarket: &model.WarframeMarketRaw{
			ID:     "abc123",
			Seller: "seller_two",
			Weapon: "kuva_bramma",
			Positives: []model.RawStat{
				{Name: "critical_damage", Value: decimal.NewFromFloat(110.3)},
			},
			Negative: &model.RawStat{Name: "zoom", Value: decimal.NewFromFloat(42.1)},
			Price:    "1,250p",
		},
	}

	listing, err := Normalize(raw, observedAt)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if listing.SourceID != "wm_abc123" {
		t.Fatalf("unexpected source id %q", listing.SourceID)
	}
	if !listing.Price.Equal(decimal.NewFromInt(1250)) {
		t.Fatalf("price not parsed from %q: got %s", raw.WarframeMarket.Price, listing.Price)
	}

	var zoom *model.Stat
	for i := range listing.Stats {
		if listing.Stats[i].Name == "zoom" {
			zoom = &listing.Stats[i]
		}
	}
	if zoom == nil {
		t.Fatal("negative stat missing from canonical list")
	}
	if !zoom.Value.IsNegative() {
		t.Fatalf("negative roll should carry a negative value, got %s", zoom.Value)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  model.RawListing
	}{
		{
			name: "unmapped stat",
			raw:  rivenRaw(model.RawStat{Name: "Bogus", Value: decimal.NewFromInt(50)}),
		},
		{
			name: "empty stat list",
			raw:  rivenRaw(),
		},
		{
			name: "missing weapon",
			raw: model.RawListing{
				Marketplace: model.RivenMarket,
				RivenMarket: &model.RivenMarketRaw{
					ID:    "1",
					Stats: []model.RawStat{{Name: "Damage", Value: decimal.NewFromInt(90)}},
					Price: "100",
				},
			},
		},
		{
			name: "non-numeric price",
			raw: model.RawListing{
				Marketplace: model.RivenMarket,
				RivenMarket: &model.RivenMarketRaw{
					ID:     "1",
					Seller: "x",
					Weapon: "Soma",
					Stats:  []model.RawStat{{Name: "Damage", Value: decimal.NewFromInt(90)}},
					Price:  "ask me",
				},
			},
		},
		{
			name: "missing payload",
			raw:  model.RawListing{Marketplace: model.WarframeMarket},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.raw, observedAt)
			if err == nil {
				t.Fatal("expected malformed record error")
			}
			var malformedErr *MalformedRecordError
			if !errors.As(err, &malformedErr) {
				t.Fatalf("expected MalformedRecordError, got %T", err)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	cases := map[string]string{
		"350":     "350",
		"1,250p":  "1250",
		" 42 p":   "42",
		"2 500":   "2500",
		"999.5":   "999.5",
		"12,345p": "12345",
	}

	for input, want := range cases {
		price, err := parsePrice(input)
		if err != nil {
			t.Fatalf("parsePrice(%q) failed: %v", input, err)
		}
		expected, _ := decimal.NewFromString(want)
		if !price.Equal(expected) {
			t.Fatalf("parsePrice(%q) = %s, want %s", input, price, want)
		}
	}

	if _, err := parsePrice(""); err == nil {
		t.Fatal("empty price should fail")
	}
}
