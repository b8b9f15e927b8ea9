// Package normalize maps per-marketplace raw listings into the canonical
// Listing schema. Normalization is a pure function: no I/O, no shared state.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"riven-sniper/internal/model"
)

// MalformedRecordError reports a raw record that could not be normalized.
// It carries enough context to diagnose upstream schema drift.
type MalformedRecordError struct {
	Marketplace model.Marketplace
	RawID       string
	Reason      string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record %q: %s", e.Marketplace, e.RawID, e.Reason)
}

func malformed(m model.Marketplace, id, reason string) *MalformedRecordError {
	return &MalformedRecordError{Marketplace: m, RawID: id, Reason: reason}
}

// Normalize converts one raw record into a canonical Listing. Stats are
// renamed into the shared vocabulary and sorted lexicographically so two
// listings with the same rolls compare equal regardless of source order.
func Normalize(raw model.RawListing, observedAt time.Time) (model.Listing, error) {
	switch raw.Marketplace {
	case model.RivenMarket:
		if raw.RivenMarket == nil {
			return model.Listing{}, malformed(raw.Marketplace, raw.RawID(), "missing riven.market payload")
		}
		return normalizeRivenMarket(raw.RivenMarket, observedAt)
	case model.WarframeMarket:
		if raw.WarframeMarket == nil {
			return model.Listing{}, malformed(raw.Marketplace, raw.RawID(), "missing warframe.market payload")
		}
		return normalizeWarframeMarket(raw.WarframeMarket, observedAt)
	}
	return model.Listing{}, malformed(raw.Marketplace, raw.RawID(), "unknown marketplace")
}

func normalizeRivenMarket(raw *model.RivenMarketRaw, observedAt time.Time) (model.Listing, error) {
	const m = model.RivenMarket
	if raw.ID == "" {
		return model.Listing{}, malformed(m, "", "missing listing id")
	}
	if raw.Weapon == "" {
		return model.Listing{}, malformed(m, raw.ID, "missing weapon")
	}

	stats, err := mapStats(m, raw.ID, raw.Stats, rivenMarketStats)
	if err != nil {
		return model.Listing{}, err
	}

	price, err := parsePrice(raw.Price)
	if err != nil {
		return model.Listing{}, malformed(m, raw.ID, err.Error())
	}

	return model.Listing{
		SourceID:    "rm_" + raw.ID,
		Marketplace: m,
		Weapon:      canonicalWeapon(raw.Weapon),
		Stats:       stats,
		Price:       price,
		Seller:      strings.TrimSpace(raw.Seller),
		ObservedAt:  observedAt,
		RawID:       raw.ID,
	}, nil
}

func normalizeWarframeMarket(raw *model.WarframeMarketRaw, observedAt time.Time) (model.Listing, error) {
	const m = model.WarframeMarket
	if raw.ID == "" {
		return model.Listing{}, malformed(m, "", "missing auction id")
	}
	if raw.Weapon == "" {
		return model.Listing{}, malformed(m, raw.ID, "missing weapon")
	}

	rawStats := make([]model.RawStat, 0, len(raw.Positives)+1)
	rawStats = append(rawStats, raw.Positives...)
	if raw.Negative != nil {
		neg := *raw.Negative
		// Negative rolls carry a negative value in the canonical schema.
		if neg.Value.IsPositive() {
			neg.Value = neg.Value.Neg()
		}
		rawStats = append(rawStats, neg)
	}

	stats, err := mapStats(m, raw.ID, rawStats, warframeMarketStats)
	if err != nil {
		return model.Listing{}, err
	}

	price, err := parsePrice(raw.Price)
	if err != nil {
		return model.Listing{}, malformed(m, raw.ID, err.Error())
	}

	return model.Listing{
		SourceID:    "wm_" + raw.ID,
		Marketplace: m,
		Weapon:      canonicalWeapon(raw.Weapon),
		Stats:       stats,
		Price:       price,
		Seller:      strings.TrimSpace(raw.Seller),
		ObservedAt:  observedAt,
		RawID:       raw.ID,
	}, nil
}

func mapStats(m model.Marketplace, id string, raw []model.RawStat, table map[string]string) ([]model.Stat, error) {
	filtered := make([]model.Stat, 0, len(raw))
	for _, rs := range raw {
		name := strings.TrimSpace(rs.Name)
		if name == "" {
			continue
		}
		canonical, ok := table[name]
		if !ok {
			return nil, malformed(m, id, fmt.Sprintf("unmapped stat %q", name))
		}
		if !canonicalStats[canonical] {
			return nil, malformed(m, id, fmt.Sprintf("stat %q outside canonical set", canonical))
		}
		filtered = append(filtered, model.Stat{Name: canonical, Value: rs.Value})
	}
	if len(filtered) == 0 {
		return nil, malformed(m, id, "empty stat list")
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Name < filtered[j].Name })
	return filtered, nil
}

// canonicalWeapon lowercases the weapon name and replaces spaces with
// underscores, matching the url_name style warframe.market already uses.
func canonicalWeapon(w string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(w)), " ", "_")
}

// parsePrice strips marketplace formatting (platinum suffix, thousands
// separators, whitespace) and parses the remainder as a decimal.
func parsePrice(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, "p")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("missing price")
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("non-numeric price %q", raw)
	}
	return price, nil
}
