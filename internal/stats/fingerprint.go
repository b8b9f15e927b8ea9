package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"riven-sniper/internal/model"
)

// bandWidth is the size of the coarse roll-value bands used in fingerprints.
// Rolls within the same 25-point band are considered comparable for pricing.
var bandWidth = decimal.NewFromInt(25)

// Fingerprint is a stable key grouping listings with comparable stat rolls.
// Derivation depends only on the listing's weapon and stat pairs, so it is
// reproducible across process restarts.
type Fingerprint string

// FingerprintOf derives the fingerprint for a listing: weapon plus each stat
// name with the coarse band of its roll value, sorted by stat name. The
// derivation re-sorts its parts so it stays order-independent over any input.
func FingerprintOf(l model.Listing) Fingerprint {
	parts := make([]string, 0, len(l.Stats))
	for _, s := range l.Stats {
		parts = append(parts, fmt.Sprintf("%s:%d", s.Name, band(s.Value)))
	}
	sort.Strings(parts)
	return Fingerprint(l.Weapon + "|" + strings.Join(parts, ","))
}

// band buckets a roll value into a coarse tier: floor(value / 25).
func band(v decimal.Decimal) int64 {
	return v.Div(bandWidth).Floor().IntPart()
}
