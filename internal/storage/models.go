package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"riven-sniper/internal/stats"
)

// DealAlertRecord captures an emitted deal alert for auditing.
type DealAlertRecord struct {
	ID          int64
	ListingID   string
	Marketplace string
	Weapon      string
	Fingerprint string
	Price       decimal.Decimal
	Baseline    decimal.Decimal
	Discount    decimal.Decimal
	Seller      string
	CreatedAt   time.Time
}

// Snapshot is the persisted engine state: every fingerprint's ordered price
// history plus the seen-key set. It must round-trip exactly (same keys, same
// observation order) modulo retention pruning of seen keys.
type Snapshot struct {
	Histories map[stats.Fingerprint][]stats.Observation
	Seen      map[string]time.Time
}
