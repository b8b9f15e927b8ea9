package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Marketplace identifies one of the two supported listing sources.
type Marketplace string

const (
	RivenMarket    Marketplace = "riven.market"
	WarframeMarket Marketplace = "warframe.market"
)

// Marketplaces lists every supported source in polling order.
var Marketplaces = []Marketplace{RivenMarket, WarframeMarket}

// Stat is one canonical (name, roll value) pair on a riven. Negative rolls
// carry a negative value.
type Stat struct {
	Name  string
	Value decimal.Decimal
}

// Listing is the canonical record every source normalizes into. It is
// immutable once created; Stats are ordered lexicographically by name so
// listings with the same rolls compare equal regardless of source order.
type Listing struct {
	SourceID    string
	Marketplace Marketplace
	Weapon      string
	Stats       []Stat
	Price       decimal.Decimal
	Seller      string
	ObservedAt  time.Time
	RawID       string
}

// SeenKey returns the dedupe key for this listing.
func (l Listing) SeenKey() string {
	return fmt.Sprintf("%s:%s", l.Marketplace, l.RawID)
}

// RivenMarketRaw is the shape scraped from a riven.market listing element.
type RivenMarketRaw struct {
	ID     string
	Seller string
	Weapon string
	Stats  []RawStat
	Price  string
}

// WarframeMarketRaw is the shape decoded from a warframe.market auction.
type WarframeMarketRaw struct {
	ID        string
	Seller    string
	Weapon    string
	Positives []RawStat
	Negative  *RawStat
	Price     string
}

// RawStat is a source-specific stat name with its roll value, before
// canonical renaming.
type RawStat struct {
	Name  string
	Value decimal.Decimal
}

// RawListing is a tagged union over the per-marketplace raw shapes. Exactly
// one of the pointers is set, matching Marketplace.
type RawListing struct {
	Marketplace    Marketplace
	RivenMarket    *RivenMarketRaw
	WarframeMarket *WarframeMarketRaw
}

// RawID returns the source listing id regardless of shape.
func (r RawListing) RawID() string {
	switch {
	case r.RivenMarket != nil:
		return r.RivenMarket.ID
	case r.WarframeMarket != nil:
		return r.WarframeMarket.ID
	}
	return ""
}
