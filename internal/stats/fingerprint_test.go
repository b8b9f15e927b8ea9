package stats

import (
	"testing"

	"github.com/shopspring/decimal"

	"riven-sniper/internal/model"
)

func listing(weapon string, stats ...model.Stat) model.Listing {
	return model.Listing{Weapon: weapon, Stats: stats}
}

func TestFingerprintOrderIndependent(t *testing.T) {
	a := listing("soma_prime",
		model.Stat{Name: "crit_damage", Value: decimal.NewFromFloat(120.5)},
		model.Stat{Name: "multishot", Value: decimal.NewFromFloat(88.2)},
	)
	b := listing("soma_prime",
		model.Stat{Name: "multishot", Value: decimal.NewFromFloat(88.2)},
		model.Stat{Name: "crit_damage", Value: decimal.NewFromFloat(120.5)},
	)

	if FingerprintOf(a) != FingerprintOf(b) {
		t.Fatalf("fingerprints differ: %q vs %q", FingerprintOf(a), FingerprintOf(b))
	}
}

func TestFingerprintBandsRollValues(t *testing.T) {
	low := listing("soma_prime", model.Stat{Name: "crit_damage", Value: decimal.NewFromInt(100)})
	high := listing("soma_prime", model.Stat{Name: "crit_damage", Value: decimal.NewFromInt(124)})
	next := listing("soma_prime", model.Stat{Name: "crit_damage", Value: decimal.NewFromInt(125)})

	if FingerprintOf(low) != FingerprintOf(high) {
		t.Fatal("values within one 25-point band should share a fingerprint")
	}
	if FingerprintOf(high) == FingerprintOf(next) {
		t.Fatal("crossing a band boundary should change the fingerprint")
	}
}

func TestFingerprintDistinguishesWeaponAndStats(t *testing.T) {
	base := listing("soma_prime", model.Stat{Name: "crit_damage", Value: decimal.NewFromInt(100)})
	otherWeapon := listing("kuva_bramma", model.Stat{Name: "crit_damage", Value: decimal.NewFromInt(100)})
	otherStat := listing("soma_prime", model.Stat{Name: "multishot", Value: decimal.NewFromInt(100)})

	if FingerprintOf(base) == FingerprintOf(otherWeapon) {
		t.Fatal("weapon must be part of the fingerprint")
	}
	if FingerprintOf(base) == FingerprintOf(otherStat) {
		t.Fatal("stat names must be part of the fingerprint")
	}
}

func TestFingerprintNegativeBand(t *testing.T) {
	a := listing("rubico", model.Stat{Name: "zoom", Value: decimal.NewFromFloat(-42.1)})
	b := listing("rubico", model.Stat{Name: "zoom", Value: decimal.NewFromFloat(-30.0)})
	c := listing("rubico", model.Stat{Name: "zoom", Value: decimal.NewFromFloat(-20.0)})

	if FingerprintOf(a) != FingerprintOf(b) {
		t.Fatalf("negative rolls in the same band should share a fingerprint: %q vs %q", FingerprintOf(a), FingerprintOf(b))
	}
	if FingerprintOf(b) == FingerprintOf(c) {
		t.Fatal("negative rolls in different bands should differ")
	}
}
