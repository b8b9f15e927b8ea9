package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"riven-sniper/internal/alerting"
	"riven-sniper/internal/model"
	"riven-sniper/internal/stats"
)

// SimulateAlert 构造一条合成挂单并完整走一遍告警流程，用于验证通道配置。
// The aggregator is seeded with baseline observations so the synthetic
// listing classifies against a known fair value.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	weapon := opts.Weapon
	if weapon == "" {
		weapon = "simulated_weapon"
	}

	listing := model.Listing{
		SourceID:    "sim_0",
		Marketplace: model.RivenMarket,
		Weapon:      weapon,
		Stats: []model.Stat{
			{Name: "crit_damage", Value: decimal.NewFromInt(120)},
			{Name: "damage", Value: decimal.NewFromInt(95)},
		},
		Price:      decimal.NewFromFloat(opts.Price),
		Seller:     "simulator",
		ObservedAt: time.Now().UTC(),
		RawID:      "sim_0",
	}

	agg := a.newAggregator()
	fingerprint := stats.FingerprintOf(listing)
	baseline := decimal.NewFromFloat(opts.Baseline)
	for i := 0; i < a.Config.Stats.MinSamples; i++ {
		agg.RecordObservation(fingerprint, baseline, listing.ObservedAt)
	}

	verdict := a.newClassifier(agg).Evaluate(listing)
	if !verdict.IsDeal {
		return fmt.Errorf("simulated listing did not classify as a deal (price %s, baseline %s, discount %s)",
			listing.Price.StringFixed(0), verdict.Baseline.StringFixed(0), verdict.Discount.StringFixed(2))
	}

	alert := alerting.Alert{
		Weapon:      listing.Weapon,
		Stats:       listing.Stats,
		Price:       listing.Price,
		Baseline:    verdict.Baseline,
		Discount:    verdict.Discount,
		Seller:      listing.Seller,
		Marketplace: listing.Marketplace,
		SourceURL:   alerting.SourceLink(listing.Marketplace, listing.RawID, listing.Weapon),
		ObservedAt:  listing.ObservedAt,
	}
	return notifier.Notify(ctx, alert)
}
