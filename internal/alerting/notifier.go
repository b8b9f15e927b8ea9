// Package alerting delivers deal notifications to the configured push
// channels.
package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"riven-sniper/internal/model"
)

// Alert is the payload handed to a notification channel for one confirmed
// deal.
type Alert struct {
	Weapon      string
	Stats       []model.Stat
	Price       decimal.Decimal
	Baseline    decimal.Decimal
	Discount    decimal.Decimal
	Seller      string
	Marketplace model.Marketplace
	SourceURL   string
	ObservedAt  time.Time
}

// Notifier pushes a deal alert through one channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Multi fans an alert out to several channels. A single channel failure does
// not prevent delivery to the rest; failures are joined into one error.
type Multi struct {
	notifiers []Notifier
}

// NewMulti builds a fan-out notifier.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Notify implements Notifier.
func (m *Multi) Notify(ctx context.Context, alert Alert) error {
	var failed []string
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: %d channel(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}

// Stats whose rolls read inverted: a lower value is the desirable direction,
// so the displayed sign flips.
var invertedStats = map[string]bool{
	"reload_speed": true,
	"recoil":       true,
}

// renderMessage formats the alert body shared by all channels.
func renderMessage(alert Alert) string {
	builder := strings.Builder{}
	builder.WriteString("[Riven Deal]\n")
	builder.WriteString(fmt.Sprintf("Weapon: %s\n", titleCase(alert.Weapon)))
	builder.WriteString(fmt.Sprintf("Stats: %s\n", formatStats(alert.Stats)))
	builder.WriteString(fmt.Sprintf("Price: %sp\n", alert.Price.StringFixed(0)))
	builder.WriteString(fmt.Sprintf("Fair value: %sp\n", alert.Baseline.StringFixed(0)))
	builder.WriteString(fmt.Sprintf("Discount: %s%%\n", alert.Discount.Mul(decimal.NewFromInt(100)).StringFixed(1)))
	builder.WriteString(fmt.Sprintf("Seller: %s\n", alert.Seller))
	builder.WriteString(fmt.Sprintf("Source: %s\n", alert.Marketplace))
	if alert.SourceURL != "" {
		builder.WriteString(fmt.Sprintf("Link: %s\n", alert.SourceURL))
	}
	builder.WriteString(fmt.Sprintf("Observed: %s", alert.ObservedAt.UTC().Format(time.RFC3339)))
	return builder.String()
}

// formatStats renders canonical stats with their reading signs: positives
// "+", the negative "-", flipped for inverted stats.
func formatStats(stats []model.Stat) string {
	parts := make([]string, 0, len(stats))
	for _, s := range stats {
		sign := "+"
		if s.Value.IsNegative() {
			sign = "-"
		}
		if invertedStats[s.Name] {
			if sign == "+" {
				sign = "-"
			} else {
				sign = "+"
			}
		}
		parts = append(parts, sign+titleCase(s.Name))
	}
	return strings.Join(parts, " ")
}

func titleCase(v string) string {
	words := strings.Split(strings.ReplaceAll(v, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// SourceLink builds a marketplace-specific URL for a listing.
func SourceLink(marketplace model.Marketplace, rawID, weapon string) string {
	switch marketplace {
	case model.WarframeMarket:
		return "https://warframe.market/auction/" + rawID
	case model.RivenMarket:
		return "https://riven.market/?weapon=" + weapon
	}
	return ""
}
