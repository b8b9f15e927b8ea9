package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"riven-sniper/internal/model"
)

const warframeMarketPath = "/v1/auctions"

// maxPositiveStats caps how many positive rolls a riven carries.
const maxPositiveStats = 3

// WarframeMarketOptions parameterise the warframe.market fetcher.
type WarframeMarketOptions struct {
	BaseURL   string
	Platform  string
	Language  string
	Timeout   time.Duration
	UserAgent string
}

// WarframeMarket fetches recent riven auctions from the warframe.market
// JSON API.
type WarframeMarket struct {
	opts   WarframeMarketOptions
	logger zerolog.Logger
	client *http.Client
}

// NewWarframeMarket constructs a warframe.market fetcher.
func NewWarframeMarket(opts WarframeMarketOptions, logger zerolog.Logger) *WarframeMarket {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.warframe.market"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Platform == "" {
		opts.Platform = "pc"
	}
	if opts.Language == "" {
		opts.Language = "en"
	}

	return &WarframeMarket{
		opts:   opts,
		logger: logger.With().Str("component", "warframemarket_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Marketplace implements ListingFetcher.
func (f *WarframeMarket) Marketplace() model.Marketplace { return model.WarframeMarket }

// Fetch retrieves the newest riven auctions, direct-sell only.
func (f *WarframeMarket) Fetch(ctx context.Context) ([]model.RawListing, error) {
	endpoint := f.opts.BaseURL + warframeMarketPath + "?type=riven&sort=created_desc"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("platform", f.opts.Platform)
	req.Header.Set("language", f.opts.Language)
	req.Header.Set("Accept", "application/json")
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, wrapTransportErr(model.WarframeMarket, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(model.WarframeMarket, resp.StatusCode)
	}

	var body auctionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &FetchError{Marketplace: model.WarframeMarket, Kind: KindServerError, Err: err}
	}

	raws := make([]model.RawListing, 0, len(body.Payload.Auctions))
	for _, auction := range body.Payload.Auctions {
		raw := f.extract(auction)
		if raw == nil {
			continue
		}
		raws = append(raws, model.RawListing{Marketplace: model.WarframeMarket, WarframeMarket: raw})
	}
	return raws, nil
}

// extract converts one auction into the raw shape. Non-riven items (lich and
// sister auctions share the endpoint) and non-direct sells are skipped.
func (f *WarframeMarket) extract(a auction) *model.WarframeMarketRaw {
	if !a.IsDirectSell || a.Item.Type != "riven" {
		return nil
	}

	raw := &model.WarframeMarketRaw{
		ID:     a.ID,
		Seller: a.Owner.IngameName,
		Weapon: a.Item.WeaponURLName,
	}
	if a.BuyoutPrice != nil {
		raw.Price = a.BuyoutPrice.String()
	}

	for _, attr := range a.Item.Attributes {
		stat := model.RawStat{Name: attr.URLName, Value: decimal.NewFromFloat(attr.Value)}
		if attr.Positive {
			if len(raw.Positives) < maxPositiveStats {
				raw.Positives = append(raw.Positives, stat)
			}
			continue
		}
		raw.Negative = &stat
	}
	return raw
}

type auctionsResponse struct {
	Payload struct {
		Auctions []auction `json:"auctions"`
	} `json:"payload"`
}

type auction struct {
	ID           string       `json:"id"`
	IsDirectSell bool         `json:"is_direct_sell"`
	BuyoutPrice  *json.Number `json:"buyout_price"`
	Owner        struct {
		IngameName string `json:"ingame_name"`
	} `json:"owner"`
	Item struct {
		Type          string `json:"type"`
		WeaponURLName string `json:"weapon_url_name"`
		Attributes    []struct {
			URLName  string  `json:"url_name"`
			Value    float64 `json:"value"`
			Positive bool    `json:"positive"`
		} `json:"attributes"`
	} `json:"item"`
}

var _ ListingFetcher = (*WarframeMarket)(nil)
