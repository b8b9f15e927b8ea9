package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"riven-sniper/internal/model"
)

const rivenMarketPath = "/_modules/riven/showrivens.php"

// RivenMarketOptions parameterise the riven.market fetcher.
type RivenMarketOptions struct {
	BaseURL   string
	PageLimit int
	Timeout   time.Duration
	UserAgent string
}

// RivenMarket scrapes listing pages from riven.market. The endpoint serves
// HTML fragments with the listing fields in data attributes.
type RivenMarket struct {
	opts   RivenMarketOptions
	logger zerolog.Logger
	client *http.Client
}

// NewRivenMarket constructs a riven.market fetcher.
func NewRivenMarket(opts RivenMarketOptions, logger zerolog.Logger) *RivenMarket {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://riven.market"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.PageLimit <= 0 {
		opts.PageLimit = 200
	}

	return &RivenMarket{
		opts:   opts,
		logger: logger.With().Str("component", "rivenmarket_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Marketplace implements ListingFetcher.
func (f *RivenMarket) Marketplace() model.Marketplace { return model.RivenMarket }

// Fetch retrieves the first page of recent listings.
func (f *RivenMarket) Fetch(ctx context.Context) ([]model.RawListing, error) {
	raws, _, err := f.FetchPage(ctx, 1)
	return raws, err
}

// FetchPage retrieves one page and the total page count reported by the
// site's pagination, for use by the backfill seed scrape.
func (f *RivenMarket) FetchPage(ctx context.Context, page int) ([]model.RawListing, int, error) {
	endpoint := f.opts.BaseURL + rivenMarketPath + "?" + f.queryParams(page).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, wrapTransportErr(model.RivenMarket, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, statusErr(model.RivenMarket, resp.StatusCode)
	}

	raws, total, err := parseRivenPage(resp.Body)
	if err != nil {
		return nil, 0, &FetchError{Marketplace: model.RivenMarket, Kind: KindServerError, Err: err}
	}

	totalPages := 1
	if total > 0 {
		totalPages = (total + f.opts.PageLimit - 1) / f.opts.PageLimit
	}
	return raws, totalPages, nil
}

func (f *RivenMarket) queryParams(page int) url.Values {
	v := url.Values{}
	v.Set("platform", "ALL")
	v.Set("limit", strconv.Itoa(f.opts.PageLimit))
	v.Set("recency", "-1")
	v.Set("veiled", "false")
	v.Set("onlinefirst", "false")
	v.Set("polarity", "all")
	v.Set("rank", "all")
	v.Set("mastery", "16")
	v.Set("weapon", "Any")
	v.Set("stats", "Any")
	v.Set("neg", "all")
	v.Set("price", "99999")
	v.Set("rerolls", "-1")
	v.Set("sort", "time")
	v.Set("direction", "ASC")
	v.Set("page", strconv.Itoa(page))
	// Cache busting, same trick the site's own frontend uses.
	v.Set("time", strconv.FormatInt(time.Now().UnixMilli(), 10))
	return v
}

func (f *RivenMarket) userAgent() string {
	if f.opts.UserAgent != "" {
		return f.opts.UserAgent
	}
	return "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:145.0) Gecko/20100101 Firefox/145.0"
}

// parseRivenPage extracts listings from div.riven elements and the total
// listing count from the last <b> inside div.pagination.
func parseRivenPage(r io.Reader) ([]model.RawListing, int, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, 0, fmt.Errorf("parse riven.market html: %w", err)
	}

	var raws []model.RawListing
	total := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" {
			switch {
			case hasClass(n, "riven"):
				if raw := parseRivenElement(n); raw != nil {
					raws = append(raws, model.RawListing{Marketplace: model.RivenMarket, RivenMarket: raw})
				}
				return
			case hasClass(n, "pagination"):
				total = parsePaginationTotal(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return raws, total, nil
}

func parseRivenElement(n *html.Node) *model.RivenMarketRaw {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}

	seller := sellerName(n)
	if seller == "" {
		return nil
	}

	raw := &model.RivenMarketRaw{
		ID:     attrs["id"],
		Seller: seller,
		Weapon: attrs["data-weapon"],
		Price:  attrs["data-price"],
	}
	for i := 1; i <= 4; i++ {
		name := attrs[fmt.Sprintf("data-stat%d", i)]
		if name == "" {
			continue
		}
		value, err := decimal.NewFromString(attrs[fmt.Sprintf("data-stat%dval", i)])
		if err != nil {
			value = decimal.Decimal{}
		}
		raw.Stats = append(raw.Stats, model.RawStat{Name: name, Value: value})
	}
	return raw
}

// sellerName finds the first text line of the div.attribute.seller child.
func sellerName(n *html.Node) string {
	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "attribute") && hasClass(n, "seller") {
			text := strings.TrimSpace(nodeText(n))
			if idx := strings.IndexByte(text, '\n'); idx >= 0 {
				text = strings.TrimSpace(text[:idx])
			}
			found = text
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

func parsePaginationTotal(n *html.Node) int {
	var last string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "b" {
			last = strings.TrimSpace(nodeText(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	total, err := strconv.Atoi(strings.ReplaceAll(last, ",", ""))
	if err != nil {
		return 0
	}
	return total
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

var _ ListingFetcher = (*RivenMarket)(nil)
