package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const rivenPageHTML = `
<div class="riven-area">
  <div class="riven" id="98765" data-weapon="Soma Prime" data-price="350"
       data-stat1="CritDmg" data-stat1val="120.5"
       data-stat2="Multi" data-stat2val="88.2"
       data-stat3="Zoom" data-stat3val="-42.1">
    <div class="attribute seller">seller_one
      <span class="status">online</span>
    </div>
  </div>
  <div class="riven" id="98766" data-weapon="Kuva Bramma" data-price="1250"
       data-stat1="Damage" data-stat1val="95">
    <div class="attribute seller">seller_two</div>
  </div>
  <div class="pagination">Showing 1-200 of <b>523</b></div>
</div>`

func TestRivenMarketFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/_modules/riven/showrivens.php") {
			t.Fatalf("路径不正确: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "200" || q.Get("page") != "1" {
			t.Fatalf("查询参数不正确: %v", q)
		}
		if q.Get("time") == "" {
			t.Fatal("应带缓存穿透参数 time")
		}
		_, _ = w.Write([]byte(rivenPageHTML))
	}))
	defer srv.Close()

	f := NewRivenMarket(RivenMarketOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())

	raws, totalPages, err := f.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchPage 应成功: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("期望 2 条挂单, 实际 %d", len(raws))
	}
	if totalPages != 3 {
		t.Fatalf("523 条 / 每页 200 应为 3 页, 实际 %d", totalPages)
	}

	first := raws[0].RivenMarket
	if first == nil {
		t.Fatal("riven.market payload 缺失")
	}
	if first.ID != "98765" || first.Weapon != "Soma Prime" || first.Price != "350" {
		t.Fatalf("字段解析不正确: %+v", first)
	}
	if first.Seller != "seller_one" {
		t.Fatalf("卖家解析不正确: %q", first.Seller)
	}
	if len(first.Stats) != 3 {
		t.Fatalf("期望 3 条词条, 实际 %d", len(first.Stats))
	}
	if first.Stats[2].Name != "Zoom" || !first.Stats[2].Value.Equal(decimal.NewFromFloat(-42.1)) {
		t.Fatalf("负词条解析不正确: %+v", first.Stats[2])
	}
}

func TestRivenMarketFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewRivenMarket(RivenMarketOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())

	_, err := f.Fetch(context.Background())
	if err == nil {
		t.Fatal("HTTP 429 应返回错误")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Kind != KindRateLimited {
		t.Fatalf("期望限流错误, 实际 %v", err)
	}
}

func TestParseRivenPageEmpty(t *testing.T) {
	raws, total, err := parseRivenPage(strings.NewReader("<div class='riven-area'></div>"))
	if err != nil {
		t.Fatalf("空页面不应报错: %v", err)
	}
	if len(raws) != 0 || total != 0 {
		t.Fatalf("空页面应无结果, 实际 %d/%d", len(raws), total)
	}
}
