package feedfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/pkg/retry"
)

const jsonFeed = `{
  "data": {
    "items": [
      {"id": "A-1", "title": "2BR in JVC", "location": {"community": "JVC"}, "type": "apartment",
       "price": {"amount": 1250000}, "beds": 2, "baths": "2", "size": "1,100", "link": "/listing/A-1",
       "listed": "2026-09-01T10:00:00Z", "lat": 25.06, "lng": 55.21},
      {"id": "A-2", "title": "Villa", "type": "villa", "price": {"amount": "AED 4,500,000"}, "beds": "studio"},
      {"title": "no id"}
    ]
  }
}`

func jsonMapping() FieldMapping {
	return FieldMapping{
		Items:        "data.items",
		ExternalID:   "id",
		Title:        "title",
		Area:         "location.community",
		PropertyType: "type",
		Price:        "price.amount",
		Bedrooms:     "beds",
		Bathrooms:    "baths",
		Size:         "size",
		URL:          "link",
		ListedAt:     "listed",
		Latitude:     "lat",
		Longitude:    "lng",
	}
}

func newTestAdapter(t *testing.T, serverURL string, kind FeedKind, tmpl string, fields FieldMapping) *FeedFetcherAdapter {
	t.Helper()
	a, err := NewFeedFetcherAdapter(Config{
		Name:        "test-portal",
		SourceType:  domain.SourcePortal,
		Kind:        kind,
		BaseURL:     serverURL,
		URLTemplate: tmpl,
		Areas:       []string{"Dubai Marina"},
		Fields:      fields,
		MaxPages:    3,
	})
	if err != nil {
		t.Fatalf("NewFeedFetcherAdapter: %v", err)
	}
	return a
}

func TestFetchJSONFeed(t *testing.T) {
	var gotArea string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotArea = r.URL.Query().Get("area")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, jsonFeed)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, KindJSONFeed, "{base_url}/api/search?area={area}", jsonMapping())
	listings, err := a.Fetch(context.Background(), "Dubai Marina")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotArea != "Dubai Marina" {
		t.Errorf("area query = %q", gotArea)
	}
	if len(listings) != 2 {
		t.Fatalf("want 2 listings, got %d", len(listings))
	}

	first := listings[0]
	if first.ExternalID != "A-1" || first.Price != 1250000 || first.Area != "JVC" {
		t.Errorf("unexpected first listing: %+v", first)
	}
	if first.Bedrooms == nil || *first.Bedrooms != 2 || first.Bathrooms == nil || *first.Bathrooms != 2 {
		t.Errorf("bedrooms/bathrooms not mapped: %+v", first)
	}
	if first.Size == nil || *first.Size != 1100 {
		t.Errorf("size not mapped: %v", first.Size)
	}
	if first.URL != srv.URL+"/listing/A-1" {
		t.Errorf("url = %q", first.URL)
	}
	if first.ListedAt == nil || first.Latitude == nil || first.Longitude == nil {
		t.Errorf("optional fields lost: %+v", first)
	}

	second := listings[1]
	if second.PropertyType != domain.PropertyVilla || second.Price != 4500000 {
		t.Errorf("unexpected second listing: %+v", second)
	}
	if second.Area != "Dubai Marina" {
		t.Errorf("area should fall back to requested one, got %q", second.Area)
	}
	if second.Bedrooms == nil || *second.Bedrooms != 0 {
		t.Errorf("studio should map to 0 bedrooms")
	}
}

func TestFetchPaginatesUntilEmptyPage(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `{"items":[{"id":"p1","title":"t","price":100}]}`)
			return
		}
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, KindJSONFeed, "{base_url}/feed/{area_slug}?page={page}", FieldMapping{
		Items: "items", ExternalID: "id", Title: "title", Price: "price",
	})
	if got := a.AreaURL("Dubai Marina"); got != srv.URL+"/feed/dubai-marina?page=1" {
		t.Errorf("AreaURL = %q", got)
	}

	listings, err := a.Fetch(context.Background(), "Dubai Marina")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("want 1 listing, got %d", len(listings))
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("want 2 page requests, got %d", calls)
	}
}

func TestFetchHTMLFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>
<div class="card" data-id="h-1"><h2>Marina view</h2><span class="price">AED 2,100,000</span><a href="/p/h-1">open</a></div>
<div class="card" data-id="h-2"><h2>Townhouse</h2><span class="price">AED 3,000,000</span><em class="type">Townhouse</em></div>
</body></html>`)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, KindHTMLFeed, "{base_url}/search?area={area}", FieldMapping{
		Items:        "div.card",
		ExternalID:   "@data-id",
		Title:        "h2",
		Price:        "span.price",
		PropertyType: "em.type",
		URL:          "a@href",
	})
	listings, err := a.Fetch(context.Background(), "Dubai Marina")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("want 2 listings, got %d", len(listings))
	}
	if listings[0].ExternalID != "h-1" || listings[0].Price != 2100000 || listings[0].URL != srv.URL+"/p/h-1" {
		t.Errorf("unexpected first listing: %+v", listings[0])
	}
	if listings[1].PropertyType != domain.PropertyTownhouse {
		t.Errorf("property type = %s", listings[1].PropertyType)
	}
}

func TestFetchMapsBlockedStatus(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusTooManyRequests} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		a := newTestAdapter(t, srv.URL, KindJSONFeed, "{base_url}/feed?area={area}", jsonMapping())
		_, err := a.Fetch(context.Background(), "Dubai Marina")
		srv.Close()
		if !errors.Is(err, domain.ErrSourceBlocked) {
			t.Errorf("status %d: want ErrSourceBlocked, got %v", status, err)
		}
	}
}

func TestFetchMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": `)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, KindJSONFeed, "{base_url}/feed?area={area}", jsonMapping())
	_, err := a.Fetch(context.Background(), "Dubai Marina")
	if !errors.Is(err, ErrMalformedFeed) {
		t.Fatalf("want ErrMalformedFeed, got %v", err)
	}
}

func TestNewFeedFetcherAdapterValidation(t *testing.T) {
	cases := []Config{
		{URLTemplate: "https://example.com/feed"},
		{Name: "x"},
		{Name: "x", URLTemplate: "https://example.com/feed", Kind: "xml"},
		{Name: "x", URLTemplate: "https://example.com/feed", Kind: KindHTMLFeed},
		{Name: "x", URLTemplate: "/relative/{area}"},
	}
	for i, cfg := range cases {
		if _, err := NewFeedFetcherAdapter(cfg); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

type flakySource struct {
	failures int
	err      error
	calls    int
}

func (f *flakySource) Name() string                  { return "flaky" }
func (f *flakySource) Website() string               { return "" }
func (f *flakySource) SourceType() domain.SourceType { return domain.SourcePortal }
func (f *flakySource) Areas() []string               { return []string{"Dubai Marina"} }
func (f *flakySource) AreaURL(area string) string    { return "" }

func (f *flakySource) Fetch(ctx context.Context, area string) ([]domain.ObservedListing, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []domain.ObservedListing{{ExternalID: "1"}}, nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}
}

func TestRetryingSourceRecovers(t *testing.T) {
	inner := &flakySource{failures: 2, err: errors.New("connection reset")}
	src := NewRetryingSource(inner, fastPolicy())

	listings, err := src.Fetch(context.Background(), "Dubai Marina")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 1 || inner.calls != 3 {
		t.Errorf("listings=%d calls=%d", len(listings), inner.calls)
	}
}

func TestRetryingSourceKeepsBlockedAfterExhaustion(t *testing.T) {
	inner := &flakySource{failures: 10, err: fmt.Errorf("status 429: %w", domain.ErrSourceBlocked)}
	src := NewRetryingSource(inner, fastPolicy())

	_, err := src.Fetch(context.Background(), "Dubai Marina")
	if !errors.Is(err, domain.ErrSourceBlocked) {
		t.Fatalf("want ErrSourceBlocked, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("want 3 attempts, got %d", inner.calls)
	}
}

func TestRetryingSourceDoesNotRetryMalformedFeed(t *testing.T) {
	inner := &flakySource{failures: 10, err: fmt.Errorf("parse: %w", ErrMalformedFeed)}
	src := NewRetryingSource(inner, fastPolicy())

	if _, err := src.Fetch(context.Background(), "Dubai Marina"); !errors.Is(err, ErrMalformedFeed) {
		t.Fatalf("want ErrMalformedFeed, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("want a single attempt, got %d", inner.calls)
	}
}
