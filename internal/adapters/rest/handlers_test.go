package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	logger_adapter "github.com/sarbdeol/bi-market-intelligence/internal/adapters/logger"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

type fakePriceStats struct{ got domain.PriceStatsQuery }

func (f *fakePriceStats) Execute(ctx context.Context, q domain.PriceStatsQuery) (*domain.PriceStats, error) {
	f.got = q
	if q.Area == "Empty" {
		return nil, nil
	}
	return &domain.PriceStats{Area: q.Area, ListingCount: 3, AvgPrice: 1000, PeriodDays: 30}, nil
}

type fakeVelocity struct{}

func (fakeVelocity) Execute(ctx context.Context, area string, days int) (*domain.VelocityStats, error) {
	s := domain.BuildVelocityStats(area, days, 14, 30)
	return &s, nil
}

type fakeHeatMap struct{ err error }

func (f fakeHeatMap) Execute(ctx context.Context) ([]domain.HeatMapEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.HeatMapEntry{{Area: "Dubai Marina", HeatIndex: 80, Band: domain.BandFor(80)}}, nil
}

type fakeTrend struct{}

func (fakeTrend) Execute(ctx context.Context, area string, days int) ([]domain.TrendPoint, error) {
	return []domain.TrendPoint{
		{Date: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), AvgPrice: 100, NewListings: 4, VelocityRatio: 1.1},
		{Date: time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), AvgPrice: 110, NewListings: 6, VelocityRatio: 1.6},
	}, nil
}

type fakeCompetitors struct{}

func (fakeCompetitors) Execute(ctx context.Context, area string) ([]domain.CompetitorStats, error) {
	return nil, nil
}

type fakeOverview struct{}

func (fakeOverview) Execute(ctx context.Context) (*domain.Overview, error) {
	return &domain.Overview{TotalActiveListings: 42}, nil
}

type fakeAlerts struct {
	got   domain.AlertFilter
	known uuid.UUID
}

func (f *fakeAlerts) Execute(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	f.got = filter
	return []domain.Alert{{ID: f.known, AlertType: domain.AlertPriceSurge, Severity: domain.SeverityCritical}}, nil
}

type fakeAck struct{ known uuid.UUID }

func (f fakeAck) Execute(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	if id != f.known {
		return nil, domain.ErrAlertNotFound
	}
	return &domain.Alert{ID: id, Acknowledged: true}, nil
}

type fakeSources struct{}

func (fakeSources) Execute(ctx context.Context) ([]domain.Source, error) {
	return []domain.Source{*domain.NewSource("Bayut", "https://www.bayut.com", domain.SourcePortal)}, nil
}

type fakeRuns struct{ gotLimit int }

func (f *fakeRuns) Execute(ctx context.Context, limit int) ([]domain.CollectionRun, error) {
	f.gotLimit = limit
	return nil, nil
}

type fakeRunner struct {
	mu   sync.Mutex
	jobs []domain.PipelineJob
	err  error
}

func (f *fakeRunner) Execute(ctx context.Context, job domain.PipelineJob) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SweepResult{ListingsRemoved: 2}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type fixture struct {
	router   http.Handler
	price    *fakePriceStats
	alerts   *fakeAlerts
	runs     *fakeRuns
	runner   *fakeRunner
	pipeline *PipelineHandler
	alertID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		price:   &fakePriceStats{},
		runs:    &fakeRuns{},
		runner:  &fakeRunner{},
		alertID: uuid.New(),
	}
	f.alerts = &fakeAlerts{known: f.alertID}
	f.pipeline = NewPipelineHandler(f.runner, fakePinger{})
	logger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{Writer: io.Discard})
	f.router = NewRouter(
		NewAnalyticsHandler(f.price, fakeVelocity{}, fakeHeatMap{}, fakeTrend{}, fakeCompetitors{}, fakeOverview{}),
		NewAlertsHandler(f.alerts, fakeAck{known: f.alertID}),
		NewCompetitorsHandler(fakeSources{}, f.runs),
		f.pipeline,
		[]string{"*"},
		logger,
	)
	return f
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestPriceTracker(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/analytics/price-tracker?area=Dubai+Marina&property_type=villa&days=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if f.price.got.Days != 7 || f.price.got.PropertyType == nil || *f.price.got.PropertyType != domain.PropertyVilla {
		t.Errorf("query not parsed: %+v", f.price.got)
	}
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("trace id header missing")
	}

	rec = f.do(http.MethodGet, "/api/v1/analytics/price-tracker?area=Empty")
	var empty domain.PriceStats
	decode(t, rec, &empty)
	if rec.Code != http.StatusOK || empty.ListingCount != 0 || empty.PeriodDays != 30 {
		t.Errorf("empty result expected, got %d %+v", rec.Code, empty)
	}
}

func TestPriceTrackerValidation(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{
		"/api/v1/analytics/price-tracker",
		"/api/v1/analytics/price-tracker?area=X&days=0",
		"/api/v1/analytics/price-tracker?area=X&days=abc",
		"/api/v1/analytics/price-tracker?area=X&property_type=castle",
	} {
		rec := f.do(http.MethodGet, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", target, rec.Code)
		}
		var body map[string]string
		decode(t, rec, &body)
		if body["error"] == "" {
			t.Errorf("%s: error body missing", target)
		}
	}
}

func TestListingVelocity(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/analytics/listing-velocity?area=JLT&days=7")
	var stats domain.VelocityStats
	decode(t, rec, &stats)
	// 14/7 = 2 в день против 30/30 = 1
	if stats.VelocityRatio != 2 || stats.Trend != domain.TrendAccelerating {
		t.Errorf("unexpected velocity: %+v", stats)
	}
}

func TestTrends(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/analytics/price-trend?area=jlt")
	var price struct {
		Area   string                    `json:"area"`
		Days   int                       `json:"days"`
		Points []PriceTrendPointResponse `json:"points"`
	}
	decode(t, rec, &price)
	if price.Area != "Jumeirah Lake Towers" || price.Days != 90 || len(price.Points) != 2 {
		t.Errorf("unexpected price trend: %+v", price)
	}
	if price.Points[0].Date != "2026-09-01" {
		t.Errorf("date format = %q", price.Points[0].Date)
	}

	rec = f.do(http.MethodGet, "/api/v1/analytics/velocity-trend?area=jlt&days=30")
	var velocity struct {
		Days   int                          `json:"days"`
		Points []VelocityTrendPointResponse `json:"points"`
	}
	decode(t, rec, &velocity)
	if velocity.Days != 30 || len(velocity.Points) != 2 || velocity.Points[1].VelocityRatio != 1.6 {
		t.Errorf("unexpected velocity trend: %+v", velocity)
	}
}

func TestHeatMapAndOverview(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/analytics/heat-map")
	var heat struct {
		Count int                   `json:"count"`
		Items []domain.HeatMapEntry `json:"items"`
	}
	decode(t, rec, &heat)
	if heat.Count != 1 || heat.Items[0].Band != domain.BandFor(80) {
		t.Errorf("unexpected heat map: %+v", heat)
	}

	rec = f.do(http.MethodGet, "/api/v1/analytics/competitor-comparison")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Errorf("empty comparison must be an empty list: %s", rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/api/v1/analytics/overview")
	var overview domain.Overview
	decode(t, rec, &overview)
	if overview.TotalActiveListings != 42 {
		t.Errorf("unexpected overview: %+v", overview)
	}
}

func TestHeatMapFailure(t *testing.T) {
	h := NewAnalyticsHandler(nil, nil, fakeHeatMap{err: errors.New("db down")}, nil, nil, nil)
	rec := httptest.NewRecorder()
	h.GetHeatMap(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/heat-map", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAlertsEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/alerts?unread_only=true&severity=critical&limit=5&area=JVC")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	got := f.alerts.got
	if !got.UnreadOnly || got.Limit != 5 || got.Area != "JVC" || got.Severity == nil || *got.Severity != domain.SeverityCritical {
		t.Errorf("filter not parsed: %+v", got)
	}

	if rec := f.do(http.MethodGet, "/api/v1/alerts?severity=urgent"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown severity: status %d", rec.Code)
	}

	rec = f.do(http.MethodPatch, "/api/v1/alerts/"+f.alertID.String()+"/acknowledge")
	var alert domain.Alert
	decode(t, rec, &alert)
	if rec.Code != http.StatusOK || !alert.Acknowledged {
		t.Errorf("acknowledge failed: %d %+v", rec.Code, alert)
	}

	if rec := f.do(http.MethodPatch, "/api/v1/alerts/"+uuid.NewString()+"/acknowledge"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown alert: status %d", rec.Code)
	}
	if rec := f.do(http.MethodPatch, "/api/v1/alerts/not-a-uuid/acknowledge"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status %d", rec.Code)
	}
}

func TestCompetitorsEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/competitors")
	var sources struct {
		Count int `json:"count"`
	}
	decode(t, rec, &sources)
	if sources.Count != 1 {
		t.Errorf("count = %d", sources.Count)
	}

	rec = f.do(http.MethodGet, "/api/v1/competitors/collection-runs?limit=15")
	if rec.Code != http.StatusOK || f.runs.gotLimit != 15 {
		t.Errorf("status %d limit %d", rec.Code, f.runs.gotLimit)
	}
	if rec := f.do(http.MethodGet, "/api/v1/competitors/collection-runs?limit=-1"); rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit: status %d", rec.Code)
	}
}

func TestPipelineTriggers(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/pipeline/sweep?wait=true")
	var resp struct {
		Status string             `json:"status"`
		Result domain.SweepResult `json:"result"`
	}
	decode(t, rec, &resp)
	if rec.Code != http.StatusOK || resp.Status != "completed" || resp.Result.ListingsRemoved != 2 {
		t.Errorf("sync run: %d %+v", rec.Code, resp)
	}

	rec = f.do(http.MethodPost, "/api/v1/pipeline/aggregate")
	if rec.Code != http.StatusAccepted {
		t.Errorf("async run: status %d", rec.Code)
	}
	f.pipeline.Wait()

	f.runner.mu.Lock()
	jobs := append([]domain.PipelineJob(nil), f.runner.jobs...)
	f.runner.mu.Unlock()
	if len(jobs) != 2 || jobs[0] != domain.JobSweep || jobs[1] != domain.JobAggregate {
		t.Errorf("unexpected jobs: %v", jobs)
	}

	if rec := f.do(http.MethodPost, "/api/v1/pipeline/rebuild"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown job: status %d", rec.Code)
	}

	f.runner.err = errors.New("boom")
	if rec := f.do(http.MethodPost, "/api/v1/pipeline/collect?wait=true"); rec.Code != http.StatusInternalServerError {
		t.Errorf("failed job: status %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("status %d", rec.Code)
	}

	h := NewPipelineHandler(&fakeRunner{}, fakePinger{err: errors.New("down")})
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status %d", rec.Code)
	}
}
