package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type memListings struct {
	mu           sync.Mutex
	records      map[uuid.UUID]*domain.ListingRecord
	priceHistory []domain.PriceChangeEvent
	applyErr     error
}

func newMemListings() *memListings {
	return &memListings{records: make(map[uuid.UUID]*domain.ListingRecord)}
}

func (m *memListings) add(rec *domain.ListingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.ID] = &cp
}

func (m *memListings) all() []domain.ListingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ListingRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out
}

func (m *memListings) byExternalID(id string) *domain.ListingRecord {
	for _, r := range m.all() {
		if r.ExternalID == id {
			rec := r
			return &rec
		}
	}
	return nil
}

func (m *memListings) FindByExternalIDs(_ context.Context, sourceID uuid.UUID, ids []string) (map[string]*domain.ListingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make(map[string]*domain.ListingRecord)
	for _, r := range m.records {
		if r.SourceID == sourceID && wanted[r.ExternalID] {
			cp := *r
			out[r.ExternalID] = &cp
		}
	}
	return out, nil
}

func (m *memListings) ApplyReconciliation(_ context.Context, plan *domain.ReconcilePlan, now time.Time) (domain.ReconcileResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return domain.ReconcileResult{}, m.applyErr
	}
	for _, rec := range plan.Creates {
		cp := *rec
		m.records[rec.ID] = &cp
	}
	for _, id := range plan.Touches {
		if r, ok := m.records[id]; ok && now.After(r.LastSeen) {
			r.LastSeen = now
		}
	}
	updated := 0
	for _, u := range plan.Updates {
		current, ok := m.records[u.Record.ID]
		if !ok || current.Fingerprint != u.PreviousFingerprint {
			continue
		}
		cp := *u.Record
		m.records[u.Record.ID] = &cp
		if u.PriceChange != nil {
			m.priceHistory = append(m.priceHistory, *u.PriceChange)
		}
		updated++
	}
	return domain.ReconcileResult{Found: plan.Found, New: len(plan.Creates), Updated: updated}, nil
}

func (m *memListings) ListAreas(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var areas []string
	for _, r := range m.records {
		if !seen[r.Area] {
			seen[r.Area] = true
			areas = append(areas, r.Area)
		}
	}
	sort.Strings(areas)
	return areas, nil
}

func (m *memListings) ListActiveSnapshots(_ context.Context, area string, pt *domain.PropertyType) ([]domain.ActiveListingSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ActiveListingSnapshot
	for _, r := range m.records {
		if r.Area != area || r.Status != domain.StatusActive {
			continue
		}
		if pt != nil && r.PropertyType != *pt {
			continue
		}
		out = append(out, domain.ActiveListingSnapshot{Price: r.Price, PricePerUnitArea: r.PricePerUnitArea, FirstSeen: r.FirstSeen})
	}
	return out, nil
}

func (m *memListings) CountRemovedSince(_ context.Context, area string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.Area == area && r.RemovedAt != nil && !r.RemovedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memListings) MarkStaleRemoved(_ context.Context, cutoff, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.records {
		if r.Status == domain.StatusActive && r.LastSeen.Before(cutoff) {
			r.Status = domain.StatusRemoved
			removedAt := now
			r.RemovedAt = &removedAt
			n++
		}
	}
	return n, nil
}

type memRuns struct {
	mu        sync.Mutex
	runs      map[uuid.UUID]domain.CollectionRun
	updateErr error
}

func newMemRuns() *memRuns {
	return &memRuns{runs: make(map[uuid.UUID]domain.CollectionRun)}
}

func (m *memRuns) Create(_ context.Context, run *domain.CollectionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *memRuns) Update(_ context.Context, run *domain.CollectionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *memRuns) ListRecent(_ context.Context, limit int) ([]domain.CollectionRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CollectionRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRuns) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.runs {
		if r.CreatedAt.Before(cutoff) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

type memSources struct {
	mu      sync.Mutex
	sources []domain.Source
}

func (m *memSources) FindByName(_ context.Context, name string) (*domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sources {
		if m.sources[i].Name == name {
			s := m.sources[i]
			return &s, nil
		}
	}
	return nil, domain.ErrSourceNotFound
}

func (m *memSources) Create(_ context.Context, s *domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, *s)
	return nil
}

func (m *memSources) ListAll(context.Context) ([]domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Source(nil), m.sources...), nil
}

type memMetrics struct {
	mu      sync.Mutex
	metrics []domain.AreaMetric
}

func metricKey(area string, pt *domain.PropertyType, date time.Time) string {
	t := ""
	if pt != nil {
		t = string(*pt)
	}
	return area + "|" + t + "|" + date.Format(time.DateOnly)
}

func (m *memMetrics) Insert(_ context.Context, metric *domain.AreaMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := metricKey(metric.Area, metric.PropertyType, metric.MetricDate)
	for _, existing := range m.metrics {
		if metricKey(existing.Area, existing.PropertyType, existing.MetricDate) == key {
			return domain.ErrMetricAlreadyExists
		}
	}
	m.metrics = append(m.metrics, *metric)
	return nil
}

func (m *memMetrics) FindLatestBefore(_ context.Context, area string, pt *domain.PropertyType, before time.Time) (*domain.AreaMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.AreaMetric
	for i := range m.metrics {
		mt := &m.metrics[i]
		if mt.Area != area || (pt == nil) != (mt.PropertyType == nil) || !mt.MetricDate.Before(before) {
			continue
		}
		if latest == nil || mt.MetricDate.After(latest.MetricDate) {
			latest = mt
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memMetrics) ListLatestPerArea(context.Context) ([]domain.AreaMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := make(map[string]domain.AreaMetric)
	for _, mt := range m.metrics {
		if cur, ok := latest[mt.Area]; !ok || mt.MetricDate.After(cur.MetricDate) {
			latest[mt.Area] = mt
		}
	}
	out := make([]domain.AreaMetric, 0, len(latest))
	for _, mt := range latest {
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Area < out[j].Area })
	return out, nil
}

func (m *memMetrics) ListHistory(_ context.Context, area string, since time.Time) ([]domain.AreaMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AreaMetric
	for _, mt := range m.metrics {
		if mt.Area == area && !mt.MetricDate.Before(since) {
			out = append(out, mt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricDate.Before(out[j].MetricDate) })
	return out, nil
}

type memAlerts struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (m *memAlerts) Save(_ context.Context, a *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *memAlerts) HasOpen(_ context.Context, area string, t domain.AlertType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.Area == area && a.AlertType == t && !a.Acknowledged {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAlerts) List(_ context.Context, f domain.AlertFilter) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alert
	for _, a := range m.alerts {
		if f.UnreadOnly && a.Acknowledged {
			continue
		}
		if f.Area != "" && a.Area != f.Area {
			continue
		}
		if f.Severity != nil && a.Severity != *f.Severity {
			continue
		}
		out = append(out, a)
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memAlerts) Acknowledge(_ context.Context, id uuid.UUID) (*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Acknowledged = true
			a := m.alerts[i]
			return &a, nil
		}
	}
	return nil, domain.ErrAlertNotFound
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []domain.AlertType
	err       error
}

func (p *recordingPublisher) PublishAlert(_ context.Context, a *domain.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, a.AlertType)
	return nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrUnitLocked
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

type stubSource struct {
	name    string
	areas   []string
	results map[string][]domain.ObservedListing
	errs    map[string]error
}

func (s *stubSource) Name() string                  { return s.name }
func (s *stubSource) Website() string               { return "https://" + s.name + ".example" }
func (s *stubSource) SourceType() domain.SourceType { return domain.SourcePortal }
func (s *stubSource) Areas() []string               { return s.areas }
func (s *stubSource) AreaURL(area string) string    { return s.Website() + "/" + area }

func (s *stubSource) Fetch(_ context.Context, area string) ([]domain.ObservedListing, error) {
	if err := s.errs[area]; err != nil {
		return nil, err
	}
	return s.results[area], nil
}

type stubRegistry struct {
	sources []port.ListingSourcePort
}

func (r *stubRegistry) Sources() []port.ListingSourcePort { return r.sources }

func (r *stubRegistry) Lookup(name string) (port.ListingSourcePort, bool) {
	for _, s := range r.sources {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

func listing(id string, price int64, title, area string) domain.ObservedListing {
	return domain.ObservedListing{
		ExternalID:   id,
		Title:        title,
		Area:         area,
		PropertyType: domain.PropertyApartment,
		Price:        price,
	}
}
