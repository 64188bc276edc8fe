package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type MetricRepository struct {
	pool *pgxpool.Pool
}

var _ port.MetricRepositoryPort = (*MetricRepository)(nil)

func NewMetricRepository(pool *pgxpool.Pool) (*MetricRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &MetricRepository{pool: pool}, nil
}

const metricColumns = `id, area, property_type, metric_date, avg_price, median_price, min_price, max_price,
	avg_price_per_sqft, new_listings_count, total_active_listings, removed_listings_count,
	price_change_pct, velocity_ratio, heat_index, computed_at`

func scanMetric(row pgx.Row) (*domain.AreaMetric, error) {
	var (
		m  domain.AreaMetric
		pt *string
	)
	if err := row.Scan(
		&m.ID, &m.Area, &pt, &m.MetricDate, &m.AvgPrice, &m.MedianPrice, &m.MinPrice, &m.MaxPrice,
		&m.AvgPricePerUnitArea, &m.NewListingsCount, &m.TotalActiveListings, &m.RemovedListingsCount,
		&m.PriceChangePct, &m.VelocityRatio, &m.HeatIndex, &m.ComputedAt,
	); err != nil {
		return nil, err
	}
	if pt != nil {
		t := domain.PropertyType(*pt)
		m.PropertyType = &t
	}
	m.MetricDate = m.MetricDate.UTC()
	return &m, nil
}

func propertyTypeArg(pt *domain.PropertyType) *string {
	if pt == nil {
		return nil
	}
	s := string(*pt)
	return &s
}

// Insert не перезаписывает бакет: при конфликте возвращается domain.ErrMetricAlreadyExists
func (r *MetricRepository) Insert(ctx context.Context, m *domain.AreaMetric) error {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "MetricRepository",
		"method":    "Insert",
		"area":      m.Area,
	})

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO area_metrics (`+metricColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (area, COALESCE(property_type, ''), metric_date) DO NOTHING`,
		m.ID, m.Area, propertyTypeArg(m.PropertyType), m.MetricDate, m.AvgPrice, m.MedianPrice, m.MinPrice, m.MaxPrice,
		m.AvgPricePerUnitArea, m.NewListingsCount, m.TotalActiveListings, m.RemovedListingsCount,
		m.PriceChangePct, m.VelocityRatio, m.HeatIndex, m.ComputedAt,
	)
	if err != nil {
		repoLogger.Error("Failed to insert metric", err, nil)
		return fmt.Errorf("failed to insert metric: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMetricAlreadyExists
	}
	return nil
}

func (r *MetricRepository) FindLatestBefore(ctx context.Context, area string, propertyType *domain.PropertyType, before time.Time) (*domain.AreaMetric, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+metricColumns+`
		FROM area_metrics
		WHERE area = $1 AND property_type IS NOT DISTINCT FROM $2 AND metric_date < $3
		ORDER BY metric_date DESC
		LIMIT 1`,
		area, propertyTypeArg(propertyType), before,
	)
	m, err := scanMetric(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load previous metric: %w", err)
	}
	return m, nil
}

// ListLatestPerArea - последняя метрика "по всем типам" для каждого района
func (r *MetricRepository) ListLatestPerArea(ctx context.Context) ([]domain.AreaMetric, error) {
	return r.list(ctx, `
		SELECT DISTINCT ON (area) `+metricColumns+`
		FROM area_metrics
		WHERE property_type IS NULL
		ORDER BY area, metric_date DESC`)
}

func (r *MetricRepository) ListHistory(ctx context.Context, area string, since time.Time) ([]domain.AreaMetric, error) {
	return r.list(ctx, `
		SELECT `+metricColumns+`
		FROM area_metrics
		WHERE area = $1 AND property_type IS NULL AND metric_date >= $2
		ORDER BY metric_date ASC`, area, since)
}

func (r *MetricRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.AreaMetric, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []domain.AreaMetric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, *m)
	}
	return metrics, rows.Err()
}
