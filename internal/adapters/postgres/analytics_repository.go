package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

// AnalyticsRepository - read-only выборки для дашборда
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

var _ port.AnalyticsRepositoryPort = (*AnalyticsRepository)(nil)

func NewAnalyticsRepository(pool *pgxpool.Pool) (*AnalyticsRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &AnalyticsRepository{pool: pool}, nil
}

// ListPriceSamples - цены объявлений района, виденных с seenSince
func (r *AnalyticsRepository) ListPriceSamples(ctx context.Context, q domain.PriceStatsQuery, seenSince time.Time) ([]int64, []float64, error) {
	builder := psql.Select("price", "price_per_sqft").
		From("listings").
		Where(sq.Eq{"area": q.Area}).
		Where(sq.GtOrEq{"last_seen_at": seenSince})
	if q.PropertyType != nil {
		builder = builder.Where(sq.Eq{"property_type": string(*q.PropertyType)})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load price samples: %w", err)
	}
	defer rows.Close()

	var prices []int64
	var perUnitArea []float64
	for rows.Next() {
		var price int64
		var ppa *float64
		if err := rows.Scan(&price, &ppa); err != nil {
			return nil, nil, fmt.Errorf("failed to scan price sample: %w", err)
		}
		prices = append(prices, price)
		if ppa != nil {
			perUnitArea = append(perUnitArea, *ppa)
		}
	}
	return prices, perUnitArea, rows.Err()
}

func (r *AnalyticsRepository) CountNewListings(ctx context.Context, area string, since time.Time) (int, error) {
	builder := psql.Select("COUNT(*)").From("listings").Where(sq.GtOrEq{"first_seen_at": since})
	if area != "" {
		builder = builder.Where(sq.Eq{"area": area})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count new listings: %w", err)
	}
	return n, nil
}

// ListCompetitorStats: пустой area означает все районы
func (r *AnalyticsRepository) ListCompetitorStats(ctx context.Context, area string) ([]domain.CompetitorStats, error) {
	builder := psql.Select("s.id", "s.name", "COUNT(l.id)", "COALESCE(AVG(l.price), 0)", "ROUND(AVG(l.price_per_sqft)::numeric, 2)::float8").
		From("sources s").
		Join("listings l ON l.source_id = s.id").
		GroupBy("s.id", "s.name").
		OrderBy("COUNT(l.id) DESC", "s.name")
	if area != "" {
		builder = builder.Where(sq.Eq{"l.area": area})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load competitor stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.CompetitorStats
	for rows.Next() {
		var s domain.CompetitorStats
		if err := rows.Scan(&s.SourceID, &s.Name, &s.ListingCount, &s.AvgPrice, &s.AvgPricePerUnitArea); err != nil {
			return nil, fmt.Errorf("failed to scan competitor stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *AnalyticsRepository) GetOverview(ctx context.Context, newSince time.Time) (*domain.Overview, error) {
	var o domain.Overview
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM listings WHERE status = 'ACTIVE'),
			(SELECT COUNT(*) FROM sources WHERE is_active),
			(SELECT COUNT(*) FROM alerts WHERE NOT acknowledged),
			(SELECT COUNT(DISTINCT area) FROM listings),
			(SELECT COALESCE(ROUND(AVG(price)::numeric, 2), 0)::float8 FROM listings WHERE status = 'ACTIVE'),
			(SELECT COUNT(*) FROM listings WHERE first_seen_at >= $1)`,
		newSince,
	).Scan(&o.TotalActiveListings, &o.ActiveCompetitors, &o.UnreadAlerts, &o.TrackedAreas, &o.AvgPrice, &o.NewListings7d)
	if err != nil {
		return nil, fmt.Errorf("failed to load overview: %w", err)
	}
	return &o, nil
}
