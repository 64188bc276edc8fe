package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type ListingRepository struct {
	pool *pgxpool.Pool
}

var _ port.ListingRepositoryPort = (*ListingRepository)(nil)

func NewListingRepository(pool *pgxpool.Pool) (*ListingRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &ListingRepository{pool: pool}, nil
}

// порядок должен совпадать с listingRow и с определением таблицы
var listingColumns = []string{
	"id", "external_id", "source_id", "title", "area", "sub_area", "property_type", "status",
	"price", "price_per_sqft", "bedrooms", "bathrooms", "size_sqft", "url",
	"latitude", "longitude", "geo_cell", "content_hash", "listed_at",
	"first_seen_at", "last_seen_at", "removed_at",
}

func listingRow(l *domain.ListingRecord) []interface{} {
	return []interface{}{
		l.ID, l.ExternalID, l.SourceID, l.Title, l.Area, l.SubArea, string(l.PropertyType), string(l.Status),
		l.Price, l.PricePerUnitArea, l.Bedrooms, l.Bathrooms, l.Size, l.URL,
		l.Latitude, l.Longitude, l.GeoCell, l.Fingerprint, l.ListedAt,
		l.FirstSeen, l.LastSeen, l.RemovedAt,
	}
}

func (r *ListingRepository) FindByExternalIDs(ctx context.Context, sourceID uuid.UUID, externalIDs []string) (map[string]*domain.ListingRecord, error) {
	result := make(map[string]*domain.ListingRecord, len(externalIDs))
	if len(externalIDs) == 0 {
		return result, nil
	}

	query, args, err := psql.Select(listingColumns...).
		From("listings").
		Where("source_id = ?", sourceID).
		Where("external_id = ANY(?)", externalIDs).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.ListingRecord
		if err := rows.Scan(
			&l.ID, &l.ExternalID, &l.SourceID, &l.Title, &l.Area, &l.SubArea, &l.PropertyType, &l.Status,
			&l.Price, &l.PricePerUnitArea, &l.Bedrooms, &l.Bathrooms, &l.Size, &l.URL,
			&l.Latitude, &l.Longitude, &l.GeoCell, &l.Fingerprint, &l.ListedAt,
			&l.FirstSeen, &l.LastSeen, &l.RemovedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		result[l.ExternalID] = &l
	}
	return result, rows.Err()
}

// ApplyReconciliation: новые записи идут через COPY во временную таблицу,
// обновления защищены проверкой прежнего content_hash.
func (r *ListingRepository) ApplyReconciliation(ctx context.Context, plan *domain.ReconcilePlan, now time.Time) (domain.ReconcileResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "ListingRepository",
		"method":    "ApplyReconciliation",
	})

	result := domain.ReconcileResult{Found: plan.Found}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(plan.Creates) > 0 {
		created, err := r.insertNew(ctx, tx, plan.Creates)
		if err != nil {
			repoLogger.Error("Failed to insert new listings", err, port.Fields{"count": len(plan.Creates)})
			return result, err
		}
		result.New = created
	}

	if len(plan.Touches) > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE listings SET last_seen_at = GREATEST(last_seen_at, $1) WHERE id = ANY($2)`,
			now, plan.Touches,
		); err != nil {
			return result, fmt.Errorf("failed to touch listings: %w", err)
		}
	}

	for _, u := range plan.Updates {
		rec := u.Record
		tag, err := tx.Exec(ctx, `
			UPDATE listings
			SET title = $1, price = $2, price_per_sqft = $3, content_hash = $4, status = $5,
			    last_seen_at = GREATEST(last_seen_at, $6)
			WHERE id = $7 AND content_hash = $8`,
			rec.Title, rec.Price, rec.PricePerUnitArea, rec.Fingerprint, string(rec.Status),
			now, rec.ID, u.PreviousFingerprint,
		)
		if err != nil {
			return result, fmt.Errorf("failed to update listing %s: %w", rec.ExternalID, err)
		}
		if tag.RowsAffected() == 0 {
			// запись уже поменял параллельный прогон
			repoLogger.Warn("Listing changed concurrently, update skipped", port.Fields{"external_id": rec.ExternalID})
			continue
		}
		result.Updated++

		if pc := u.PriceChange; pc != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO price_history (id, listing_id, old_price, new_price, change_pct, recorded_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				pc.ID, pc.ListingID, pc.OldPrice, pc.NewPrice, pc.ChangePct, pc.RecordedAt,
			); err != nil {
				return result, fmt.Errorf("failed to record price change for %s: %w", rec.ExternalID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}

	repoLogger.Debug("Reconciliation applied", port.Fields{
		"new":     result.New,
		"touched": len(plan.Touches),
		"updated": result.Updated,
	})
	return result, nil
}

func (r *ListingRepository) insertNew(ctx context.Context, tx pgx.Tx, records []*domain.ListingRecord) (int, error) {
	if _, err := tx.Exec(ctx, `CREATE TEMP TABLE tmp_listings (LIKE listings INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		rows = append(rows, listingRow(rec))
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tmp_listings"}, listingColumns, pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("failed to copy into temp table: %w", err)
	}

	// конфликт возможен только при гонке с другим прогоном той же единицы
	tag, err := tx.Exec(ctx, `
		INSERT INTO listings SELECT * FROM tmp_listings
		ON CONFLICT (external_id, source_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to insert listings: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *ListingRepository) ListAreas(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT area FROM listings WHERE status = $1 ORDER BY area`, string(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	defer rows.Close()

	areas, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan areas: %w", err)
	}
	return areas, nil
}

func (r *ListingRepository) ListActiveSnapshots(ctx context.Context, area string, propertyType *domain.PropertyType) ([]domain.ActiveListingSnapshot, error) {
	builder := psql.Select("price", "price_per_sqft", "first_seen_at").
		From("listings").
		Where(sq.Eq{"area": area, "status": string(domain.StatusActive)})
	if propertyType != nil {
		builder = builder.Where(sq.Eq{"property_type": string(*propertyType)})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load active listings: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.ActiveListingSnapshot
	for rows.Next() {
		var s domain.ActiveListingSnapshot
		if err := rows.Scan(&s.Price, &s.PricePerUnitArea, &s.FirstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan listing snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func (r *ListingRepository) CountRemovedSince(ctx context.Context, area string, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM listings WHERE area = $1 AND status = $2 AND removed_at >= $3`,
		area, string(domain.StatusRemoved), since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count removed listings: %w", err)
	}
	return n, nil
}

func (r *ListingRepository) MarkStaleRemoved(ctx context.Context, cutoff, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE listings SET status = $1, removed_at = $2 WHERE status = $3 AND last_seen_at < $4`,
		string(domain.StatusRemoved), now, string(domain.StatusActive), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale listings: %w", err)
	}
	return tag.RowsAffected(), nil
}
