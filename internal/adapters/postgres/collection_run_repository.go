package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type CollectionRunRepository struct {
	pool *pgxpool.Pool
}

var _ port.CollectionRunRepositoryPort = (*CollectionRunRepository)(nil)

func NewCollectionRunRepository(pool *pgxpool.Pool) (*CollectionRunRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &CollectionRunRepository{pool: pool}, nil
}

var runColumns = []string{
	"id", "source_id", "area", "source_url", "status", "listings_found", "listings_new",
	"listings_updated", "listings_removed", "error_message", "started_at", "completed_at", "created_at",
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

func (r *CollectionRunRepository) Create(ctx context.Context, run *domain.CollectionRun) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO collection_runs (`+joinColumns(runColumns)+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.ID, run.SourceID, run.Area, run.SourceURL, string(run.Status), run.ListingsFound, run.ListingsNew,
		run.ListingsUpd, run.ListingsRem, run.ErrorMessage, run.StartedAt, run.CompletedAt, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection run: %w", err)
	}
	return nil
}

func (r *CollectionRunRepository) Update(ctx context.Context, run *domain.CollectionRun) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE collection_runs
		SET status = $1, listings_found = $2, listings_new = $3, listings_updated = $4,
		    listings_removed = $5, error_message = $6, completed_at = $7
		WHERE id = $8`,
		string(run.Status), run.ListingsFound, run.ListingsNew, run.ListingsUpd,
		run.ListingsRem, run.ErrorMessage, run.CompletedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update collection run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("collection run %s not found", run.ID)
	}
	return nil
}

func (r *CollectionRunRepository) ListRecent(ctx context.Context, limit int) ([]domain.CollectionRun, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+joinColumns(runColumns)+` FROM collection_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.CollectionRun, 0, limit)
	for rows.Next() {
		var run domain.CollectionRun
		if err := rows.Scan(
			&run.ID, &run.SourceID, &run.Area, &run.SourceURL, &run.Status, &run.ListingsFound, &run.ListingsNew,
			&run.ListingsUpd, &run.ListingsRem, &run.ErrorMessage, &run.StartedAt, &run.CompletedAt, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan collection run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *CollectionRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	tag, err := r.pool.Exec(ctx, `DELETE FROM collection_runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete collection runs: %w", err)
	}
	logger.WithFields(port.Fields{"component": "CollectionRunRepository", "method": "DeleteOlderThan"}).
		Debug("Old collection runs deleted", port.Fields{"deleted": tag.RowsAffected(), "cutoff": cutoff})
	return tag.RowsAffected(), nil
}
