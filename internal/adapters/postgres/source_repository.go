package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type SourceRepository struct {
	pool *pgxpool.Pool
}

var _ port.SourceRepositoryPort = (*SourceRepository)(nil)

func NewSourceRepository(pool *pgxpool.Pool) (*SourceRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &SourceRepository{pool: pool}, nil
}

const sourceColumns = `id, name, website, source_type, is_active, created_at`

func scanSource(row pgx.Row) (*domain.Source, error) {
	var s domain.Source
	if err := row.Scan(&s.ID, &s.Name, &s.Website, &s.SourceType, &s.IsActive, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SourceRepository) FindByName(ctx context.Context, name string) (*domain.Source, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE name = $1`, name)
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, fmt.Errorf("failed to find source by name: %w", err)
	}
	return s, nil
}

// Create не падает на гонке двух экземпляров: существующее имя просто пропускается
func (r *SourceRepository) Create(ctx context.Context, s *domain.Source) error {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "SourceRepository",
		"method":    "Create",
		"source":    s.Name,
	})

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO sources (id, name, website, source_type, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO NOTHING`,
		s.ID, s.Name, s.Website, s.SourceType, s.IsActive, s.CreatedAt,
	)
	if err != nil {
		repoLogger.Error("Failed to insert source", err, nil)
		return fmt.Errorf("failed to insert source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		repoLogger.Warn("Source already exists", nil)
	}
	return nil
}

func (r *SourceRepository) ListAll(ctx context.Context) ([]domain.Source, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}
