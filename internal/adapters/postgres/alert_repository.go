package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type AlertRepository struct {
	pool *pgxpool.Pool
}

var _ port.AlertRepositoryPort = (*AlertRepository)(nil)

func NewAlertRepository(pool *pgxpool.Pool) (*AlertRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &AlertRepository{pool: pool}, nil
}

var alertColumns = []string{
	"id", "alert_type", "severity", "area", "source_id", "title", "description",
	"metric_value", "threshold_value", "acknowledged", "triggered_at",
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var a domain.Alert
	if err := row.Scan(
		&a.ID, &a.AlertType, &a.Severity, &a.Area, &a.SourceID, &a.Title, &a.Description,
		&a.MetricValue, &a.ThresholdValue, &a.Acknowledged, &a.TriggeredAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepository) Save(ctx context.Context, a *domain.Alert) error {
	query, args, err := psql.Insert("alerts").
		Columns(alertColumns...).
		Values(a.ID, string(a.AlertType), string(a.Severity), a.Area, a.SourceID, a.Title, a.Description,
			a.MetricValue, a.ThresholdValue, a.Acknowledged, a.TriggeredAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) HasOpen(ctx context.Context, area string, alertType domain.AlertType) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts WHERE area = $1 AND alert_type = $2 AND acknowledged = FALSE)`,
		area, string(alertType),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check open alerts: %w", err)
	}
	return exists, nil
}

func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	filter = filter.Normalize()

	builder := psql.Select(alertColumns...).
		From("alerts").
		OrderBy("triggered_at DESC").
		Limit(uint64(filter.Limit))
	if filter.UnreadOnly {
		builder = builder.Where(sq.Eq{"acknowledged": false})
	}
	if filter.Area != "" {
		builder = builder.Where(sq.Eq{"area": filter.Area})
	}
	if filter.Severity != nil {
		builder = builder.Where(sq.Eq{"severity": string(*filter.Severity)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]domain.Alert, 0, filter.Limit)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// Acknowledge идемпотентен: повторный вызов возвращает тот же алерт
func (r *AlertRepository) Acknowledge(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	query, args, err := psql.Update("alerts").
		Set("acknowledged", true).
		Where("id = ?", id).
		Suffix("RETURNING " + joinColumns(alertColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	a, err := scanAlert(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return a, nil
}
