package usecase

import (
	"context"
	"fmt"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

// alertSink сохраняет алерт и затем публикует его. Ошибка публикации
// только логируется: сохраненный алерт не откатывается.
type alertSink struct {
	repo      port.AlertRepositoryPort
	publisher port.AlertPublisherPort
}

func newAlertSink(repo port.AlertRepositoryPort, publisher port.AlertPublisherPort) *alertSink {
	return &alertSink{repo: repo, publisher: publisher}
}

func (s *alertSink) raise(ctx context.Context, alert *domain.Alert) error {
	if err := s.repo.Save(ctx, alert); err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishAlert(ctx, alert); err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to publish alert", err, port.Fields{
			"alert_id":   alert.ID.String(),
			"alert_type": alert.AlertType,
		})
	}
	return nil
}
