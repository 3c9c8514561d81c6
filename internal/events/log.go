package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finflow/transfer-service/internal/domain"
)

// LogNotifier writes notifications to the structured log instead of a
// broker. Useful for local runs without messaging infrastructure.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Publish(ctx context.Context, accountID uuid.UUID, notification domain.Notification) error {
	n.log.Info().
		Str("account_id", accountID.String()).
		Str("request_id", notification.RequestID).
		Bool("successful", notification.Successful).
		Str("error", notification.Error).
		Msg("transfer notification")
	return nil
}

var _ domain.Notifier = (*LogNotifier)(nil)
