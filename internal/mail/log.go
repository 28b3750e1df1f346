package mail

import (
	"context"

	"homeserve/internal/logger"
)

// LogSender writes messages to the application log instead of sending them.
// It is used when no SMTP host is configured.
type LogSender struct{}

// Send logs msg.
func (LogSender) Send(_ context.Context, msg Message) error {
	logger.Get().Infow("mail not sent, no smtp host configured",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
