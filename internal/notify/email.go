package notify

import (
	"context"

	"talad/pkg/logger"
)

// EmailSender delivers the email channel. The user directory (and so
// the address lookup) lives in the identity service, which is why the
// interface takes a user ID and not an address.
type EmailSender interface {
	Send(ctx context.Context, userID string, subject string, body string) error
}

// LogEmailSender stands in when no mail gateway is configured.
type LogEmailSender struct {
	log *logger.Logger
}

func NewLogEmailSender(log *logger.Logger) *LogEmailSender {
	return &LogEmailSender{log: log}
}

func (s *LogEmailSender) Send(ctx context.Context, userID string, subject string, body string) error {
	s.log.Info("Email notification (no gateway configured)",
		"user_id", userID,
		"subject", subject,
	)
	return nil
}
