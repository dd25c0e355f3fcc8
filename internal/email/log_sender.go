package email

import (
	"context"
	"log/slog"
)

// LogSender writes the full email to the logger instead of delivering
// it. Development only: addresses and message contents end up in the
// logs.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, from, recipient Address, subject, body string) error {
	s.logger.Info("send email",
		"from", from,
		"recipient", recipient,
		"subject", subject,
		"body", body,
	)
	return nil
}
