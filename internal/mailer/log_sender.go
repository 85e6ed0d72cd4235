package mailer

import (
	"context"
	"log/slog"

	"github.com/terraincognita07/roomdesk/internal/logging"
)

// LogSender writes reset links to the log instead of mailing them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (sender *LogSender) SendPasswordReset(ctx context.Context, email string, resetLink string) error {
	logging.FromContext(ctx, sender.logger).Info("password reset link", "email", email, "reset_link", resetLink)
	return nil
}
