// Package mailer delivers password reset links: directly to the log, or
// through a RabbitMQ queue drained by an SMTP worker.
package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrMalformedMessage = errors.New("malformed password reset message")

type PasswordResetMessage struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ResetLink string    `json:"reset_link"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPasswordResetMessage(email string, resetLink string, now time.Time) PasswordResetMessage {
	return PasswordResetMessage{
		ID:        uuid.NewString(),
		Email:     strings.TrimSpace(email),
		ResetLink: strings.TrimSpace(resetLink),
		CreatedAt: now.UTC(),
	}
}

func DecodePasswordResetMessage(body []byte) (PasswordResetMessage, error) {
	var message PasswordResetMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return PasswordResetMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if strings.TrimSpace(message.Email) == "" || strings.TrimSpace(message.ResetLink) == "" {
		return PasswordResetMessage{}, ErrMalformedMessage
	}
	return message, nil
}

// BuildPasswordResetEmail renders a plain-text RFC 5322 message.
func BuildPasswordResetEmail(from string, message PasswordResetMessage) []byte {
	var builder strings.Builder
	fmt.Fprintf(&builder, "From: %s\r\n", from)
	fmt.Fprintf(&builder, "To: %s\r\n", message.Email)
	builder.WriteString("Subject: Reset your roomdesk password\r\n")
	fmt.Fprintf(&builder, "Message-ID: <%s@roomdesk>\r\n", message.ID)
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString("Someone asked to reset the password for this account.\r\n")
	builder.WriteString("Open the link below to choose a new one. It expires in 30 minutes.\r\n\r\n")
	builder.WriteString(message.ResetLink)
	builder.WriteString("\r\n\r\nIf you did not ask for this, ignore this email.\r\n")
	return []byte(builder.String())
}
