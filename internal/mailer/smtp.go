package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

var ErrSMTPNotConfigured = errors.New("smtp address and sender are required")

type sendMailFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPDeliverer hands rendered reset emails to an SMTP relay.
type SMTPDeliverer struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

func NewSMTPDeliverer(addr string, from string, username string, password string) (*SMTPDeliverer, error) {
	addr = strings.TrimSpace(addr)
	from = strings.TrimSpace(from)
	if addr == "" || from == "" {
		return nil, ErrSMTPNotConfigured
	}

	deliverer := &SMTPDeliverer{addr: addr, from: from, sendMail: smtp.SendMail}
	if strings.TrimSpace(username) != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("parse smtp address: %w", err)
		}
		deliverer.auth = smtp.PlainAuth("", username, password, host)
	}
	return deliverer, nil
}

func (deliverer *SMTPDeliverer) Deliver(_ context.Context, message PasswordResetMessage) error {
	body := BuildPasswordResetEmail(deliverer.from, message)
	if err := deliverer.sendMail(deliverer.addr, deliverer.auth, deliverer.from, []string{message.Email}, body); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}
