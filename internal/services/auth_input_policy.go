package services

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var (
	ErrAuthCredentialsInvalid  = errors.New("auth credentials invalid")
	ErrAuthRecoveryCodeInvalid = errors.New("auth recovery code invalid")
	ErrInvalidUsername         = errors.New("username must be 3-32 characters of a-z, 0-9, dot, dash or underscore")
	ErrInvalidEmail            = errors.New("invalid email")
	ErrPasswordMismatch        = errors.New("password mismatch")
)

var (
	recoveryCodeFormatRegex = regexp.MustCompile(`^ROOM-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)
	usernameRegex           = regexp.MustCompile(`^[a-z0-9_.-]{3,32}$`)
)

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}

func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if !usernameRegex.MatchString(username) {
		return "", ErrInvalidUsername
	}
	return username, nil
}

// NormalizeCredentialsInput accepts a username or an email as login.
func NormalizeCredentialsInput(loginRaw string, passwordRaw string) (string, string, error) {
	login := strings.ToLower(strings.TrimSpace(loginRaw))
	password := strings.TrimSpace(passwordRaw)
	if login == "" || password == "" {
		return "", "", ErrAuthCredentialsInvalid
	}
	return login, password, nil
}

func ValidateRecoveryCodeFormat(code string) error {
	if !recoveryCodeFormatRegex.MatchString(strings.TrimSpace(code)) {
		return ErrAuthRecoveryCodeInvalid
	}
	return nil
}
