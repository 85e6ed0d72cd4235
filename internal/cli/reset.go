package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/terraincognita07/roomdesk/internal/models"
	"github.com/terraincognita07/roomdesk/internal/security"
	"github.com/terraincognita07/roomdesk/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const temporaryPasswordLength = 12

type PasswordResetStore interface {
	FindByLogin(ctx context.Context, login string) (models.User, error)
	UpdatePassword(ctx context.Context, userID uint, passwordHash string, mustChangePassword bool) error
}

type ResetPasswordOptions struct {
	Login  string
	Prompt bool
	Out    io.Writer
	// ReadPassword defaults to a no-echo read from stdin.
	ReadPassword func(prompt string) (string, error)
}

// RunResetPasswordCommand replaces a user's password. Without Prompt a
// temporary password is generated, printed once, and must be changed on next
// login.
func RunResetPasswordCommand(ctx context.Context, users PasswordResetStore, options ResetPasswordOptions) error {
	login := strings.ToLower(strings.TrimSpace(options.Login))
	if login == "" {
		return errors.New("login is required")
	}
	out := options.Out
	if out == nil {
		out = os.Stdout
	}

	user, err := users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s not found", login)
		}
		return fmt.Errorf("load user: %w", err)
	}

	password, mustChange, err := chooseNewPassword(options, out)
	if err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := users.UpdatePassword(ctx, user.ID, string(passwordHash), mustChange); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	fmt.Fprintf(out, "Password reset for %s\n", user.Username)
	if mustChange {
		fmt.Fprintf(out, "Temporary password: %s\n", password)
		fmt.Fprintln(out, "User must change password on next login.")
	}
	return nil
}

func chooseNewPassword(options ResetPasswordOptions, out io.Writer) (string, bool, error) {
	if !options.Prompt {
		password, err := security.TemporaryPassword(temporaryPasswordLength)
		if err != nil {
			return "", false, fmt.Errorf("generate temporary password: %w", err)
		}
		return password, true, nil
	}

	read := options.ReadPassword
	if read == nil {
		read = func(prompt string) (string, error) {
			fmt.Fprint(out, prompt)
			value, err := readSecretLine(os.Stdin)
			fmt.Fprintln(out)
			return value, err
		}
	}

	password, err := read("New password: ")
	if err != nil {
		return "", false, fmt.Errorf("read password: %w", err)
	}
	confirm, err := read("Confirm password: ")
	if err != nil {
		return "", false, fmt.Errorf("read password: %w", err)
	}

	password = strings.TrimSpace(password)
	if password != strings.TrimSpace(confirm) {
		return "", false, services.ErrPasswordMismatch
	}
	if err := services.ValidatePasswordStrength(password); err != nil {
		return "", false, err
	}
	return password, false, nil
}
