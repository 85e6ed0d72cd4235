package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/terraincognita07/roomdesk/internal/logging"
	"github.com/terraincognita07/roomdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ResetModeRecoveryCode = "recovery_code"
	ResetModeEmail        = "email"
)

var (
	ErrRecoveryCodeNotFound = errors.New("recovery code not found")
	ErrInvalidResetToken    = errors.New("invalid reset token")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrEmailTaken           = errors.New("email already registered")
	ErrResetModeDisabled    = errors.New("password reset mode disabled")
	ErrResetDelivery        = errors.New("password reset delivery failed")
)

type AuthUserRepository interface {
	FindByID(ctx context.Context, userID uint) (models.User, error)
	FindByLogin(ctx context.Context, login string) (models.User, error)
	FindByNormalizedEmail(ctx context.Context, email string) (models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByNormalizedEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string, mustChangePassword bool) error
	ResetPassword(ctx context.Context, userID uint, passwordHash string, recoveryHash string) error
	UpdateRecoveryCodeHash(ctx context.Context, userID uint, recoveryHash string) error
	ListWithRecoveryCodeHash(ctx context.Context) ([]models.User, error)
}

// PasswordResetSender delivers reset links. Implemented by the mailer package.
type PasswordResetSender interface {
	SendPasswordReset(ctx context.Context, email string, resetLink string) error
}

type AuthOptions struct {
	SecretKey     []byte
	SessionTTL    time.Duration
	ResetTTL      time.Duration
	ResetMode     string
	PublicBaseURL string
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

type AuthService struct {
	users   AuthUserRepository
	sender  PasswordResetSender
	options AuthOptions
	now     func() time.Time
	logger  *slog.Logger
}

func NewAuthService(users AuthUserRepository, sender PasswordResetSender, options AuthOptions, now func() time.Time, logger *slog.Logger) *AuthService {
	if options.SessionTTL <= 0 {
		options.SessionTTL = DefaultSessionTTL
	}
	if options.ResetTTL <= 0 {
		options.ResetTTL = DefaultPasswordResetTTL
	}
	if options.ResetMode == "" {
		options.ResetMode = ResetModeRecoveryCode
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, sender: sender, options: options, now: now, logger: logger}
}

func (service *AuthService) ResetMode() string {
	return service.options.ResetMode
}

// Register creates an account and returns its one-time recovery code.
func (service *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, string, error) {
	username, err := NormalizeUsername(input.Username)
	if err != nil {
		return models.User{}, "", err
	}
	email := NormalizeAuthEmail(input.Email)
	if email == "" {
		return models.User{}, "", ErrInvalidEmail
	}
	password := strings.TrimSpace(input.Password)
	if password != strings.TrimSpace(input.ConfirmPassword) {
		return models.User{}, "", ErrPasswordMismatch
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return models.User{}, "", err
	}

	if err := service.ensureAvailable(ctx, username, email); err != nil {
		return models.User{}, "", err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, "", err
	}
	recoveryCode, recoveryHash, err := GenerateRecoveryCodeHash()
	if err != nil {
		return models.User{}, "", err
	}

	user := models.User{
		Username:         username,
		Email:            email,
		PasswordHash:     string(passwordHash),
		RecoveryCodeHash: recoveryHash,
		CreatedAt:        service.now().UTC(),
	}
	if err := service.users.Create(ctx, &user); err != nil {
		// A concurrent registration may have taken the name after the check.
		if availabilityErr := service.ensureAvailable(ctx, username, email); availabilityErr != nil {
			return models.User{}, "", availabilityErr
		}
		return models.User{}, "", err
	}

	service.authLogger(ctx, "register").Info("user registered", "user_id", user.ID)
	return user, recoveryCode, nil
}

func (service *AuthService) ensureAvailable(ctx context.Context, username string, email string) error {
	taken, err := service.users.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}
	taken, err = service.users.ExistsByNormalizedEmail(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

// Authenticate checks a username-or-email login and opens a session.
func (service *AuthService) Authenticate(ctx context.Context, loginRaw string, passwordRaw string) (Session, error) {
	login, password, err := NormalizeCredentialsInput(loginRaw, passwordRaw)
	if err != nil {
		return Session{}, err
	}

	user, err := service.users.FindByLogin(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrAuthCredentialsInvalid
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		service.authLogger(ctx, "login").Info("login rejected", "error_kind", "invalid_credentials")
		return Session{}, ErrAuthCredentialsInvalid
	}

	return service.IssueSession(user)
}

func (service *AuthService) IssueSession(user models.User) (Session, error) {
	token, expiresAt, err := BuildSessionToken(service.options.SecretKey, user.ID, user.Username, service.options.SessionTTL, service.now())
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// CurrentUser resolves the account behind a session token.
func (service *AuthService) CurrentUser(ctx context.Context, rawToken string) (models.User, error) {
	claims, err := ParseSessionToken(service.options.SecretKey, rawToken, service.now())
	if err != nil {
		return models.User{}, err
	}

	user, err := service.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUnauthenticated
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (service *AuthService) FindUserByRecoveryCode(ctx context.Context, code string) (*models.User, error) {
	users, err := service.users.ListWithRecoveryCodeHash(ctx)
	if err != nil {
		return nil, err
	}

	for index := range users {
		hash := strings.TrimSpace(users[index].RecoveryCodeHash)
		if hash == "" {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
			return &users[index], nil
		}
	}
	return nil, ErrRecoveryCodeNotFound
}

// StartRecoveryCodeReset trades a valid recovery code for a reset token.
func (service *AuthService) StartRecoveryCodeReset(ctx context.Context, rawCode string) (string, error) {
	if service.options.ResetMode != ResetModeRecoveryCode {
		return "", ErrResetModeDisabled
	}

	code := NormalizeRecoveryCode(rawCode)
	if err := ValidateRecoveryCodeFormat(code); err != nil {
		return "", err
	}
	user, err := service.FindUserByRecoveryCode(ctx, code)
	if errors.Is(err, ErrRecoveryCodeNotFound) {
		return "", ErrAuthRecoveryCodeInvalid
	}
	if err != nil {
		return "", err
	}
	return BuildPasswordResetToken(service.options.SecretKey, user.ID, user.PasswordHash, service.options.ResetTTL, service.now())
}

// RequestEmailReset mails a reset link when the address belongs to an
// account. Unknown addresses succeed silently.
func (service *AuthService) RequestEmailReset(ctx context.Context, rawEmail string) error {
	if service.options.ResetMode != ResetModeEmail {
		return ErrResetModeDisabled
	}

	email := NormalizeAuthEmail(rawEmail)
	if email == "" {
		return nil
	}
	user, err := service.users.FindByNormalizedEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := BuildPasswordResetToken(service.options.SecretKey, user.ID, user.PasswordHash, service.options.ResetTTL, service.now())
	if err != nil {
		return err
	}
	link, err := BuildResetLink(service.options.PublicBaseURL, token)
	if err != nil {
		return err
	}
	if service.sender == nil {
		return fmt.Errorf("%w: no sender configured", ErrResetDelivery)
	}
	if err := service.sender.SendPasswordReset(ctx, user.Email, link); err != nil {
		return fmt.Errorf("%w: %v", ErrResetDelivery, err)
	}

	service.authLogger(ctx, "forgot_password").Info("password reset link sent", "user_id", user.ID)
	return nil
}

func BuildResetLink(baseURL string, token string) (string, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/reset-password")
	if err != nil {
		return "", fmt.Errorf("build reset link: %w", err)
	}
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (service *AuthService) ResolveUserByResetToken(ctx context.Context, rawToken string) (models.User, error) {
	claims, err := ParsePasswordResetToken(service.options.SecretKey, rawToken, service.now())
	if err != nil {
		return models.User{}, ErrInvalidResetToken
	}

	user, err := service.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrInvalidResetToken
	}
	if err != nil {
		return models.User{}, err
	}
	if !IsPasswordStateFingerprintMatch(claims.PasswordState, user.PasswordHash) {
		return models.User{}, ErrInvalidResetToken
	}
	return user, nil
}

// ResetPassword sets a new password from a reset token and returns the
// rotated recovery code.
func (service *AuthService) ResetPassword(ctx context.Context, rawToken string, password string, confirm string) (string, error) {
	user, err := service.ResolveUserByResetToken(ctx, rawToken)
	if err != nil {
		return "", err
	}

	password = strings.TrimSpace(password)
	if password != strings.TrimSpace(confirm) {
		return "", ErrPasswordMismatch
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return "", err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	recoveryCode, recoveryHash, err := GenerateRecoveryCodeHash()
	if err != nil {
		return "", err
	}
	if err := service.users.ResetPassword(ctx, user.ID, string(passwordHash), recoveryHash); err != nil {
		return "", err
	}

	service.authLogger(ctx, "reset_password").Info("password reset", "user_id", user.ID)
	return recoveryCode, nil
}

func (service *AuthService) ChangePassword(ctx context.Context, userID uint, current string, next string, confirm string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := ValidatePasswordChange(user.PasswordHash, current, next, confirm); err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(next)), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := service.users.UpdatePassword(ctx, userID, string(passwordHash), false); err != nil {
		return err
	}

	service.authLogger(ctx, "change_password").Info("password changed", "user_id", userID)
	return nil
}

func (service *AuthService) RegenerateRecoveryCode(ctx context.Context, userID uint) (string, error) {
	recoveryCode, recoveryHash, err := GenerateRecoveryCodeHash()
	if err != nil {
		return "", err
	}
	if err := service.users.UpdateRecoveryCodeHash(ctx, userID, recoveryHash); err != nil {
		return "", err
	}
	return recoveryCode, nil
}

func (service *AuthService) authLogger(ctx context.Context, operation string) *slog.Logger {
	return logging.FromContext(ctx, service.logger).With("service", "auth", "operation", operation)
}
