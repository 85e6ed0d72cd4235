package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/terraincognita07/roomdesk/internal/services"
)

const (
	authCookieName  = "roomdesk_auth"
	contextUserKey  = "current_user"
	bearerPrefix    = "Bearer "
	limiterWindow   = 15 * time.Minute
	loginLimit      = 10
	recoveryLimit   = 8
	conflictBackoff = "1"
)

type Options struct {
	CookieSecure   bool
	RequestTimeout time.Duration
	Logger         *slog.Logger
	Now            func() time.Time
}

type Handler struct {
	auth            *services.AuthService
	reservations    *services.ReservationService
	cookieSecure    bool
	requestTimeout  time.Duration
	logger          *slog.Logger
	now             func() time.Time
	loginLimiter    *attemptLimiter
	recoveryLimiter *attemptLimiter
}

func NewHandler(auth *services.AuthService, reservations *services.ReservationService, options Options) (*Handler, error) {
	if auth == nil {
		return nil, errors.New("auth service is required")
	}
	if reservations == nil {
		return nil, errors.New("reservation service is required")
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Handler{
		auth:            auth,
		reservations:    reservations,
		cookieSecure:    options.CookieSecure,
		requestTimeout:  options.RequestTimeout,
		logger:          options.Logger,
		now:             options.Now,
		loginLimiter:    newAttemptLimiter(loginLimit, limiterWindow),
		recoveryLimiter: newAttemptLimiter(recoveryLimit, limiterWindow),
	}, nil
}
