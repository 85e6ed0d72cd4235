package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/roomdesk/internal/logging"
	"github.com/terraincognita07/roomdesk/internal/models"
	"github.com/terraincognita07/roomdesk/internal/services"
)

// RequestContext bounds each API request with the configured timeout and
// carries a request-scoped logger in the user context.
func (handler *Handler) RequestContext(c *fiber.Ctx) error {
	logger := handler.logger.With("method", c.Method(), "path", c.Path())
	if requestID, ok := c.Locals("requestid").(string); ok && requestID != "" {
		logger = logger.With("request_id", requestID)
	}

	ctx := logging.ContextWithLogger(c.UserContext(), logger)
	if handler.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, handler.requestTimeout)
		defer cancel()
	}
	c.SetUserContext(ctx)
	return c.Next()
}

func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	token := requestToken(c)
	if token == "" {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := handler.auth.CurrentUser(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, services.ErrUnauthenticated) {
			handler.clearAuthCookie(c)
			return apiError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		return handler.internalError(c, fmt.Errorf("resolve session: %w", err))
	}

	c.Locals(contextUserKey, &user)
	c.SetUserContext(logging.ContextWithLogger(c.UserContext(),
		logging.FromContext(c.UserContext(), handler.logger).With("user_id", user.ID)))
	return c.Next()
}

// PasswordCurrent blocks accounts whose password was reset by an operator
// until they pick their own.
func (handler *Handler) PasswordCurrent(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if user.MustChangePassword {
		return apiError(c, fiber.StatusForbidden, "password change required")
	}
	return c.Next()
}

func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(contextUserKey).(*models.User)
	return user, ok && user != nil
}

func currentIdentity(c *fiber.Ctx) models.UserIdentity {
	user, ok := currentUser(c)
	if !ok {
		return models.UserIdentity{}
	}
	return user.Identity()
}

func requestToken(c *fiber.Ctx) string {
	if header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	return strings.TrimSpace(c.Cookies(authCookieName))
}

// HasBearerToken reports whether the request authenticates with a header
// rather than the session cookie. Such requests skip CSRF checks.
func HasBearerToken(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.TrimSpace(c.Get(fiber.HeaderAuthorization)), bearerPrefix)
}
