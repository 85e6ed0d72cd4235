package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/roomdesk/internal/logging"
	"github.com/terraincognita07/roomdesk/internal/services"
)

var errInvalidID = errors.New("invalid reservation id")

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) CSRFToken(c *fiber.Ctx) error {
	token, _ := c.Locals("csrf").(string)
	return c.JSON(fiber.Map{"csrf_token": token})
}

type errorStatus struct {
	err    error
	status int
}

// Order matters: a joined conflict error also matches its cause.
var serviceErrorStatuses = []errorStatus{
	{services.ErrReservationConflict, fiber.StatusConflict},
	{services.ErrInvalidFormat, fiber.StatusBadRequest},
	{services.ErrInvalidInterval, fiber.StatusBadRequest},
	{services.ErrPastDateTime, fiber.StatusBadRequest},
	{services.ErrInvalidName, fiber.StatusBadRequest},
	{services.ErrInvalidRoom, fiber.StatusBadRequest},
	{errInvalidID, fiber.StatusBadRequest},
	{services.ErrInvalidUsername, fiber.StatusBadRequest},
	{services.ErrInvalidEmail, fiber.StatusBadRequest},
	{services.ErrPasswordMismatch, fiber.StatusBadRequest},
	{services.ErrWeakPassword, fiber.StatusBadRequest},
	{services.ErrPasswordTooLong, fiber.StatusBadRequest},
	{services.ErrPasswordChangeInvalidInput, fiber.StatusBadRequest},
	{services.ErrNewPasswordMustDiffer, fiber.StatusBadRequest},
	{services.ErrInvalidCurrentPassword, fiber.StatusBadRequest},
	{services.ErrAuthRecoveryCodeInvalid, fiber.StatusBadRequest},
	{services.ErrInvalidResetToken, fiber.StatusBadRequest},
	{services.ErrAuthCredentialsInvalid, fiber.StatusUnauthorized},
	{services.ErrUnauthenticated, fiber.StatusUnauthorized},
	{services.ErrReservationNotFound, fiber.StatusNotFound},
	{services.ErrResetModeDisabled, fiber.StatusNotFound},
	{services.ErrNoRoomAvailable, fiber.StatusConflict},
	{services.ErrRoomUnavailable, fiber.StatusConflict},
	{services.ErrReservationEnded, fiber.StatusConflict},
	{services.ErrUsernameTaken, fiber.StatusConflict},
	{services.ErrEmailTaken, fiber.StatusConflict},
	{services.ErrResetDelivery, fiber.StatusBadGateway},
}

// respondServiceError maps service sentinels onto HTTP statuses. Clients see
// the sentinel text only, never the wrapped cause.
func (handler *Handler) respondServiceError(c *fiber.Ctx, err error) error {
	for _, candidate := range serviceErrorStatuses {
		if !errors.Is(err, candidate.err) {
			continue
		}
		switch candidate.status {
		case fiber.StatusConflict:
			if errors.Is(err, services.ErrReservationConflict) {
				c.Set(fiber.HeaderRetryAfter, conflictBackoff)
			}
		case fiber.StatusBadGateway:
			handler.logError(c, err)
		}
		return apiError(c, candidate.status, candidate.err.Error())
	}
	return handler.internalError(c, err)
}

func (handler *Handler) internalError(c *fiber.Ctx, err error) error {
	handler.logError(c, err)
	return apiError(c, fiber.StatusInternalServerError, "internal error")
}

func (handler *Handler) logError(c *fiber.Ctx, err error) {
	logging.FromContext(c.UserContext(), handler.logger).Error("request failed",
		"error", err,
		"error_kind", services.ErrorKind(err),
	)
}

func reservationIDParam(c *fiber.Ctx) (uint, error) {
	return parseUintQuery(c.Params("id"))
}

func parseUintQuery(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

func (handler *Handler) setAuthCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
	})
}

func (handler *Handler) clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
	})
}
