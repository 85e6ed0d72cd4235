package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/roomdesk/internal/services"
)

type forgotPasswordRequest struct {
	RecoveryCode string `json:"recovery_code" form:"recovery_code"`
	Email        string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" form:"token"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// ForgotPassword starts a reset. With recovery codes the reset token is
// returned directly; in email mode the link is mailed and the response never
// reveals whether the address exists.
func (handler *Handler) ForgotPassword(c *fiber.Ctx) error {
	var request forgotPasswordRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	if handler.auth.ResetMode() == services.ResetModeEmail {
		if err := handler.auth.RequestEmailReset(c.UserContext(), request.Email); err != nil {
			return handler.respondServiceError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
	}

	key := clientKey(c)
	now := handler.now()
	if handler.recoveryLimiter.blocked(key, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too many recovery attempts")
	}

	token, err := handler.auth.StartRecoveryCodeReset(c.UserContext(), request.RecoveryCode)
	if err != nil {
		if errors.Is(err, services.ErrAuthRecoveryCodeInvalid) {
			handler.recoveryLimiter.fail(key, now)
		}
		return handler.respondServiceError(c, err)
	}
	handler.recoveryLimiter.reset(key)
	return c.JSON(fiber.Map{"reset_token": token})
}

func (handler *Handler) ResetPassword(c *fiber.Ctx) error {
	var request resetPasswordRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if request.Token == "" {
		request.Token = c.Query("token")
	}

	recoveryCode, err := handler.auth.ResetPassword(c.UserContext(), request.Token, request.Password, request.ConfirmPassword)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true, "recovery_code": recoveryCode})
}
