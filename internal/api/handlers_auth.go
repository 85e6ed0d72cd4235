package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/roomdesk/internal/models"
	"github.com/terraincognita07/roomdesk/internal/services"
)

type registerRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type loginRequest struct {
	Login    string `json:"login" form:"login"`
	Password string `json:"password" form:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type userView struct {
	ID                 uint   `json:"id"`
	Username           string `json:"username"`
	Email              string `json:"email"`
	MustChangePassword bool   `json:"must_change_password"`
}

type sessionView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

type registerView struct {
	User         userView `json:"user"`
	RecoveryCode string   `json:"recovery_code"`
}

func newUserView(user models.User) userView {
	return userView{
		ID:                 user.ID,
		Username:           user.Username,
		Email:              user.Email,
		MustChangePassword: user.MustChangePassword,
	}
}

func (handler *Handler) Register(c *fiber.Ctx) error {
	var request registerRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	user, recoveryCode, err := handler.auth.Register(c.UserContext(), services.RegisterInput{
		Username:        request.Username,
		Email:           request.Email,
		Password:        request.Password,
		ConfirmPassword: request.ConfirmPassword,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	session, err := handler.auth.IssueSession(user)
	if err != nil {
		return handler.internalError(c, err)
	}
	handler.setAuthCookie(c, session.Token, session.ExpiresAt)

	return c.Status(fiber.StatusCreated).JSON(registerView{User: newUserView(user), RecoveryCode: recoveryCode})
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	key := clientKey(c)
	now := handler.now()
	if handler.loginLimiter.blocked(key, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too many login attempts")
	}

	var request loginRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	session, err := handler.auth.Authenticate(c.UserContext(), request.Login, request.Password)
	if err != nil {
		if errors.Is(err, services.ErrAuthCredentialsInvalid) {
			handler.loginLimiter.fail(key, now)
		}
		return handler.respondServiceError(c, err)
	}
	handler.loginLimiter.reset(key)
	handler.setAuthCookie(c, session.Token, session.ExpiresAt)

	return c.JSON(sessionView{Token: session.Token, ExpiresAt: session.ExpiresAt, User: newUserView(session.User)})
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	handler.clearAuthCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) Me(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(newUserView(*user))
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var request changePasswordRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if err := handler.auth.ChangePassword(c.UserContext(), user.ID, request.CurrentPassword, request.NewPassword, request.ConfirmPassword); err != nil {
		return handler.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) RegenerateRecoveryCode(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	recoveryCode, err := handler.auth.RegenerateRecoveryCode(c.UserContext(), user.ID)
	if err != nil {
		return handler.internalError(c, err)
	}
	return c.JSON(fiber.Map{"recovery_code": recoveryCode})
}
