package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)

	api := app.Group("/api", handler.RequestContext)

	auth := api.Group("/auth")
	auth.Get("/csrf", handler.CSRFToken)
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/forgot-password", handler.ForgotPassword)
	auth.Post("/reset-password", handler.ResetPassword)
	auth.Post("/logout", handler.Logout)
	auth.Get("/me", handler.AuthRequired, handler.Me)
	auth.Post("/change-password", handler.AuthRequired, handler.ChangePassword)
	auth.Post("/recovery-code", handler.AuthRequired, handler.RegenerateRecoveryCode)

	reservations := api.Group("/reservations", handler.AuthRequired, handler.PasswordCurrent)
	reservations.Get("", handler.ListReservations)
	reservations.Post("", handler.CreateReservation)
	reservations.Get("/:id", handler.GetReservation)
	reservations.Put("/:id", handler.EditReservation)
	reservations.Delete("/:id", handler.CancelReservation)

	rooms := api.Group("/rooms", handler.AuthRequired, handler.PasswordCurrent)
	rooms.Get("/available", handler.AvailableRooms)
	rooms.Get("/board", handler.RoomBoard)
}
