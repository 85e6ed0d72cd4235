package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/roomdesk/internal/services"
)

type createReservationRequest struct {
	Name      string `json:"name" form:"name"`
	Date      string `json:"date" form:"date"`
	StartTime string `json:"start_time" form:"start_time"`
	EndTime   string `json:"end_time" form:"end_time"`
}

type editReservationRequest struct {
	Name      *string `json:"name" form:"name"`
	Date      string  `json:"date" form:"date"`
	StartTime string  `json:"start_time" form:"start_time"`
	EndTime   string  `json:"end_time" form:"end_time"`
	Room      *int    `json:"room" form:"room"`
}

func (handler *Handler) CreateReservation(c *fiber.Ctx) error {
	var request createReservationRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	result, err := handler.reservations.Create(c.UserContext(), currentIdentity(c), services.CreateReservationInput{
		Name:      request.Name,
		Date:      request.Date,
		StartTime: request.StartTime,
		EndTime:   request.EndTime,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (handler *Handler) ListReservations(c *fiber.Ctx) error {
	result, err := handler.reservations.ListHistory(c.UserContext(), currentIdentity(c), services.HistoryFilterInput{
		Date:      c.Query("date"),
		StartTime: c.Query("start_time"),
		EndTime:   c.Query("end_time"),
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(result)
}

func (handler *Handler) GetReservation(c *fiber.Ctx) error {
	id, err := reservationIDParam(c)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	view, err := handler.reservations.Get(c.UserContext(), currentIdentity(c), id)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(view)
}

func (handler *Handler) EditReservation(c *fiber.Ctx) error {
	id, err := reservationIDParam(c)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	var request editReservationRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	view, err := handler.reservations.Edit(c.UserContext(), currentIdentity(c), id, services.EditReservationInput{
		Name:      request.Name,
		Date:      request.Date,
		StartTime: request.StartTime,
		EndTime:   request.EndTime,
		Room:      request.Room,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(view)
}

func (handler *Handler) CancelReservation(c *fiber.Ctx) error {
	id, err := reservationIDParam(c)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	if err := handler.reservations.Cancel(c.UserContext(), currentIdentity(c), id); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
