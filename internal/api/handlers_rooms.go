package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/roomdesk/internal/services"
)

func (handler *Handler) AvailableRooms(c *fiber.Ctx) error {
	excludeID := uint(0)
	if raw := c.Query("exclude_id"); raw != "" {
		id, err := parseUintQuery(raw)
		if err != nil {
			return handler.respondServiceError(c, err)
		}
		excludeID = id
	}

	rooms, err := handler.reservations.ListAvailableRooms(c.UserContext(), currentIdentity(c), services.AvailabilityInput{
		Date:      c.Query("date"),
		StartTime: c.Query("start_time"),
		EndTime:   c.Query("end_time"),
		ExcludeID: excludeID,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"rooms": rooms})
}

func (handler *Handler) RoomBoard(c *fiber.Ctx) error {
	board, err := handler.reservations.RoomBoard(c.UserContext(), c.Query("date"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(board)
}
