package handlers

import (
	"errors"

	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPOCalendarHandler struct {
	Service *services.IPOCalendarService
}

func NewIPOCalendarHandler(service *services.IPOCalendarService) *IPOCalendarHandler {
	return &IPOCalendarHandler{Service: service}
}

func (h *IPOCalendarHandler) GetCalendar(c *fiber.Ctx) error {
	status, err := services.ParseStatusFilter(c.Query("status", "all"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	records, err := h.Service.List(c.UserContext(), status)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

func (h *IPOCalendarHandler) GetCalendarEntry(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid IPO id",
		})
	}

	record, err := h.Service.GetByID(c.UserContext(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// errorResponse maps service errors onto status codes
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrIPONotFound):
		status = fiber.StatusNotFound
	case shared.ErrorCategoryOf(err) == shared.ErrorCategoryValidation:
		status = fiber.StatusBadRequest
	default:
		var serviceErr *shared.ServiceError
		if errors.As(err, &serviceErr) {
			serviceErr.LogError()
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
