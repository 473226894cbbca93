package handlers

import (
	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type CacheHandler struct {
	Calendar *services.IPOCalendarService
}

func NewCacheHandler(calendar *services.IPOCalendarService) *CacheHandler {
	return &CacheHandler{Calendar: calendar}
}

func (h *CacheHandler) GetCacheStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"entries": h.Calendar.CacheSize(),
		},
	})
}

// ClearCalendarCache drops the cached calendar lists so the next read hits the store
func (h *CacheHandler) ClearCalendarCache(c *fiber.Ctx) error {
	removed := h.Calendar.InvalidateCache()
	logrus.WithField("removed", removed).Info("Calendar cache cleared via admin endpoint")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Calendar cache cleared",
		"removed": removed,
	})
}
