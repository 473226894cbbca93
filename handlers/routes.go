package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports liveness. check, when set, probes the store.
func HealthCheck(check func() error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if check != nil {
			if err := check(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":    "degraded",
					"error":     err.Error(),
					"timestamp": time.Now().Unix(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	}
}

// AdminHandlers groups the handlers mounted behind AdminAuth
type AdminHandlers struct {
	Sync        *AdminHandler
	Cache       *CacheHandler
	Performance *PerformanceHandler
}

// RegisterRoutes mounts the calendar and admin routes under /api/v1.
// Cache and Performance are optional.
func RegisterRoutes(app *fiber.App, calendar *IPOCalendarHandler, admin AdminHandlers, adminToken string) {
	api := app.Group("/api/v1")

	api.Get("/ipo-calendar", calendar.GetCalendar)
	api.Get("/ipo-calendar/:id", calendar.GetCalendarEntry)

	adminGroup := api.Group("/admin", AdminAuth(adminToken))
	adminGroup.Post("/ipo-calendar/sync", admin.Sync.TriggerSync)
	adminGroup.Get("/ipo-calendar/metrics", admin.Sync.GetSyncMetrics)
	adminGroup.Patch("/ipo-calendar/:id", admin.Sync.UpdateIPOCalendarEntry)

	if admin.Cache != nil {
		adminGroup.Get("/cache/stats", admin.Cache.GetCacheStats)
		adminGroup.Delete("/cache", admin.Cache.ClearCalendarCache)
	}
	if admin.Performance != nil {
		adminGroup.Get("/performance", admin.Performance.GetPerformanceMetrics)
	}
}
