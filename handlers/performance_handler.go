package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/gofiber/fiber/v2"
)

// PerformanceHandler reports read-path timings and, when DB is set, Postgres pool and index statistics
type PerformanceHandler struct {
	DB       *sql.DB
	Calendar *services.IPOCalendarService
}

func NewPerformanceHandler(db *sql.DB, calendar *services.IPOCalendarService) *PerformanceHandler {
	return &PerformanceHandler{
		DB:       db,
		Calendar: calendar,
	}
}

// GetPerformanceMetrics times an uncached and a cached calendar read
func (h *PerformanceHandler) GetPerformanceMetrics(c *fiber.Ctx) error {
	ctx := c.UserContext()
	metrics := make(map[string]interface{})

	h.Calendar.InvalidateCache()

	start := time.Now()
	records, err := h.Calendar.List(ctx, "")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to list calendar: " + err.Error(),
		})
	}
	uncachedDuration := time.Since(start)

	start = time.Now()
	if _, err := h.Calendar.List(ctx, ""); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to list cached calendar: " + err.Error(),
		})
	}
	cachedDuration := time.Since(start)

	metrics["calendar_list"] = map[string]interface{}{
		"count":             len(records),
		"uncached_duration": uncachedDuration.String(),
		"cached_duration":   cachedDuration.String(),
		"cache_entries":     h.Calendar.CacheSize(),
	}

	if h.DB != nil {
		dbStats := h.DB.Stats()
		metrics["database_stats"] = map[string]interface{}{
			"open_connections":     dbStats.OpenConnections,
			"in_use":               dbStats.InUse,
			"idle":                 dbStats.Idle,
			"wait_count":           dbStats.WaitCount,
			"wait_duration_ms":     dbStats.WaitDuration.Milliseconds(),
			"max_idle_closed":      dbStats.MaxIdleClosed,
			"max_idle_time_closed": dbStats.MaxIdleTimeClosed,
			"max_lifetime_closed":  dbStats.MaxLifetimeClosed,
		}

		indexStats, err := h.getIndexUsageStats(ctx)
		if err != nil {
			metrics["index_stats_error"] = err.Error()
		} else {
			metrics["index_stats"] = indexStats
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    metrics,
	})
}

// getIndexUsageStats retrieves usage statistics for the calendar table's indexes
func (h *PerformanceHandler) getIndexUsageStats(ctx context.Context) ([]map[string]interface{}, error) {
	query := `
		SELECT
			indexrelname AS index_name,
			idx_scan AS scans,
			idx_tup_read AS tuples_read,
			idx_tup_fetch AS tuples_fetched
		FROM pg_stat_user_indexes
		WHERE relname = 'ipo_calendar'
		ORDER BY idx_scan DESC
	`

	rows, err := h.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []map[string]interface{}{}
	for rows.Next() {
		var index string
		var scans, tuplesRead, tuplesFetched int64

		if err := rows.Scan(&index, &scans, &tuplesRead, &tuplesFetched); err != nil {
			return nil, err
		}

		stats = append(stats, map[string]interface{}{
			"index":          index,
			"scans":          scans,
			"tuples_read":    tuplesRead,
			"tuples_fetched": tuplesFetched,
		})
	}

	return stats, rows.Err()
}
