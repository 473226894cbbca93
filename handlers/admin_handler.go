package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SyncRunner is the sync operation as seen by the admin endpoints
type SyncRunner interface {
	RunSync(ctx context.Context) services.SyncSummary
	GetMetrics() shared.MetricsSnapshot
	LastSummary() (services.SyncSummary, time.Time, bool)
}

type AdminHandler struct {
	Syncer   SyncRunner
	Calendar *services.IPOCalendarService
	Location *time.Location

	// FetchMetrics is optional; when set its snapshot is included in the metrics response
	FetchMetrics *shared.HTTPMetrics
}

func NewAdminHandler(syncer SyncRunner, calendar *services.IPOCalendarService, location *time.Location) *AdminHandler {
	if location == nil {
		location = time.UTC
	}
	return &AdminHandler{
		Syncer:   syncer,
		Calendar: calendar,
		Location: location,
	}
}

// TriggerSync runs the calendar sync. It always answers 200; failures are listed in "errors".
func (h *AdminHandler) TriggerSync(c *fiber.Ctx) error {
	logrus.Info("Manual IPO calendar sync triggered via admin endpoint")

	summary := h.Syncer.RunSync(c.UserContext())
	return c.Status(fiber.StatusOK).JSON(summary)
}

// ipoCalendarPatchRequest is the JSON body of a manual edit. Dates use YYYY-MM-DD.
type ipoCalendarPatchRequest struct {
	Ticker            *string `json:"ticker"`
	SubscriptionStart *string `json:"subscription_start"`
	SubscriptionEnd   *string `json:"subscription_end"`
	ListingDate       *string `json:"listing_date"`
	PriceRangeLow     *int64  `json:"price_range_low"`
	PriceRangeHigh    *int64  `json:"price_range_high"`
	FinalPrice        *int64  `json:"final_price"`
	LeadUnderwriter   *string `json:"lead_underwriter"`
	Status            *string `json:"status"`
	UnlockStatus      bool    `json:"unlock_status"`
}

func (r ipoCalendarPatchRequest) toPatch(location *time.Location) (models.IPOCalendarPatch, error) {
	patch := models.IPOCalendarPatch{
		Ticker:          r.Ticker,
		PriceRangeLow:   r.PriceRangeLow,
		PriceRangeHigh:  r.PriceRangeHigh,
		FinalPrice:      r.FinalPrice,
		LeadUnderwriter: r.LeadUnderwriter,
		UnlockStatus:    r.UnlockStatus,
	}

	dates := []struct {
		name string
		raw  *string
		dst  **time.Time
	}{
		{"subscription_start", r.SubscriptionStart, &patch.SubscriptionStart},
		{"subscription_end", r.SubscriptionEnd, &patch.SubscriptionEnd},
		{"listing_date", r.ListingDate, &patch.ListingDate},
	}
	for _, d := range dates {
		if d.raw == nil {
			continue
		}
		t, err := time.ParseInLocation("2006-01-02", *d.raw, location)
		if err != nil {
			return patch, fmt.Errorf("%s must be YYYY-MM-DD", d.name)
		}
		*d.dst = &t
	}

	if r.Status != nil {
		status := models.IPOStatus(*r.Status)
		if !status.IsValid() {
			return patch, fmt.Errorf("unknown status %q", *r.Status)
		}
		patch.Status = &status
	}

	return patch, nil
}

// UpdateIPOCalendarEntry applies a manual edit. Setting status locks it against sync.
func (h *AdminHandler) UpdateIPOCalendarEntry(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid IPO id",
		})
	}

	var body ipoCalendarPatchRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	patch, err := body.toPatch(h.Location)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	record, err := h.Calendar.ApplyAdminPatch(c.UserContext(), id, patch)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// GetSyncMetrics returns run counters, per-source counters and the last summary
func (h *AdminHandler) GetSyncMetrics(c *fiber.Ctx) error {
	data := fiber.Map{
		"sync": h.Syncer.GetMetrics(),
	}
	if h.FetchMetrics != nil {
		data["fetch"] = h.FetchMetrics.GetSnapshot()
	}

	if summary, ranAt, ok := h.Syncer.LastSummary(); ok {
		data["last_run"] = fiber.Map{
			"at":      ranAt,
			"summary": summary,
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}
