package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const calendarCachePrefix = "ipo_calendar:"

// IPOCalendarService serves the calendar read API and manual admin edits
type IPOCalendarService struct {
	store       IPOCalendarStore
	cache       *CacheService
	auditLogger *IPOAuditLogger
}

func NewIPOCalendarService(store IPOCalendarStore, cache *CacheService) *IPOCalendarService {
	return &IPOCalendarService{
		store:       store,
		cache:       cache,
		auditLogger: NewIPOAuditLogger(),
	}
}

// ParseStatusFilter turns a query value into a status filter. "" and "all" select every entry.
func ParseStatusFilter(raw string) (models.IPOStatus, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" || value == "ALL" {
		return "", nil
	}

	status := models.IPOStatus(value)
	if !status.IsValid() {
		return "", shared.NewServiceError(
			shared.ErrorCategoryValidation,
			"INVALID_STATUS",
			fmt.Sprintf("unknown status %q", raw),
			"IPOCalendarService",
			"List",
			false,
			nil,
		)
	}
	return status, nil
}

// List returns calendar entries with the given status, or all entries for an empty status
func (s *IPOCalendarService) List(ctx context.Context, status models.IPOStatus) ([]models.IPORecord, error) {
	cacheKey := calendarCachePrefix + string(status)

	if cached, found := s.cache.Get(cacheKey); found {
		if records, ok := cached.([]models.IPORecord); ok {
			return records, nil
		}
	}

	records, err := s.store.List(ctx, status)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "LIST_FAILED", "IPOCalendarService", "List", shared.IsRetryableError(err))
	}

	s.cache.Set(cacheKey, records)
	return records, nil
}

// GetByID returns one calendar entry or ErrIPONotFound
func (s *IPOCalendarService) GetByID(ctx context.Context, id uuid.UUID) (*models.IPORecord, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "GET_FAILED", "IPOCalendarService", "GetByID", shared.IsRetryableError(err))
	}
	if record == nil {
		return nil, ErrIPONotFound
	}
	return record, nil
}

// ApplyAdminPatch applies a manual edit. Setting a status locks it against later syncs;
// UnlockStatus hands the status back to sync.
func (s *IPOCalendarService) ApplyAdminPatch(ctx context.Context, id uuid.UUID, patch models.IPOCalendarPatch) (*models.IPORecord, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := existing.Fields()
	if patch.Ticker != nil {
		fields.Ticker = patch.Ticker
	}
	if patch.SubscriptionStart != nil {
		fields.SubscriptionStart = patch.SubscriptionStart
	}
	if patch.SubscriptionEnd != nil {
		fields.SubscriptionEnd = patch.SubscriptionEnd
	}
	if patch.ListingDate != nil {
		fields.ListingDate = patch.ListingDate
	}
	if patch.PriceRangeLow != nil {
		fields.PriceRangeLow = patch.PriceRangeLow
	}
	if patch.PriceRangeHigh != nil {
		fields.PriceRangeHigh = patch.PriceRangeHigh
	}
	if patch.FinalPrice != nil {
		fields.FinalPrice = patch.FinalPrice
	}
	if patch.LeadUnderwriter != nil {
		fields.LeadUnderwriter = patch.LeadUnderwriter
	}
	if patch.UnlockStatus {
		fields.StatusLocked = false
	}
	if patch.Status != nil {
		fields.Status = *patch.Status
		fields.StatusLocked = true
	}

	if err := validateFields(fields); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, id, fields)
	s.auditLogger.LogUpdate(existing, fields, "admin", err)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "UPDATE_FAILED", "IPOCalendarService", "ApplyAdminPatch", shared.IsRetryableError(err))
	}

	s.InvalidateCache()
	return updated, nil
}

// InvalidateCache drops every cached list and returns how many were removed
func (s *IPOCalendarService) InvalidateCache() int {
	removed := s.cache.DeletePrefix(calendarCachePrefix)
	logrus.WithFields(logrus.Fields{
		"component": "IPOCalendarService",
		"removed":   removed,
	}).Debug("Calendar cache invalidated")
	return removed
}

// CacheSize returns the number of cached entries
func (s *IPOCalendarService) CacheSize() int {
	return s.cache.Size()
}

func validateFields(fields models.IPOFields) error {
	var problems []string

	if !fields.Status.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", fields.Status))
	}
	if fields.SubscriptionStart != nil && fields.SubscriptionEnd != nil &&
		fields.SubscriptionEnd.Before(*fields.SubscriptionStart) {
		problems = append(problems, "subscription_end is before subscription_start")
	}
	if fields.PriceRangeLow != nil && fields.PriceRangeHigh != nil &&
		*fields.PriceRangeHigh < *fields.PriceRangeLow {
		problems = append(problems, "price_range_high is below price_range_low")
	}
	prices := []struct {
		name  string
		value *int64
	}{
		{"price_range_low", fields.PriceRangeLow},
		{"price_range_high", fields.PriceRangeHigh},
		{"final_price", fields.FinalPrice},
	}
	for _, p := range prices {
		if p.value != nil && *p.value < 0 {
			problems = append(problems, p.name+" is negative")
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return shared.NewServiceError(
		shared.ErrorCategoryValidation,
		"INVALID_PATCH",
		strings.Join(problems, "; "),
		"IPOCalendarService",
		"ApplyAdminPatch",
		false,
		nil,
	)
}
