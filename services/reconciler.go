package services

import (
	"context"
	"fmt"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/sirupsen/logrus"
)

// StatusOwnership decides whether a status set by an administrator survives a sync run
type StatusOwnership string

const (
	// StatusOwnershipSync always writes the status derived during sync
	StatusOwnershipSync StatusOwnership = "sync"

	// StatusOwnershipAdminLock keeps the stored status of entries an administrator locked
	StatusOwnershipAdminLock StatusOwnership = "admin-lock"
)

// ParseStatusOwnership returns the ownership mode for name, defaulting to StatusOwnershipAdminLock
func ParseStatusOwnership(name string) StatusOwnership {
	if StatusOwnership(name) == StatusOwnershipSync {
		return StatusOwnershipSync
	}
	return StatusOwnershipAdminLock
}

// ReconcileResult counts the writes of one reconciliation pass.
// Errors holds one message per record that could not be written.
type ReconcileResult struct {
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// Reconciler applies a merged set of scraped records to the store.
// A failing record is reported in the result and never stops the pass.
type Reconciler struct {
	store       IPOStore
	ownership   StatusOwnership
	auditLogger *IPOAuditLogger
}

func NewReconciler(store IPOStore, ownership StatusOwnership) *Reconciler {
	return &Reconciler{
		store:       store,
		ownership:   ownership,
		auditLogger: NewIPOAuditLogger(),
	}
}

// Reconcile looks up each record by company name, updating the existing entry or creating a new one.
// Records are processed in company-name order.
func (r *Reconciler) Reconcile(ctx context.Context, merged map[string]models.ScrapedRecord) ReconcileResult {
	logger := logrus.WithFields(logrus.Fields{
		"component": "Reconciler",
		"records":   len(merged),
	})

	result := ReconcileResult{Errors: []string{}}

	for _, name := range SortedCompanyNames(merged) {
		rec := merged[name]

		created, err := r.reconcileRecord(ctx, rec)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"company_name": rec.CompanyName,
				"source":       rec.Source,
				"error":        err,
			}).Error("Failed to reconcile IPO calendar record")
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		if created {
			result.Added++
		} else {
			result.Updated++
		}
	}

	r.auditLogger.LogBatchOperation("RECONCILE", result.Added, result.Updated, result.Errors)
	return result
}

// reconcileRecord returns created=true when a new entry was written.
// A panic inside the store is turned into an error for this record only.
func (r *Reconciler) reconcileRecord(ctx context.Context, rec models.ScrapedRecord) (created bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: unexpected error: %v", rec.CompanyName, p)
		}
	}()

	existing, err := r.store.FindByCompanyName(ctx, rec.CompanyName)
	if err != nil {
		return false, fmt.Errorf("%s: lookup failed: %w", rec.CompanyName, err)
	}

	if existing == nil {
		fields := fieldsFromScraped(rec)
		entity, err := r.store.Create(ctx, fields)
		r.auditLogger.LogCreation(rec.CompanyName, entity, "sync", err)
		if err != nil {
			return false, fmt.Errorf("%s: create failed: %w", rec.CompanyName, err)
		}
		return true, nil
	}

	fields := r.mergeIntoExisting(existing, rec)
	_, err = r.store.Update(ctx, existing.ID, fields)
	r.auditLogger.LogUpdate(existing, fields, "sync", err)
	if err != nil {
		return false, fmt.Errorf("%s: update failed: %w", rec.CompanyName, err)
	}
	return false, nil
}

// mergeIntoExisting overlays the scraped values onto the stored entry.
// Unset scraped fields keep the stored value, LISTED is never demoted,
// and a locked status is kept under StatusOwnershipAdminLock.
func (r *Reconciler) mergeIntoExisting(existing *models.IPORecord, rec models.ScrapedRecord) models.IPOFields {
	fields := existing.Fields()

	if rec.SubscriptionStart != nil {
		fields.SubscriptionStart = rec.SubscriptionStart
	}
	if rec.SubscriptionEnd != nil {
		fields.SubscriptionEnd = rec.SubscriptionEnd
	}
	if rec.ListingDate != nil {
		fields.ListingDate = rec.ListingDate
	}
	if rec.PriceRangeLow != nil {
		fields.PriceRangeLow = rec.PriceRangeLow
	}
	if rec.PriceRangeHigh != nil {
		fields.PriceRangeHigh = rec.PriceRangeHigh
	}
	if rec.FinalPrice != nil {
		fields.FinalPrice = rec.FinalPrice
	}
	if rec.LeadUnderwriter != nil {
		fields.LeadUnderwriter = rec.LeadUnderwriter
	}

	switch {
	case existing.Status == models.IPOStatusListed:
	case r.ownership == StatusOwnershipAdminLock && existing.StatusLocked:
	case rec.Status.IsValid():
		fields.Status = rec.Status
	}

	return fields
}

func fieldsFromScraped(rec models.ScrapedRecord) models.IPOFields {
	status := rec.Status
	if !status.IsValid() {
		status = models.IPOStatusUpcoming
	}

	return models.IPOFields{
		CompanyName:       rec.CompanyName,
		SubscriptionStart: rec.SubscriptionStart,
		SubscriptionEnd:   rec.SubscriptionEnd,
		ListingDate:       rec.ListingDate,
		PriceRangeLow:     rec.PriceRangeLow,
		PriceRangeHigh:    rec.PriceRangeHigh,
		FinalPrice:        rec.FinalPrice,
		LeadUnderwriter:   rec.LeadUnderwriter,
		Status:            status,
	}
}
