package services

import (
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/sirupsen/logrus"
)

// IPOAuditLogger writes one structured entry per calendar write
type IPOAuditLogger struct {
	serviceName string
}

// NewIPOAuditLogger creates a new audit logger
func NewIPOAuditLogger() *IPOAuditLogger {
	return &IPOAuditLogger{
		serviceName: "ipo-calendar",
	}
}

// AuditEntry represents a single audit log entry
type AuditEntry struct {
	Timestamp   time.Time              `json:"timestamp"`
	ServiceName string                 `json:"service_name"`
	Operation   string                 `json:"operation"`
	EntityID    string                 `json:"entity_id"`
	Actor       string                 `json:"actor"`
	Changes     map[string]interface{} `json:"changes,omitempty"`
	Success     bool                   `json:"success"`
	ErrorMsg    *string                `json:"error_msg,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// LogCreation logs the creation of a calendar entry
func (a *IPOAuditLogger) LogCreation(companyName string, created *models.IPORecord, actor string, err error) {
	entry := AuditEntry{
		Timestamp:   time.Now(),
		ServiceName: a.serviceName,
		Operation:   "CREATE",
		Actor:       actor,
		Success:     err == nil,
		ErrorMsg:    errorMessage(err),
		Metadata: map[string]interface{}{
			"company_name": companyName,
		},
	}
	if created != nil {
		entry.EntityID = created.ID.String()
		entry.Metadata["status"] = created.Status
	}

	a.logAuditEntry(entry)
}

// LogUpdate logs an update with the fields that changed
func (a *IPOAuditLogger) LogUpdate(before *models.IPORecord, after models.IPOFields, actor string, err error) {
	changes := calculateIPOChanges(before.Fields(), after)

	entry := AuditEntry{
		Timestamp:   time.Now(),
		ServiceName: a.serviceName,
		Operation:   "UPDATE",
		EntityID:    before.ID.String(),
		Actor:       actor,
		Changes:     changes,
		Success:     err == nil,
		ErrorMsg:    errorMessage(err),
		Metadata: map[string]interface{}{
			"company_name":  before.CompanyName,
			"status":        after.Status,
			"changes_count": len(changes),
		},
	}

	a.logAuditEntry(entry)
}

// LogBatchOperation logs a reconciliation pass with summary statistics
func (a *IPOAuditLogger) LogBatchOperation(operation string, added, updated int, errors []string) {
	total := added + updated + len(errors)
	entry := AuditEntry{
		Timestamp:   time.Now(),
		ServiceName: a.serviceName,
		Operation:   "BATCH_" + operation,
		EntityID:    "BATCH",
		Actor:       "sync",
		Success:     len(errors) == 0,
		Metadata: map[string]interface{}{
			"total_count":   total,
			"added_count":   added,
			"updated_count": updated,
			"failure_count": len(errors),
		},
	}

	if len(errors) > 0 {
		errorSummary := fmt.Sprintf("Batch operation had %d failures out of %d total operations", len(errors), total)
		entry.ErrorMsg = &errorSummary
	}

	a.logAuditEntry(entry)
}

func calculateIPOChanges(before, after models.IPOFields) map[string]interface{} {
	changes := make(map[string]interface{})

	if !sameDate(before.SubscriptionStart, after.SubscriptionStart) {
		changes["subscription_start"] = map[string]interface{}{"from": before.SubscriptionStart, "to": after.SubscriptionStart}
	}
	if !sameDate(before.SubscriptionEnd, after.SubscriptionEnd) {
		changes["subscription_end"] = map[string]interface{}{"from": before.SubscriptionEnd, "to": after.SubscriptionEnd}
	}
	if !sameDate(before.ListingDate, after.ListingDate) {
		changes["listing_date"] = map[string]interface{}{"from": before.ListingDate, "to": after.ListingDate}
	}
	if !sameInt(before.PriceRangeLow, after.PriceRangeLow) {
		changes["price_range_low"] = map[string]interface{}{"from": before.PriceRangeLow, "to": after.PriceRangeLow}
	}
	if !sameInt(before.PriceRangeHigh, after.PriceRangeHigh) {
		changes["price_range_high"] = map[string]interface{}{"from": before.PriceRangeHigh, "to": after.PriceRangeHigh}
	}
	if !sameInt(before.FinalPrice, after.FinalPrice) {
		changes["final_price"] = map[string]interface{}{"from": before.FinalPrice, "to": after.FinalPrice}
	}
	if !sameString(before.LeadUnderwriter, after.LeadUnderwriter) {
		changes["lead_underwriter"] = map[string]interface{}{"from": before.LeadUnderwriter, "to": after.LeadUnderwriter}
	}
	if !sameString(before.Ticker, after.Ticker) {
		changes["ticker"] = map[string]interface{}{"from": before.Ticker, "to": after.Ticker}
	}
	if before.Status != after.Status {
		changes["status"] = map[string]interface{}{"from": before.Status, "to": after.Status}
	}
	if before.StatusLocked != after.StatusLocked {
		changes["status_locked"] = map[string]interface{}{"from": before.StatusLocked, "to": after.StatusLocked}
	}

	return changes
}

func (a *IPOAuditLogger) logAuditEntry(entry AuditEntry) {
	logFields := logrus.Fields{
		"component":       "IPOAuditLogger",
		"audit_timestamp": entry.Timestamp,
		"service_name":    entry.ServiceName,
		"operation":       entry.Operation,
		"entity_id":       entry.EntityID,
		"actor":           entry.Actor,
		"success":         entry.Success,
	}

	if entry.ErrorMsg != nil {
		logFields["error_msg"] = *entry.ErrorMsg
	}

	if len(entry.Changes) > 0 {
		logFields["changes"] = entry.Changes
	}

	for key, value := range entry.Metadata {
		logFields["meta_"+key] = value
	}

	if entry.Success {
		logrus.WithFields(logFields).Info("Audit log entry")
	} else {
		logrus.WithFields(logFields).Warn("Audit log entry - operation failed")
	}
}

func errorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return dayOf(*a).Equal(dayOf(*b))
}

func sameInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
