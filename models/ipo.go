package models

import (
	"time"

	"github.com/google/uuid"
)

// IPOStatus is the lifecycle state of a public offering on the calendar
type IPOStatus string

const (
	IPOStatusUpcoming     IPOStatus = "UPCOMING"
	IPOStatusSubscription IPOStatus = "SUBSCRIPTION"
	IPOStatusCompleted    IPOStatus = "COMPLETED"
	IPOStatusListed       IPOStatus = "LISTED"
)

// AllIPOStatuses lists the lifecycle states in timeline order
var AllIPOStatuses = []IPOStatus{
	IPOStatusUpcoming,
	IPOStatusSubscription,
	IPOStatusCompleted,
	IPOStatusListed,
}

// IsValid reports whether s is one of the four lifecycle states
func (s IPOStatus) IsValid() bool {
	for _, known := range AllIPOStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ScrapedRecord is one offering as reported by a single source during a sync run.
// It is never persisted directly.
type ScrapedRecord struct {
	CompanyName       string     `json:"company_name"`
	SubscriptionStart *time.Time `json:"subscription_start,omitempty"`
	SubscriptionEnd   *time.Time `json:"subscription_end,omitempty"`
	ListingDate       *time.Time `json:"listing_date,omitempty"`
	PriceRangeLow     *int64     `json:"price_range_low,omitempty"`
	PriceRangeHigh    *int64     `json:"price_range_high,omitempty"`
	FinalPrice        *int64     `json:"final_price,omitempty"`
	LeadUnderwriter   *string    `json:"lead_underwriter,omitempty"`
	Status            IPOStatus  `json:"status"`

	// Source names the adapter that produced the record
	Source string `json:"source"`

	// StatusDerivedAt is the "today" Status was classified from the dates against.
	// Zero when Status came from a keyword.
	StatusDerivedAt time.Time `json:"-"`
}

type IPORecord struct {
	// Primary identification
	ID          uuid.UUID `json:"id"`
	CompanyName string    `json:"company_name"`
	Ticker      *string   `json:"ticker"`

	// Calendar
	SubscriptionStart *time.Time `json:"subscription_start"`
	SubscriptionEnd   *time.Time `json:"subscription_end"`
	ListingDate       *time.Time `json:"listing_date"`

	// Pricing, in whole won
	PriceRangeLow  *int64 `json:"price_range_low"`
	PriceRangeHigh *int64 `json:"price_range_high"`
	FinalPrice     *int64 `json:"final_price"`

	LeadUnderwriter *string   `json:"lead_underwriter"`
	Status          IPOStatus `json:"status"`
	StatusLocked    bool      `json:"status_locked"`

	// Audit fields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IPOFields carries the writable columns of an IPORecord for create and update calls
type IPOFields struct {
	CompanyName       string
	Ticker            *string
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
	ListingDate       *time.Time
	PriceRangeLow     *int64
	PriceRangeHigh    *int64
	FinalPrice        *int64
	LeadUnderwriter   *string
	Status            IPOStatus
	StatusLocked      bool
}

// Fields returns the writable columns of the record
func (r *IPORecord) Fields() IPOFields {
	return IPOFields{
		CompanyName:       r.CompanyName,
		Ticker:            r.Ticker,
		SubscriptionStart: r.SubscriptionStart,
		SubscriptionEnd:   r.SubscriptionEnd,
		ListingDate:       r.ListingDate,
		PriceRangeLow:     r.PriceRangeLow,
		PriceRangeHigh:    r.PriceRangeHigh,
		FinalPrice:        r.FinalPrice,
		LeadUnderwriter:   r.LeadUnderwriter,
		Status:            r.Status,
		StatusLocked:      r.StatusLocked,
	}
}

// ApplyFields overwrites every writable column of the record
func (r *IPORecord) ApplyFields(f IPOFields) {
	r.CompanyName = f.CompanyName
	r.Ticker = f.Ticker
	r.SubscriptionStart = f.SubscriptionStart
	r.SubscriptionEnd = f.SubscriptionEnd
	r.ListingDate = f.ListingDate
	r.PriceRangeLow = f.PriceRangeLow
	r.PriceRangeHigh = f.PriceRangeHigh
	r.FinalPrice = f.FinalPrice
	r.LeadUnderwriter = f.LeadUnderwriter
	r.Status = f.Status
	r.StatusLocked = f.StatusLocked
}

// IPOCalendarPatch is the body of a manual admin edit. Nil fields are left unchanged.
type IPOCalendarPatch struct {
	Ticker            *string    `json:"ticker"`
	SubscriptionStart *time.Time `json:"subscription_start"`
	SubscriptionEnd   *time.Time `json:"subscription_end"`
	ListingDate       *time.Time `json:"listing_date"`
	PriceRangeLow     *int64     `json:"price_range_low"`
	PriceRangeHigh    *int64     `json:"price_range_high"`
	FinalPrice        *int64     `json:"final_price"`
	LeadUnderwriter   *string    `json:"lead_underwriter"`
	Status            *IPOStatus `json:"status"`
	UnlockStatus      bool       `json:"unlock_status"`
}
