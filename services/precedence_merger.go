package services

import (
	"sort"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
)

// MergeStrategy selects how records for the same company from lower-priority sources are treated
type MergeStrategy string

const (
	// MergeFirstWins keeps the first record seen for a company and discards later ones entirely
	MergeFirstWins MergeStrategy = "first-wins"

	// MergeFillGaps keeps the first record but fills its unset fields from later ones.
	// Status comes from the first record; when that status was derived from dates it is
	// classified again against the filled-in dates.
	MergeFillGaps MergeStrategy = "fill-gaps"
)

// ParseMergeStrategy returns the strategy for name, defaulting to MergeFirstWins
func ParseMergeStrategy(name string) MergeStrategy {
	if MergeStrategy(name) == MergeFillGaps {
		return MergeFillGaps
	}
	return MergeFirstWins
}

// MergeByPrecedence reduces the source lists, given in priority order, to one record per company name.
// Records without a company name are dropped. Merging is idempotent: repeating a list changes nothing.
func MergeByPrecedence(strategy MergeStrategy, listsInPriorityOrder ...[]models.ScrapedRecord) map[string]models.ScrapedRecord {
	merged := make(map[string]models.ScrapedRecord)

	for _, list := range listsInPriorityOrder {
		for _, rec := range list {
			if rec.CompanyName == "" {
				continue
			}

			existing, seen := merged[rec.CompanyName]
			if !seen {
				merged[rec.CompanyName] = rec
				continue
			}

			if strategy == MergeFillGaps {
				merged[rec.CompanyName] = fillGaps(existing, rec)
			}
		}
	}

	return merged
}

// SortedCompanyNames returns the keys of a merged set in a stable order
func SortedCompanyNames(merged map[string]models.ScrapedRecord) []string {
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fillGaps(primary, secondary models.ScrapedRecord) models.ScrapedRecord {
	if primary.SubscriptionStart == nil && primary.SubscriptionEnd == nil {
		primary.SubscriptionStart = secondary.SubscriptionStart
		primary.SubscriptionEnd = secondary.SubscriptionEnd
	}
	if primary.ListingDate == nil {
		primary.ListingDate = secondary.ListingDate
	}
	if primary.PriceRangeLow == nil && primary.PriceRangeHigh == nil {
		primary.PriceRangeLow = secondary.PriceRangeLow
		primary.PriceRangeHigh = secondary.PriceRangeHigh
	}
	if primary.FinalPrice == nil {
		primary.FinalPrice = secondary.FinalPrice
	}
	if primary.LeadUnderwriter == nil {
		primary.LeadUnderwriter = secondary.LeadUnderwriter
	}
	if !primary.StatusDerivedAt.IsZero() {
		primary.Status = ClassifyRecord(&primary, primary.StatusDerivedAt)
	}
	return primary
}
