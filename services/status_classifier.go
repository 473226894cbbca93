package services

import (
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
)

// ClassifyByDates derives the lifecycle status from the known dates, evaluated against today.
// Dates are compared as calendar days, in this precedence:
//   - listing date on or before today: LISTED
//   - subscription end before today: COMPLETED
//   - today within [start, end]: SUBSCRIPTION
//   - otherwise UPCOMING, including when no dates are known
func ClassifyByDates(subscriptionStart, subscriptionEnd, listingDate *time.Time, today time.Time) models.IPOStatus {
	day := dayOf(today)

	if listingDate != nil && !dayOf(*listingDate).After(day) {
		return models.IPOStatusListed
	}

	if subscriptionEnd != nil && dayOf(*subscriptionEnd).Before(day) {
		return models.IPOStatusCompleted
	}

	if subscriptionStart != nil && subscriptionEnd != nil &&
		!day.Before(dayOf(*subscriptionStart)) && !day.After(dayOf(*subscriptionEnd)) {
		return models.IPOStatusSubscription
	}

	return models.IPOStatusUpcoming
}

// ClassifyRecord applies ClassifyByDates to a scraped record
func ClassifyRecord(rec *models.ScrapedRecord, today time.Time) models.IPOStatus {
	return ClassifyByDates(rec.SubscriptionStart, rec.SubscriptionEnd, rec.ListingDate, today)
}

type statusKeyword struct {
	keywords []string
	status   models.IPOStatus
}

// withdrawnKeywords mark an offering pulled before listing ("상장철회"). They carry no
// lifecycle status of their own, so the record falls back to its dates.
var withdrawnKeywords = []string{"철회", "withdrawn"}

// Checked in order; the first group with a matching keyword wins.
// "상장예정" (listing scheduled) means subscription is over but the shares are not yet listed.
var statusKeywords = []statusKeyword{
	{keywords: []string{"상장예정", "listing scheduled"}, status: models.IPOStatusCompleted},
	{keywords: []string{"상장", "listed"}, status: models.IPOStatusListed},
	{keywords: []string{"완료", "completed"}, status: models.IPOStatusCompleted},
	{keywords: []string{"청약중", "in subscription"}, status: models.IPOStatusSubscription},
	{keywords: []string{"예정", "upcoming"}, status: models.IPOStatusUpcoming},
}

// ClassifyByKeyword maps human-readable status text to a lifecycle status.
// The second result is false when no keyword matched or the offering was withdrawn,
// in which case the status is UPCOMING. English keywords only match whole words.
func ClassifyByKeyword(text string) (models.IPOStatus, bool) {
	normalized := strings.ToLower(NormalizeTextContent(text))
	if normalized == "" {
		return models.IPOStatusUpcoming, false
	}

	for _, keyword := range withdrawnKeywords {
		if containsKeyword(normalized, keyword) {
			return models.IPOStatusUpcoming, false
		}
	}

	for _, group := range statusKeywords {
		for _, keyword := range group.keywords {
			if containsKeyword(normalized, keyword) {
				return group.status, true
			}
		}
	}

	return models.IPOStatusUpcoming, false
}

// containsKeyword reports whether keyword occurs in text. Korean keywords match anywhere
// since status labels are compounded ("신규상장"); ASCII keywords need a non-alphanumeric
// byte on both sides so "unlisted" does not read as "listed".
func containsKeyword(text, keyword string) bool {
	if !isASCIIWord(keyword) {
		return strings.Contains(text, keyword)
	}

	for offset := 0; offset <= len(text)-len(keyword); {
		i := strings.Index(text[offset:], keyword)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(keyword)
		if (start == 0 || !isASCIIAlnum(text[start-1])) && (end == len(text) || !isASCIIAlnum(text[end])) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isASCIIAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// dayOf truncates t to midnight of its own calendar day. The wall-clock date is kept
// as-is so dates read back from storage in another zone still compare by day.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
