package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoMatch is returned by the text parsers when the input does not fit the expected pattern.
// Callers treat it as "field unset".
var ErrNoMatch = errors.New("text does not match expected pattern")

var (
	// 01.27~01.28, 2025.01.27~01.28, 01.27~28
	compactDateRangeRegex = regexp.MustCompile(`^(?:(\d{4})\.)?(\d{1,2})\.(\d{1,2})\s*~\s*(?:(\d{1,2})\.)?(\d{1,2})$`)

	// 2025.01.27 ~ 2025.01.28
	fullDateRangeRegex = regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})\s*~\s*(\d{4})\.(\d{1,2})\.(\d{1,2})$`)

	// 01.31, 2025.01.31
	singleDateRegex = regexp.MustCompile(`^(?:(\d{4})\.)?(\d{1,2})\.(\d{1,2})$`)

	priceRangeRegex  = regexp.MustCompile(`^(\d+)~(\d+)$`)
	singlePriceRegex = regexp.MustCompile(`^(\d+)$`)
)

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start time.Time
	End   time.Time
}

// PriceInfo holds prices in whole won. Final is nil when the text was a range.
type PriceInfo struct {
	Low   int64
	High  int64
	Final *int64
}

// ParseCompactDateRange parses "MM.DD~MM.DD" with an optional leading year and an optional end month.
// A missing year means the year of now; a missing end month means the start month.
// Dates are midnight in now's location. Ranges whose end precedes the start are rejected, except that
// with an explicit year a December start and January end put the end in the following year.
func ParseCompactDateRange(text string, now time.Time) (DateRange, error) {
	cleaned := NormalizeTextContent(text)
	m := compactDateRangeRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return DateRange{}, noMatch("compact date range", text)
	}

	year := now.Year()
	if m[1] != "" {
		year = atoi(m[1])
	}
	startMonth, startDay := atoi(m[2]), atoi(m[3])
	endMonth := startMonth
	if m[4] != "" {
		endMonth = atoi(m[4])
	}
	endDay := atoi(m[5])

	endYear := year
	if m[1] != "" && startMonth == 12 && endMonth == 1 {
		endYear = year + 1
	}

	start, ok := calendarDate(year, startMonth, startDay, now.Location())
	if !ok {
		return DateRange{}, noMatch("compact date range", text)
	}
	end, ok := calendarDate(endYear, endMonth, endDay, now.Location())
	if !ok || end.Before(start) {
		return DateRange{}, noMatch("compact date range", text)
	}

	return DateRange{Start: start, End: end}, nil
}

// ParseFullDateRange parses "YYYY.MM.DD ~ YYYY.MM.DD". Both sides must be complete.
func ParseFullDateRange(text string, now time.Time) (DateRange, error) {
	cleaned := NormalizeTextContent(text)
	m := fullDateRangeRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return DateRange{}, noMatch("full date range", text)
	}

	start, ok := calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), now.Location())
	if !ok {
		return DateRange{}, noMatch("full date range", text)
	}
	end, ok := calendarDate(atoi(m[4]), atoi(m[5]), atoi(m[6]), now.Location())
	if !ok || end.Before(start) {
		return DateRange{}, noMatch("full date range", text)
	}

	return DateRange{Start: start, End: end}, nil
}

// ParseSingleDate parses "MM.DD" or "YYYY.MM.DD"; a missing year means the year of now
func ParseSingleDate(text string, now time.Time) (time.Time, error) {
	cleaned := NormalizeTextContent(text)
	m := singleDateRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return time.Time{}, noMatch("single date", text)
	}

	year := now.Year()
	if m[1] != "" {
		year = atoi(m[1])
	}

	date, ok := calendarDate(year, atoi(m[2]), atoi(m[3]), now.Location())
	if !ok {
		return time.Time{}, noMatch("single date", text)
	}
	return date, nil
}

// ParsePrice strips thousands separators and the currency suffix, then accepts
// either "low~high" (Final unset) or a single number (Low, High and Final equal).
// A band whose high is below its low is rejected.
func ParsePrice(text string) (PriceInfo, error) {
	cleaned := NormalizeTextContent(text)
	cleaned = strings.NewReplacer(",", "", "원", "", "₩", "", " ", "").Replace(cleaned)

	if m := priceRangeRegex.FindStringSubmatch(cleaned); m != nil {
		low, errLow := strconv.ParseInt(m[1], 10, 64)
		high, errHigh := strconv.ParseInt(m[2], 10, 64)
		if errLow != nil || errHigh != nil || high < low {
			return PriceInfo{}, noMatch("price", text)
		}
		return PriceInfo{Low: low, High: high}, nil
	}

	if m := singlePriceRegex.FindStringSubmatch(cleaned); m != nil {
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return PriceInfo{}, noMatch("price", text)
		}
		final := value
		return PriceInfo{Low: value, High: value, Final: &final}, nil
	}

	return PriceInfo{}, noMatch("price", text)
}

// calendarDate builds midnight of the given day, rejecting impossible dates such as 02.30
func calendarDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func noMatch(kind, text string) error {
	return fmt.Errorf("%s %q: %w", kind, text, ErrNoMatch)
}
