package services

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/sirupsen/logrus"
)

const (
	ThirtyEightSourceName = "38"

	thirtyEightTableSelector = `table[summary="공모주 청약일정"]`
	thirtyEightRowSelector   = thirtyEightTableSelector + ` tr`
)

// Column layout of the 38 Communications subscription calendar
const (
	thirtyEightColCompany = iota
	thirtyEightColSchedule
	thirtyEightColConfirmedPrice
	thirtyEightColPriceBand
	thirtyEightColCompetition
	thirtyEightColUnderwriter
	thirtyEightMinColumns
)

// ThirtyEightSource scrapes the 38 Communications subscription calendar.
// The page only lists dates, so status is derived with ClassifyByDates.
type ThirtyEightSource struct {
	fetcher DocumentFetcher
	url     string
	clock   Clock
}

func NewThirtyEightSource(fetcher DocumentFetcher, url string, clock Clock) *ThirtyEightSource {
	return &ThirtyEightSource{
		fetcher: fetcher,
		url:     url,
		clock:   clock,
	}
}

func (s *ThirtyEightSource) Name() string {
	return ThirtyEightSourceName
}

func (s *ThirtyEightSource) Fetch(ctx context.Context) SourceResult {
	startTime := time.Now()

	body, err := s.fetcher.Get(ctx, s.url, RequestOptions{
		Charset: "euc-kr",
		Headers: map[string]string{"Referer": "http://www.38.co.kr/"},
	})
	if err != nil {
		return failedSourceResult(s.Name(), startTime, err)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return failedSourceResult(s.Name(), startTime, err)
	}

	if doc.Find(thirtyEightTableSelector).Length() == 0 {
		return failedSourceResult(s.Name(), startTime,
			documentError(s.Name(), "TABLE_NOT_FOUND", "subscription calendar table not found", nil))
	}

	now := s.clock()
	records := []models.ScrapedRecord{}
	for _, row := range ExtractTableRows(doc, thirtyEightRowSelector) {
		if rec, ok := s.parseRow(row, now); ok {
			records = append(records, rec)
		}
	}

	logrus.WithFields(logrus.Fields{
		"component": "ThirtyEightSource",
		"records":   len(records),
	}).Info("Fetched 38 subscription calendar")

	return SourceResult{
		Source:   s.Name(),
		Records:  records,
		Duration: time.Since(startTime),
	}
}

func (s *ThirtyEightSource) parseRow(row TableRow, now time.Time) (models.ScrapedRecord, bool) {
	if len(row.Cells) < thirtyEightMinColumns {
		return models.ScrapedRecord{}, false
	}

	name := NormalizeCompanyName(row.Cell(thirtyEightColCompany))
	if name == "" {
		return models.ScrapedRecord{}, false
	}

	rec := models.ScrapedRecord{
		CompanyName: name,
		Source:      s.Name(),
	}

	if schedule, err := ParseCompactDateRange(row.Cell(thirtyEightColSchedule), now); err == nil {
		rec.SubscriptionStart = timePtr(schedule.Start)
		rec.SubscriptionEnd = timePtr(schedule.End)
	}

	if band, err := ParsePrice(row.Cell(thirtyEightColPriceBand)); err == nil {
		rec.PriceRangeLow = int64Ptr(band.Low)
		rec.PriceRangeHigh = int64Ptr(band.High)
		if band.Final != nil {
			rec.FinalPrice = int64Ptr(*band.Final)
		}
	}

	if confirmed, err := ParsePrice(row.Cell(thirtyEightColConfirmedPrice)); err == nil && confirmed.Final != nil {
		rec.FinalPrice = int64Ptr(*confirmed.Final)
		if rec.PriceRangeLow == nil {
			rec.PriceRangeLow = int64Ptr(confirmed.Low)
			rec.PriceRangeHigh = int64Ptr(confirmed.High)
		}
	}

	rec.LeadUnderwriter = OptionalString(row.Cell(thirtyEightColUnderwriter))
	rec.Status = ClassifyRecord(&rec, now)
	rec.StatusDerivedAt = now

	return rec, true
}
