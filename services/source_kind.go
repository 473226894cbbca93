package services

import (
	"context"
	"net/url"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/sirupsen/logrus"
)

const (
	KINDSourceName = "kind"

	kindTableSelector = `table.list`
	kindRowSelector   = kindTableSelector + ` tbody tr`
)

// Column layout of the KIND public-offering progress list
const (
	kindColCompany = iota
	kindColProgress
	kindColSubscription
	kindColListingDate
	kindColOfferPrice
	kindColUnderwriter
	kindMinColumns
)

// KINDSource posts the KRX KIND public-offering progress search form.
// Status comes from the progress text and falls back to ClassifyByDates
// when the text carries no known keyword.
type KINDSource struct {
	fetcher DocumentFetcher
	url     string
	clock   Clock
}

func NewKINDSource(fetcher DocumentFetcher, url string, clock Clock) *KINDSource {
	return &KINDSource{
		fetcher: fetcher,
		url:     url,
		clock:   clock,
	}
}

func (s *KINDSource) Name() string {
	return KINDSourceName
}

func (s *KINDSource) searchForm() url.Values {
	form := url.Values{}
	form.Set("method", "searchPubofrProgComSub")
	form.Set("currentPageSize", "100")
	form.Set("pageIndex", "1")
	form.Set("orderMode", "1")
	form.Set("orderStat", "D")
	return form
}

func (s *KINDSource) Fetch(ctx context.Context) SourceResult {
	startTime := time.Now()

	body, err := s.fetcher.Post(ctx, s.url, s.searchForm(), RequestOptions{
		Headers: map[string]string{
			"Referer":          s.url,
			"X-Requested-With": "XMLHttpRequest",
		},
	})
	if err != nil {
		return failedSourceResult(s.Name(), startTime, err)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return failedSourceResult(s.Name(), startTime, err)
	}

	if doc.Find(kindTableSelector).Length() == 0 {
		return failedSourceResult(s.Name(), startTime,
			documentError(s.Name(), "TABLE_NOT_FOUND", "public offering progress table not found", nil))
	}

	now := s.clock()
	records := []models.ScrapedRecord{}
	for _, row := range ExtractTableRows(doc, kindRowSelector) {
		if rec, ok := s.parseRow(row, now); ok {
			records = append(records, rec)
		}
	}

	logrus.WithFields(logrus.Fields{
		"component": "KINDSource",
		"records":   len(records),
	}).Info("Fetched KIND public offering progress")

	return SourceResult{
		Source:   s.Name(),
		Records:  records,
		Duration: time.Since(startTime),
	}
}

func (s *KINDSource) parseRow(row TableRow, now time.Time) (models.ScrapedRecord, bool) {
	if len(row.Cells) < kindMinColumns {
		return models.ScrapedRecord{}, false
	}

	name := NormalizeCompanyName(row.Cell(kindColCompany))
	if name == "" {
		return models.ScrapedRecord{}, false
	}

	rec := models.ScrapedRecord{
		CompanyName: name,
		Source:      s.Name(),
	}

	if period, err := ParseFullDateRange(row.Cell(kindColSubscription), now); err == nil {
		rec.SubscriptionStart = timePtr(period.Start)
		rec.SubscriptionEnd = timePtr(period.End)
	}

	if listing, err := ParseSingleDate(row.Cell(kindColListingDate), now); err == nil {
		rec.ListingDate = timePtr(listing)
	}

	if price, err := ParsePrice(row.Cell(kindColOfferPrice)); err == nil {
		rec.PriceRangeLow = int64Ptr(price.Low)
		rec.PriceRangeHigh = int64Ptr(price.High)
		if price.Final != nil {
			rec.FinalPrice = int64Ptr(*price.Final)
		}
	}

	rec.LeadUnderwriter = OptionalString(row.Cell(kindColUnderwriter))

	if status, matched := ClassifyByKeyword(row.Cell(kindColProgress)); matched {
		rec.Status = status
	} else {
		rec.Status = ClassifyRecord(&rec, now)
		rec.StatusDerivedAt = now
	}

	return rec, true
}
