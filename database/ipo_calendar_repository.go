package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const ipoCalendarColumns = `id, company_name, ticker, subscription_start, subscription_end, listing_date,
	price_range_low, price_range_high, final_price, lead_underwriter, status, status_locked,
	created_at, updated_at`

const dateLayout = "2006-01-02"

// IPOCalendarRepository is the Postgres store for calendar entries
type IPOCalendarRepository struct {
	db         *sql.DB
	location   *time.Location
	maxRetries int
	retryDelay time.Duration
}

var _ services.IPOCalendarStore = (*IPOCalendarRepository)(nil)

// NewIPOCalendarRepository creates a repository. Dates are read back as midnight in location.
func NewIPOCalendarRepository(db *sql.DB, location *time.Location, maxRetries int) *IPOCalendarRepository {
	if location == nil {
		location = time.UTC
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &IPOCalendarRepository{
		db:         db,
		location:   location,
		maxRetries: maxRetries,
		retryDelay: 200 * time.Millisecond,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *IPOCalendarRepository) FindByCompanyName(ctx context.Context, companyName string) (*models.IPORecord, error) {
	query := `SELECT ` + ipoCalendarColumns + ` FROM ipo_calendar
		WHERE company_name = $1
		ORDER BY created_at ASC
		LIMIT 1`

	var record *models.IPORecord
	err := r.withRetry(ctx, "FindByCompanyName", func() error {
		rec, err := r.scanRecord(r.db.QueryRowContext(ctx, query, companyName))
		if errors.Is(err, sql.ErrNoRows) {
			record = nil
			return nil
		}
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	return record, err
}

func (r *IPOCalendarRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IPORecord, error) {
	query := `SELECT ` + ipoCalendarColumns + ` FROM ipo_calendar WHERE id = $1`

	var record *models.IPORecord
	err := r.withRetry(ctx, "GetByID", func() error {
		rec, err := r.scanRecord(r.db.QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			record = nil
			return nil
		}
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	return record, err
}

func (r *IPOCalendarRepository) List(ctx context.Context, status models.IPOStatus) ([]models.IPORecord, error) {
	query := `SELECT ` + ipoCalendarColumns + ` FROM ipo_calendar
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY subscription_start ASC NULLS LAST, company_name ASC`

	var records []models.IPORecord
	err := r.withRetry(ctx, "List", func() error {
		rows, err := r.db.QueryContext(ctx, query, string(status))
		if err != nil {
			return err
		}
		defer rows.Close()

		records = []models.IPORecord{}
		for rows.Next() {
			rec, err := r.scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, *rec)
		}
		return rows.Err()
	})
	return records, err
}

func (r *IPOCalendarRepository) Create(ctx context.Context, fields models.IPOFields) (*models.IPORecord, error) {
	query := `INSERT INTO ipo_calendar (
			id, company_name, ticker, subscription_start, subscription_end, listing_date,
			price_range_low, price_range_high, final_price, lead_underwriter, status, status_locked,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING ` + ipoCalendarColumns

	id := uuid.New()

	var record *models.IPORecord
	err := r.withRetry(ctx, "Create", func() error {
		rec, err := r.scanRecord(r.db.QueryRowContext(ctx, query,
			id,
			fields.CompanyName,
			fields.Ticker,
			dateParam(fields.SubscriptionStart),
			dateParam(fields.SubscriptionEnd),
			dateParam(fields.ListingDate),
			fields.PriceRangeLow,
			fields.PriceRangeHigh,
			fields.FinalPrice,
			fields.LeadUnderwriter,
			string(fields.Status),
			fields.StatusLocked,
		))
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	return record, err
}

func (r *IPOCalendarRepository) Update(ctx context.Context, id uuid.UUID, fields models.IPOFields) (*models.IPORecord, error) {
	query := `UPDATE ipo_calendar SET
			company_name = $2,
			ticker = $3,
			subscription_start = $4,
			subscription_end = $5,
			listing_date = $6,
			price_range_low = $7,
			price_range_high = $8,
			final_price = $9,
			lead_underwriter = $10,
			status = $11,
			status_locked = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + ipoCalendarColumns

	var record *models.IPORecord
	err := r.withRetry(ctx, "Update", func() error {
		rec, err := r.scanRecord(r.db.QueryRowContext(ctx, query,
			id,
			fields.CompanyName,
			fields.Ticker,
			dateParam(fields.SubscriptionStart),
			dateParam(fields.SubscriptionEnd),
			dateParam(fields.ListingDate),
			fields.PriceRangeLow,
			fields.PriceRangeHigh,
			fields.FinalPrice,
			fields.LeadUnderwriter,
			string(fields.Status),
			fields.StatusLocked,
		))
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrIPONotFound
	}
	return record, err
}

// withRetry runs fn, retrying transient driver failures. sql.ErrNoRows passes through unwrapped.
func (r *IPOCalendarRepository) withRetry(ctx context.Context, operation string, fn func() error) error {
	logger := logrus.WithFields(logrus.Fields{
		"component": "IPOCalendarRepository",
		"operation": operation,
	})

	var lastErr error
	err := shared.RetryWithBackoff(ctx, r.maxRetries, r.retryDelay,
		func(attempt int, err error) {
			logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   err,
			}).Warn("Retrying database operation")
		},
		func() error {
			lastErr = fn()
			if lastErr == nil || errors.Is(lastErr, sql.ErrNoRows) {
				return nil
			}
			return classifyDBError(lastErr, operation)
		},
	)
	if err != nil {
		return err
	}
	if errors.Is(lastErr, sql.ErrNoRows) {
		return lastErr
	}
	return nil
}

func (r *IPOCalendarRepository) scanRecord(row rowScanner) (*models.IPORecord, error) {
	var (
		rec                                        models.IPORecord
		ticker, underwriter                        sql.NullString
		subscriptionStart, subscriptionEnd, listed sql.NullTime
		priceLow, priceHigh, finalPrice            sql.NullInt64
		status                                     string
	)

	err := row.Scan(
		&rec.ID,
		&rec.CompanyName,
		&ticker,
		&subscriptionStart,
		&subscriptionEnd,
		&listed,
		&priceLow,
		&priceHigh,
		&finalPrice,
		&underwriter,
		&status,
		&rec.StatusLocked,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Ticker = nullString(ticker)
	rec.LeadUnderwriter = nullString(underwriter)
	rec.SubscriptionStart = r.nullDate(subscriptionStart)
	rec.SubscriptionEnd = r.nullDate(subscriptionEnd)
	rec.ListingDate = r.nullDate(listed)
	rec.PriceRangeLow = nullInt(priceLow)
	rec.PriceRangeHigh = nullInt(priceHigh)
	rec.FinalPrice = nullInt(finalPrice)
	rec.Status = models.IPOStatus(status)

	return &rec, nil
}

// dateParam writes the calendar day as text so the session timezone cannot shift it
func dateParam(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func (r *IPOCalendarRepository) nullDate(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Date(v.Time.Year(), v.Time.Month(), v.Time.Day(), 0, 0, 0, 0, r.location)
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
