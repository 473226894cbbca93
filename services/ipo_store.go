package services

import (
	"context"
	"errors"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/google/uuid"
)

// ErrIPONotFound is returned by stores when an id does not exist
var ErrIPONotFound = errors.New("ipo calendar entry not found")

// IPOStore is the persistence contract used by reconciliation.
// FindByCompanyName returns (nil, nil) when no entry exists.
type IPOStore interface {
	FindByCompanyName(ctx context.Context, companyName string) (*models.IPORecord, error)
	Create(ctx context.Context, fields models.IPOFields) (*models.IPORecord, error)
	Update(ctx context.Context, id uuid.UUID, fields models.IPOFields) (*models.IPORecord, error)
}

// IPOCalendarStore adds the read operations used by the calendar API.
// GetByID returns (nil, nil) when no entry exists; List with an empty status returns every entry.
type IPOCalendarStore interface {
	IPOStore
	GetByID(ctx context.Context, id uuid.UUID) (*models.IPORecord, error)
	List(ctx context.Context, status models.IPOStatus) ([]models.IPORecord, error)
}
