package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/google/uuid"
)

// MemoryIPOStore keeps calendar entries in process memory.
// Used when no DATABASE_URL is configured and in tests.
type MemoryIPOStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]*models.IPORecord
	order   []uuid.UUID
	now     func() time.Time
}

var _ services.IPOCalendarStore = (*MemoryIPOStore)(nil)

func NewMemoryIPOStore() *MemoryIPOStore {
	return &MemoryIPOStore{
		records: make(map[uuid.UUID]*models.IPORecord),
		now:     time.Now,
	}
}

// FindByCompanyName returns the earliest created entry with the name
func (s *MemoryIPOStore) FindByCompanyName(ctx context.Context, companyName string) (*models.IPORecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, id := range s.order {
		if rec := s.records[id]; rec.CompanyName == companyName {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryIPOStore) GetByID(ctx context.Context, id uuid.UUID) (*models.IPORecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

// List orders entries by subscription start (unknown last), then company name
func (s *MemoryIPOStore) List(ctx context.Context, status models.IPOStatus) ([]models.IPORecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	records := make([]models.IPORecord, 0, len(s.records))
	for _, id := range s.order {
		rec := s.records[id]
		if status == "" || rec.Status == status {
			records = append(records, *rec)
		}
	}
	s.mutex.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].SubscriptionStart, records[j].SubscriptionStart
		switch {
		case a == nil && b == nil:
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return records[i].CompanyName < records[j].CompanyName
	})

	return records, nil
}

func (s *MemoryIPOStore) Create(ctx context.Context, fields models.IPOFields) (*models.IPORecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	rec := &models.IPORecord{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.ApplyFields(fields)

	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)

	clone := *rec
	return &clone, nil
}

func (s *MemoryIPOStore) Update(ctx context.Context, id uuid.UUID, fields models.IPOFields) (*models.IPORecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, services.ErrIPONotFound
	}
	rec.ApplyFields(fields)
	rec.UpdatedAt = s.now()

	clone := *rec
	return &clone, nil
}

// Len returns the number of stored entries
func (s *MemoryIPOStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.records)
}
