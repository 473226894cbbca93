package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/google/uuid"
)

var kst = time.FixedZone("KST", 9*60*60)

// day returns midnight of the given date in KST
func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, kst)
}

func dayPtr(year int, month time.Month, d int) *time.Time {
	t := day(year, month, d)
	return &t
}

func ptr[T any](v T) *T {
	return &v
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// fakeStore is an in-memory IPOCalendarStore that can be told to fail for given company names
type fakeStore struct {
	mutex      sync.Mutex
	records    map[uuid.UUID]*models.IPORecord
	order      []uuid.UUID
	failCreate map[string]error
	failUpdate map[string]error
	panicOn    map[string]bool
	creates    int
	updates    int
	lists      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:    make(map[uuid.UUID]*models.IPORecord),
		failCreate: make(map[string]error),
		failUpdate: make(map[string]error),
		panicOn:    make(map[string]bool),
	}
}

func (s *fakeStore) FindByCompanyName(ctx context.Context, companyName string) (*models.IPORecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.panicOn[companyName] {
		panic("store exploded")
	}
	for _, id := range s.order {
		if rec := s.records[id]; rec.CompanyName == companyName {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Create(ctx context.Context, fields models.IPOFields) (*models.IPORecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.failCreate[fields.CompanyName]; err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &models.IPORecord{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	rec.ApplyFields(fields)
	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	s.creates++

	clone := *rec
	return &clone, nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, fields models.IPOFields) (*models.IPORecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.failUpdate[fields.CompanyName]; err != nil {
		return nil, err
	}

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrIPONotFound
	}
	rec.ApplyFields(fields)
	rec.UpdatedAt = time.Now()
	s.updates++

	clone := *rec
	return &clone, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.IPORecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (s *fakeStore) List(ctx context.Context, status models.IPOStatus) ([]models.IPORecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lists++
	records := []models.IPORecord{}
	for _, id := range s.order {
		if rec := s.records[id]; status == "" || rec.Status == status {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CompanyName < records[j].CompanyName })
	return records, nil
}

func (s *fakeStore) byName(companyName string) *models.IPORecord {
	rec, _ := s.FindByCompanyName(context.Background(), companyName)
	return rec
}

// staticSource returns a fixed result, optionally after a delay or by panicking
type staticSource struct {
	name    string
	records []models.ScrapedRecord
	err     error
	delay   time.Duration
	panics  bool

	mutex sync.Mutex
	calls int
}

func (s *staticSource) Name() string {
	return s.name
}

func (s *staticSource) Fetch(ctx context.Context) SourceResult {
	s.mutex.Lock()
	s.calls++
	s.mutex.Unlock()

	if s.panics {
		panic("adapter bug")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return SourceResult{Source: s.name, Records: []models.ScrapedRecord{}, Err: ctx.Err()}
		}
	}
	if s.err != nil {
		return SourceResult{Source: s.name, Records: []models.ScrapedRecord{}, Err: s.err}
	}
	return SourceResult{Source: s.name, Records: s.records}
}

func (s *staticSource) callCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.calls
}

// hangingSource ignores its context entirely
type hangingSource struct {
	name    string
	release chan struct{}
}

func (s *hangingSource) Name() string {
	return s.name
}

func (s *hangingSource) Fetch(ctx context.Context) SourceResult {
	<-s.release
	return SourceResult{Source: s.name}
}

var errDatabaseDown = errors.New("connection reset by peer")
