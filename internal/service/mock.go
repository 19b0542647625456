package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shinmj/reservecheck/internal/domain"
	"github.com/shinmj/reservecheck/internal/infrastructure/observability"
	"github.com/shinmj/reservecheck/internal/pkg/errors"
	"github.com/shinmj/reservecheck/internal/repository"
)

// MockRepository is an in-memory Repository implementation for testing.
type MockRepository struct {
	mu           sync.RWMutex
	reservations map[string]*domain.Reservation
	InsertErr    error
	SaveErr      error
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		reservations: make(map[string]*domain.Reservation),
	}
}

// Insert implements Repository.
func (m *MockRepository) Insert(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *res
	m.reservations[res.ID] = &copied
	return res, nil
}

// Save implements Repository.
func (m *MockRepository) Save(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[res.ID]; !ok {
		return nil, errors.NotFound(res.ID)
	}
	copied := *res
	m.reservations[res.ID] = &copied
	return res, nil
}

// FindByID implements Repository.
func (m *MockRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	copied := *res
	return &copied, nil
}

// Search implements Repository.
func (m *MockRepository) Search(ctx context.Context, filter repository.Filter, page repository.Page) ([]*domain.Reservation, int, error) {
	return m.searchFiltered(filter, "")
}

// SearchForUser implements Repository.
func (m *MockRepository) SearchForUser(ctx context.Context, filter repository.Filter, page repository.Page, userID string) ([]*domain.Reservation, int, error) {
	return m.searchFiltered(filter, userID)
}

func (m *MockRepository) searchFiltered(filter repository.Filter, userID string) ([]*domain.Reservation, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*domain.Reservation
	for _, res := range m.reservations {
		if filter.ItemID > 0 && res.ItemID != filter.ItemID {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(res.Purpose, filter.Keyword) {
			continue
		}
		if userID != "" && res.UserID != userID {
			continue
		}
		copied := *res
		items = append(items, &copied)
	}
	return items, len(items), nil
}

// FindAllInWindow implements Repository.
func (m *MockRepository) FindAllInWindow(ctx context.Context, itemID int64, start, end time.Time) ([]*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*domain.Reservation
	for _, res := range m.reservations {
		if res.ItemID != itemID {
			continue
		}
		if res.StartDate.After(end) || res.EndDate.Before(start) {
			continue
		}
		copied := *res
		items = append(items, &copied)
	}
	return items, nil
}

// LoadRelations implements Repository.
func (m *MockRepository) LoadRelations(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	return m.FindByID(ctx, res.ID)
}

// Stored returns the persisted state of a reservation, if any.
func (m *MockRepository) Stored(id string) (*domain.Reservation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, false
	}
	copied := *res
	return &copied, true
}

// MockTransitionRecorder collects audit events in memory.
type MockTransitionRecorder struct {
	mu     sync.Mutex
	events []*observability.TransitionEvent
}

// Record implements TransitionRecorder.
func (m *MockTransitionRecorder) Record(event *observability.TransitionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns the recorded transitions.
func (m *MockTransitionRecorder) Events() []*observability.TransitionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*observability.TransitionEvent(nil), m.events...)
}
