package catalog

import (
	"context"
	"sync"

	"github.com/shinmj/reservecheck/internal/domain"
	"github.com/shinmj/reservecheck/internal/pkg/errors"
)

// MockClient is an in-memory catalog client for testing.
type MockClient struct {
	mu          sync.RWMutex
	items       map[int64]*domain.ReservationItem
	unavailable bool
	fetchCount  int
	adjustments []int
}

// NewMockClient creates a new mock catalog client
func NewMockClient() *MockClient {
	return &MockClient{
		items: make(map[int64]*domain.ReservationItem),
	}
}

// PutItem stores an item snapshot to serve from FetchItem.
func (m *MockClient) PutItem(item *domain.ReservationItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

// SetUnavailable makes every call fail as if the breaker were open.
func (m *MockClient) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = unavailable
}

// FetchItem implements Client.
func (m *MockClient) FetchItem(ctx context.Context, itemID int64) (*domain.ReservationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchCount++
	if m.unavailable {
		return nil, errors.RemoteUnavailable(nil)
	}

	item, ok := m.items[itemID]
	if !ok {
		return nil, errors.Internal("catalog item not found", nil)
	}
	copied := *item
	return &copied, nil
}

// AdjustInventory implements Client.
func (m *MockClient) AdjustInventory(ctx context.Context, itemID int64, delta int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return false, errors.RemoteUnavailable(nil)
	}
	item, ok := m.items[itemID]
	if !ok {
		return false, errors.Internal("catalog item not found", nil)
	}
	item.AvailableQuantity += delta
	m.adjustments = append(m.adjustments, delta)
	return true, nil
}

// FetchCount returns how many snapshot fetches were attempted.
func (m *MockClient) FetchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetchCount
}

// Adjustments returns the inventory deltas applied so far.
func (m *MockClient) Adjustments() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.adjustments...)
}
