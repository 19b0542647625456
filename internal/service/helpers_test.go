package service

import (
	"sync"
	"time"

	"github.com/shinmj/reservecheck/internal/catalog"
	"github.com/shinmj/reservecheck/internal/domain"
	"github.com/shinmj/reservecheck/internal/events"
	"github.com/shinmj/reservecheck/internal/infrastructure/config"
	"github.com/shinmj/reservecheck/internal/infrastructure/observability"
	"github.com/shinmj/reservecheck/internal/repository"
)

var (
	metricsOnce sync.Once
	testMetrics *observability.Metrics
)

// sharedMetrics returns a process-wide metrics instance; promauto
// registers on the default registry so a second NewMetrics would panic.
func sharedMetrics() *observability.Metrics {
	metricsOnce.Do(func() {
		testMetrics = observability.NewMetrics()
	})
	return testMetrics
}

func newTestService(repo *MockRepository, cat *catalog.MockClient) (*ReservationService, *MockTransitionRecorder) {
	logger := observability.NewLogger(&config.ObservabilityConfig{LogLevel: "error", LogFormat: "json"})
	recorder := &MockTransitionRecorder{}
	svc := NewReservationService(repo, cat, events.NoopPublisher{}, recorder, logger, sharedMetrics())
	return svc, recorder
}

func searchAll() repository.Filter {
	return repository.Filter{}
}

func pageOne() repository.Page {
	return repository.Page{Number: 0, Size: 50}
}

func testWindow() (time.Time, time.Time) {
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	return start, start.Add(6 * time.Hour)
}

// placeItem is a quantity-tracked, window-tracked item whose
// operational window spans September 2026.
func placeItem(qty int) *domain.ReservationItem {
	return &domain.ReservationItem{
		ID:                7,
		Name:              "community hall",
		CategoryID:        domain.CategoryPlace,
		TotalQuantity:     qty,
		AvailableQuantity: qty,
		FulfilmentMode:    domain.FulfilmentScheduled,
		OperationStart:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		OperationEnd:      time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC),
	}
}

func createRequestFor(item *domain.ReservationItem, qty int) CreateRequest {
	start, end := testWindow()
	return CreateRequest{
		ItemID:     item.ID,
		CategoryID: item.CategoryID,
		Quantity:   qty,
		Purpose:    "team offsite",
		StartDate:  start,
		EndDate:    end,
	}
}
