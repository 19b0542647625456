package service

import (
	"context"

	"github.com/shinmj/reservecheck/internal/domain"
	"github.com/shinmj/reservecheck/internal/pkg/errors"
)

// checkAdmissibility validates a reservation against a fresh catalog
// snapshot. It returns the snapshot when the check ran, or nil when the
// catalog was unreachable and the check was skipped.
//
// Skipping on catalog outage is deliberate: availability of the
// reservation flow is prioritized over strict inventory enforcement.
// Every skip is counted and logged so operators can see the
// degradation.
func (s *ReservationService) checkAdmissibility(ctx context.Context, res *domain.Reservation) (*domain.ReservationItem, error) {
	item, err := s.catalog.FetchItem(ctx, res.ItemID)
	if err != nil {
		if errors.IsRemoteUnavailable(err) {
			s.metrics.RecordCheckSkipped()
			s.logger.WithReservationID(res.ID).WithError(err).
				Warn("catalog unreachable, admissibility check skipped")
			return nil, nil
		}
		return nil, err
	}

	s.metrics.AdmissibilityChecks.Inc()

	if item.QuantityTracked() {
		if item.AvailableQuantity <= 0 {
			return nil, errors.InsufficientInventory(item.AvailableQuantity)
		}
		if item.AvailableQuantity < res.Quantity {
			return nil, errors.InsufficientInventory(item.AvailableQuantity)
		}
	}

	if item.WindowTracked() {
		start, end := item.ReservableWindow()
		if res.StartDate.Before(start) {
			return nil, errors.OutOfWindow("reservation starts before the reservable period opens")
		}
		if res.EndDate.After(end) {
			return nil, errors.OutOfWindow("reservation ends after the reservable period closes")
		}
	}

	return item, nil
}
