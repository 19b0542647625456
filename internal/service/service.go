// Package service contains the reservation orchestrator: it sequences
// authorization, state-machine legality, admissibility and commit for
// every reservation operation.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/shinmj/reservecheck/internal/catalog"
	"github.com/shinmj/reservecheck/internal/domain"
	"github.com/shinmj/reservecheck/internal/events"
	"github.com/shinmj/reservecheck/internal/infrastructure/observability"
	"github.com/shinmj/reservecheck/internal/pkg/errors"
	"github.com/shinmj/reservecheck/internal/repository"
)

// Repository is the persistence collaborator consumed by the
// orchestrator.
type Repository interface {
	Insert(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	Save(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	FindByID(ctx context.Context, id string) (*domain.Reservation, error)
	Search(ctx context.Context, filter repository.Filter, page repository.Page) ([]*domain.Reservation, int, error)
	SearchForUser(ctx context.Context, filter repository.Filter, page repository.Page, userID string) ([]*domain.Reservation, int, error)
	FindAllInWindow(ctx context.Context, itemID int64, start, end time.Time) ([]*domain.Reservation, error)
	LoadRelations(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
}

// TransitionRecorder receives status-transition audit events.
type TransitionRecorder interface {
	Record(event *observability.TransitionEvent) error
}

// ReservationService is the orchestrator for the reservation lifecycle.
type ReservationService struct {
	repo        Repository
	catalog     catalog.Client
	publisher   events.Publisher
	transitions TransitionRecorder
	logger      *observability.Logger
	metrics     *observability.Metrics
	tracer      trace.Tracer
}

// NewReservationService wires the orchestrator with its collaborators.
func NewReservationService(
	repo Repository,
	catalogClient catalog.Client,
	publisher events.Publisher,
	transitions TransitionRecorder,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *ReservationService {
	return &ReservationService{
		repo:        repo,
		catalog:     catalogClient,
		publisher:   publisher,
		transitions: transitions,
		logger:      logger,
		metrics:     metrics,
		tracer:      observability.GetTracer("reservation-service"),
	}
}

// CreateRequest carries the fields of a new reservation.
type CreateRequest struct {
	ItemID         int64
	LocationID     int64
	CategoryID     string
	Quantity       int
	Purpose        string
	AttachmentCode string
	StartDate      time.Time
	EndDate        time.Time
	UserID         string // admins may reserve on behalf of another user
	UserContactNo  string
	UserEmail      string
}

// PagedResult is a page of reservations with the total match count.
type PagedResult struct {
	Items []*domain.Reservation
	Total int
}

// Create builds a reservation in the request state. The admissibility
// check runs before the insert so an inadmissible reservation is never
// persisted.
func (s *ReservationService) Create(ctx context.Context, req CreateRequest, p domain.Principal) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.create")
	defer span.End()

	if !p.Authenticated {
		return nil, errors.Forbidden("authentication required to create a reservation")
	}

	owner := p.ID
	if req.UserID != "" && p.IsAdmin() {
		owner = req.UserID
	}

	res, err := domain.NewReservation(uuid.New().String(), req.ItemID, owner)
	if err != nil {
		return nil, errors.Validation(err.Error())
	}
	res.LocationID = req.LocationID
	res.CategoryID = req.CategoryID
	res.Apply(domain.Patch{
		Quantity:       req.Quantity,
		Purpose:        req.Purpose,
		AttachmentCode: req.AttachmentCode,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		UserContactNo:  req.UserContactNo,
		UserEmail:      req.UserEmail,
	})

	if err := res.ValidateForSave(); err != nil {
		s.metrics.RecordOperationFailure("create")
		return nil, err
	}

	item, err := s.checkAdmissibility(ctx, res)
	if err != nil {
		s.metrics.RecordOperationFailure("create")
		return nil, err
	}

	if _, err := s.repo.Insert(ctx, res); err != nil {
		s.metrics.RecordOperationFailure("create")
		return nil, err
	}

	// The catalog decrements its available count once a checked,
	// quantity-tracked reservation lands. Failure here does not roll the
	// reservation back.
	if item != nil && item.QuantityTracked() {
		if _, err := s.catalog.AdjustInventory(ctx, res.ItemID, -res.Quantity); err != nil {
			s.logger.WithReservationID(res.ID).WithError(err).Warn("inventory adjustment failed after create")
		}
	}

	s.recordTransition(res, "", res.Status, p, "create")
	s.publishStatus(ctx, res)
	s.metrics.ReservationsCreated.Inc()
	s.logger.WithOperation("create").WithReservationID(res.ID).WithUserID(p.ID).Info("reservation created")

	return s.loadForResponse(ctx, res)
}

// Update modifies a reservation that is still in the request state.
func (s *ReservationService) Update(ctx context.Context, id string, patch domain.Patch, p domain.Principal) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.update")
	defer span.End()

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := res.UpdatableBy(p); err != nil {
		s.metrics.RecordOperationFailure("update")
		return nil, err
	}

	res.Apply(patch)

	if err := res.ValidateForSave(); err != nil {
		s.metrics.RecordOperationFailure("update")
		return nil, err
	}

	if _, err := s.checkAdmissibility(ctx, res); err != nil {
		s.metrics.RecordOperationFailure("update")
		return nil, err
	}

	if _, err := s.repo.Save(ctx, res); err != nil {
		s.metrics.RecordOperationFailure("update")
		return nil, err
	}

	s.metrics.ReservationsUpdated.Inc()
	s.logger.WithOperation("update").WithReservationID(res.ID).WithUserID(p.ID).Info("reservation updated")

	return s.loadForResponse(ctx, res)
}

// Cancel transitions a reservation to the cancelled state. Admins may
// cancel any reservation, owners only their own; completed reservations
// cannot be cancelled. Cancelling twice is a permitted no-op.
func (s *ReservationService) Cancel(ctx context.Context, id string, p domain.Principal) error {
	ctx, span := s.tracer.Start(ctx, "reservation.cancel")
	defer span.End()

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := res.CancellableBy(p); err != nil {
		s.metrics.RecordOperationFailure("cancel")
		return err
	}

	from := res.Status
	res.MarkCancelled()
	if _, err := s.repo.Save(ctx, res); err != nil {
		s.metrics.RecordOperationFailure("cancel")
		return err
	}

	s.recordTransition(res, from, res.Status, p, "cancel")
	s.publishStatus(ctx, res)
	s.metrics.ReservationsCancelled.Inc()
	s.logger.WithOperation("cancel").WithReservationID(res.ID).WithUserID(p.ID).Info("reservation cancelled")
	return nil
}

// Approve transitions a requested reservation to the approved state.
// The admin check runs before anything else so an unauthorized call
// never touches the catalog.
func (s *ReservationService) Approve(ctx context.Context, id string, p domain.Principal) error {
	ctx, span := s.tracer.Start(ctx, "reservation.approve")
	defer span.End()

	if !p.IsAdmin() {
		s.metrics.RecordOperationFailure("approve")
		return errors.Forbidden("only administrators can approve reservations")
	}

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := res.ApprovableBy(p); err != nil {
		s.metrics.RecordOperationFailure("approve")
		return err
	}

	if _, err := s.checkAdmissibility(ctx, res); err != nil {
		s.metrics.RecordOperationFailure("approve")
		return err
	}

	from := res.Status
	res.MarkApproved()
	if _, err := s.repo.Save(ctx, res); err != nil {
		s.metrics.RecordOperationFailure("approve")
		return err
	}

	s.recordTransition(res, from, res.Status, p, "approve")
	s.publishStatus(ctx, res)
	s.metrics.ReservationsApproved.Inc()
	s.logger.WithOperation("approve").WithReservationID(res.ID).WithUserID(p.ID).Info("reservation approved")
	return nil
}

// FindByID returns one reservation with its item snapshot attached.
func (s *ReservationService) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.attachItem(ctx, res)
	return res, nil
}

// Search returns a page of reservations matching the filter.
func (s *ReservationService) Search(ctx context.Context, filter repository.Filter, page repository.Page) (*PagedResult, error) {
	items, total, err := s.repo.Search(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return &PagedResult{Items: items, Total: total}, nil
}

// SearchForUser returns a page of the user's own reservations.
func (s *ReservationService) SearchForUser(ctx context.Context, filter repository.Filter, page repository.Page, userID string) (*PagedResult, error) {
	items, total, err := s.repo.SearchForUser(ctx, filter, page, userID)
	if err != nil {
		return nil, err
	}
	return &PagedResult{Items: items, Total: total}, nil
}

// ListForItemInWindow returns all reservations of an item whose period
// intersects [start, end]. Read-only; no admissibility check.
func (s *ReservationService) ListForItemInWindow(ctx context.Context, itemID int64, start, end time.Time) ([]*domain.Reservation, error) {
	return s.repo.FindAllInWindow(ctx, itemID, start, end)
}

// loadForResponse reloads committed state and attaches the item
// snapshot for response assembly.
func (s *ReservationService) loadForResponse(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	loaded, err := s.repo.LoadRelations(ctx, res)
	if err != nil {
		return nil, err
	}
	s.attachItem(ctx, loaded)
	return loaded, nil
}

// attachItem best-effort hydrates the item snapshot; responses stay
// usable when the catalog is down.
func (s *ReservationService) attachItem(ctx context.Context, res *domain.Reservation) {
	item, err := s.catalog.FetchItem(ctx, res.ItemID)
	if err != nil {
		s.logger.WithReservationID(res.ID).WithError(err).Debug("item snapshot unavailable for response")
		return
	}
	res.AttachItem(item)
}

func (s *ReservationService) recordTransition(res *domain.Reservation, from, to domain.Status, p domain.Principal, operation string) {
	if s.transitions == nil {
		return
	}
	err := s.transitions.Record(&observability.TransitionEvent{
		Timestamp:     time.Now(),
		ReservationID: res.ID,
		ItemID:        res.ItemID,
		FromStatus:    string(from),
		ToStatus:      string(to),
		ActorID:       p.ID,
		Operation:     operation,
	})
	if err != nil {
		s.logger.WithReservationID(res.ID).WithError(err).Warn("failed to record status transition")
	}
}

func (s *ReservationService) publishStatus(ctx context.Context, res *domain.Reservation) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishStatusChanged(ctx, events.StatusChangedEvent{
		ReservationID: res.ID,
		ItemID:        res.ItemID,
		UserID:        res.UserID,
		Status:        string(res.Status),
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithReservationID(res.ID).WithError(err).Warn("failed to publish status event")
	}
}
