package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinmj/reservecheck/internal/catalog"
	"github.com/shinmj/reservecheck/internal/domain"
	"github.com/shinmj/reservecheck/internal/pkg/errors"
)

var (
	adminP    = domain.Principal{ID: "admin", Roles: []string{domain.RoleAdmin}, Authenticated: true}
	ownerP    = domain.Principal{ID: "user", Authenticated: true}
	strangerP = domain.Principal{ID: "other", Authenticated: true}
)

func TestCreate_Succeeds(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, recorder := newTestService(repo, cat)

	res, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 50), ownerP)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRequest, res.Status)
	assert.Equal(t, "user", res.UserID)
	assert.NotEmpty(t, res.ID)
	require.NotNil(t, res.Item)
	assert.Equal(t, "community hall", res.Item.Name)

	stored, ok := repo.Stored(res.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusRequest, stored.Status)

	// Quantity-tracked item: inventory adjustment fired
	require.Len(t, cat.Adjustments(), 1)
	assert.Equal(t, -50, cat.Adjustments()[0])

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "create", events[0].Operation)
	assert.Equal(t, string(domain.StatusRequest), events[0].ToStatus)
}

func TestCreate_InsufficientInventory(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(10))
	svc, _ := newTestService(repo, cat)

	_, err := svc.Create(context.Background(), createRequestFor(placeItem(10), 50), ownerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindInsufficientInventory, errors.KindOf(err))
	assert.Contains(t, err.Error(), "available: 10")

	// Check runs before persist: nothing was stored
	result, err := svc.Search(context.Background(), searchAll(), pageOne())
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	// No inventory adjustment on a failed create
	assert.Empty(t, cat.Adjustments())
}

func TestCreate_ZeroInventory(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(0))
	svc, _ := newTestService(repo, cat)

	_, err := svc.Create(context.Background(), createRequestFor(placeItem(0), 1), ownerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindInsufficientInventory, errors.KindOf(err))
}

func TestCreate_SpaceCategorySkipsQuantityRule(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	item := placeItem(0)
	item.CategoryID = domain.CategorySpace
	cat.PutItem(item)
	svc, _ := newTestService(repo, cat)

	req := createRequestFor(item, 0)
	res, err := svc.Create(context.Background(), req, ownerP)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRequest, res.Status)

	// Space resources carry no countable inventory: no adjustment
	assert.Empty(t, cat.Adjustments())
}

func TestCreate_OutOfWindow(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	req := createRequestFor(placeItem(100), 10)
	req.StartDate = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC) // before operation window opens
	req.EndDate = req.StartDate.Add(2 * time.Hour)

	_, err := svc.Create(context.Background(), req, ownerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindOutOfWindow, errors.KindOf(err))
	assert.Contains(t, err.Error(), "starts before")

	req.StartDate = time.Date(2026, 9, 20, 9, 0, 0, 0, time.UTC)
	req.EndDate = time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC) // past operation window close
	_, err = svc.Create(context.Background(), req, ownerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindOutOfWindow, errors.KindOf(err))
	assert.Contains(t, err.Error(), "ends after")
}

func TestCreate_RealtimeWindowUsed(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	item := placeItem(100)
	item.FulfilmentMode = domain.FulfilmentRealtime
	item.RequestStart = time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC)
	item.RequestEnd = time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC)
	cat.PutItem(item)
	svc, _ := newTestService(repo, cat)

	// Inside operation window but outside the request window
	req := createRequestFor(item, 10)
	req.StartDate = time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC)
	req.EndDate = req.StartDate.Add(time.Hour)

	_, err := svc.Create(context.Background(), req, ownerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindOutOfWindow, errors.KindOf(err))
}

func TestCreate_DegradeOpenWhenCatalogDown(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.SetUnavailable(true)
	svc, _ := newTestService(repo, cat)

	res, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 50), ownerP)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRequest, res.Status)

	// Check was skipped: no adjustment either
	assert.Empty(t, cat.Adjustments())
}

func TestCreate_RequiresAuthentication(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	svc, _ := newTestService(repo, cat)

	_, err := svc.Create(context.Background(), createRequestFor(placeItem(1), 1), domain.Anonymous())
	require.Error(t, err)
	assert.Equal(t, errors.KindForbidden, errors.KindOf(err))
}

func TestCreate_AdminReservesOnBehalf(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	req := createRequestFor(placeItem(100), 5)
	req.UserID = "someone-else"

	res, err := svc.Create(context.Background(), req, adminP)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", res.UserID)

	// Non-admins cannot reserve for another user
	res, err = svc.Create(context.Background(), req, ownerP)
	require.NoError(t, err)
	assert.Equal(t, "user", res.UserID)
}

func TestUpdate_OwnerWhileRequested(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 10), ownerP)
	require.NoError(t, err)

	start, end := testWindow()
	patch := domain.Patch{Quantity: 20, Purpose: "bigger offsite", StartDate: start, EndDate: end}

	updated, err := svc.Update(context.Background(), created.ID, patch, ownerP)
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Quantity)
	assert.Equal(t, "bigger offsite", updated.Purpose)
}

func TestUpdate_AfterApprovalFails(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 10), ownerP)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), created.ID, adminP))

	start, end := testWindow()
	_, err = svc.Update(context.Background(), created.ID, domain.Patch{Quantity: 5, StartDate: start, EndDate: end}, ownerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindIllegalTransition, errors.KindOf(err))
}

func TestUpdate_StrangerForbidden(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 10), ownerP)
	require.NoError(t, err)

	start, end := testWindow()
	_, err = svc.Update(context.Background(), created.ID, domain.Patch{Quantity: 5, StartDate: start, EndDate: end}, strangerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindForbidden, errors.KindOf(err))
}

func TestUpdate_NotFound(t *testing.T) {
	repo := NewMockRepository()
	svc, _ := newTestService(repo, catalog.NewMockClient())

	_, err := svc.Update(context.Background(), "missing", domain.Patch{}, adminP)
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestCancel_Rules(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, recorder := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 10), ownerP)
	require.NoError(t, err)

	// Stranger is rejected
	err = svc.Cancel(context.Background(), created.ID, strangerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindForbidden, errors.KindOf(err))

	// Owner cancels
	require.NoError(t, svc.Cancel(context.Background(), created.ID, ownerP))
	stored, _ := repo.Stored(created.ID)
	assert.Equal(t, domain.StatusCancel, stored.Status)

	// Cancelling again is a permitted no-op
	require.NoError(t, svc.Cancel(context.Background(), created.ID, ownerP))

	events := recorder.Events()
	var cancels int
	for _, ev := range events {
		if ev.Operation == "cancel" {
			cancels++
		}
	}
	assert.Equal(t, 2, cancels)
}

func TestCancel_CompletedRejected(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 10), ownerP)
	require.NoError(t, err)

	// An external process marks the reservation done
	stored, _ := repo.Stored(created.ID)
	stored.Status = domain.StatusDone
	_, err = repo.Save(context.Background(), stored)
	require.NoError(t, err)

	for _, p := range []domain.Principal{ownerP, adminP} {
		err = svc.Cancel(context.Background(), created.ID, p)
		require.Error(t, err)
		assert.Equal(t, errors.KindIllegalTransition, errors.KindOf(err))
	}
}

func TestApprove_NonAdminForbiddenBeforeAnyRemoteCall(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 10), ownerP)
	require.NoError(t, err)
	fetchesAfterCreate := cat.FetchCount()

	err = svc.Approve(context.Background(), created.ID, ownerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindForbidden, errors.KindOf(err))
	assert.Equal(t, fetchesAfterCreate, cat.FetchCount())
}

func TestApprove_InsufficientInventoryKeepsRequestStatus(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	item := placeItem(100)
	cat.PutItem(item)
	svc, _ := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(item, 10), ownerP)
	require.NoError(t, err)

	// Inventory drained since creation
	drained := placeItem(0)
	cat.PutItem(drained)

	err = svc.Approve(context.Background(), created.ID, adminP)
	require.Error(t, err)
	assert.Equal(t, errors.KindInsufficientInventory, errors.KindOf(err))

	stored, _ := repo.Stored(created.ID)
	assert.Equal(t, domain.StatusRequest, stored.Status)
}

func TestApprove_Succeeds(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, recorder := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 10), ownerP)
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), created.ID, adminP))
	stored, _ := repo.Stored(created.ID)
	assert.Equal(t, domain.StatusApprove, stored.Status)

	events := recorder.Events()
	last := events[len(events)-1]
	assert.Equal(t, "approve", last.Operation)
	assert.Equal(t, string(domain.StatusRequest), last.FromStatus)
	assert.Equal(t, string(domain.StatusApprove), last.ToStatus)
}

func TestListForItemInWindow(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 10), ownerP)
	require.NoError(t, err)

	start, end := testWindow()

	// Overlapping window
	items, err := svc.ListForItemInWindow(context.Background(), 7, start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)

	// Disjoint window
	items, err = svc.ListForItemInWindow(context.Background(), 7, end.Add(time.Hour), end.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreate_ValidationFailureCounted(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	before := testutil.ToFloat64(sharedMetrics().OperationFailed.WithLabelValues("create"))

	// Place reservations require a period
	req := createRequestFor(placeItem(100), 10)
	req.StartDate = time.Time{}
	req.EndDate = time.Time{}
	_, err := svc.Create(context.Background(), req, ownerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	after := testutil.ToFloat64(sharedMetrics().OperationFailed.WithLabelValues("create"))
	assert.Equal(t, before+1, after)
}

func TestUpdate_ValidationFailureCounted(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	created, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 10), ownerP)
	require.NoError(t, err)

	before := testutil.ToFloat64(sharedMetrics().OperationFailed.WithLabelValues("update"))

	start, end := testWindow()
	_, err = svc.Update(context.Background(), created.ID, domain.Patch{StartDate: end, EndDate: start}, ownerP)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	after := testutil.ToFloat64(sharedMetrics().OperationFailed.WithLabelValues("update"))
	assert.Equal(t, before+1, after)
}

func TestSearchForUser(t *testing.T) {
	repo := NewMockRepository()
	cat := catalog.NewMockClient()
	cat.PutItem(placeItem(100))
	svc, _ := newTestService(repo, cat)

	_, err := svc.Create(context.Background(), createRequestFor(placeItem(100), 1), ownerP)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), createRequestFor(placeItem(100), 2), strangerP)
	require.NoError(t, err)

	result, err := svc.SearchForUser(context.Background(), searchAll(), pageOne(), "user")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "user", result.Items[0].UserID)
}
