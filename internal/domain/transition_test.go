package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinmj/reservecheck/internal/pkg/errors"
)

func newTestReservation(t *testing.T, status Status) *Reservation {
	t.Helper()
	res, err := NewReservation("res-1", 42, "user")
	require.NoError(t, err)
	res.Status = status
	return res
}

var (
	admin    = Principal{ID: "admin", Roles: []string{RoleAdmin}, Authenticated: true}
	owner    = Principal{ID: "user", Authenticated: true}
	stranger = Principal{ID: "other", Authenticated: true}
)

func TestCancellableBy(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		principal Principal
		wantKind  errors.Kind
		wantOK    bool
	}{
		{name: "owner cancels requested", status: StatusRequest, principal: owner, wantOK: true},
		{name: "admin cancels requested", status: StatusRequest, principal: admin, wantOK: true},
		{name: "admin cancels approved", status: StatusApprove, principal: admin, wantOK: true},
		{name: "stranger cannot cancel", status: StatusRequest, principal: stranger, wantKind: errors.KindForbidden},
		{name: "anonymous cannot cancel", status: StatusRequest, principal: Anonymous(), wantKind: errors.KindForbidden},
		{name: "owner cannot cancel completed", status: StatusDone, principal: owner, wantKind: errors.KindIllegalTransition},
		{name: "admin cannot cancel completed", status: StatusDone, principal: admin, wantKind: errors.KindIllegalTransition},
		{name: "double cancel is permitted", status: StatusCancel, principal: owner, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestReservation(t, tt.status)
			err := res.CancellableBy(tt.principal)
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errors.KindOf(err))
		})
	}
}

func TestApprovableBy(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		principal Principal
		wantKind  errors.Kind
		wantOK    bool
	}{
		{name: "admin approves requested", status: StatusRequest, principal: admin, wantOK: true},
		{name: "owner cannot approve", status: StatusRequest, principal: owner, wantKind: errors.KindForbidden},
		{name: "anonymous cannot approve", status: StatusRequest, principal: Anonymous(), wantKind: errors.KindForbidden},
		{name: "cancelled cannot be approved", status: StatusCancel, principal: admin, wantKind: errors.KindIllegalTransition},
		{name: "approved cannot be re-approved", status: StatusApprove, principal: admin, wantKind: errors.KindIllegalTransition},
		{name: "completed cannot be approved", status: StatusDone, principal: admin, wantKind: errors.KindIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestReservation(t, tt.status)
			err := res.ApprovableBy(tt.principal)
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errors.KindOf(err))
		})
	}
}

func TestUpdatableBy(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		principal Principal
		wantKind  errors.Kind
		wantOK    bool
	}{
		{name: "owner updates requested", status: StatusRequest, principal: owner, wantOK: true},
		{name: "admin updates requested", status: StatusRequest, principal: admin, wantOK: true},
		{name: "stranger cannot update", status: StatusRequest, principal: stranger, wantKind: errors.KindForbidden},
		{name: "owner cannot update approved", status: StatusApprove, principal: owner, wantKind: errors.KindIllegalTransition},
		{name: "admin cannot update approved", status: StatusApprove, principal: admin, wantKind: errors.KindIllegalTransition},
		{name: "owner cannot update cancelled", status: StatusCancel, principal: owner, wantKind: errors.KindIllegalTransition},
		{name: "owner cannot update completed", status: StatusDone, principal: owner, wantKind: errors.KindIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestReservation(t, tt.status)
			err := res.UpdatableBy(tt.principal)
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, errors.KindOf(err))
		})
	}
}

func TestPrincipalIsAdmin(t *testing.T) {
	assert.True(t, admin.IsAdmin())
	assert.False(t, owner.IsAdmin())
	assert.False(t, Anonymous().IsAdmin())

	// Roles are meaningless without authentication
	unauthenticated := Principal{ID: "x", Roles: []string{RoleAdmin}}
	assert.False(t, unauthenticated.IsAdmin())
}

func TestMarkTransitions(t *testing.T) {
	res := newTestReservation(t, StatusRequest)

	res.MarkApproved()
	assert.Equal(t, StatusApprove, res.Status)

	res.MarkCancelled()
	assert.Equal(t, StatusCancel, res.Status)
}
