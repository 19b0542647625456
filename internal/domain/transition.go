package domain

import "github.com/shinmj/reservecheck/internal/pkg/errors"

// Transition rules of the reservation state machine. Each rule combines
// the authorization predicate with the legality of the edge and returns
// nil when the caller may perform the transition.
//
// Edges: request -> cancel (owner or admin, never from done),
// request -> approve (admin only), request -> request (field update,
// owner or admin). Done is reached by an external completion process
// and is terminal here. Cancelling an already cancelled reservation is
// permitted and idempotent.

// CancellableBy decides whether the principal may cancel the
// reservation. Non-admins must own the reservation; completed
// reservations cannot be cancelled by anyone.
func (r *Reservation) CancellableBy(p Principal) error {
	if !p.IsAdmin() && !p.Owns(r) {
		return errors.Forbidden("cannot cancel another user's reservation")
	}
	if r.Status == StatusDone {
		return errors.IllegalTransition("already completed, cannot cancel")
	}
	return nil
}

// ApprovableBy decides whether the principal may approve the
// reservation. Only admins approve, and only from the request state.
// The authorization check runs first so an unauthorized call never
// reaches the catalog.
func (r *Reservation) ApprovableBy(p Principal) error {
	if !p.IsAdmin() {
		return errors.Forbidden("only administrators can approve reservations")
	}
	if r.Status != StatusRequest {
		return errors.IllegalTransition("only requested reservations can be approved")
	}
	return nil
}

// UpdatableBy decides whether the principal may modify the reservation
// fields. Admins may update any reservation still in the request state;
// owners may update their own while in the request state.
func (r *Reservation) UpdatableBy(p Principal) error {
	if !p.IsAdmin() {
		if !p.Owns(r) {
			return errors.Forbidden("cannot modify another user's reservation")
		}
	}
	if r.Status != StatusRequest {
		return errors.IllegalTransition("only modifiable while in request state")
	}
	return nil
}
