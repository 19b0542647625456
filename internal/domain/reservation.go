package domain

import (
	"fmt"
	"time"
)

// Status represents the lifecycle status of a reservation.
type Status string

const (
	StatusRequest Status = "request"
	StatusApprove Status = "approve"
	StatusCancel  Status = "cancel"
	StatusDone    Status = "done"
)

// Reservation is a request to use a catalog item for a period of time.
// Status must only change through the transition rules in transition.go;
// the Mark* methods are called by the orchestrator after a rule passed.
type Reservation struct {
	ID             string
	ItemID         int64
	LocationID     int64
	CategoryID     string
	Quantity       int
	Purpose        string
	AttachmentCode string
	StartDate      time.Time
	EndDate        time.Time
	Status         Status
	UserID         string
	UserContactNo  string
	UserEmail      string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Item is a snapshot of the referenced catalog item, attached when
	// relations are loaded for response assembly. Never persisted.
	Item *ReservationItem
}

// NewReservation builds a reservation in the initial request state.
func NewReservation(id string, itemID int64, userID string) (*Reservation, error) {
	if id == "" {
		return nil, fmt.Errorf("reservation ID cannot be empty")
	}
	if itemID <= 0 {
		return nil, fmt.Errorf("item ID must be positive")
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	now := time.Now()
	return &Reservation{
		ID:        id,
		ItemID:    itemID,
		Status:    StatusRequest,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Patch holds the fields a caller may change while a reservation is
// still in the request state.
type Patch struct {
	Quantity       int
	Purpose        string
	AttachmentCode string
	StartDate      time.Time
	EndDate        time.Time
	UserContactNo  string
	UserEmail      string
}

// Apply overwrites the mutable fields from the patch.
func (r *Reservation) Apply(p Patch) {
	r.Quantity = p.Quantity
	r.Purpose = p.Purpose
	r.AttachmentCode = p.AttachmentCode
	r.StartDate = p.StartDate
	r.EndDate = p.EndDate
	r.UserContactNo = p.UserContactNo
	r.UserEmail = p.UserEmail
	r.UpdatedAt = time.Now()
}

// MarkCancelled sets the cancelled status.
func (r *Reservation) MarkCancelled() {
	r.Status = StatusCancel
	r.UpdatedAt = time.Now()
}

// MarkApproved sets the approved status.
func (r *Reservation) MarkApproved() {
	r.Status = StatusApprove
	r.UpdatedAt = time.Now()
}

// AttachItem stores a catalog item snapshot for response assembly.
func (r *Reservation) AttachItem(item *ReservationItem) {
	r.Item = item
	if item != nil {
		r.ItemID = item.ID
	}
}
