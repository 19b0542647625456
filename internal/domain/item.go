package domain

import "time"

// Reservation categories with special admissibility rules. The category
// set is owned by the catalog service; these are the values the rules
// key on.
const (
	CategorySpace     = "space"
	CategoryEducation = "education"
	CategoryEquipment = "equipment"
	CategoryPlace     = "place"
)

// Fulfilment modes of a catalog item.
const (
	FulfilmentRealtime  = "realtime"
	FulfilmentScheduled = "scheduled"
)

// ReservationItem is a read-only snapshot of a catalog item. The catalog
// service owns and mutates it; a snapshot is only valid for the single
// admissibility check it was fetched for.
type ReservationItem struct {
	ID                int64     `json:"reserveItemId"`
	Name              string    `json:"reserveItemName"`
	CategoryID        string    `json:"categoryId"`
	TotalQuantity     int       `json:"totalQty"`
	AvailableQuantity int       `json:"inventoryQty"`
	FulfilmentMode    string    `json:"reserveMethodId"`
	RequestStart      time.Time `json:"requestStartDate"`
	RequestEnd        time.Time `json:"requestEndDate"`
	OperationStart    time.Time `json:"operationStartDate"`
	OperationEnd      time.Time `json:"operationEndDate"`
}

// ReservableWindow returns the availability window applicable to this
// item: realtime items are checked against the request-open window,
// everything else against the operational window.
func (i *ReservationItem) ReservableWindow() (start, end time.Time) {
	if i.FulfilmentMode == FulfilmentRealtime {
		return i.RequestStart, i.RequestEnd
	}
	return i.OperationStart, i.OperationEnd
}

// QuantityTracked reports whether the quantity rule applies to this
// item. Space resources are booked as a whole and carry no countable
// inventory.
func (i *ReservationItem) QuantityTracked() bool {
	return i.CategoryID != CategorySpace
}

// WindowTracked reports whether the availability-window rule applies.
// Education items are treated as always open for scheduling.
func (i *ReservationItem) WindowTracked() bool {
	return i.CategoryID != CategoryEducation
}
