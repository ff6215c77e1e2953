package model

import "time"

// QuantityMode selects how booking items express how much of an event a
// user wants.  The mode is fixed once per deployment (QUANTITY_MODE env
// var); mixing the two shapes within one deployment is not supported.
type QuantityMode string

const (
	// QuantitySeats stores an explicit set of seat numbers per item.
	QuantitySeats QuantityMode = "seats"
	// QuantityCount stores a plain ticket count per item.
	QuantityCount QuantityMode = "count"
)

// Valid reports whether the mode is one of the supported variants.
func (m QuantityMode) Valid() bool {
	return m == QuantitySeats || m == QuantityCount
}

// Quantity is the tagged variant carried by a booking item: either a
// set of seat numbers or an integer ticket count, never both.  The
// zero value is an empty quantity of either shape.
type Quantity struct {
	SeatNos []uint32 `json:"seat_nos,omitempty"`
	Count   uint32   `json:"count,omitempty"`
}

// SeatQuantity builds a seat-set quantity.
func SeatQuantity(nos []uint32) Quantity { return Quantity{SeatNos: nos} }

// CountQuantity builds a ticket-count quantity.
func CountQuantity(n uint32) Quantity { return Quantity{Count: n} }

// BookingItem is a user's persisted intent to attend an event.  Each
// user has at most one item per event; adding the same event again
// replaces the stored quantity.  Corresponds to a row in the
// `booking_items` table, where the seat set is serialized as JSON.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the item.
//  EventID   – event being booked.
//  SeatNos   – reserved seat numbers (seat mode, nil in count mode).
//  Count     – ticket count (count mode, zero in seat mode).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type BookingItem struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	EventID   uint64    `json:"event_id"`
	SeatNos   []uint32  `json:"seat_nos,omitempty"`
	Count     uint32    `json:"count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SummaryItem is one line of a booking summary: the event joined live
// to the item's quantity.  OccupiedCount is recomputed from the current
// reservation state in seat mode and equals Count in count mode.
type SummaryItem struct {
	Event         Event    `json:"event"`
	SeatNos       []uint32 `json:"seat_nos,omitempty"`
	TicketCount   uint32   `json:"ticket_count,omitempty"`
	OccupiedCount uint32   `json:"occupied_count"`
	LineCents     uint64   `json:"line_cents"`
}

// Summary is the priced view of a user's booking items.  TotalCents is
// always recomputed from current event prices at read time and never
// stored, so price changes are reflected immediately.
type Summary struct {
	Items      []SummaryItem `json:"items"`
	TotalCents uint64        `json:"total_cents"`
}
