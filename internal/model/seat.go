package model

import "time"

// Seat describes one seat in an event's inventory.  Seats are
// identified by their event and a 1-based sequence number.  A seat
// that is reserved always carries the reserving user; a free seat
// carries neither a user nor a reservation timestamp.
//
// Fields:
//  EventID    – event this seat belongs to.
//  SeatNo     – position of the seat, 1..capacity.
//  Reserved   – whether the seat is currently held.
//  ReservedBy – user holding the seat (nil when free).
//  ReservedAt – when the seat was claimed (nil when free).
type Seat struct {
	EventID    uint64     `json:"event_id"`
	SeatNo     uint32     `json:"seat_no"`
	Reserved   bool       `json:"reserved"`
	ReservedBy *uint64    `json:"reserved_by,omitempty"`
	ReservedAt *time.Time `json:"reserved_at,omitempty"`
}

// SeatInventory is the complete set of seats for one event.  It is
// created together with the event, regenerated whenever the event's
// capacity changes (destroying any outstanding reservations) and
// deleted with the event.  Immediately after creation or regeneration
// len(Seats) equals the event capacity and every seat is free.
type SeatInventory struct {
	EventID uint64
	Seats   []Seat
}

// ReservedCount returns how many seats in the inventory are held.
func (inv *SeatInventory) ReservedCount() uint32 {
	var n uint32
	for _, s := range inv.Seats {
		if s.Reserved {
			n++
		}
	}
	return n
}

// ReservedBy returns the seat numbers currently held by the given user,
// in inventory order.
func (inv *SeatInventory) ReservedBy(userID uint64) []uint32 {
	var nos []uint32
	for _, s := range inv.Seats {
		if s.Reserved && s.ReservedBy != nil && *s.ReservedBy == userID {
			nos = append(nos, s.SeatNo)
		}
	}
	return nos
}
