package model

import "time"

// Event represents a bookable event listed in the catalog.  An event
// belongs to one organizer and one category.  Capacity is the ceiling
// that seat reservations must respect; the seat inventory of an event
// always contains exactly Capacity seats.  Price is stored in cents and
// is always read live when computing booking totals.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – user ID of the organizer who created the event.
//  CategoryID  – category the event belongs to.
//  Title       – short display title.
//  Description – free-form description text.
//  Location    – venue or address string.
//  PriceCents  – ticket price in cents.
//  Capacity    – maximum concurrent seats/tickets for this event.
//  EventDate   – when the event takes place.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64    `json:"id"`
	OwnerID     uint64    `json:"owner_id"`
	CategoryID  uint64    `json:"category_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	PriceCents  uint32    `json:"price_cents"`
	Capacity    uint32    `json:"capacity"`
	EventDate   time.Time `json:"event_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category groups events for browsing.  Corresponds to a row in the
// `categories` table.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique category name.
//  Description – optional description text.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Category struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
