// Package queue defines message payloads exchanged over the message broker.
package queue

// Booking change actions carried in BookingChangedEvent.Action.
const (
	ActionItemAdded   = "item_added"
	ActionItemRemoved = "item_removed"
	ActionCleared     = "cleared"
)

// BookingChangedEvent is published whenever a user's booking changes.
// It carries enough information for downstream consumers to notify the
// user or feed analytics without querying the primary database.  The
// notification ID is a UUID assigned by the publisher so consumers can
// deduplicate redeliveries.
type BookingChangedEvent struct {
	NotificationID string   `json:"notification_id"`
	Action         string   `json:"action"`
	UserID         uint64   `json:"user_id"`
	EventID        uint64   `json:"event_id,omitempty"`
	EventTitle     string   `json:"event_title,omitempty"`
	SeatNos        []uint32 `json:"seat_nos,omitempty"`
	TicketCount    uint32   `json:"ticket_count,omitempty"`
	TotalCents     uint64   `json:"total_cents"`
	ChangedAt      string   `json:"changed_at"`
}
