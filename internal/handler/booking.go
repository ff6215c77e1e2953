package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/booking"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	queue_publisher "github.com/iliyamo/event-ticket-booking/internal/service"
)

// BookingHandler serves the caller's booking: add, remove, clear and
// the priced summary.  Every mutation publishes a booking.changed
// message; publish failures are logged by the publisher and never fail
// the request.
type BookingHandler struct {
	Agg *booking.Aggregator
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(agg *booking.Aggregator) *BookingHandler {
	if agg == nil {
		panic("nil aggregator passed to NewBookingHandler")
	}
	return &BookingHandler{Agg: agg}
}

type addItemReq struct {
	SeatNos []uint32 `json:"seat_nos,omitempty"`
	Count   uint32   `json:"count,omitempty"`
}

// GetSummary returns the caller's booking priced at current event
// prices.
func (h *BookingHandler) GetSummary(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	summary, err := h.Agg.GetSummary(ctx, uid)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// AddItem adds or replaces the caller's booking item for the event in
// the path.  The body carries either seat_nos or count, matching the
// deployment's quantity mode.
func (h *BookingHandler) AddItem(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req addItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Agg.AddItem(ctx, uid, eventID, model.Quantity{SeatNos: req.SeatNos, Count: req.Count})
	if err != nil {
		return domainError(c, err)
	}

	h.notify(ctx, uid, queue.ActionItemAdded, eventID, res.Item.SeatNos, res.Item.Count)

	return c.JSON(http.StatusOK, echo.Map{
		"item":     res.Item,
		"reserved": res.Reserved,
		"rejected": res.Rejected,
	})
}

// RemoveItem deletes the caller's item for one event, releasing its
// seats.
func (h *BookingHandler) RemoveItem(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Agg.RemoveItem(ctx, uid, eventID); err != nil {
		return domainError(c, err)
	}

	h.notify(ctx, uid, queue.ActionItemRemoved, eventID, nil, 0)
	return c.NoContent(http.StatusNoContent)
}

// Clear empties the caller's booking.  Clearing an empty booking is
// fine.
func (h *BookingHandler) Clear(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Agg.Clear(ctx, uid); err != nil {
		return domainError(c, err)
	}

	h.notify(ctx, uid, queue.ActionCleared, 0, nil, 0)
	return c.NoContent(http.StatusNoContent)
}

// notify publishes a booking.changed message carrying the recomputed
// total.  Runs in the background so a slow or dead broker cannot stall
// the response.
func (h *BookingHandler) notify(ctx context.Context, userID uint64, action string, eventID uint64, seatNos []uint32, count uint32) {
	ev := queue.BookingChangedEvent{
		Action:      action,
		UserID:      userID,
		EventID:     eventID,
		SeatNos:     seatNos,
		TicketCount: count,
	}
	// Best effort enrichment; the message is useful without it.
	if summary, err := h.Agg.GetSummary(ctx, userID); err == nil {
		ev.TotalCents = summary.TotalCents
		if eventID != 0 {
			for _, line := range summary.Items {
				if line.Event.ID == eventID {
					ev.EventTitle = line.Event.Title
					break
				}
			}
		}
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishBookingChanged(pubCtx, ev)
	}()
}
