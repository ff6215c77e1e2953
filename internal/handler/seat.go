package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
	"github.com/iliyamo/event-ticket-booking/internal/reservation"
)

// SeatHandler exposes the seat inventory and the reservation engine.
// All seat mutations go through the engine; the handler never writes
// seat rows directly.
type SeatHandler struct {
	Engine    *reservation.Engine
	Inventory *repository.InventoryRepo
}

// NewSeatHandler constructs a SeatHandler.
func NewSeatHandler(engine *reservation.Engine, inv *repository.InventoryRepo) *SeatHandler {
	if engine == nil || inv == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	return &SeatHandler{Engine: engine, Inventory: inv}
}

type seatNosReq struct {
	SeatNos []uint32 `json:"seat_nos"`
}

// ListByEvent returns an event's full seat map, optionally filtered
// with ?reserved=true or ?reserved=false.  Public.
func (h *SeatHandler) ListByEvent(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	inv, err := h.Inventory.Inventory(ctx, eventID)
	if err != nil {
		return domainError(c, err)
	}

	seats := inv.Seats
	switch c.QueryParam("reserved") {
	case "true":
		seats = filterSeats(seats, true)
	case "false":
		seats = filterSeats(seats, false)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id": eventID,
		"seats":    seats,
		"reserved": inv.ReservedCount(),
		"total":    len(inv.Seats),
	})
}

// Reserve claims the requested seats for the caller.  The response
// reports both the seats won and the seats rejected; clients decide
// whether a partial win is acceptable.  Only when every seat was
// rejected does the request itself fail, with 409.
func (h *SeatHandler) Reserve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req seatNosReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.Reserve(ctx, eventID, uid, req.SeatNos)
	if err != nil {
		return domainError(c, err)
	}
	if len(res.Reserved) == 0 {
		return c.JSON(http.StatusConflict, res)
	}
	return c.JSON(http.StatusOK, res)
}

// Release frees the caller's hold on the given seats.  Seats held by
// other users are silently skipped, so one user cannot free another's
// reservation.
func (h *SeatHandler) Release(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req seatNosReq
	if err := c.Bind(&req); err != nil || len(req.SeatNos) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_nos required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	inv, err := h.Inventory.Inventory(ctx, eventID)
	if err != nil {
		return domainError(c, err)
	}
	held := make(map[uint32]bool)
	for _, no := range inv.ReservedBy(uid) {
		held[no] = true
	}
	var mine []uint32
	for _, no := range req.SeatNos {
		if held[no] {
			mine = append(mine, no)
		}
	}
	if len(mine) > 0 {
		if err := h.Engine.Release(ctx, eventID, mine); err != nil {
			return domainError(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"released": mine})
}

// MySeats lists every seat the caller currently holds across all
// events.
func (h *SeatHandler) MySeats(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seats, err := h.Inventory.SeatsByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}

func filterSeats(seats []model.Seat, reserved bool) []model.Seat {
	out := make([]model.Seat, 0, len(seats))
	for _, s := range seats {
		if s.Reserved == reserved {
			out = append(out, s)
		}
	}
	return out
}
