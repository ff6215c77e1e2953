package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// EventHandler serves the event catalog: public reads plus
// organizer-only writes.  Every write keeps the seat inventory in step
// with the event row (created with it, regenerated on capacity change,
// deleted with it).
type EventHandler struct {
	Events    *repository.EventRepo
	Inventory *repository.InventoryRepo
	Bookings  *repository.BookingRepo
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(e *repository.EventRepo, inv *repository.InventoryRepo, b *repository.BookingRepo) *EventHandler {
	if e == nil || inv == nil || b == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: e, Inventory: inv, Bookings: b}
}

type eventReq struct {
	CategoryID  uint64 `json:"category_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	PriceCents  uint32 `json:"price_cents"`
	Capacity    uint32 `json:"capacity"`
	EventDate   string `json:"event_date"` // RFC 3339
}

func (r *eventReq) validate() (time.Time, string) {
	if strings.TrimSpace(r.Title) == "" {
		return time.Time{}, "title required"
	}
	if r.CategoryID == 0 {
		return time.Time{}, "category_id required"
	}
	if r.Capacity == 0 {
		return time.Time{}, "capacity must be positive"
	}
	date, err := time.Parse(time.RFC3339, r.EventDate)
	if err != nil {
		return time.Time{}, "event_date must be RFC 3339"
	}
	return date, ""
}

// Create inserts an event and provisions its seat inventory.  A failed
// inventory insert rolls the event row back so the two never diverge.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	date, msg := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Events.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	event := model.Event{
		OwnerID:     uid,
		CategoryID:  req.CategoryID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    req.Location,
		PriceCents:  req.PriceCents,
		Capacity:    req.Capacity,
		EventDate:   date,
	}
	if err := h.Events.CreateTx(ctx, tx, &event); err != nil {
		log.Printf("event: create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	if err := h.Inventory.CreateTx(ctx, tx, event.ID, event.Capacity); err != nil {
		log.Printf("event: seat inventory create failed for event %d: %v", event.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create inventory failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.JSON(http.StatusCreated, event)
}

// Get returns one event by id.  Public.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	event, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// List returns all events, optionally filtered with ?category_id=.
// Public.
func (h *EventHandler) List(c echo.Context) error {
	var categoryID uint64
	if s := c.QueryParam("category_id"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category_id"})
		}
		categoryID = n
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.List(ctx, categoryID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if events == nil {
		events = []model.Event{}
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Update modifies an event owned by the caller.  A capacity change
// regenerates the seat inventory, destroying outstanding reservations;
// the number of dropped reservations is logged.
func (h *EventHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	date, msg := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	existing, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return domainError(c, err)
	}

	event := model.Event{
		ID:          id,
		CategoryID:  req.CategoryID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    req.Location,
		PriceCents:  req.PriceCents,
		Capacity:    req.Capacity,
		EventDate:   date,
	}
	if err := h.Events.Update(ctx, uid, &event); err != nil {
		return domainError(c, err)
	}

	if existing.Capacity != req.Capacity {
		dropped, err := h.Inventory.Regenerate(ctx, id, req.Capacity)
		if err != nil {
			log.Printf("event: inventory regenerate failed for event %d: %v", id, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "regenerate inventory failed"})
		}
		if dropped > 0 {
			log.Printf("event: capacity change on event %d dropped %d reservations", id, dropped)
		}
	}

	updated, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete removes an event together with its seat inventory and every
// booking item referencing it, all in one transaction.
func (h *EventHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Events.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Bookings.DeleteByEventTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete booking items failed"})
	}
	if err := h.Inventory.DeleteTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete inventory failed"})
	}
	if err := h.Events.DeleteTx(ctx, tx, uid, id); err != nil {
		return domainError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.NoContent(http.StatusNoContent)
}
