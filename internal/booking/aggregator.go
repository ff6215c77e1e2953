// Package booking computes priced booking summaries and maintains the
// per-user booking items.  Quantities are either explicit seat sets or
// plain ticket counts; the shape is fixed once per deployment and the
// two never mix.  Totals are always recomputed from current event
// prices at read time so a price change is reflected immediately.
package booking

import (
	"context"
	"errors"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
	"github.com/iliyamo/event-ticket-booking/internal/reservation"
)

// Catalog is the slice of the event catalog the aggregator consumes:
// price and capacity lookups only.  Event rows stay owned by the
// organizer-facing CRUD code.
type Catalog interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// Store persists booking items.  *repository.BookingRepo satisfies it.
type Store interface {
	Upsert(ctx context.Context, item *model.BookingItem) error
	GetByUserAndEvent(ctx context.Context, userID, eventID uint64) (*model.BookingItem, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingItem, error)
	Delete(ctx context.Context, userID, eventID uint64) error
	DeleteAll(ctx context.Context, userID uint64) error
}

// Reserver is the reservation engine surface used in seat mode.
type Reserver interface {
	Reserve(ctx context.Context, eventID, userID uint64, seatNos []uint32) (reservation.Result, error)
	Release(ctx context.Context, eventID uint64, seatNos []uint32) error
}

// Inventory provides read access to seat state for capacity math and
// summary recomputation in seat mode.
type Inventory interface {
	Inventory(ctx context.Context, eventID uint64) (*model.SeatInventory, error)
}

// Aggregator implements the booking operations over its collaborators.
// Seat state is only ever touched through the reservation engine.
type Aggregator struct {
	mode    model.QuantityMode
	catalog Catalog
	store   Store
	engine  Reserver
	inv     Inventory
}

// NewAggregator constructs an Aggregator for the given quantity mode.
// engine and inv may be nil in count mode, where seats are never
// touched.
func NewAggregator(mode model.QuantityMode, catalog Catalog, store Store, engine Reserver, inv Inventory) *Aggregator {
	if !mode.Valid() {
		panic("invalid quantity mode passed to NewAggregator")
	}
	if catalog == nil || store == nil {
		panic("nil dependency passed to NewAggregator")
	}
	if mode == model.QuantitySeats && (engine == nil || inv == nil) {
		panic("seat mode requires engine and inventory")
	}
	return &Aggregator{mode: mode, catalog: catalog, store: store, engine: engine, inv: inv}
}

// Mode returns the deployment's quantity mode.
func (a *Aggregator) Mode() model.QuantityMode { return a.mode }

// AddResult reports what AddItem stored.  In seat mode Reserved and
// Rejected carry the reservation outcome; in count mode both are nil.
type AddResult struct {
	Item     model.BookingItem
	Reserved []uint32
	Rejected []uint32
}

// AddItem validates the quantity against the event's capacity and
// upserts the user's item for the event, replacing any previous entry.
//
// Count mode: the count must not exceed the event capacity, otherwise
// ErrCapacityExceeded and nothing changes.
//
// Seat mode: the deduplicated seat set must fit into the capacity left
// by other users, otherwise ErrCapacityExceeded and nothing changes.
// The seats are then reserved through the engine; the stored item holds
// the seats actually won.  When every seat is rejected the item is not
// stored and ErrConflict is returned.  Seats from a previous entry that
// are not part of the new set are released.
func (a *Aggregator) AddItem(ctx context.Context, userID, eventID uint64, q model.Quantity) (*AddResult, error) {
	event, err := a.catalog.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if a.mode == model.QuantityCount {
		if q.Count == 0 || len(q.SeatNos) != 0 {
			return nil, repository.ErrValidation
		}
		if q.Count > event.Capacity {
			return nil, repository.ErrCapacityExceeded
		}
		item := model.BookingItem{UserID: userID, EventID: eventID, Count: q.Count}
		if err := a.store.Upsert(ctx, &item); err != nil {
			return nil, err
		}
		return &AddResult{Item: item}, nil
	}

	// Seat mode.
	if len(q.SeatNos) == 0 || q.Count != 0 {
		return nil, repository.ErrValidation
	}
	requested := dedupe(q.SeatNos)

	inv, err := a.inv.Inventory(ctx, eventID)
	if err != nil {
		return nil, err
	}
	heldByOthers := inv.ReservedCount() - uint32(len(inv.ReservedBy(userID)))
	if uint32(len(requested)) > event.Capacity-heldByOthers {
		return nil, repository.ErrCapacityExceeded
	}

	prior, err := a.store.GetByUserAndEvent(ctx, userID, eventID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	res, err := a.engine.Reserve(ctx, eventID, userID, requested)
	if err != nil {
		return nil, err
	}
	if len(res.Reserved) == 0 {
		return nil, repository.ErrConflict
	}

	// Seats held under the previous entry but absent from the new set
	// are no longer wanted; give them back.
	if prior != nil {
		if stale := subtract(prior.SeatNos, res.Reserved); len(stale) > 0 {
			if err := a.engine.Release(ctx, eventID, stale); err != nil {
				return nil, err
			}
		}
	}

	item := model.BookingItem{UserID: userID, EventID: eventID, SeatNos: res.Reserved}
	if err := a.store.Upsert(ctx, &item); err != nil {
		return nil, err
	}
	return &AddResult{Item: item, Reserved: res.Reserved, Rejected: res.Rejected}, nil
}

// RemoveItem deletes the user's item for the event and, in seat mode,
// releases its seats.  Returns repository.ErrNotFound when the user has
// no entry for the event.
func (a *Aggregator) RemoveItem(ctx context.Context, userID, eventID uint64) error {
	item, err := a.store.GetByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if a.mode == model.QuantitySeats && len(item.SeatNos) > 0 {
		if err := a.engine.Release(ctx, eventID, item.SeatNos); err != nil {
			return err
		}
	}
	return a.store.Delete(ctx, userID, eventID)
}

// Clear empties the user's booking, releasing all associated seats in
// seat mode.  Clearing an already empty booking succeeds.
func (a *Aggregator) Clear(ctx context.Context, userID uint64) error {
	items, err := a.store.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if a.mode == model.QuantitySeats {
		for _, item := range items {
			if len(item.SeatNos) == 0 {
				continue
			}
			if err := a.engine.Release(ctx, item.EventID, item.SeatNos); err != nil {
				return err
			}
		}
	}
	return a.store.DeleteAll(ctx, userID)
}

// GetSummary joins the user's items to current event prices and, in
// seat mode, to the live reservation state, and returns the recomputed
// total.  Nothing here is cached or stored.
func (a *Aggregator) GetSummary(ctx context.Context, userID uint64) (*model.Summary, error) {
	items, err := a.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &model.Summary{Items: []model.SummaryItem{}}
	for _, item := range items {
		event, err := a.catalog.GetByID(ctx, item.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}

		var occupied uint32
		line := model.SummaryItem{Event: *event}
		if a.mode == model.QuantityCount {
			occupied = item.Count
			line.TicketCount = item.Count
		} else {
			line.SeatNos = item.SeatNos
			occupied = a.occupiedCount(ctx, userID, item)
		}
		line.OccupiedCount = occupied
		line.LineCents = uint64(event.PriceCents) * uint64(occupied)
		summary.TotalCents += line.LineCents
		summary.Items = append(summary.Items, line)
	}
	return summary, nil
}

// occupiedCount recounts how many of the item's seats the user holds
// right now.  A regenerated inventory legitimately yields zero.
func (a *Aggregator) occupiedCount(ctx context.Context, userID uint64, item model.BookingItem) uint32 {
	inv, err := a.inv.Inventory(ctx, item.EventID)
	if err != nil {
		return 0
	}
	held := make(map[uint32]struct{})
	for _, no := range inv.ReservedBy(userID) {
		held[no] = struct{}{}
	}
	var n uint32
	for _, no := range item.SeatNos {
		if _, ok := held[no]; ok {
			n++
		}
	}
	return n
}

func dedupe(nos []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(nos))
	out := make([]uint32, 0, len(nos))
	for _, no := range nos {
		if _, ok := seen[no]; ok {
			continue
		}
		seen[no] = struct{}{}
		out = append(out, no)
	}
	return out
}

func subtract(from, remove []uint32) []uint32 {
	drop := make(map[uint32]struct{}, len(remove))
	for _, no := range remove {
		drop[no] = struct{}{}
	}
	var out []uint32
	for _, no := range from {
		if _, ok := drop[no]; !ok {
			out = append(out, no)
		}
	}
	return out
}
