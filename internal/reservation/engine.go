// Package reservation implements the seat reservation engine.  It
// claims and releases seats against an event's inventory and is the
// only component allowed to mutate seat state.  Double-booking is
// prevented by the inventory store's conditional claim, not by locks,
// so the engine stays correct when the service runs as multiple
// stateless instances.
package reservation

import (
	"context"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// Inventory is the slice of the seat inventory store the engine needs.
// *repository.InventoryRepo satisfies it; tests substitute an in-memory
// implementation.  Claim must be atomic: of two concurrent claims for
// the same free seat exactly one may win.
type Inventory interface {
	Inventory(ctx context.Context, eventID uint64) (*model.SeatInventory, error)
	Claim(ctx context.Context, eventID, userID uint64, seatNos []uint32, at time.Time) ([]uint32, error)
	Release(ctx context.Context, eventID uint64, seatNos []uint32) error
}

// Result reports the outcome of a reservation request.  The request as
// a whole always succeeds at the transport level; callers inspect the
// two lists to decide whether a partial reservation is acceptable.
// Both lists preserve the order of the request.
type Result struct {
	Reserved []uint32 `json:"reserved"`
	Rejected []uint32 `json:"rejected"`
}

// Engine coordinates seat claims and releases.
type Engine struct {
	inv Inventory
	now func() time.Time
}

// NewEngine constructs an Engine over the given inventory store.
func NewEngine(inv Inventory) *Engine {
	if inv == nil {
		panic("nil inventory passed to NewEngine")
	}
	return &Engine{inv: inv, now: func() time.Time { return time.Now().UTC() }}
}

// Reserve attempts to claim the requested seats for the user.
//
// Each requested seat is classified against the current inventory:
// unknown seat numbers and seats held by a different user are rejected;
// seats the user already holds count as reserved without any state
// change (re-reserving your own seat is an idempotent no-op); free
// seats are passed to the store's atomic claim, and any seat lost to a
// concurrent request in that step is rejected as well.
//
// Returns repository.ErrNotFound when the event has no inventory and
// repository.ErrValidation when the seat list is empty or contains a
// zero seat number.  Duplicate seat numbers are collapsed.
func (e *Engine) Reserve(ctx context.Context, eventID, userID uint64, seatNos []uint32) (Result, error) {
	unique, err := normalizeSeatNos(seatNos)
	if err != nil {
		return Result{}, err
	}

	inv, err := e.inv.Inventory(ctx, eventID)
	if err != nil {
		return Result{}, err
	}
	byNo := make(map[uint32]model.Seat, len(inv.Seats))
	for _, s := range inv.Seats {
		byNo[s.SeatNo] = s
	}

	var (
		owned   = make(map[uint32]bool, len(unique))
		toClaim []uint32
		res     Result
	)
	for _, no := range unique {
		seat, ok := byNo[no]
		switch {
		case !ok:
			res.Rejected = append(res.Rejected, no)
		case seat.Reserved && seat.ReservedBy != nil && *seat.ReservedBy == userID:
			owned[no] = true
		case seat.Reserved:
			res.Rejected = append(res.Rejected, no)
		default:
			toClaim = append(toClaim, no)
		}
	}

	won := make(map[uint32]bool, len(toClaim))
	if len(toClaim) > 0 {
		claimed, err := e.inv.Claim(ctx, eventID, userID, toClaim, e.now())
		if err != nil {
			return Result{}, err
		}
		for _, no := range claimed {
			won[no] = true
		}
	}

	// Rebuild the lists in request order now that the claim settled.
	res = Result{}
	for _, no := range unique {
		if owned[no] || won[no] {
			res.Reserved = append(res.Reserved, no)
		} else {
			res.Rejected = append(res.Rejected, no)
		}
	}
	return res, nil
}

// Release unconditionally frees the given seats.  Used when an owning
// booking item is removed or replaced; releasing an already free seat
// is a no-op.
func (e *Engine) Release(ctx context.Context, eventID uint64, seatNos []uint32) error {
	unique, err := normalizeSeatNos(seatNos)
	if err != nil {
		return err
	}
	return e.inv.Release(ctx, eventID, unique)
}

// normalizeSeatNos deduplicates the request while preserving order and
// rejects empty lists and zero seat numbers.
func normalizeSeatNos(seatNos []uint32) ([]uint32, error) {
	if len(seatNos) == 0 {
		return nil, repository.ErrValidation
	}
	seen := make(map[uint32]struct{}, len(seatNos))
	unique := make([]uint32, 0, len(seatNos))
	for _, no := range seatNos {
		if no == 0 {
			return nil, repository.ErrValidation
		}
		if _, ok := seen[no]; ok {
			continue
		}
		seen[no] = struct{}{}
		unique = append(unique, no)
	}
	return unique, nil
}
