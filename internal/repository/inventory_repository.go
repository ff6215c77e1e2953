package repository // repository defines data access for seat inventories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// InventoryRepo provides methods to work with the per-event seat
// inventory in the database.  All seats of one event form a single
// aggregate: mutations that must not race (claiming seats) are
// expressed as one conditional UPDATE over that event's rows so that
// two concurrent requests can never both win the same seat, even with
// multiple stateless instances of the service running.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo constructs an InventoryRepo with the given DB handle.
func NewInventoryRepo(db *sql.DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

// DB exposes the underlying handle for callers that need to coordinate
// a transaction spanning multiple repositories (e.g. event deletion).
func (r *InventoryRepo) DB() *sql.DB { return r.db }

// Create inserts `capacity` unreserved seats numbered 1..capacity for
// the event in a single statement.  It is called when an event is
// created and assumes no seats exist yet for the event.
func (r *InventoryRepo) Create(ctx context.Context, eventID uint64, capacity uint32) error {
	return r.insertSeats(ctx, r.db, eventID, capacity)
}

// CreateTx is Create within the scope of an existing transaction.
func (r *InventoryRepo) CreateTx(ctx context.Context, tx *sql.Tx, eventID uint64, capacity uint32) error {
	return r.insertSeats(ctx, tx, eventID, capacity)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *InventoryRepo) insertSeats(ctx context.Context, ex execer, eventID uint64, capacity uint32) error {
	if capacity == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO seats (event_id, seat_no) VALUES `)
	args := make([]interface{}, 0, int(capacity)*2)
	for n := uint32(1); n <= capacity; n++ {
		if n > 1 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?)")
		args = append(args, eventID, n)
	}
	_, err := ex.ExecContext(ctx, b.String(), args...)
	return err
}

// Regenerate replaces the event's entire inventory with `newCapacity`
// fresh seats.  The replacement is destructive: any outstanding
// reservations are lost, which is the intended behaviour when an
// event's capacity changes.  It returns how many reserved seats were
// dropped so the caller can log the data loss.
func (r *InventoryRepo) Regenerate(ctx context.Context, eventID uint64, newCapacity uint32) (uint32, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var dropped uint32
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE event_id = ? AND reserved = 1`, eventID,
	).Scan(&dropped)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE event_id = ?`, eventID); err != nil {
		return 0, err
	}
	if err := r.insertSeats(ctx, tx, eventID, newCapacity); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return dropped, nil
}

// Delete removes all seats of an event.  Used when the event itself is
// deleted.
func (r *InventoryRepo) Delete(ctx context.Context, eventID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM seats WHERE event_id = ?`, eventID)
	return err
}

// DeleteTx is Delete within the scope of an existing transaction.
func (r *InventoryRepo) DeleteTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE event_id = ?`, eventID)
	return err
}

// Inventory returns the complete seat set of an event ordered by seat
// number.  It returns ErrNotFound when the event has no inventory,
// which callers surface when a reservation is attempted against an
// unknown or not yet provisioned event.
func (r *InventoryRepo) Inventory(ctx context.Context, eventID uint64) (*model.SeatInventory, error) {
	const q = `SELECT event_id, seat_no, reserved, reserved_by, reserved_at
	           FROM seats
	           WHERE event_id = ?
	           ORDER BY seat_no`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inv := &model.SeatInventory{EventID: eventID}
	for rows.Next() {
		var (
			s          model.Seat
			reservedBy sql.NullInt64
			reservedAt sql.NullTime
		)
		if err := rows.Scan(&s.EventID, &s.SeatNo, &s.Reserved, &reservedBy, &reservedAt); err != nil {
			return nil, err
		}
		if reservedBy.Valid {
			uid := uint64(reservedBy.Int64)
			s.ReservedBy = &uid
		}
		if reservedAt.Valid {
			t := reservedAt.Time
			s.ReservedAt = &t
		}
		inv.Seats = append(inv.Seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(inv.Seats) == 0 {
		return nil, ErrNotFound
	}
	return inv, nil
}

// Claim atomically marks the given free seats as reserved by the user.
// The UPDATE is guarded on reserved = 0, so a seat that another request
// claimed in the meantime is simply left untouched.  The read-back
// afterwards reports which of the requested seats the user now holds;
// the caller classifies the rest as rejected.
func (r *InventoryRepo) Claim(ctx context.Context, eventID, userID uint64, seatNos []uint32, at time.Time) ([]uint32, error) {
	if len(seatNos) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	in, args := seatNoArgs(seatNos)
	upd := `UPDATE seats SET reserved = 1, reserved_by = ?, reserved_at = ?
	        WHERE event_id = ? AND reserved = 0 AND seat_no IN (` + in + `)`
	updArgs := append([]interface{}{userID, at.UTC(), eventID}, args...)
	if _, err := tx.ExecContext(ctx, upd, updArgs...); err != nil {
		return nil, err
	}

	sel := `SELECT seat_no FROM seats
	        WHERE event_id = ? AND reserved = 1 AND reserved_by = ? AND seat_no IN (` + in + `)
	        ORDER BY seat_no`
	selArgs := append([]interface{}{eventID, userID}, args...)
	rows, err := tx.QueryContext(ctx, sel, selArgs...)
	if err != nil {
		return nil, err
	}
	var won []uint32
	for rows.Next() {
		var no uint32
		if err := rows.Scan(&no); err != nil {
			rows.Close()
			return nil, err
		}
		won = append(won, no)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return won, nil
}

// Release unconditionally clears the reservation state of the given
// seats.  It is used when a booking item is removed or replaced; seats
// that are already free are unaffected.
func (r *InventoryRepo) Release(ctx context.Context, eventID uint64, seatNos []uint32) error {
	if len(seatNos) == 0 {
		return nil
	}
	in, args := seatNoArgs(seatNos)
	q := `UPDATE seats SET reserved = 0, reserved_by = NULL, reserved_at = NULL
	      WHERE event_id = ? AND seat_no IN (` + in + `)`
	_, err := r.db.ExecContext(ctx, q, append([]interface{}{eventID}, args...)...)
	return err
}

// SeatsByUser returns every seat currently held by the user across all
// events, ordered by event then seat number.
func (r *InventoryRepo) SeatsByUser(ctx context.Context, userID uint64) ([]model.Seat, error) {
	const q = `SELECT event_id, seat_no, reserved, reserved_by, reserved_at
	           FROM seats
	           WHERE reserved = 1 AND reserved_by = ?
	           ORDER BY event_id, seat_no`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var (
			s          model.Seat
			reservedBy sql.NullInt64
			reservedAt sql.NullTime
		)
		if err := rows.Scan(&s.EventID, &s.SeatNo, &s.Reserved, &reservedBy, &reservedAt); err != nil {
			return nil, err
		}
		if reservedBy.Valid {
			uid := uint64(reservedBy.Int64)
			s.ReservedBy = &uid
		}
		if reservedAt.Valid {
			t := reservedAt.Time
			s.ReservedAt = &t
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// seatNoArgs builds the placeholder list and argument slice for a
// seat_no IN (...) clause.
func seatNoArgs(seatNos []uint32) (string, []interface{}) {
	placeholders := make([]string, len(seatNos))
	args := make([]interface{}, len(seatNos))
	for i, no := range seatNos {
		placeholders[i] = "?"
		args[i] = no
	}
	return strings.Join(placeholders, ","), args
}
