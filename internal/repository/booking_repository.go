package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// BookingRepo provides data access to the `booking_items` table.  Each
// row is one user's intent for one event: either a JSON-encoded seat
// set or a plain ticket count, depending on the deployment's quantity
// mode.  The (user_id, event_id) pair is unique, so adding an event a
// second time replaces the stored quantity.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Upsert inserts the item or, when the user already has an entry for
// the event, replaces its quantity.  The item's ID is not populated on
// the update path.
func (r *BookingRepo) Upsert(ctx context.Context, item *model.BookingItem) error {
	seatJSON, err := encodeSeatNos(item.SeatNos)
	if err != nil {
		return err
	}
	const q = `INSERT INTO booking_items (user_id, event_id, seat_nos, ticket_count)
	           VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE seat_nos = VALUES(seat_nos), ticket_count = VALUES(ticket_count)`
	res, err := r.db.ExecContext(ctx, q, item.UserID, item.EventID, seatJSON, item.Count)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		item.ID = uint64(id)
	}
	return nil
}

// GetByUserAndEvent fetches the user's item for one event.  Returns
// ErrNotFound when the user has no entry for the event.
func (r *BookingRepo) GetByUserAndEvent(ctx context.Context, userID, eventID uint64) (*model.BookingItem, error) {
	const q = `SELECT id, user_id, event_id, seat_nos, ticket_count, created_at, updated_at
	           FROM booking_items WHERE user_id = ? AND event_id = ?`
	item, err := scanItem(r.db.QueryRowContext(ctx, q, userID, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// ListByUser returns all of the user's items ordered by creation time,
// so summaries keep a stable item order.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingItem, error) {
	const q = `SELECT id, user_id, event_id, seat_nos, ticket_count, created_at, updated_at
	           FROM booking_items WHERE user_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.BookingItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes the user's item for one event.  Returns ErrNotFound
// when no row matched.
func (r *BookingRepo) Delete(ctx context.Context, userID, eventID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM booking_items WHERE user_id = ? AND event_id = ?`, userID, eventID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every item of the user.
func (r *BookingRepo) DeleteAll(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM booking_items WHERE user_id = ?`, userID)
	return err
}

// DeleteByEventTx removes all items referencing an event, within an
// existing transaction.  Used when the event itself is deleted.
func (r *BookingRepo) DeleteByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM booking_items WHERE event_id = ?`, eventID)
	return err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(s scanner) (*model.BookingItem, error) {
	var (
		item     model.BookingItem
		seatJSON sql.NullString
	)
	if err := s.Scan(&item.ID, &item.UserID, &item.EventID, &seatJSON, &item.Count,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if seatJSON.Valid && seatJSON.String != "" {
		if err := json.Unmarshal([]byte(seatJSON.String), &item.SeatNos); err != nil {
			return nil, err
		}
	}
	return &item, nil
}

func encodeSeatNos(nos []uint32) (interface{}, error) {
	if len(nos) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(nos)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
