package repository // repository defines data access for catalog events

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// EventRepo provides CRUD operations on the `events` table.  The event
// catalog is the collaborator the booking side consumes for price and
// capacity; ownership of event rows stays with the organizer-facing
// handlers, never with the reservation engine.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning events and seats (e.g. delete event + inventory together).
func (r *EventRepo) DB() *sql.DB { return r.db }

// Create inserts a new event.  On success the event's ID is populated.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	return r.insert(ctx, r.db, e)
}

// CreateTx is Create within the scope of an existing transaction, so
// the seat inventory can be provisioned atomically with the event row.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	return r.insert(ctx, tx, e)
}

func (r *EventRepo) insert(ctx context.Context, ex execer, e *model.Event) error {
	const q = `INSERT INTO events (owner_id, category_id, title, description, location, price_cents, capacity, event_date)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := ex.ExecContext(ctx, q,
		e.OwnerID, e.CategoryID, e.Title, e.Description, e.Location, e.PriceCents, e.Capacity, e.EventDate.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID retrieves an event by its id.  Returns ErrNotFound when the
// event does not exist.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, owner_id, category_id, title, description, location, price_cents, capacity, event_date, created_at, updated_at
	           FROM events WHERE id = ?`
	var e model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.OwnerID, &e.CategoryID, &e.Title, &e.Description, &e.Location,
		&e.PriceCents, &e.Capacity, &e.EventDate, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns all events, optionally filtered by category, ordered by
// event date.  A categoryID of zero means no filter.
func (r *EventRepo) List(ctx context.Context, categoryID uint64) ([]model.Event, error) {
	q := `SELECT id, owner_id, category_id, title, description, location, price_cents, capacity, event_date, created_at, updated_at
	      FROM events`
	args := []interface{}{}
	if categoryID != 0 {
		q += ` WHERE category_id = ?`
		args = append(args, categoryID)
	}
	q += ` ORDER BY event_date`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.CategoryID, &e.Title, &e.Description, &e.Location,
			&e.PriceCents, &e.Capacity, &e.EventDate, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update persists changes to an existing event owned by ownerID.  It
// returns ErrNotFound when the event does not exist and ErrForbidden
// when it belongs to a different organizer.  Capacity changes are the
// caller's signal to regenerate the seat inventory.
func (r *EventRepo) Update(ctx context.Context, ownerID uint64, e *model.Event) error {
	owner, err := r.ownerOf(ctx, e.ID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}
	const q = `UPDATE events SET category_id = ?, title = ?, description = ?, location = ?, price_cents = ?, capacity = ?, event_date = ?
	           WHERE id = ?`
	_, err = r.db.ExecContext(ctx, q,
		e.CategoryID, e.Title, e.Description, e.Location, e.PriceCents, e.Capacity, e.EventDate.UTC(), e.ID)
	return err
}

// DeleteTx removes an event row within an existing transaction after
// verifying ownership.  Callers delete the seat inventory and booking
// items in the same transaction.
func (r *EventRepo) DeleteTx(ctx context.Context, tx *sql.Tx, ownerID, eventID uint64) error {
	var owner uint64
	err := tx.QueryRowContext(ctx, `SELECT owner_id FROM events WHERE id = ?`, eventID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID)
	return err
}

func (r *EventRepo) ownerOf(ctx context.Context, eventID uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM events WHERE id = ?`, eventID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return owner, nil
}
