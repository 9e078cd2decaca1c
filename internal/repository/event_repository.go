package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/avetikov/event-ticketing/internal/model"
)

// EventRepo provides data access to the events table.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, organizer_id, title, description, date, venue, status, deleted_at, created_at, updated_at`

func scanEvent(row *sql.Row) (model.Event, error) {
	var e model.Event
	var deletedAt sql.NullTime
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.Date, &e.Venue,
		&e.Status, &deletedAt, &e.CreatedAt, &e.UpdatedAt)
	if deletedAt.Valid {
		t := deletedAt.Time
		e.DeletedAt = &t
	}
	return e, err
}

// CreateTx inserts a new event within an existing transaction and
// queries it back to populate generated fields.  Ticket types are
// inserted separately via TicketRepo.CreateBulkTx in the same
// transaction so event and tickets appear together or not at all.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (organizer_id, title, description, date, venue, status) VALUES (?, ?, ?, ?, ?, ?)`,
		e.OrganizerID, e.Title, e.Description, e.Date, e.Venue, model.EventActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	got, err := scanEvent(tx.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, e.ID))
	if err != nil {
		return err
	}
	*e = got
	return nil
}

// GetByID fetches an event regardless of status or soft-delete state.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
}

// GetForUpdateTx locks the event row exclusively and returns it.
// Serializes concurrent updates, cancellation cascades and deletes
// against the same event.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Event, error) {
	return scanEvent(tx.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id))
}

// UpdateTx applies a partial update: only non-nil fields of upd are
// written.  Calling it with no supplied fields is a no-op.
func (r *EventRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id uint64, upd model.EventUpdate) error {
	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *upd.Date)
	}
	if upd.Venue != nil {
		sets = append(sets, "venue = ?")
		args = append(args, *upd.Venue)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := tx.ExecContext(ctx,
		"UPDATE events SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return err
}

// SoftDeleteTx cancels the event and stamps deleted_at.  The row is
// kept forever once booking history exists.
func (r *EventRepo) SoftDeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE events SET status = ?, deleted_at = NOW() WHERE id = ?",
		model.EventCancelled, id)
	return err
}

// DeleteTx physically removes the event row.  Only valid for events
// with no booking history; tickets and waitlist entries must already be
// deleted.
func (r *EventRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	return err
}

// ListByOrganizer returns all of an organizer's events, including
// cancelled and soft-deleted ones, newest date first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE organizer_id = ? ORDER BY date DESC, id DESC`,
		organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		var deletedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.Date, &e.Venue,
			&e.Status, &deletedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			e.DeletedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// IDsByOrganizerTx returns the ids of every event the organizer owns,
// locked for the remainder of the transaction.  Used by the
// account-deletion cascade.
func (r *EventRepo) IDsByOrganizerTx(ctx context.Context, tx *sql.Tx, organizerID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM events WHERE organizer_id = ? FOR UPDATE", organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
