package repository

import (
	"context"
	"database/sql"

	"github.com/avetikov/event-ticketing/internal/model"
)

// TicketRepo provides data access to the tickets table.  The
// quantity_available column is the shared counter every concurrent
// booking, cancellation and waitlist join contends on, so all mutating
// access goes through ...Tx methods after the caller has taken the row
// lock with GetForUpdateTx.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// TicketInput describes one ticket type supplied when creating an event.
type TicketInput struct {
	TicketType string
	PriceCents uint32
	Quantity   uint32
}

// LockedTicket is the row image returned by GetForUpdateTx.  Alongside
// the ticket columns it carries the owning event's title and status so
// the caller can validate liveness and build notifications without a
// second round trip while the lock is held.
type LockedTicket struct {
	ID                uint64
	EventID           uint64
	TicketType        string
	PriceCents        uint32
	QuantityAvailable uint32
	EventTitle        string
	EventStatus       string
	EventDeleted      bool
}

// GetForUpdateTx locks the ticket row (and the joined event row) with an
// exclusive lock and returns the current state.  Every operation that
// mutates capacity for a ticket must call this first: lock acquisition
// order on the ticket row is what serializes concurrent bookings,
// cancellations and waitlist joins against each other.  Returns
// sql.ErrNoRows when the ticket does not exist.
func (r *TicketRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (LockedTicket, error) {
	const q = `SELECT t.id, t.event_id, t.ticket_type, t.price_cents, t.quantity_available,
	                  e.title, e.status, e.deleted_at IS NOT NULL
	           FROM tickets t
	           JOIN events e ON e.id = t.event_id
	           WHERE t.id = ?
	           FOR UPDATE`
	var lt LockedTicket
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&lt.ID, &lt.EventID, &lt.TicketType, &lt.PriceCents, &lt.QuantityAvailable,
		&lt.EventTitle, &lt.EventStatus, &lt.EventDeleted,
	)
	return lt, err
}

// DecrementAvailableTx subtracts qty from quantity_available.  The caller
// must hold the row lock and have verified that qty does not exceed the
// current value; the column is unsigned so an unchecked decrement would
// be rejected by the store rather than going negative.
func (r *TicketRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, qty uint32) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE tickets SET quantity_available = quantity_available - ? WHERE id = ?",
		qty, id)
	return err
}

// IncrementAvailableTx returns qty to quantity_available.  Used for the
// residual stock left after the waitlist has had first right of refusal.
func (r *TicketRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, qty uint32) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE tickets SET quantity_available = quantity_available + ? WHERE id = ?",
		qty, id)
	return err
}

// CreateBulkTx inserts the ticket types of a newly created event in one
// statement.  Passing an empty slice has no effect and returns nil.
func (r *TicketRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, eventID uint64, tickets []TicketInput) error {
	if len(tickets) == 0 {
		return nil
	}
	query := `INSERT INTO tickets (event_id, ticket_type, price_cents, quantity_available) VALUES `
	args := make([]interface{}, 0, len(tickets)*4)
	for i, t := range tickets {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, eventID, t.TicketType, t.PriceCents, t.Quantity)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ListByEvent returns the ticket types of an event ordered by id.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Ticket, error) {
	const q = `SELECT id, event_id, ticket_type, price_cents, quantity_available, created_at, updated_at
	           FROM tickets WHERE event_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Ticket, 0)
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.EventID, &t.TicketType, &t.PriceCents,
			&t.QuantityAvailable, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteByEventTx removes all ticket rows of an event.  Part of the
// hard-delete path; bookings and waitlist entries referencing these
// tickets must be gone first.
func (r *TicketRepo) DeleteByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM tickets WHERE event_id = ?", eventID)
	return err
}
