package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetikov/event-ticketing/internal/model"
)

// WaitlistRepo provides data access to the waitlist_entries table.
// Entries form a per-ticket FIFO queue; selection during reconciliation
// is quantity-bounded FIFO (oldest entry whose quantity fits the freed
// capacity), so a later, smaller request can be served before an
// earlier, larger one, a deliberate anti-starvation policy rather than strict
// arrival order.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// GetByUserAndTicketTx returns the user's entry for a ticket, if any.
// Must run while the ticket row lock is held so the at-most-one-entry
// invariant cannot be raced; sql.ErrNoRows means no entry exists.
func (r *WaitlistRepo) GetByUserAndTicketTx(ctx context.Context, tx *sql.Tx, userID, ticketID uint64) (model.WaitlistEntry, error) {
	const q = `SELECT id, ticket_id, user_id, quantity, created_at
	           FROM waitlist_entries WHERE user_id = ? AND ticket_id = ? LIMIT 1`
	var w model.WaitlistEntry
	err := tx.QueryRowContext(ctx, q, userID, ticketID).Scan(
		&w.ID, &w.TicketID, &w.UserID, &w.Quantity, &w.CreatedAt)
	return w, err
}

// CreateTx inserts a waitlist entry and queries it back to populate the
// generated id and join timestamp.
func (r *WaitlistRepo) CreateTx(ctx context.Context, tx *sql.Tx, w *model.WaitlistEntry) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO waitlist_entries (ticket_id, user_id, quantity) VALUES (?, ?, ?)",
		w.TicketID, w.UserID, w.Quantity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		"SELECT id, ticket_id, user_id, quantity, created_at FROM waitlist_entries WHERE id = ?",
		w.ID).Scan(&w.ID, &w.TicketID, &w.UserID, &w.Quantity, &w.CreatedAt)
}

// FulfillableEntry is a waitlist entry joined with the waiting user's
// email so the reconciliation loop can record the notification while it
// still holds the locks.
type FulfillableEntry struct {
	ID       uint64
	UserID   uint64
	Quantity uint32
	Email    string
}

// OldestFittingTx locks and returns the oldest entry for the ticket
// whose requested quantity is at most maxQty.  Ordering is creation
// time then id, so insertion order breaks timestamp ties.  Entries
// larger than maxQty are skipped, not discarded: a later cancellation
// with more freed capacity can still serve them.  sql.ErrNoRows means
// no entry currently fits.
func (r *WaitlistRepo) OldestFittingTx(ctx context.Context, tx *sql.Tx, ticketID uint64, maxQty uint32) (FulfillableEntry, error) {
	const q = `SELECT w.id, w.user_id, w.quantity, u.email
	           FROM waitlist_entries w
	           JOIN users u ON u.id = w.user_id
	           WHERE w.ticket_id = ? AND w.quantity <= ?
	           ORDER BY w.created_at ASC, w.id ASC
	           LIMIT 1
	           FOR UPDATE`
	var f FulfillableEntry
	err := tx.QueryRowContext(ctx, q, ticketID, maxQty).Scan(
		&f.ID, &f.UserID, &f.Quantity, &f.Email)
	return f, err
}

// DeleteTx removes a fulfilled (or otherwise resolved) entry.  Entries
// are destroyed, never soft-deleted; the deletion is visible to the
// next OldestFittingTx query inside the same transaction.
func (r *WaitlistRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM waitlist_entries WHERE id = ?", id)
	return err
}

// WaitlistDetail is an entry joined with ticket and event information
// for display.
type WaitlistDetail struct {
	ID         uint64    `json:"id"`
	TicketID   uint64    `json:"ticket_id"`
	TicketType string    `json:"ticket_type"`
	EventID    uint64    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	UserID     uint64    `json:"user_id"`
	Quantity   uint32    `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListByUser returns the user's waitlist entries, oldest first.
func (r *WaitlistRepo) ListByUser(ctx context.Context, userID uint64) ([]WaitlistDetail, error) {
	const q = `SELECT w.id, w.ticket_id, t.ticket_type, t.event_id, e.title, w.user_id, w.quantity, w.created_at
	           FROM waitlist_entries w
	           JOIN tickets t ON t.id = w.ticket_id
	           JOIN events e ON e.id = t.event_id
	           WHERE w.user_id = ?
	           ORDER BY w.created_at ASC, w.id ASC`
	return r.queryDetails(ctx, q, userID)
}

// ListByTicketForOwner returns a ticket's queue in FIFO order when
// accessed by the event's organizer.  sql.ErrNoRows when the ticket
// does not exist, ErrForbidden when the event belongs to someone else.
func (r *WaitlistRepo) ListByTicketForOwner(ctx context.Context, ticketID, organizerID uint64) ([]WaitlistDetail, error) {
	var actualOwner uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT e.organizer_id FROM tickets t JOIN events e ON e.id = t.event_id WHERE t.id = ?`,
		ticketID).Scan(&actualOwner)
	if err != nil {
		return nil, err
	}
	if actualOwner != organizerID {
		return nil, ErrForbidden
	}
	const q = `SELECT w.id, w.ticket_id, t.ticket_type, t.event_id, e.title, w.user_id, w.quantity, w.created_at
	           FROM waitlist_entries w
	           JOIN tickets t ON t.id = w.ticket_id
	           JOIN events e ON e.id = t.event_id
	           WHERE w.ticket_id = ?
	           ORDER BY w.created_at ASC, w.id ASC`
	return r.queryDetails(ctx, q, ticketID)
}

func (r *WaitlistRepo) queryDetails(ctx context.Context, q string, arg interface{}) ([]WaitlistDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]WaitlistDetail, 0)
	for rows.Next() {
		var d WaitlistDetail
		if err := rows.Scan(&d.ID, &d.TicketID, &d.TicketType, &d.EventID, &d.EventTitle,
			&d.UserID, &d.Quantity, &d.CreatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// DeleteByUserTx removes all of a user's entries.  Second step of the
// account-deletion cascade, after bookings.
func (r *WaitlistRepo) DeleteByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM waitlist_entries WHERE user_id = ?", userID)
	return err
}

// DeleteByEventTx removes all entries on the event's tickets.  Used when
// hard-deleting an organizer's events.
func (r *WaitlistRepo) DeleteByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	const q = `DELETE w FROM waitlist_entries w
	           JOIN tickets t ON t.id = w.ticket_id
	           WHERE t.event_id = ?`
	_, err := tx.ExecContext(ctx, q, eventID)
	return err
}
