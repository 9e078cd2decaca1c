package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetikov/event-ticketing/internal/model"
)

// BookingRepo provides data access to the bookings table.  Bookings are
// the ledger of confirmed purchases; together with quantity_available
// they account for a ticket's full capacity at all times.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a new booking within the scope of an existing
// transaction and queries the row back to populate generated fields.
// The caller must commit or rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (reference, customer_id, ticket_id, quantity, status) VALUES (?, ?, ?, ?, ?)`,
		b.Reference, b.CustomerID, b.TicketID, b.Quantity, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		`SELECT id, reference, customer_id, ticket_id, quantity, status, created_at, updated_at
		 FROM bookings WHERE id = ?`, b.ID).Scan(
		&b.ID, &b.Reference, &b.CustomerID, &b.TicketID, &b.Quantity, &b.Status,
		&b.CreatedAt, &b.UpdatedAt)
}

// GetForUpdateTx locks a booking row owned by the given customer and
// returns it.  Missing bookings and bookings owned by someone else both
// come back as sql.ErrNoRows so the caller cannot tell them apart.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, bookingID, customerID uint64) (model.Booking, error) {
	const q = `SELECT id, reference, customer_id, ticket_id, quantity, status, created_at, updated_at
	           FROM bookings WHERE id = ? AND customer_id = ?
	           FOR UPDATE`
	var b model.Booking
	err := tx.QueryRowContext(ctx, q, bookingID, customerID).Scan(
		&b.ID, &b.Reference, &b.CustomerID, &b.TicketID, &b.Quantity, &b.Status,
		&b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// MarkCancelledTx flips a booking to cancelled.  The transition is
// one-way; callers check the current status under the row lock first.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status = ? WHERE id = ?", model.BookingCancelled, id)
	return err
}

// ConfirmedQuantityTx sums the quantities of all confirmed bookings for
// a ticket.  Used inside the waitlist-join transaction to compute the
// ticket's ever-available capacity; must run while the ticket row lock
// is held so the sum is consistent with quantity_available.
func (r *BookingRepo) ConfirmedQuantityTx(ctx context.Context, tx *sql.Tx, ticketID uint64) (uint64, error) {
	var sum uint64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(quantity),0) FROM bookings WHERE ticket_id = ? AND status = ?",
		ticketID, model.BookingConfirmed).Scan(&sum)
	return sum, err
}

// ExistsForEventTx reports whether any booking (regardless of status)
// was ever made against the event's tickets.  Decides between hard and
// soft deletion of the event.
func (r *BookingRepo) ExistsForEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) (bool, error) {
	const q = `SELECT EXISTS(
	             SELECT 1 FROM bookings b
	             JOIN tickets t ON t.id = b.ticket_id
	             WHERE t.event_id = ?)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, eventID).Scan(&exists)
	return exists, err
}

// CancelAllForEventTx marks every confirmed booking on every ticket of
// the event as cancelled and returns the number of bookings affected.
// This is the event-cancellation cascade: it does not feed the waitlist,
// since the event itself is gone and its capacity is moot.
func (r *BookingRepo) CancelAllForEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) (int64, error) {
	const q = `UPDATE bookings b
	           JOIN tickets t ON t.id = b.ticket_id
	           SET b.status = ?
	           WHERE t.event_id = ? AND b.status = ?`
	res, err := tx.ExecContext(ctx, q, model.BookingCancelled, eventID, model.BookingConfirmed)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ConfirmedEmailsForEventTx returns the distinct emails of customers
// holding confirmed bookings on the event, for update and cancellation
// broadcasts.  Collected inside the transaction so a concurrent cascade
// cannot change the recipient set under us.
func (r *BookingRepo) ConfirmedEmailsForEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]string, error) {
	const q = `SELECT DISTINCT u.email
	           FROM bookings b
	           JOIN tickets t ON t.id = b.ticket_id
	           JOIN users u ON u.id = b.customer_id
	           WHERE t.event_id = ? AND b.status = ?`
	rows, err := tx.QueryContext(ctx, q, eventID, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// BookingDetail is a booking joined with its ticket and event for
// display to customers and organizers.
type BookingDetail struct {
	ID         uint64    `json:"id"`
	Reference  string    `json:"reference"`
	CustomerID uint64    `json:"customer_id"`
	TicketID   uint64    `json:"ticket_id"`
	TicketType string    `json:"ticket_type"`
	EventID    uint64    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	Quantity   uint32    `json:"quantity"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListByCustomer returns all bookings of a customer, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.reference, b.customer_id, b.ticket_id, t.ticket_type,
	                  t.event_id, e.title, b.quantity, b.status, b.created_at
	           FROM bookings b
	           JOIN tickets t ON t.id = b.ticket_id
	           JOIN events e ON e.id = t.event_id
	           WHERE b.customer_id = ?
	           ORDER BY b.created_at DESC, b.id DESC`
	return r.queryDetails(ctx, q, customerID)
}

// ListByEventForOwner returns all bookings across an event's tickets
// when accessed by the event's organizer.  It verifies ownership first:
// sql.ErrNoRows when the event does not exist, ErrForbidden when it is
// owned by a different organizer.
func (r *BookingRepo) ListByEventForOwner(ctx context.Context, eventID, organizerID uint64) ([]BookingDetail, error) {
	var actualOwner uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT organizer_id FROM events WHERE id = ?", eventID).Scan(&actualOwner)
	if err != nil {
		return nil, err
	}
	if actualOwner != organizerID {
		return nil, ErrForbidden
	}
	const q = `SELECT b.id, b.reference, b.customer_id, b.ticket_id, t.ticket_type,
	                  t.event_id, e.title, b.quantity, b.status, b.created_at
	           FROM bookings b
	           JOIN tickets t ON t.id = b.ticket_id
	           JOIN events e ON e.id = t.event_id
	           WHERE t.event_id = ?
	           ORDER BY b.created_at DESC, b.id DESC`
	return r.queryDetails(ctx, q, eventID)
}

func (r *BookingRepo) queryDetails(ctx context.Context, q string, arg interface{}) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(&d.ID, &d.Reference, &d.CustomerID, &d.TicketID, &d.TicketType,
			&d.EventID, &d.EventTitle, &d.Quantity, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// DeleteByCustomerTx removes all of a customer's booking rows.  First
// step of the account-deletion cascade.
func (r *BookingRepo) DeleteByCustomerTx(ctx context.Context, tx *sql.Tx, customerID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE customer_id = ?", customerID)
	return err
}

// DeleteByEventTx removes all booking rows on the event's tickets.
// Used when hard-deleting an organizer's events.
func (r *BookingRepo) DeleteByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	const q = `DELETE b FROM bookings b
	           JOIN tickets t ON t.id = b.ticket_id
	           WHERE t.event_id = ?`
	_, err := tx.ExecContext(ctx, q, eventID)
	return err
}
