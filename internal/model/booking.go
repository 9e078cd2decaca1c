package model

import "time"

// Booking statuses.  The transition is one-way: a confirmed booking
// may become cancelled, and cancelled is terminal.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking records a customer's purchase of a quantity of one ticket
// type.  The Reference is an opaque UUID handed to clients for
// external correlation; the numeric ID stays internal.
//
// Fields:
//  ID         – primary key identifier.
//  Reference  – UUID reference code.
//  CustomerID – customer who made the booking.
//  TicketID   – ticket type booked.
//  Quantity   – number of tickets, always positive.
//  Status     – "confirmed" or "cancelled".
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Booking struct {
	ID         uint64    // bookings.id
	Reference  string    // bookings.reference
	CustomerID uint64    // bookings.customer_id
	TicketID   uint64    // bookings.ticket_id
	Quantity   uint32    // bookings.quantity
	Status     string    // bookings.status
	CreatedAt  time.Time // bookings.created_at
	UpdatedAt  time.Time // bookings.updated_at
}
