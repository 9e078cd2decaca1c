package model

import "time"

// WaitlistEntry is a pending demand for a ticket type.  Entries form
// a FIFO queue per ticket keyed by CreatedAt (ties broken by ID).
// Fulfillment is all-or-nothing: an entry is either converted into a
// confirmed booking at its full quantity or left in place.  At most
// one entry exists per (user, ticket) pair, and an entry is deleted
// the moment it is fulfilled.
//
// Fields:
//  ID        – primary key identifier.
//  TicketID  – ticket type being waited on.
//  UserID    – waiting user.
//  Quantity  – requested quantity, bounded by the ticket's
//              ever-available capacity at join time.
//  CreatedAt – join timestamp, the FIFO key.
type WaitlistEntry struct {
	ID        uint64    // waitlist_entries.id
	TicketID  uint64    // waitlist_entries.ticket_id
	UserID    uint64    // waitlist_entries.user_id
	Quantity  uint32    // waitlist_entries.quantity
	CreatedAt time.Time // waitlist_entries.created_at
}
