package model

import "time"

// Ticket represents a purchasable ticket type within an event, e.g.
// "VIP" or "General Admission".  QuantityAvailable is the single
// source of truth for remaining capacity; every mutation happens
// under the row's exclusive lock so the counter never goes negative.
// Capacity is conserved: quantity_available plus the quantities of
// all confirmed bookings always equals the quantity the ticket was
// created with.
//
// Fields:
//  ID                – primary key identifier.
//  EventID           – event this ticket type belongs to.
//  TicketType        – type label.
//  PriceCents        – price in cents.
//  QuantityAvailable – remaining capacity, never negative.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Ticket struct {
	ID                uint64    // tickets.id
	EventID           uint64    // tickets.event_id
	TicketType        string    // tickets.ticket_type
	PriceCents        uint32    // tickets.price_cents
	QuantityAvailable uint32    // tickets.quantity_available
	CreatedAt         time.Time // tickets.created_at
	UpdatedAt         time.Time // tickets.updated_at
}
