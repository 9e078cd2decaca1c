package model

import "time"

// Event lifecycle statuses.  A cancelled event never appears in
// public listings; cancellation also cancels every confirmed booking
// on the event's tickets.
const (
	EventActive    = "active"
	EventCancelled = "cancelled"
)

// Derived inventory states reported on public listings.  The value is
// computed in SQL from the sum of the event's tickets'
// quantity_available, never stored, so that listings can sort on it
// across pages.
const (
	InventoryAvailable = "available"
	InventorySoldOut   = "sold_out"
)

// Event represents a row of the `events` table.  Events are created
// together with their ticket types and soft-deleted once they carry
// booking history (DeletedAt set, status flipped to cancelled).
//
// Fields:
//  ID          – primary key identifier.
//  OrganizerID – user who owns the event.
//  Title       – event title.
//  Description – free-form description.
//  Date        – when the event takes place.
//  Venue       – venue name.
//  Status      – "active" or "cancelled".
//  DeletedAt   – soft-delete timestamp, nil while the event is live.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64     // events.id
	OrganizerID uint64     // events.organizer_id
	Title       string     // events.title
	Description string     // events.description
	Date        time.Time  // events.date
	Venue       string     // events.venue
	Status      string     // events.status
	DeletedAt   *time.Time // events.deleted_at (nullable)
	CreatedAt   time.Time  // events.created_at
	UpdatedAt   time.Time  // events.updated_at
}

// EventUpdate carries a partial update for an event.  Nil fields are
// left untouched; only supplied fields are written.
type EventUpdate struct {
	Title       *string
	Description *string
	Date        *time.Time
	Venue       *string
	Status      *string
}
