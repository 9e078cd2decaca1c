// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reconciliation service and handlers to distinguish between different
// failure scenarios without leaking SQL details. Absence and lack of
// ownership are deliberately collapsed into the same "not found" errors
// so that callers cannot probe for resources they do not own.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEventNotFound is returned when an event does not exist, is
// soft-deleted, or is not owned by the requesting organizer.
var ErrEventNotFound = errors.New("event not found")

// ErrTicketNotFound is returned when a ticket type does not exist or
// belongs to a cancelled or soft-deleted event.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrBookingNotFound is returned when a booking does not exist, belongs
// to a different customer, or is already cancelled. The three cases are
// indistinguishable on purpose: cancellation is idempotent and a second
// call observes the same terminal outcome.
var ErrBookingNotFound = errors.New("booking not found")

// ErrInsufficientInventory is returned when a booking requests more
// tickets than quantity_available at the moment the row lock is held.
// The operation has no partial effect.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrExceedsCapacity is returned when a waitlist join requests a
// quantity that could never be satisfied even if every confirmed
// booking were cancelled.
var ErrExceedsCapacity = errors.New("requested quantity exceeds ticket capacity")

// ErrEmailExists is returned on registration with a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")
