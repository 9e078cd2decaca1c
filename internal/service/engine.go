// Package service implements the inventory and waitlist consistency
// engine: the operations that mutate ticket stock under concurrent
// access. Each operation is one unit of work against the transactional
// store; serialization comes from the store's row locks (SELECT ... FOR
// UPDATE on the ticket row), never from in-process locks, since several
// process instances may serve requests at once. The engine keeps no
// state between calls.
package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avetikov/event-ticketing/internal/model"
	"github.com/avetikov/event-ticketing/internal/queue"
	"github.com/avetikov/event-ticketing/internal/repository"
)

// Notifier is the fire-and-forget notification sink.  Publish errors
// are the publisher's problem: the engine ignores them, because a
// failed notification must never roll back a committed unit of work.
type Notifier interface {
	Publish(ctx context.Context, n queue.Notification) error
}

// Engine orchestrates booking, cancellation and waitlist operations.
type Engine struct {
	db       *sql.DB
	users    *repository.UserRepo
	tickets  *repository.TicketRepo
	bookings *repository.BookingRepo
	waitlist *repository.WaitlistRepo
	notifier Notifier
	log      *logrus.Logger
}

// NewEngine constructs an Engine.  All dependencies must be non-nil.
func NewEngine(db *sql.DB, users *repository.UserRepo, tickets *repository.TicketRepo,
	bookings *repository.BookingRepo, waitlist *repository.WaitlistRepo,
	notifier Notifier, log *logrus.Logger) *Engine {
	if db == nil || users == nil || tickets == nil || bookings == nil || waitlist == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{
		db:       db,
		users:    users,
		tickets:  tickets,
		bookings: bookings,
		waitlist: waitlist,
		notifier: notifier,
		log:      log,
	}
}

// Book atomically checks and decrements a ticket's capacity and writes
// a confirmed booking. The sequence lock ticket row -> check
// quantity_available -> decrement -> insert booking runs in one
// transaction, so no two concurrent bookings can both pass the check:
// whichever acquires the lock second observes the decremented counter.
// qty must be positive; callers validate the request shape.
//
// Returns repository.ErrTicketNotFound when the ticket does not exist
// or its event is cancelled or soft-deleted, and
// repository.ErrInsufficientInventory when quantity_available is too
// low; in both cases nothing was mutated.
func (s *Engine) Book(ctx context.Context, customerID, ticketID uint64, qty uint32) (*model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lt, err := s.tickets.GetForUpdateTx(ctx, tx, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrTicketNotFound
		}
		return nil, err
	}
	if lt.EventStatus != model.EventActive || lt.EventDeleted {
		return nil, repository.ErrTicketNotFound
	}
	if lt.QuantityAvailable < qty {
		return nil, repository.ErrInsufficientInventory
	}
	if err := s.tickets.DecrementAvailableTx(ctx, tx, ticketID, qty); err != nil {
		return nil, err
	}
	b := &model.Booking{
		Reference:  uuid.NewString(),
		CustomerID: customerID,
		TicketID:   ticketID,
		Quantity:   qty,
		Status:     model.BookingConfirmed,
	}
	if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"ticket_id":  ticketID,
		"quantity":   qty,
	}).Info("booking confirmed")
	s.notifyBooking(ctx, queue.KindBookingConfirmed, customerID, lt, b, "your booking is confirmed")
	return b, nil
}

// Fulfillment records one waitlist entry served during a cancellation,
// for the caller and for notification delivery.
type Fulfillment struct {
	BookingID  uint64 `json:"booking_id"`
	Reference  string `json:"reference"`
	UserID     uint64 `json:"user_id"`
	Email      string `json:"-"`
	EventTitle string `json:"-"`
	Quantity   uint32 `json:"quantity"`
}

// Cancel marks a customer's booking cancelled and reconciles the freed
// capacity: the waitlist gets first right of refusal at exactly the
// freed quantity, and only the undistributed remainder returns to
// general stock. Selection is quantity-bounded FIFO: the oldest entry
// whose requested quantity fits what is still freed; larger entries are
// skipped for this pass but stay queued. Entries are never partially
// fulfilled. The cancellation, every fulfillment and the residual stock
// return commit as a single unit; each fulfillment's deletion is
// visible to the next loop iteration's query inside the transaction.
//
// Missing bookings, bookings owned by another customer and
// already-cancelled bookings all return repository.ErrBookingNotFound:
// cancellation is idempotent and the second call observes the same
// terminal outcome without mutating anything.
func (s *Engine) Cancel(ctx context.Context, customerID, bookingID uint64) (*model.Booking, []Fulfillment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.bookings.GetForUpdateTx(ctx, tx, bookingID, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, repository.ErrBookingNotFound
		}
		return nil, nil, err
	}
	if b.Status == model.BookingCancelled {
		return nil, nil, repository.ErrBookingNotFound
	}
	// The ticket row lock serializes this reconciliation against
	// concurrent bookings, joins and other cancellations.
	lt, err := s.tickets.GetForUpdateTx(ctx, tx, b.TicketID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.bookings.MarkCancelledTx(ctx, tx, b.ID); err != nil {
		return nil, nil, err
	}
	b.Status = model.BookingCancelled

	freed := b.Quantity
	var fulfilled []Fulfillment
	for freed > 0 {
		f, err := s.waitlist.OldestFittingTx(ctx, tx, b.TicketID, freed)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		nb := &model.Booking{
			Reference:  uuid.NewString(),
			CustomerID: f.UserID,
			TicketID:   b.TicketID,
			Quantity:   f.Quantity,
			Status:     model.BookingConfirmed,
		}
		if err := s.bookings.CreateTx(ctx, tx, nb); err != nil {
			return nil, nil, err
		}
		if err := s.waitlist.DeleteTx(ctx, tx, f.ID); err != nil {
			return nil, nil, err
		}
		freed -= f.Quantity
		fulfilled = append(fulfilled, Fulfillment{
			BookingID:  nb.ID,
			Reference:  nb.Reference,
			UserID:     f.UserID,
			Email:      f.Email,
			EventTitle: lt.EventTitle,
			Quantity:   f.Quantity,
		})
	}
	if freed > 0 {
		if err := s.tickets.IncrementAvailableTx(ctx, tx, b.TicketID, freed); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"ticket_id":  b.TicketID,
		"freed":      b.Quantity,
		"fulfilled":  len(fulfilled),
		"returned":   freed,
	}).Info("booking cancelled and reconciled")

	s.notifyBooking(ctx, queue.KindBookingCancelled, customerID, lt, &b, "your booking was cancelled")
	if s.notifier != nil {
		for _, f := range fulfilled {
			_ = s.notifier.Publish(ctx, queue.Notification{
				Kind:       queue.KindWaitlistFulfilled,
				Recipient:  f.Email,
				EventTitle: f.EventTitle,
				TicketType: lt.TicketType,
				Quantity:   f.Quantity,
				Reference:  f.Reference,
				Message:    "tickets freed up and your waitlist request was fulfilled",
			})
		}
	}
	return &b, fulfilled, nil
}

// JoinWaitlist creates a waitlist entry for (user, ticket). The join is
// idempotent: an existing entry is returned unchanged. The requested
// quantity is validated against the ticket's ever-available capacity
// (quantity_available plus the quantities of all confirmed bookings),
// computed under the ticket row lock so it cannot race a concurrent
// cancellation's reconciliation. A request beyond that bound could
// never be satisfied and fails with repository.ErrExceedsCapacity.
func (s *Engine) JoinWaitlist(ctx context.Context, userID, ticketID uint64, qty uint32) (*model.WaitlistEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lt, err := s.tickets.GetForUpdateTx(ctx, tx, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrTicketNotFound
		}
		return nil, err
	}
	if lt.EventStatus != model.EventActive || lt.EventDeleted {
		return nil, repository.ErrTicketNotFound
	}

	existing, err := s.waitlist.GetByUserAndTicketTx(ctx, tx, userID, ticketID)
	if err == nil {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	confirmed, err := s.bookings.ConfirmedQuantityTx(ctx, tx, ticketID)
	if err != nil {
		return nil, err
	}
	totalEver := uint64(lt.QuantityAvailable) + confirmed
	if uint64(qty) > totalEver {
		return nil, repository.ErrExceedsCapacity
	}

	w := &model.WaitlistEntry{TicketID: ticketID, UserID: userID, Quantity: qty}
	if err := s.waitlist.CreateTx(ctx, tx, w); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	s.log.WithFields(logrus.Fields{
		"ticket_id": ticketID,
		"user_id":   userID,
		"quantity":  qty,
	}).Info("waitlist joined")
	return w, nil
}

// notifyBooking looks up the customer's email and publishes a booking
// notification.  Best-effort: lookup or publish failures are ignored.
func (s *Engine) notifyBooking(ctx context.Context, kind string, customerID uint64, lt repository.LockedTicket, b *model.Booking, msg string) {
	if s.notifier == nil {
		return
	}
	u, err := s.users.GetByID(ctx, customerID)
	if err != nil {
		return
	}
	_ = s.notifier.Publish(ctx, queue.Notification{
		Kind:       kind,
		Recipient:  u.Email,
		EventTitle: lt.EventTitle,
		TicketType: lt.TicketType,
		Quantity:   b.Quantity,
		Reference:  b.Reference,
		Message:    msg,
	})
}
