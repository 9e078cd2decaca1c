package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/avetikov/event-ticketing/internal/model"
	"github.com/avetikov/event-ticketing/internal/queue"
	"github.com/avetikov/event-ticketing/internal/repository"
)

// Catalog manages event lifecycle on behalf of organizers: creation
// with embedded ticket types, partial updates with the cancellation
// cascade, and deletion (soft once booking history exists).
type Catalog struct {
	db       *sql.DB
	events   *repository.EventRepo
	tickets  *repository.TicketRepo
	bookings *repository.BookingRepo
	waitlist *repository.WaitlistRepo
	notifier Notifier
	log      *logrus.Logger
}

// NewCatalog constructs a Catalog.  All repository dependencies must be
// non-nil.
func NewCatalog(db *sql.DB, events *repository.EventRepo, tickets *repository.TicketRepo,
	bookings *repository.BookingRepo, waitlist *repository.WaitlistRepo,
	notifier Notifier, log *logrus.Logger) *Catalog {
	if db == nil || events == nil || tickets == nil || bookings == nil || waitlist == nil {
		panic("nil dependency passed to NewCatalog")
	}
	return &Catalog{
		db:       db,
		events:   events,
		tickets:  tickets,
		bookings: bookings,
		waitlist: waitlist,
		notifier: notifier,
		log:      log,
	}
}

// CreateEvent persists an event together with its ticket types in one
// transaction; the event and its inventory appear together or not at
// all.  The passed event is populated with generated fields.
func (s *Catalog) CreateEvent(ctx context.Context, e *model.Event, tickets []repository.TicketInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.events.CreateTx(ctx, tx, e); err != nil {
		return err
	}
	if err := s.tickets.CreateBulkTx(ctx, tx, e.ID, tickets); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	s.log.WithFields(logrus.Fields{"event_id": e.ID, "tickets": len(tickets)}).Info("event created")
	return nil
}

// UpdateEvent applies the supplied fields to an organizer's event.
// Transitioning status to cancelled additionally marks every confirmed
// booking on the event's tickets cancelled, in the same unit of work.
// The cascade deliberately bypasses waitlist reconciliation: the event
// is gone, so freed capacity is moot and waitlist entries are left
// untouched. Confirmed bookers are notified of the update or the
// cancellation after commit.
//
// Events that do not exist, are soft-deleted, or belong to a different
// organizer all return repository.ErrEventNotFound.
func (s *Catalog) UpdateEvent(ctx context.Context, organizerID, eventID uint64, upd model.EventUpdate) (*model.Event, error) {
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

	ev, err := s.events.GetForUpdateTx(ctx, tx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrEventNotFound
		}
		return nil, err
	}
	if ev.OrganizerID != organizerID || ev.DeletedAt != nil {
		return nil, repository.ErrEventNotFound
	}

	cancelling := upd.Status != nil && *upd.Status == model.EventCancelled && ev.Status != model.EventCancelled

	// Recipient set is read inside the transaction, before the cascade
	// flips the bookings it selects on.
	emails, err := s.bookings.ConfirmedEmailsForEventTx(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	if err := s.events.UpdateTx(ctx, tx, eventID, upd); err != nil {
		return nil, err
	}
	var cascaded int64
	if cancelling {
		if cascaded, err = s.bookings.CancelAllForEventTx(ctx, tx, eventID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	applyUpdate(&ev, upd)
	if cancelling {
		s.log.WithFields(logrus.Fields{"event_id": eventID, "bookings_cancelled": cascaded}).
			Info("event cancelled, bookings cascaded")
	}
	s.broadcast(ctx, ev.Title, emails, cancelling)
	return &ev, nil
}

// DeleteEvent removes an organizer's event. An event that ever carried
// a booking is soft-deleted: status flips to cancelled, deleted_at is
// stamped and confirmed bookings are cascaded, all in one transaction;
// the row itself is never physically removed. An event with no booking
// history is hard-deleted together with its tickets and any waitlist
// entries.
func (s *Catalog) DeleteEvent(ctx context.Context, organizerID, eventID uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ev, err := s.events.GetForUpdateTx(ctx, tx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrEventNotFound
		}
		return err
	}
	if ev.OrganizerID != organizerID || ev.DeletedAt != nil {
		return repository.ErrEventNotFound
	}

	hasBookings, err := s.bookings.ExistsForEventTx(ctx, tx, eventID)
	if err != nil {
		return err
	}

	var emails []string
	if hasBookings {
		if emails, err = s.bookings.ConfirmedEmailsForEventTx(ctx, tx, eventID); err != nil {
			return err
		}
		if _, err := s.bookings.CancelAllForEventTx(ctx, tx, eventID); err != nil {
			return err
		}
		if err := s.events.SoftDeleteTx(ctx, tx, eventID); err != nil {
			return err
		}
	} else {
		if err := s.waitlist.DeleteByEventTx(ctx, tx, eventID); err != nil {
			return err
		}
		if err := s.tickets.DeleteByEventTx(ctx, tx, eventID); err != nil {
			return err
		}
		if err := s.events.DeleteTx(ctx, tx, eventID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	s.log.WithFields(logrus.Fields{"event_id": eventID, "soft": hasBookings}).Info("event deleted")
	s.broadcast(ctx, ev.Title, emails, true)
	return nil
}

// broadcast publishes an update or cancellation notice to each
// recipient.  Best-effort.
func (s *Catalog) broadcast(ctx context.Context, title string, emails []string, cancelled bool) {
	if s.notifier == nil {
		return
	}
	kind, msg := queue.KindEventUpdated, "the event has been updated"
	if cancelled {
		kind, msg = queue.KindEventCancelled, "the event has been cancelled"
	}
	for _, email := range emails {
		_ = s.notifier.Publish(ctx, queue.Notification{
			Kind:       kind,
			Recipient:  email,
			EventTitle: title,
			Message:    msg,
		})
	}
}

// applyUpdate mirrors the partial-update semantics onto the in-memory
// event so the caller gets the post-update state without a re-read.
func applyUpdate(e *model.Event, upd model.EventUpdate) {
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Date != nil {
		e.Date = *upd.Date
	}
	if upd.Venue != nil {
		e.Venue = *upd.Venue
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
}
