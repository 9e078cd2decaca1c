package service

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/avetikov/event-ticketing/internal/repository"
)

// Accounts handles user-account mutations that span multiple tables,
// chiefly the ordered deletion cascade.
type Accounts struct {
	db       *sql.DB
	users    *repository.UserRepo
	tokens   *repository.TokenRepo
	events   *repository.EventRepo
	tickets  *repository.TicketRepo
	bookings *repository.BookingRepo
	waitlist *repository.WaitlistRepo
	log      *logrus.Logger
}

// NewAccounts constructs an Accounts service.
func NewAccounts(db *sql.DB, users *repository.UserRepo, tokens *repository.TokenRepo,
	events *repository.EventRepo, tickets *repository.TicketRepo,
	bookings *repository.BookingRepo, waitlist *repository.WaitlistRepo,
	log *logrus.Logger) *Accounts {
	if db == nil || users == nil || tokens == nil || events == nil || tickets == nil ||
		bookings == nil || waitlist == nil {
		panic("nil dependency passed to NewAccounts")
	}
	return &Accounts{
		db:       db,
		users:    users,
		tokens:   tokens,
		events:   events,
		tickets:  tickets,
		bookings: bookings,
		waitlist: waitlist,
		log:      log,
	}
}

// Delete removes a user and everything that references them, in one
// transaction. The deletion order is explicit: bookings, then waitlist
// entries, then owned events (each event's bookings, waitlist entries
// and tickets first), then session tokens, then the user row, so no
// step trips a foreign key. An organizer's events disappear with the
// account; no waitlist reconciliation runs, matching the event
// cancellation cascade's asymmetry.
func (s *Accounts) Delete(ctx context.Context, userID uint64) error {
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

	if err := s.bookings.DeleteByCustomerTx(ctx, tx, userID); err != nil {
		return err
	}
	if err := s.waitlist.DeleteByUserTx(ctx, tx, userID); err != nil {
		return err
	}
	eventIDs, err := s.events.IDsByOrganizerTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	for _, id := range eventIDs {
		if err := s.bookings.DeleteByEventTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.waitlist.DeleteByEventTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.tickets.DeleteByEventTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.events.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
	}
	if err := s.tokens.DeleteAllForUserTx(ctx, tx, userID); err != nil {
		return err
	}
	if err := s.users.DeleteTx(ctx, tx, userID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	s.log.WithFields(logrus.Fields{"user_id": userID, "events_removed": len(eventIDs)}).
		Info("account deleted")
	return nil
}
