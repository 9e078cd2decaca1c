package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetikov/event-ticketing/internal/model"
	"github.com/avetikov/event-ticketing/internal/queue"
	"github.com/avetikov/event-ticketing/internal/repository"
)

// stubNotifier records published notifications.
type stubNotifier struct {
	got []queue.Notification
}

func (s *stubNotifier) Publish(_ context.Context, n queue.Notification) error {
	s.got = append(s.got, n)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock, *stubNotifier) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	notifier := &stubNotifier{}
	eng := NewEngine(db,
		repository.NewUserRepo(db),
		repository.NewTicketRepo(db),
		repository.NewBookingRepo(db),
		repository.NewWaitlistRepo(db),
		notifier, log)
	return eng, mock, notifier
}

const (
	qTicketLock   = `FROM tickets t`
	qDecrement    = `quantity_available = quantity_available - `
	qIncrement    = `quantity_available = quantity_available \+ `
	qInsertBook   = `INSERT INTO bookings`
	qSelectBook   = `FROM bookings WHERE id = `
	qBookingLock  = `FROM bookings WHERE id = \? AND customer_id = \?`
	qMarkCancel   = `UPDATE bookings SET status = `
	qOldestFit    = `FROM waitlist_entries w`
	qDeleteEntry  = `DELETE FROM waitlist_entries WHERE id = `
	qEntryByUser  = `FROM waitlist_entries WHERE user_id = `
	qInsertEntry  = `INSERT INTO waitlist_entries`
	qSelectEntry  = `FROM waitlist_entries WHERE id = `
	qConfirmedSum = `SUM\(quantity\)`
	qUserByID     = `FROM users WHERE id=`
)

func ticketCols() []string {
	return []string{"id", "event_id", "ticket_type", "price_cents", "quantity_available", "title", "status", "deleted"}
}

func bookingCols() []string {
	return []string{"id", "reference", "customer_id", "ticket_id", "quantity", "status", "created_at", "updated_at"}
}

func userRow(id uint64, email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}).
		AddRow(id, email, "x", model.RoleCustomer, true, now, now)
}

func TestBookDecrementsAndConfirms(t *testing.T) {
	eng, mock, notifier := newTestEngine(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(ticketCols()).
			AddRow(10, 1, "VIP", 5000, 5, "Jazz Night", model.EventActive, false))
	mock.ExpectExec(qDecrement).WithArgs(uint32(3), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qInsertBook).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(qSelectBook).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(bookingCols()).
			AddRow(7, "ref-7", 42, 10, 3, model.BookingConfirmed, now, now))
	mock.ExpectCommit()
	mock.ExpectQuery(qUserByID).WithArgs(uint64(42)).
		WillReturnRows(userRow(42, "alice@example.com"))

	b, err := eng.Book(context.Background(), 42, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), b.ID)
	assert.Equal(t, uint32(3), b.Quantity)
	assert.Equal(t, model.BookingConfirmed, b.Status)

	require.Len(t, notifier.got, 1)
	assert.Equal(t, queue.KindBookingConfirmed, notifier.got[0].Kind)
	assert.Equal(t, "alice@example.com", notifier.got[0].Recipient)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookInsufficientInventory(t *testing.T) {
	eng, mock, notifier := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(ticketCols()).
			AddRow(10, 1, "VIP", 5000, 2, "Jazz Night", model.EventActive, false))
	mock.ExpectRollback()

	_, err := eng.Book(context.Background(), 42, 10, 3)
	assert.ErrorIs(t, err, repository.ErrInsufficientInventory)
	assert.Empty(t, notifier.got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookUnknownTicket(t *testing.T) {
	eng, mock, _ := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(ticketCols()))
	mock.ExpectRollback()

	_, err := eng.Book(context.Background(), 42, 99, 1)
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookCancelledEventRejected(t *testing.T) {
	eng, mock, _ := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(ticketCols()).
			AddRow(10, 1, "VIP", 5000, 5, "Jazz Night", model.EventCancelled, false))
	mock.ExpectRollback()

	_, err := eng.Book(context.Background(), 42, 10, 1)
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A cancellation freeing 3 seats skips nobody eligible: an entry for 2
// is fulfilled, no further entry fits the remaining 1, so 1 seat goes
// back to general stock.
func TestCancelFulfillsWaitlistAndReturnsResidual(t *testing.T) {
	eng, mock, notifier := newTestEngine(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(qBookingLock).WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingCols()).
			AddRow(7, "ref-7", 42, 10, 3, model.BookingConfirmed, now, now))
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(ticketCols()).
			AddRow(10, 1, "VIP", 5000, 0, "Jazz Night", model.EventActive, false))
	mock.ExpectExec(qMarkCancel).WithArgs(model.BookingCancelled, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// first pass: freed=3, oldest fitting entry wants 2
	mock.ExpectQuery(qOldestFit).WithArgs(uint64(10), uint32(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "quantity", "email"}).
			AddRow(51, 88, 2, "bob@example.com"))
	mock.ExpectExec(qInsertBook).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery(qSelectBook).WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows(bookingCols()).
			AddRow(8, "ref-8", 88, 10, 2, model.BookingConfirmed, now, now))
	mock.ExpectExec(qDeleteEntry).WithArgs(uint64(51)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// second pass: freed=1, nothing fits
	mock.ExpectQuery(qOldestFit).WithArgs(uint64(10), uint32(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "quantity", "email"}))

	mock.ExpectExec(qIncrement).WithArgs(uint32(1), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(qUserByID).WithArgs(uint64(42)).
		WillReturnRows(userRow(42, "alice@example.com"))

	b, fulfilled, err := eng.Cancel(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	require.Len(t, fulfilled, 1)
	assert.Equal(t, uint64(88), fulfilled[0].UserID)
	assert.Equal(t, uint32(2), fulfilled[0].Quantity)
	assert.Equal(t, uint64(8), fulfilled[0].BookingID)

	// one cancellation notice plus one fulfillment notice
	require.Len(t, notifier.got, 2)
	assert.Equal(t, queue.KindBookingCancelled, notifier.got[0].Kind)
	assert.Equal(t, queue.KindWaitlistFulfilled, notifier.got[1].Kind)
	assert.Equal(t, "bob@example.com", notifier.got[1].Recipient)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A cancellation that fulfills waitlist entries must also work when no
// notifier is configured: notifications are skipped, nothing else changes.
func TestCancelFulfillsWithoutNotifier(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	eng := NewEngine(db,
		repository.NewUserRepo(db),
		repository.NewTicketRepo(db),
		repository.NewBookingRepo(db),
		repository.NewWaitlistRepo(db),
		nil, log)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(qBookingLock).WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingCols()).
			AddRow(7, "ref-7", 42, 10, 2, model.BookingConfirmed, now, now))
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(ticketCols()).
			AddRow(10, 1, "VIP", 5000, 0, "Jazz Night", model.EventActive, false))
	mock.ExpectExec(qMarkCancel).WithArgs(model.BookingCancelled, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(qOldestFit).WithArgs(uint64(10), uint32(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "quantity", "email"}).
			AddRow(51, 88, 2, "bob@example.com"))
	mock.ExpectExec(qInsertBook).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery(qSelectBook).WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows(bookingCols()).
			AddRow(8, "ref-8", 88, 10, 2, model.BookingConfirmed, now, now))
	mock.ExpectExec(qDeleteEntry).WithArgs(uint64(51)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, fulfilled, err := eng.Cancel(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	require.Len(t, fulfilled, 1)
	assert.Equal(t, uint64(88), fulfilled[0].UserID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Freed capacity exactly consumed by the queue: no residual increment.
func TestCancelFreedExactlyConsumed(t *testing.T) {
	eng, mock, _ := newTestEngine(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(qBookingLock).WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingCols()).
			AddRow(7, "ref-7", 42, 10, 2, model.BookingConfirmed, now, now))
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(ticketCols()).
			AddRow(10, 1, "VIP", 5000, 0, "Jazz Night", model.EventActive, false))
	mock.ExpectExec(qMarkCancel).WithArgs(model.BookingCancelled, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qOldestFit).WithArgs(uint64(10), uint32(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "quantity", "email"}).
			AddRow(51, 88, 2, "bob@example.com"))
	mock.ExpectExec(qInsertBook).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery(qSelectBook).WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows(bookingCols()).
			AddRow(8, "ref-8", 88, 10, 2, model.BookingConfirmed, now, now))
	mock.ExpectExec(qDeleteEntry).WithArgs(uint64(51)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// freed hits zero, so neither another scan nor an increment runs
	mock.ExpectCommit()
	mock.ExpectQuery(qUserByID).WithArgs(uint64(42)).
		WillReturnRows(userRow(42, "alice@example.com"))

	_, fulfilled, err := eng.Cancel(context.Background(), 42, 7)
	require.NoError(t, err)
	require.Len(t, fulfilled, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Cancelling twice, cancelling someone else's booking and cancelling a
// booking that never existed all collapse into the same not-found
// outcome.
func TestCancelIdempotent(t *testing.T) {
	eng, mock, notifier := newTestEngine(t)
	now := time.Now()

	// already cancelled
	mock.ExpectBegin()
	mock.ExpectQuery(qBookingLock).WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingCols()).
			AddRow(7, "ref-7", 42, 10, 3, model.BookingCancelled, now, now))
	mock.ExpectRollback()

	_, _, err := eng.Cancel(context.Background(), 42, 7)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)

	// missing or not owned
	mock.ExpectBegin()
	mock.ExpectQuery(qBookingLock).WithArgs(uint64(7), uint64(43)).
		WillReturnRows(sqlmock.NewRows(bookingCols()))
	mock.ExpectRollback()

	_, _, err = eng.Cancel(context.Background(), 43, 7)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)

	assert.Empty(t, notifier.got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinWaitlistCreatesEntry(t *testing.T) {
	eng, mock, _ := newTestEngine(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(ticketCols()).
			AddRow(10, 1, "VIP", 5000, 4, "Jazz Night", model.EventActive, false))
	mock.ExpectQuery(qEntryByUser).WithArgs(uint64(88), uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_id", "user_id", "quantity", "created_at"}))
	mock.ExpectQuery(qConfirmedSum).WithArgs(uint64(10), model.BookingConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(6))
	mock.ExpectExec(qInsertEntry).WithArgs(uint64(10), uint64(88), uint32(2)).
		WillReturnResult(sqlmock.NewResult(51, 1))
	mock.ExpectQuery(qSelectEntry).WithArgs(uint64(51)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_id", "user_id", "quantity", "created_at"}).
			AddRow(51, 10, 88, 2, now))
	mock.ExpectCommit()

	w, err := eng.JoinWaitlist(context.Background(), 88, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(51), w.ID)
	assert.Equal(t, uint32(2), w.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The join bound is ever-available capacity: what is on the shelf plus
// what confirmed bookings hold. 4 available + 6 confirmed admits a
// request for 10 but not 11.
func TestJoinWaitlistExceedsCapacity(t *testing.T) {
	eng, mock, _ := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(ticketCols()).
			AddRow(10, 1, "VIP", 5000, 4, "Jazz Night", model.EventActive, false))
	mock.ExpectQuery(qEntryByUser).WithArgs(uint64(88), uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_id", "user_id", "quantity", "created_at"}))
	mock.ExpectQuery(qConfirmedSum).WithArgs(uint64(10), model.BookingConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(6))
	mock.ExpectRollback()

	_, err := eng.JoinWaitlist(context.Background(), 88, 10, 11)
	assert.ErrorIs(t, err, repository.ErrExceedsCapacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinWaitlistIdempotent(t *testing.T) {
	eng, mock, _ := newTestEngine(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(qTicketLock).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(ticketCols()).
			AddRow(10, 1, "VIP", 5000, 0, "Jazz Night", model.EventActive, false))
	mock.ExpectQuery(qEntryByUser).WithArgs(uint64(88), uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_id", "user_id", "quantity", "created_at"}).
			AddRow(51, 10, 88, 2, now))
	mock.ExpectCommit()

	w, err := eng.JoinWaitlist(context.Background(), 88, 10, 5)
	require.NoError(t, err)
	// the existing entry comes back unchanged, not the new quantity
	assert.Equal(t, uint64(51), w.ID)
	assert.Equal(t, uint32(2), w.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
