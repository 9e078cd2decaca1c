package service

import (
	"context"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetikov/event-ticketing/internal/repository"
)

func newTestAccounts(t *testing.T) (*Accounts, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	acc := NewAccounts(db,
		repository.NewUserRepo(db),
		repository.NewTokenRepo(db),
		repository.NewEventRepo(db),
		repository.NewTicketRepo(db),
		repository.NewBookingRepo(db),
		repository.NewWaitlistRepo(db),
		log)
	return acc, mock
}

// Deleting an organizer removes everything in dependency order within
// one transaction: own bookings, own waitlist entries, then for each
// owned event its bookings, waitlist entries and tickets before the
// event row, then tokens, then the user.
func TestAccountDeleteCascadeOrder(t *testing.T) {
	acc, mock := newTestAccounts(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM bookings WHERE customer_id = `).WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM waitlist_entries WHERE user_id = `).WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id FROM events WHERE organizer_id = `).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(`DELETE b FROM bookings b`).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE w FROM waitlist_entries w`).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM tickets WHERE event_id = `).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM events WHERE id = `).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE user_id=`).WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE id=`).WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := acc.Delete(context.Background(), 9)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A customer with no events skips the per-event loop entirely.
func TestAccountDeleteCustomer(t *testing.T) {
	acc, mock := newTestAccounts(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM bookings WHERE customer_id = `).WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM waitlist_entries WHERE user_id = `).WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id FROM events WHERE organizer_id = `).WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE user_id=`).WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM users WHERE id=`).WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := acc.Delete(context.Background(), 42)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
