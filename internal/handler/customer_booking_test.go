package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetikov/event-ticketing/internal/repository"
	"github.com/avetikov/event-ticketing/internal/service"
)

func newBookingHandler(t *testing.T) (*BookingHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	bookings := repository.NewBookingRepo(db)
	eng := service.NewEngine(db,
		repository.NewUserRepo(db),
		repository.NewTicketRepo(db),
		bookings,
		repository.NewWaitlistRepo(db),
		nil, log)
	return NewBookingHandler(eng, bookings), mock
}

func jsonPost(t *testing.T, path, body string, userID interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("user_id", userID)
	}
	return c, rec
}

// Request-shape problems never reach the engine.
func TestBookingCreateValidation(t *testing.T) {
	h, mock := newBookingHandler(t)

	c, rec := jsonPost(t, "/v1/bookings", `{"ticket_id":0,"quantity":2}`, float64(42))
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = jsonPost(t, "/v1/bookings", `{"ticket_id":10,"quantity":0}`, float64(42))
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = jsonPost(t, "/v1/bookings", `not json`, float64(42))
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// no authenticated user in context
	c, rec = jsonPost(t, "/v1/bookings", `{"ticket_id":10,"quantity":2}`, nil)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingCancelMapsNotFound(t *testing.T) {
	h, mock := newBookingHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bookings WHERE id = \? AND customer_id = \?`).
		WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference", "customer_id", "ticket_id",
			"quantity", "status", "created_at", "updated_at"}))
	mock.ExpectRollback()

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/v1/bookings/7", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", float64(42))
	c.SetParamNames("id")
	c.SetParamValues("7")

	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
