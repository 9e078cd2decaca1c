package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetikov/event-ticketing/internal/repository"
)

func newPublicHandler(t *testing.T) (*PublicHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPublicHandler(repository.NewEventRepo(db), repository.NewTicketRepo(db)), mock
}

func searchRequest(t *testing.T, h *PublicHandler, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/events?"+params.Encode(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.Search(c))
	return rec
}

// Bad filter values are rejected before any query runs.
func TestSearchRejectsInvalidFilters(t *testing.T) {
	h, mock := newPublicHandler(t)

	rec := searchRequest(t, h, url.Values{"date": {"12/09/2026"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = searchRequest(t, h, url.Values{"day_type": {"holiday"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = searchRequest(t, h, url.Values{"time_of_day": {"dawn"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchAppliesPaginationDefaults(t *testing.T) {
	h, mock := newPublicHandler(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events e`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY CASE WHEN COALESCE`).WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "date", "venue", "available", "inventory_status"}))

	rec := searchRequest(t, h, url.Values{"page": {"0"}, "page_size": {"-3"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"page":1`)
	assert.Contains(t, rec.Body.String(), `"page_size":20`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHidesCancelledEvents(t *testing.T) {
	h, mock := newPublicHandler(t)

	now := time.Now()
	cols := []string{"id", "organizer_id", "title", "description", "date", "venue",
		"status", "deleted_at", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM events WHERE id = `).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, 1, "Jazz Night", "", now, "Club", "cancelled", nil, now, now))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/events/5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
