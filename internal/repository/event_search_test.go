package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchConditions(t *testing.T) {
	tests := []struct {
		name     string
		q        EventSearchQuery
		want     []string
		wantArgs []interface{}
	}{
		{
			name: "no filters still excludes cancelled and deleted",
			q:    EventSearchQuery{},
			want: []string{"e.status = 'active'", "e.deleted_at IS NULL"},
		},
		{
			name:     "venue is a case-insensitive substring match",
			q:        EventSearchQuery{Venue: "Blue Note"},
			want:     []string{"e.status = 'active'", "e.deleted_at IS NULL", "LOWER(e.venue) LIKE ?"},
			wantArgs: []interface{}{"%blue note%"},
		},
		{
			name:     "date compares the calendar day only",
			q:        EventSearchQuery{Date: "2026-09-12"},
			want:     []string{"e.status = 'active'", "e.deleted_at IS NULL", "DATE(e.date) = ?"},
			wantArgs: []interface{}{"2026-09-12"},
		},
		{
			name: "weekday maps to Monday through Friday",
			q:    EventSearchQuery{DayType: "weekday"},
			want: []string{"e.status = 'active'", "e.deleted_at IS NULL", "DAYOFWEEK(e.date) BETWEEN 2 AND 6"},
		},
		{
			name: "weekend maps to Sunday and Saturday",
			q:    EventSearchQuery{DayType: "weekend"},
			want: []string{"e.status = 'active'", "e.deleted_at IS NULL", "DAYOFWEEK(e.date) IN (1, 7)"},
		},
		{
			name: "morning bucket",
			q:    EventSearchQuery{TimeOfDay: "morning"},
			want: []string{"e.status = 'active'", "e.deleted_at IS NULL", "HOUR(e.date) >= 6 AND HOUR(e.date) < 12"},
		},
		{
			name: "afternoon bucket",
			q:    EventSearchQuery{TimeOfDay: "afternoon"},
			want: []string{"e.status = 'active'", "e.deleted_at IS NULL", "HOUR(e.date) >= 12 AND HOUR(e.date) < 17"},
		},
		{
			name: "evening bucket",
			q:    EventSearchQuery{TimeOfDay: "evening"},
			want: []string{"e.status = 'active'", "e.deleted_at IS NULL", "HOUR(e.date) >= 17 AND HOUR(e.date) < 21"},
		},
		{
			name: "night bucket wraps midnight",
			q:    EventSearchQuery{TimeOfDay: "night"},
			want: []string{"e.status = 'active'", "e.deleted_at IS NULL", "(HOUR(e.date) >= 21 OR HOUR(e.date) < 6)"},
		},
		{
			name: "filters compose",
			q:    EventSearchQuery{Venue: "Arena", Date: "2026-09-12", DayType: "weekend", TimeOfDay: "evening"},
			want: []string{
				"e.status = 'active'", "e.deleted_at IS NULL",
				"LOWER(e.venue) LIKE ?", "DATE(e.date) = ?",
				"DAYOFWEEK(e.date) IN (1, 7)",
				"HOUR(e.date) >= 17 AND HOUR(e.date) < 21",
			},
			wantArgs: []interface{}{"%arena%", "2026-09-12"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildSearchConditions(tt.q)
			assert.Equal(t, tt.want, where)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

// Available events sort before sold-out ones; sold-out events remain in
// the listing rather than being filtered away.
func TestSearchPublicOrdersByAvailability(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEventRepo(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events e`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`ORDER BY CASE WHEN COALESCE`).WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "date", "venue", "available", "inventory_status"}).
			AddRow(2, "Open Mic", "", now, "Cafe", 12, "available").
			AddRow(1, "Jazz Night", "", now, "Club", 0, "sold_out"))
	mock.ExpectQuery(`FROM tickets`).WithArgs(uint64(2), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "id", "ticket_type", "price_cents", "quantity_available"}).
			AddRow(2, 21, "GA", 1500, 12).
			AddRow(1, 11, "GA", 2000, 0))

	rows, total, err := repo.SearchPublic(context.Background(), EventSearchQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	assert.Equal(t, "available", rows[0].InventoryStatus)
	assert.Equal(t, "sold_out", rows[1].InventoryStatus)
	require.Len(t, rows[0].Tickets, 1)
	assert.Equal(t, "GA", rows[0].Tickets[0].TicketType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchPublicEmptyPage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEventRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events e`).WithArgs("%nowhere%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY CASE WHEN COALESCE`).WithArgs("%nowhere%", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "date", "venue", "available", "inventory_status"}))

	rows, total, err := repo.SearchPublic(context.Background(), EventSearchQuery{Venue: "Nowhere", PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
