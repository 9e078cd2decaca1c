package repository

import (
	"context"
	"strings"
	"time"
)

// EventSearchQuery defines filters & pagination for the public event
// listing.  Zero values mean "no filter".
type EventSearchQuery struct {
	Venue     string // substring match on venue
	Date      string // exact calendar date, YYYY-MM-DD
	DayType   string // "weekday" or "weekend"
	TimeOfDay string // "morning", "afternoon", "evening" or "night"
	Page      int
	PageSize  int
}

// PublicEventRow is one row of the public listing.  InventoryStatus is
// derived in SQL from the sum of the event's tickets'
// quantity_available so the availability-first ordering composes with
// pagination instead of breaking across pages.
type PublicEventRow struct {
	ID              uint64            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Date            time.Time         `json:"date"`
	Venue           string            `json:"venue"`
	InventoryStatus string            `json:"inventory_status"`
	Available       uint64            `json:"quantity_available"`
	Tickets         []PublicTicketRow `json:"tickets"`
}

// PublicTicketRow is a ticket type as shown on public listings.
type PublicTicketRow struct {
	ID                uint64 `json:"id"`
	TicketType        string `json:"ticket_type"`
	PriceCents        uint32 `json:"price_cents"`
	QuantityAvailable uint32 `json:"quantity_available"`
}

// buildSearchConditions translates the query's filters into WHERE
// fragments over persisted columns.  Public listings always exclude
// cancelled and soft-deleted events.  DAYOFWEEK is 1=Sunday..7=Saturday
// in MySQL; the night bucket wraps midnight.
func buildSearchConditions(q EventSearchQuery) ([]string, []interface{}) {
	where := []string{"e.status = 'active'", "e.deleted_at IS NULL"}
	args := []interface{}{}

	if q.Venue != "" {
		where = append(where, "LOWER(e.venue) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Venue)+"%")
	}
	if q.Date != "" {
		where = append(where, "DATE(e.date) = ?")
		args = append(args, q.Date)
	}
	switch strings.ToLower(q.DayType) {
	case "weekday":
		where = append(where, "DAYOFWEEK(e.date) BETWEEN 2 AND 6")
	case "weekend":
		where = append(where, "DAYOFWEEK(e.date) IN (1, 7)")
	}
	switch strings.ToLower(q.TimeOfDay) {
	case "morning":
		where = append(where, "HOUR(e.date) >= 6 AND HOUR(e.date) < 12")
	case "afternoon":
		where = append(where, "HOUR(e.date) >= 12 AND HOUR(e.date) < 17")
	case "evening":
		where = append(where, "HOUR(e.date) >= 17 AND HOUR(e.date) < 21")
	case "night":
		where = append(where, "(HOUR(e.date) >= 21 OR HOUR(e.date) < 6)")
	}
	return where, args
}

// SearchPublic returns active events matching the filters, ordered by
// derived inventory status (available before sold_out) then by date
// ascending, plus the total match count for pagination.
func (r *EventRepo) SearchPublic(ctx context.Context, q EventSearchQuery) ([]PublicEventRow, int64, error) {
	where, args := buildSearchConditions(q)
	cond := strings.Join(where, " AND ")

	const availJoin = `LEFT JOIN (
		SELECT event_id, SUM(quantity_available) AS avail
		FROM tickets GROUP BY event_id
	) i ON i.event_id = e.id`

	var total int64
	countSQL := `SELECT COUNT(*) FROM events e WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			e.id, e.title, e.description, e.date, e.venue,
			COALESCE(i.avail, 0) AS available,
			CASE WHEN COALESCE(i.avail, 0) > 0 THEN 'available' ELSE 'sold_out' END AS inventory_status
		FROM events e
		` + availJoin + `
		WHERE ` + cond + `
		ORDER BY CASE WHEN COALESCE(i.avail, 0) > 0 THEN 0 ELSE 1 END ASC, e.date ASC, e.id ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]interface{}{}, args...), limit, offset)
	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PublicEventRow, 0, limit)
	index := make(map[uint64]int)
	for rows.Next() {
		var d PublicEventRow
		if err := rows.Scan(&d.ID, &d.Title, &d.Description, &d.Date, &d.Venue,
			&d.Available, &d.InventoryStatus); err != nil {
			return nil, 0, err
		}
		d.Tickets = []PublicTicketRow{}
		index[d.ID] = len(out)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return out, total, nil
	}

	// Populate ticket types for the page in one query.
	ids := make([]interface{}, 0, len(out))
	placeholders := make([]string, 0, len(out))
	for _, d := range out {
		ids = append(ids, d.ID)
		placeholders = append(placeholders, "?")
	}
	ticketSQL := `SELECT event_id, id, ticket_type, price_cents, quantity_available
	              FROM tickets
	              WHERE event_id IN (` + strings.Join(placeholders, ",") + `)
	              ORDER BY event_id, id`
	trows, err := r.db.QueryContext(ctx, ticketSQL, ids...)
	if err != nil {
		return nil, 0, err
	}
	defer trows.Close()
	for trows.Next() {
		var eventID uint64
		var t PublicTicketRow
		if err := trows.Scan(&eventID, &t.ID, &t.TicketType, &t.PriceCents, &t.QuantityAvailable); err != nil {
			return nil, 0, err
		}
		if idx, ok := index[eventID]; ok {
			out[idx].Tickets = append(out[idx].Tickets, t)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
