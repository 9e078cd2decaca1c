package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetikov/event-ticketing/internal/model"
	"github.com/avetikov/event-ticketing/internal/repository"
)

// PublicHandler serves the unauthenticated event discovery endpoints.
type PublicHandler struct {
	Events  *repository.EventRepo
	Tickets *repository.TicketRepo
}

func NewPublicHandler(e *repository.EventRepo, t *repository.TicketRepo) *PublicHandler {
	if e == nil || t == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Events: e, Tickets: t}
}

var (
	validDayTypes = map[string]bool{"weekday": true, "weekend": true}
	validDayTimes = map[string]bool{"morning": true, "afternoon": true, "evening": true, "night": true}
)

// Search lists active events matching the query filters, ordered by
// availability first and date second.  Sold-out events sink to the end
// of the listing but remain visible so customers can find their
// waitlists.
func (h *PublicHandler) Search(c echo.Context) error {
	q := repository.EventSearchQuery{
		Venue:     strings.TrimSpace(c.QueryParam("venue")),
		Date:      strings.TrimSpace(c.QueryParam("date")),
		DayType:   strings.ToLower(strings.TrimSpace(c.QueryParam("day_type"))),
		TimeOfDay: strings.ToLower(strings.TrimSpace(c.QueryParam("time_of_day"))),
		Page:      1,
		PageSize:  20,
	}
	if q.Date != "" {
		if _, err := time.Parse("2006-01-02", q.Date); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
	}
	if q.DayType != "" && !validDayTypes[q.DayType] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day_type must be weekday or weekend"})
	}
	if q.TimeOfDay != "" && !validDayTimes[q.TimeOfDay] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "time_of_day must be morning, afternoon, evening or night"})
	}
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Page = n
		}
	}
	if v := c.QueryParam("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			q.PageSize = n
		}
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	rows, total, err := h.Events.SearchPublic(ctx, q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"events":    rows,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

// Get returns one active event with its ticket types.  Cancelled and
// soft-deleted events are invisible here.
func (h *PublicHandler) Get(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, repository.ErrEventNotFound)
		}
		return fail(c, err)
	}
	if ev.Status != model.EventActive || ev.DeletedAt != nil {
		return fail(c, repository.ErrEventNotFound)
	}
	tickets, err := h.Tickets.ListByEvent(ctx, ev.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toEventResp(ev, tickets))
}
