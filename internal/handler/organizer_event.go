package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetikov/event-ticketing/internal/model"
	"github.com/avetikov/event-ticketing/internal/repository"
	"github.com/avetikov/event-ticketing/internal/service"
)

// OrganizerHandler serves the event-management endpoints available to
// organizers.  Writes go through the Catalog service; reads hit the
// repositories directly.
type OrganizerHandler struct {
	Catalog  *service.Catalog
	Events   *repository.EventRepo
	Tickets  *repository.TicketRepo
	Bookings *repository.BookingRepo
	Waitlist *repository.WaitlistRepo
}

func NewOrganizerHandler(cat *service.Catalog, e *repository.EventRepo, t *repository.TicketRepo,
	b *repository.BookingRepo, w *repository.WaitlistRepo) *OrganizerHandler {
	if cat == nil || e == nil || t == nil || b == nil || w == nil {
		panic("nil dependency passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Catalog: cat, Events: e, Tickets: t, Bookings: b, Waitlist: w}
}

// ----- DTOs -----

type ticketReq struct {
	TicketType string `json:"ticket_type"`
	PriceCents uint32 `json:"price_cents"`
	Quantity   uint32 `json:"quantity"`
}

type createEventReq struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Date        time.Time   `json:"date"`
	Venue       string      `json:"venue"`
	Tickets     []ticketReq `json:"tickets"`
}

type updateEventReq struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Venue       *string    `json:"venue"`
	Status      *string    `json:"status"`
}

type eventResp struct {
	ID          uint64         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Date        time.Time      `json:"date"`
	Venue       string         `json:"venue"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Tickets     []model.Ticket `json:"tickets,omitempty"`
}

func toEventResp(e model.Event, tickets []model.Ticket) eventResp {
	return eventResp{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Venue:       e.Venue,
		Status:      e.Status,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Tickets:     tickets,
	}
}

// Create registers an event together with its ticket types in one unit
// of work.  Each ticket's quantity becomes its initial capacity.
func (h *OrganizerHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Venue = strings.TrimSpace(req.Venue)
	if req.Title == "" || req.Venue == "" || req.Date.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title, venue and date required"})
	}
	if len(req.Tickets) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one ticket type required"})
	}
	inputs := make([]repository.TicketInput, 0, len(req.Tickets))
	for _, t := range req.Tickets {
		if strings.TrimSpace(t.TicketType) == "" || t.Quantity == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_type and positive quantity required"})
		}
		inputs = append(inputs, repository.TicketInput{
			TicketType: strings.TrimSpace(t.TicketType),
			PriceCents: t.PriceCents,
			Quantity:   t.Quantity,
		})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	ev := &model.Event{
		OrganizerID: uid,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date.UTC(),
		Venue:       req.Venue,
		Status:      model.EventActive,
	}
	if err := h.Catalog.CreateEvent(ctx, ev, inputs); err != nil {
		return fail(c, err)
	}
	tickets, err := h.Tickets.ListByEvent(ctx, ev.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toEventResp(*ev, tickets))
}

// ListMine returns all events owned by the organizer, including
// cancelled and soft-deleted ones, each with its ticket types.
func (h *OrganizerHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	events, err := h.Events.ListByOrganizer(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		tickets, err := h.Tickets.ListByEvent(ctx, e.ID)
		if err != nil {
			return fail(c, err)
		}
		out = append(out, toEventResp(e, tickets))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Update applies a partial update to an owned event.  Setting status to
// cancelled cancels every confirmed booking on the event's tickets; any
// other change broadcasts an update notification to bookers.
func (h *OrganizerHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req updateEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status != nil && *req.Status != model.EventActive && *req.Status != model.EventCancelled {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be active or cancelled"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	ev, err := h.Catalog.UpdateEvent(ctx, uid, eventID, model.EventUpdate{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Venue:       req.Venue,
		Status:      req.Status,
	})
	if err != nil {
		return fail(c, err)
	}
	tickets, err := h.Tickets.ListByEvent(ctx, ev.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toEventResp(*ev, tickets))
}

// Delete removes an owned event.  Events with booking history are
// soft-deleted and their confirmed bookings cancelled; events without
// history are removed outright.
func (h *OrganizerHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Catalog.DeleteEvent(ctx, uid, eventID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// EventBookings lists bookings across all of an owned event's tickets.
func (h *OrganizerHandler) EventBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.Bookings.ListByEventForOwner(ctx, eventID, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, repository.ErrEventNotFound)
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// TicketWaitlist lists a ticket's waitlist queue in FIFO order.
func (h *OrganizerHandler) TicketWaitlist(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.Waitlist.ListByTicketForOwner(ctx, ticketID, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, repository.ErrTicketNotFound)
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"waitlist": list})
}
