package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avetikov/event-ticketing/internal/repository"
	"github.com/avetikov/event-ticketing/internal/service"
)

// WaitlistHandler serves the customer waitlist endpoints.
type WaitlistHandler struct {
	Engine   *service.Engine
	Waitlist *repository.WaitlistRepo
}

func NewWaitlistHandler(eng *service.Engine, w *repository.WaitlistRepo) *WaitlistHandler {
	if eng == nil || w == nil {
		panic("nil dependency passed to NewWaitlistHandler")
	}
	return &WaitlistHandler{Engine: eng, Waitlist: w}
}

type joinWaitlistReq struct {
	TicketID uint64 `json:"ticket_id"`
	Quantity uint32 `json:"quantity"`
}

// Join places the customer on a ticket's waitlist.  Joining twice for
// the same ticket returns the existing entry unchanged; the requested
// quantity is bounded by the ticket's ever-available capacity.
func (h *WaitlistHandler) Join(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req joinWaitlistReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TicketID == 0 || req.Quantity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_id and positive quantity required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	entry, err := h.Engine.JoinWaitlist(ctx, uid, req.TicketID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":         entry.ID,
		"ticket_id":  entry.TicketID,
		"quantity":   entry.Quantity,
		"created_at": entry.CreatedAt,
	})
}

// ListMine returns the customer's waitlist entries, oldest first.
func (h *WaitlistHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.Waitlist.ListByUser(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"waitlist": list})
}
