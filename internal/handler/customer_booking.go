package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetikov/event-ticketing/internal/model"
	"github.com/avetikov/event-ticketing/internal/repository"
	"github.com/avetikov/event-ticketing/internal/service"
)

// BookingHandler serves the customer booking endpoints on top of the
// consistency engine.
type BookingHandler struct {
	Engine   *service.Engine
	Bookings *repository.BookingRepo
}

func NewBookingHandler(eng *service.Engine, b *repository.BookingRepo) *BookingHandler {
	if eng == nil || b == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: eng, Bookings: b}
}

type createBookingReq struct {
	TicketID uint64 `json:"ticket_id"`
	Quantity uint32 `json:"quantity"`
}

type bookingResp struct {
	ID        uint64    `json:"id"`
	Reference string    `json:"reference"`
	TicketID  uint64    `json:"ticket_id"`
	Quantity  uint32    `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:        b.ID,
		Reference: b.Reference,
		TicketID:  b.TicketID,
		Quantity:  b.Quantity,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
	}
}

// Create books a quantity of one ticket type.  The whole request
// succeeds or fails; there are no partial bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TicketID == 0 || req.Quantity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_id and positive quantity required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	b, err := h.Engine.Book(ctx, uid, req.TicketID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Cancel cancels one of the customer's bookings and reports which
// waitlist entries the freed capacity fulfilled.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	b, fulfilled, err := h.Engine.Cancel(ctx, uid, bookingID)
	if err != nil {
		return fail(c, err)
	}
	if fulfilled == nil {
		fulfilled = []service.Fulfillment{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":   toBookingResp(b),
		"fulfilled": fulfilled,
	})
}

// ListMine returns the customer's bookings, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.Bookings.ListByCustomer(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}
