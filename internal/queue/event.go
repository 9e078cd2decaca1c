// Package queue defines notification payloads exchanged over the message
// broker, the publisher that emits them and the background consumer that
// drains them. Delivery is fire-and-forget: a failed publish is logged and
// never rolls back the transaction that produced it.
package queue

// Notification kinds emitted by the reconciliation engine and the
// event catalog.
const (
	KindBookingConfirmed  = "booking.confirmed"
	KindBookingCancelled  = "booking.cancelled"
	KindWaitlistFulfilled = "waitlist.fulfilled"
	KindEventUpdated      = "event.updated"
	KindEventCancelled    = "event.cancelled"
)

// Notification is the single payload shape for every outbound message.
// It carries enough for downstream consumers to deliver an email or
// feed analytics without querying the primary database.
type Notification struct {
	Kind       string `json:"kind"`
	Recipient  string `json:"recipient"`
	EventTitle string `json:"event_title"`
	TicketType string `json:"ticket_type,omitempty"`
	Quantity   uint32 `json:"quantity,omitempty"`
	Reference  string `json:"reference,omitempty"`
	Message    string `json:"message"`
	SentAt     string `json:"sent_at"`
}
