// Package domain defines the core data types shared across the Safar service.
package domain

// TicketStatus is the lifecycle state of a booked ticket.
type TicketStatus string

const (
	TicketStatusConfirmed TicketStatus = "confirmed"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Passenger identifies the traveller on a ticket.
type Passenger struct {
	FullName   string `json:"full_name"`
	NationalID string `json:"national_id"` // 10-digit Iranian national ID
	Phone      string `json:"phone"`
}

// Ticket is a booked domestic flight ticket.
// TicketID is immutable after creation; only Status and the refund fields
// change on cancellation.
type Ticket struct {
	TicketID     string       `json:"ticket_id"`
	Origin       string       `json:"origin"`
	Destination  string       `json:"destination"`
	TravelDate   string       `json:"travel_date"` // YYYY-MM-DD
	Passenger    Passenger    `json:"passenger"`
	Price        int          `json:"price"`
	Status       TicketStatus `json:"status"`
	RefundAmount int          `json:"refund_amount,omitempty"`
}

// BookingSlots is the working data accumulated across a multi-turn booking
// flow. Fields stay empty until the model extracts them from the
// conversation; the flow is not allowed to book until all are filled and
// valid.
type BookingSlots struct {
	Origin      string      `json:"origin,omitempty"`
	Destination string      `json:"destination,omitempty"`
	Date        string      `json:"date,omitempty"`
	Passengers  int         `json:"passengers,omitempty"`
	Info        []Passenger `json:"passenger_info,omitempty"`
}
