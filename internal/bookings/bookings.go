package bookings

import (
	"context"
	"fmt"
	"time"
)

// DefaultSpecialRequests is stored when the caller made no special request.
const DefaultSpecialRequests = "None"

// Booking is a confirmed table reservation. Fields the caller never supplied
// stay nil.
type Booking struct {
	ID              string    `json:"booking_id"`
	Name            *string   `json:"name"`
	Phone           *string   `json:"phone"`
	Date            *string   `json:"date"`
	Time            *string   `json:"time"`
	Guests          *int      `json:"guests"`
	SpecialRequests string    `json:"special_requests"`
	CallSID         string    `json:"call_sid,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type NewBooking struct {
	Name            *string
	Phone           *string
	Date            *string
	Time            *string
	Guests          *int
	SpecialRequests *string
	CallSID         string
}

// Store is an append-only booking log. Create assigns the next sequential ID.
type Store interface {
	Create(ctx context.Context, nb NewBooking) (Booking, error)
	List(ctx context.Context) ([]Booking, error)
	Get(ctx context.Context, id string) (Booking, error)
	Count(ctx context.Context) (int, error)
}

// FormatID renders the n-th booking identifier, starting at 1.
func FormatID(n int) string {
	return fmt.Sprintf("BOOK%04d", n)
}

func specialRequests(s *string) string {
	if s == nil {
		return DefaultSpecialRequests
	}
	return *s
}
