package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/spoon-voicebot/internal/bookings"
	"github.com/example/spoon-voicebot/internal/metrics"
	"github.com/example/spoon-voicebot/internal/restaurant"
	"github.com/rs/zerolog/log"
)

type AvailabilityResult struct {
	Available bool   `json:"available"`
	Date      Arg    `json:"date"`
	Time      Arg    `json:"time"`
	Guests    Arg    `json:"guests"`
	Message   string `json:"message"`
}

type BookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type InfoResult struct {
	Info string `json:"info"`
}

// Result is what a tool hands back to the model.
type Result struct {
	Tool string
	Data any
}

func (r Result) JSON() string {
	b, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(b)
}

// Handler runs tool calls for one phone call.
type Handler struct {
	Store   bookings.Store
	CallSID string
}

// Handle dispatches a call. Argument problems never produce an error; only
// a failing booking store does.
func (h *Handler) Handle(ctx context.Context, c Call) (Result, error) {
	metrics.ToolCalls.WithLabelValues(c.ToolName()).Inc()

	switch c := c.(type) {
	case CheckAvailability:
		return Result{Tool: CheckAvailabilityName, Data: h.checkAvailability(c)}, nil
	case CreateBooking:
		res, err := h.createBooking(ctx, c)
		if err != nil {
			return Result{}, err
		}
		return Result{Tool: CreateBookingName, Data: res}, nil
	case GetRestaurantInfo:
		return Result{Tool: GetRestaurantInfoName, Data: getRestaurantInfo(c)}, nil
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownTool, c)
	}
}

func (h *Handler) checkAvailability(c CheckAvailability) AvailabilityResult {
	log.Info().Str("call_sid", h.CallSID).
		Msgf("Checking availability for %s guests on %s at %s", c.Guests.String(), c.Date.String(), c.Time.String())

	// no capacity model yet: every slot is open
	available := true

	msg := "No tables available"
	if available {
		msg = fmt.Sprintf("Table for %s is available on %s at %s", c.Guests.String(), c.Date.String(), c.Time.String())
	}
	return AvailabilityResult{
		Available: available,
		Date:      c.Date,
		Time:      c.Time,
		Guests:    c.Guests,
		Message:   msg,
	}
}

func (h *Handler) createBooking(ctx context.Context, c CreateBooking) (BookingResult, error) {
	b, err := h.Store.Create(ctx, bookings.NewBooking{
		Name:            c.Name.Text(),
		Phone:           c.Phone.Text(),
		Date:            c.Date.Text(),
		Time:            c.Time.Text(),
		Guests:          c.Guests.Int(),
		SpecialRequests: c.SpecialRequests.Text(),
		CallSID:         h.CallSID,
	})
	if err != nil {
		return BookingResult{}, fmt.Errorf("create booking: %w", err)
	}
	metrics.BookingsCreated.Inc()
	log.Info().Str("call_sid", h.CallSID).Interface("booking", b).Msg("Created booking")

	return BookingResult{
		BookingID: b.ID,
		Status:    "confirmed",
		Message: fmt.Sprintf("Booking confirmed for %s on %s at %s for %s guests. Confirmation number: %s",
			c.Name.String(), c.Date.String(), c.Time.String(), c.Guests.String(), b.ID),
	}, nil
}

func getRestaurantInfo(c GetRestaurantInfo) InfoResult {
	category := restaurant.General
	if t := c.InfoType.Text(); t != nil {
		category = restaurant.Category(*t)
	}
	return InfoResult{Info: restaurant.Info(category)}
}
