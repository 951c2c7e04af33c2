package bookings

import (
	"context"
	"sync"
	"time"

	"github.com/example/spoon-voicebot/internal/errs"
)

// MemoryStore keeps bookings for the lifetime of the process.
type MemoryStore struct {
	Now func() time.Time

	mu       sync.Mutex
	bookings []Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, nb NewBooking) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := Booking{
		ID:              FormatID(len(s.bookings) + 1),
		Name:            nb.Name,
		Phone:           nb.Phone,
		Date:            nb.Date,
		Time:            nb.Time,
		Guests:          nb.Guests,
		SpecialRequests: specialRequests(nb.SpecialRequests),
		CallSID:         nb.CallSID,
		CreatedAt:       s.now(),
	}
	s.bookings = append(s.bookings, b)
	return b, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Booking, len(s.bookings))
	copy(out, s.bookings)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return Booking{}, errs.ErrNotFound
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings), nil
}

func (s *MemoryStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
