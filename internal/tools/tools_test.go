package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/example/spoon-voicebot/internal/bookings"
	"github.com/example/spoon-voicebot/internal/restaurant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args string
		want Call
	}{
		{
			name: "availability",
			tool: "check_availability",
			args: `{"date":"2025-07-04","time":"19:00","guests":4}`,
			want: CheckAvailability{Date: str("2025-07-04"), Time: str("19:00"), Guests: Arg("4")},
		},
		{
			name: "booking",
			tool: "create_booking",
			args: `{"name":"Alice","phone":"555-0100","date":"2025-07-04","time":"19:00","guests":4,"special_requests":"birthday"}`,
			want: CreateBooking{
				Name: str("Alice"), Phone: str("555-0100"), Date: str("2025-07-04"),
				Time: str("19:00"), Guests: Arg("4"), SpecialRequests: str("birthday"),
			},
		},
		{
			name: "info",
			tool: "get_restaurant_info",
			args: `{"info_type":"menu"}`,
			want: GetRestaurantInfo{InfoType: str("menu")},
		},
		{
			name: "malformed json is empty",
			tool: "get_restaurant_info",
			args: `{not json`,
			want: GetRestaurantInfo{},
		},
		{
			name: "non object is empty",
			tool: "get_restaurant_info",
			args: `["menu"]`,
			want: GetRestaurantInfo{},
		},
		{
			name: "empty arguments",
			tool: "check_availability",
			args: "",
			want: CheckAvailability{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.tool, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.tool, got.ToolName())
		})
	}
}

func TestArg(t *testing.T) {
	tests := []struct {
		raw  string
		text string
		num  *int
	}{
		{raw: ``, text: "None"},
		{raw: `null`, text: "None"},
		{raw: `4`, text: "4", num: intp(4)},
		{raw: `4.0`, text: "4.0", num: intp(4)},
		{raw: `"6"`, text: "6", num: intp(6)},
		{raw: `"four"`, text: "four"},
		{raw: `2.5`, text: "2.5"},
		{raw: `true`, text: "true"},
		{raw: `{"a": 1}`, text: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			a := Arg(tt.raw)
			assert.Equal(t, tt.text, a.String())
			assert.Equal(t, tt.num, a.Int())
			if tt.text == "None" {
				assert.Nil(t, a.Text())
			} else {
				assert.Equal(t, tt.text, *a.Text())
			}
		})
	}
}

func TestCheckAvailabilityEchoesArguments(t *testing.T) {
	h := &Handler{Store: bookings.NewMemoryStore()}

	for _, tt := range []struct {
		args string
		want string
	}{
		{
			args: `{"date":"Friday","time":"7 PM","guests":"four"}`,
			want: `{"available":true,"date":"Friday","time":"7 PM","guests":"four","message":"Table for four is available on Friday at 7 PM"}`,
		},
		{
			args: `{"date":"Friday","time":"7 PM","guests":2.5}`,
			want: `{"available":true,"date":"Friday","time":"7 PM","guests":2.5,"message":"Table for 2.5 is available on Friday at 7 PM"}`,
		},
		{
			args: `{"date":20250704,"time":"7 PM","guests":[1,2]}`,
			want: `{"available":true,"date":20250704,"time":"7 PM","guests":[1,2],"message":"Table for [1,2] is available on 20250704 at 7 PM"}`,
		},
	} {
		call, err := Parse(CheckAvailabilityName, tt.args)
		require.NoError(t, err)
		res, err := h.Handle(context.Background(), call)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, res.JSON())
	}
}

func TestCreateBookingEchoesArguments(t *testing.T) {
	ctx := context.Background()
	store := bookings.NewMemoryStore()
	h := &Handler{Store: store}

	call, err := Parse(CreateBookingName, `{"name":"Bob","phone":5550100,"date":"Friday","time":"7 PM","guests":"four"}`)
	require.NoError(t, err)
	res, err := h.Handle(ctx, call)
	require.NoError(t, err)
	assert.Equal(t, "Booking confirmed for Bob on Friday at 7 PM for four guests. Confirmation number: BOOK0001",
		res.Data.(BookingResult).Message)

	b, err := store.Get(ctx, "BOOK0001")
	require.NoError(t, err)
	assert.Equal(t, "5550100", *b.Phone)
	assert.Nil(t, b.Guests)
}

func TestParseUnknownTool(t *testing.T) {
	_, err := Parse("cancel_booking", `{}`)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestCheckAvailabilityAlwaysAvailable(t *testing.T) {
	h := &Handler{Store: bookings.NewMemoryStore()}

	for _, c := range []CheckAvailability{
		{Date: str("2025-07-04"), Time: str("19:00"), Guests: Arg("4")},
		{Date: str("not a date"), Time: str("whenever"), Guests: Arg("500")},
		{Guests: Arg("-3")},
		{},
	} {
		res, err := h.Handle(context.Background(), c)
		require.NoError(t, err)
		data := res.Data.(AvailabilityResult)
		assert.True(t, data.Available)
	}
}

func TestCheckAvailabilityMessage(t *testing.T) {
	h := &Handler{Store: bookings.NewMemoryStore()}

	res, err := h.Handle(context.Background(), CheckAvailability{Date: str("2025-07-04"), Time: str("19:00"), Guests: Arg("4")})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"available":true,"date":"2025-07-04","time":"19:00","guests":4,"message":"Table for 4 is available on 2025-07-04 at 19:00"}`,
		res.JSON())

	res, err = h.Handle(context.Background(), CheckAvailability{Date: str("Friday")})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"available":true,"date":"Friday","time":null,"guests":null,"message":"Table for None is available on Friday at None"}`,
		res.JSON())
}

func TestCreateBookingSequence(t *testing.T) {
	ctx := context.Background()
	store := bookings.NewMemoryStore()
	h := &Handler{Store: store, CallSID: "CA123"}

	call := CreateBooking{Name: str("Alice"), Phone: str("555-0100"), Date: str("2025-07-04"), Time: str("19:00"), Guests: Arg("4")}

	first, err := h.Handle(ctx, call)
	require.NoError(t, err)
	second, err := h.Handle(ctx, call)
	require.NoError(t, err)

	assert.Equal(t, BookingResult{
		BookingID: "BOOK0001",
		Status:    "confirmed",
		Message:   "Booking confirmed for Alice on 2025-07-04 at 19:00 for 4 guests. Confirmation number: BOOK0001",
	}, first.Data)
	assert.Equal(t, "BOOK0002", second.Data.(BookingResult).BookingID)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	b, err := store.Get(ctx, "BOOK0001")
	require.NoError(t, err)
	assert.Equal(t, "None", b.SpecialRequests)
	assert.Equal(t, "CA123", b.CallSID)
}

func TestCreateBookingAppendsWithMissingFields(t *testing.T) {
	ctx := context.Background()
	store := bookings.NewMemoryStore()
	h := &Handler{Store: store}

	for i := 1; i <= 5; i++ {
		res, err := h.Handle(ctx, CreateBooking{})
		require.NoError(t, err)
		assert.Equal(t, bookings.FormatID(i), res.Data.(BookingResult).BookingID)
		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
}

type failingStore struct{ bookings.MemoryStore }

func (*failingStore) Create(context.Context, bookings.NewBooking) (bookings.Booking, error) {
	return bookings.Booking{}, errors.New("db down")
}

func TestCreateBookingStoreError(t *testing.T) {
	h := &Handler{Store: &failingStore{}}
	_, err := h.Handle(context.Background(), CreateBooking{})
	require.Error(t, err)
}

func TestGetRestaurantInfo(t *testing.T) {
	h := &Handler{Store: bookings.NewMemoryStore()}
	ctx := context.Background()

	res, err := h.Handle(ctx, GetRestaurantInfo{InfoType: str("hours")})
	require.NoError(t, err)
	assert.Equal(t, InfoResult{Info: "Lunch: 11 AM - 3 PM, Dinner: 5 PM - 10 PM. Closed Mondays."}, res.Data)

	general, err := h.Handle(ctx, GetRestaurantInfo{InfoType: str("general")})
	require.NoError(t, err)
	bogus, err := h.Handle(ctx, GetRestaurantInfo{InfoType: str("bogus")})
	require.NoError(t, err)
	absent, err := h.Handle(ctx, GetRestaurantInfo{})
	require.NoError(t, err)

	assert.Equal(t, general.Data, bogus.Data)
	assert.Equal(t, general.Data, absent.Data)
	assert.JSONEq(t, `{"info":"`+restaurant.Info(restaurant.General)+`"}`, absent.JSON())
}

func TestInfos(t *testing.T) {
	infos := Infos()
	require.Len(t, infos, 3)

	names := []string{infos[0].Name, infos[1].Name, infos[2].Name}
	assert.Equal(t, []string{CheckAvailabilityName, CreateBookingName, GetRestaurantInfoName}, names)

	js, err := infos[2].ParamsOneOf.ToOpenAPIV3()
	require.NoError(t, err)
	raw, err := json.Marshal(js)
	require.NoError(t, err)

	var decoded struct {
		Required   []string `json:"required"`
		Properties map[string]struct {
			Type string   `json:"type"`
			Enum []string `json:"enum"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"info_type"}, decoded.Required)
	assert.Equal(t, []string{"general", "hours", "menu", "location", "capacity"}, decoded.Properties["info_type"].Enum)
}

func str(s string) Arg {
	b, _ := json.Marshal(s)
	return Arg(b)
}

func intp(i int) *int { return &i }
