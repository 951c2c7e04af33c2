package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	CheckAvailabilityName = "check_availability"
	CreateBookingName     = "create_booking"
	GetRestaurantInfoName = "get_restaurant_info"
)

var ErrUnknownTool = errors.New("unknown tool")

// Call is one of CheckAvailability, CreateBooking or GetRestaurantInfo.
type Call interface {
	ToolName() string
	call()
}

type CheckAvailability struct {
	Date   Arg
	Time   Arg
	Guests Arg
}

type CreateBooking struct {
	Name            Arg
	Phone           Arg
	Date            Arg
	Time            Arg
	Guests          Arg
	SpecialRequests Arg
}

type GetRestaurantInfo struct {
	InfoType Arg
}

func (CheckAvailability) ToolName() string { return CheckAvailabilityName }
func (CreateBooking) ToolName() string     { return CreateBookingName }
func (GetRestaurantInfo) ToolName() string { return GetRestaurantInfoName }

func (CheckAvailability) call() {}
func (CreateBooking) call()     {}
func (GetRestaurantInfo) call() {}

// Parse decodes a tool call from its name and raw JSON arguments.
// Arguments that are not a JSON object decode as an empty argument set.
func Parse(name, arguments string) (Call, error) {
	args := map[string]json.RawMessage{}
	if s := strings.TrimSpace(arguments); s != "" {
		if err := json.Unmarshal([]byte(s), &args); err != nil {
			args = map[string]json.RawMessage{}
		}
	}
	return FromArgs(name, args)
}

func FromArgs(name string, args map[string]json.RawMessage) (Call, error) {
	arg := func(key string) Arg { return Arg(args[key]) }

	switch strings.TrimSpace(name) {
	case CheckAvailabilityName:
		return CheckAvailability{
			Date:   arg("date"),
			Time:   arg("time"),
			Guests: arg("guests"),
		}, nil
	case CreateBookingName:
		return CreateBooking{
			Name:            arg("name"),
			Phone:           arg("phone"),
			Date:            arg("date"),
			Time:            arg("time"),
			Guests:          arg("guests"),
			SpecialRequests: arg("special_requests"),
		}, nil
	case GetRestaurantInfoName:
		return GetRestaurantInfo{InfoType: arg("info_type")}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
}

// Arg is one tool argument exactly as the model sent it. The zero value
// means the model left it out.
type Arg json.RawMessage

func (a Arg) absent() bool {
	v := bytes.TrimSpace(a)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// String renders the argument for spoken text: strings unquoted, other
// values as their JSON literal, absent values as None.
func (a Arg) String() string {
	if a.absent() {
		return "None"
	}
	var s string
	if err := json.Unmarshal(a, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, a); err != nil {
		return string(a)
	}
	return buf.String()
}

// MarshalJSON echoes the value the model sent, or null.
func (a Arg) MarshalJSON() ([]byte, error) {
	if a.absent() {
		return []byte("null"), nil
	}
	return []byte(a), nil
}

// Text is the argument as stored text, nil when absent.
func (a Arg) Text() *string {
	if a.absent() {
		return nil
	}
	s := a.String()
	return &s
}

// Int is the argument as a whole number. Numeric strings count; anything
// else is nil.
func (a Arg) Int() *int {
	if a.absent() {
		return nil
	}
	var s string
	if err := json.Unmarshal(a, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		return &n
	}
	var num json.Number
	if err := json.Unmarshal(a, &num); err != nil {
		return nil
	}
	if i, err := num.Int64(); err == nil {
		n := int(i)
		return &n
	}
	f, err := num.Float64()
	if err != nil || f != float64(int(f)) {
		return nil
	}
	n := int(f)
	return &n
}
