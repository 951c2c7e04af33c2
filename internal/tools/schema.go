package tools

import (
	"github.com/cloudwego/eino/schema"
	"github.com/example/spoon-voicebot/internal/restaurant"
)

// Infos declares the three booking tools to the model.
func Infos() []*schema.ToolInfo {
	categories := make([]string, 0, len(restaurant.Categories))
	for _, c := range restaurant.Categories {
		categories = append(categories, string(c))
	}

	return []*schema.ToolInfo{
		{
			Name: CheckAvailabilityName,
			Desc: "Check if tables are available for a specific date, time, and party size",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"date": {
					Type:     schema.String,
					Desc:     "Date in YYYY-MM-DD format or natural language like 'tomorrow', 'Friday'",
					Required: true,
				},
				"time": {
					Type:     schema.String,
					Desc:     "Time in HH:MM format or natural language like '7 PM', 'evening'",
					Required: true,
				},
				"guests": {Type: schema.Integer, Desc: "Number of guests (1-12)", Required: true},
			}),
		},
		{
			Name: CreateBookingName,
			Desc: "Create a new table reservation after confirming availability",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name":   {Type: schema.String, Desc: "Customer's full name", Required: true},
				"phone":  {Type: schema.String, Desc: "Customer's phone number", Required: true},
				"date":   {Type: schema.String, Desc: "Reservation date in YYYY-MM-DD format", Required: true},
				"time":   {Type: schema.String, Desc: "Reservation time in HH:MM format", Required: true},
				"guests": {Type: schema.Integer, Desc: "Number of guests", Required: true},
				"special_requests": {
					Type: schema.String,
					Desc: "Any special requests (dietary restrictions, occasion, seating preference)",
				},
			}),
		},
		{
			Name: GetRestaurantInfoName,
			Desc: "Get information about the restaurant",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"info_type": {
					Type:     schema.String,
					Desc:     "Type of information requested",
					Enum:     categories,
					Required: true,
				},
			}),
		},
	}
}
