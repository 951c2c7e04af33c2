package restaurant

type Category string

const (
	General  Category = "general"
	Hours    Category = "hours"
	Menu     Category = "menu"
	Location Category = "location"
	Capacity Category = "capacity"
)

// Categories lists every info category in declaration order.
var Categories = []Category{General, Hours, Menu, Location, Capacity}

var info = map[Category]string{
	General:  "The Golden Spoon Restaurant is open Tuesday to Sunday, 11 AM to 10 PM. We are closed on Mondays.",
	Hours:    "Lunch: 11 AM - 3 PM, Dinner: 5 PM - 10 PM. Closed Mondays.",
	Menu:     "We offer Italian and Mediterranean cuisine with vegetarian, vegan, and gluten-free options.",
	Location: "123 Main Street, Downtown. Free parking available.",
	Capacity: "We can accommodate parties up to 12 guests.",
}

// Info returns the text for a category. Unknown categories get the general text.
func Info(c Category) string {
	if s, ok := info[c]; ok {
		return s
	}
	return info[General]
}
