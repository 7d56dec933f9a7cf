package domain

import "fmt"

// Category tags the kind of place a nearby search looks for.
type Category string

const (
	CategoryServiceCenter Category = "service_center"
	CategoryCarWash       Category = "car_wash"
	CategoryGasStation    Category = "gas_station"
)

// CategorySpec is the static search configuration of a category.
type CategorySpec struct {
	Category Category `json:"category"`
	LabelKey string   `json:"label_key"`
	Terms    []string `json:"terms"`
	Color    string   `json:"color"`
}

// UserMarkerColor is the color of the "you are here" pin.
const UserMarkerColor = "#3b82f6"

var categoryTable = []CategorySpec{
	{
		Category: CategoryServiceCenter,
		LabelKey: "services.serviceCenter",
		Terms:    []string{"auto repair", "car service", "mechanic"},
		Color:    "#ef4444",
	},
	{
		Category: CategoryCarWash,
		LabelKey: "services.carWash",
		Terms:    []string{"car wash", "auto detailing"},
		Color:    "#0ea5e9",
	},
	{
		Category: CategoryGasStation,
		LabelKey: "services.gasStation",
		Terms:    []string{"gas station", "petrol station", "fuel"},
		Color:    "#22c55e",
	},
}

// Categories returns the category table in display order.
func Categories() []CategorySpec {
	out := make([]CategorySpec, len(categoryTable))
	for i, spec := range categoryTable {
		spec.Terms = append([]string(nil), spec.Terms...)
		out[i] = spec
	}
	return out
}

// Spec returns the configuration of c.
func (c Category) Spec() (CategorySpec, error) {
	for _, spec := range categoryTable {
		if spec.Category == c {
			spec.Terms = append([]string(nil), spec.Terms...)
			return spec, nil
		}
	}
	return CategorySpec{}, fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
}

// ParseCategory validates a category tag coming from the outside.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, err := c.Spec(); err != nil {
		return "", err
	}
	return c, nil
}
