package availability

import (
	"fmt"
	"slices"
)

// DefaultHours are the start hours of the working-day template.
var DefaultHours = []int{9, 10, 11, 13, 14, 15, 16, 17}

// DefaultDurationMinutes is the length of every generated slot.
const DefaultDurationMinutes = 60

// Template is the fixed daily slot layout.
type Template struct {
	Hours           []int
	DurationMinutes int
}

// DefaultTemplate returns the 8-slot, 60-minute working day.
func DefaultTemplate() Template {
	return Template{
		Hours:           slices.Clone(DefaultHours),
		DurationMinutes: DefaultDurationMinutes,
	}
}

// Times returns the slot start times as HH:MM in ascending order.
func (t Template) Times() []string {
	times := make([]string, len(t.Hours))
	for i, h := range t.Hours {
		times[i] = fmt.Sprintf("%02d:00", h)
	}
	return times
}

// Contains reports whether clock (HH:MM) is a slot start in the template.
func (t Template) Contains(clock string) bool {
	return slices.Contains(t.Times(), clock)
}
