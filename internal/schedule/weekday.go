// Package schedule converts between the weekly local-time grid families think
// in and the UTC instants slots are stored under.
//
// Everything here is pure: the caller supplies the timezone and, where a
// reference week matters for DST, the reference instant. Nothing reads the
// process clock or the process-local timezone.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkordes/carpool/internal/domain"
)

// Weekday is one of the seven canonical English day tokens.
// Tokens are identity keys and are never localized; see Label for display.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

// weekdays is ordered by ISO day offset (Monday=0 … Sunday=6).
var weekdays = [7]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Weekdays returns the canonical tokens in ISO order.
func Weekdays() []Weekday {
	out := make([]Weekday, len(weekdays))
	copy(out, weekdays[:])
	return out
}

// ParseWeekday accepts a canonical token in any letter case.
func ParseWeekday(s string) (Weekday, error) {
	w := Weekday(strings.ToUpper(strings.TrimSpace(s)))
	if w.Offset() < 0 {
		return "", fmt.Errorf("%w: unknown weekday %q", domain.ErrValidation, s)
	}
	return w, nil
}

// Offset returns the number of days after Monday, or -1 for a non-canonical token.
func (w Weekday) Offset() int {
	for i, d := range weekdays {
		if d == w {
			return i
		}
	}
	return -1
}

// WeekdayOf maps a time.Weekday (Sunday=0) onto the canonical token.
func WeekdayOf(d time.Weekday) Weekday {
	return weekdays[(int(d)+6)%7]
}
