package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/carpool/internal/domain"
)

// Week is an ISO-8601 week: week 1 is the week containing the year's first
// Thursday, and weeks start on Monday.
type Week struct {
	Year   int
	Number int
}

// ParseWeek parses "YYYY-WW" or "YYYY-Www" (e.g. "2025-26", "2025-W26").
// The week number must exist in that ISO year, which has 52 or 53 weeks.
func ParseWeek(s string) (Week, error) {
	year, num, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Week{}, fmt.Errorf("%w: malformed week label %q", domain.ErrValidation, s)
	}
	num = strings.TrimPrefix(strings.TrimPrefix(num, "W"), "w")

	y, err := strconv.Atoi(year)
	if err != nil || len(year) != 4 || y < 1 {
		return Week{}, fmt.Errorf("%w: malformed week label %q", domain.ErrValidation, s)
	}
	n, err := strconv.Atoi(num)
	if err != nil || len(num) == 0 || len(num) > 2 {
		return Week{}, fmt.Errorf("%w: malformed week label %q", domain.ErrValidation, s)
	}
	if n < 1 || n > WeeksInYear(y) {
		return Week{}, fmt.Errorf("%w: week %d does not exist in %d", domain.ErrValidation, n, y)
	}
	return Week{Year: y, Number: n}, nil
}

// WeekOf returns the ISO week containing t, evaluated in t's own location.
func WeekOf(t time.Time) Week {
	y, n := t.ISOWeek()
	return Week{Year: y, Number: n}
}

// WeeksInYear returns 52 or 53. December 28th always falls in the last ISO
// week of its year.
func WeeksInYear(year int) int {
	_, n := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return n
}

// Monday returns the calendar date of the week's Monday at midnight UTC.
// Only the year, month and day are meaningful; callers re-anchor it in the
// timezone they need.
func (w Week) Monday() time.Time {
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	back := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -back+(w.Number-1)*7)
}

// String formats the week as "YYYY-WW".
func (w Week) String() string {
	return fmt.Sprintf("%04d-%02d", w.Year, w.Number)
}

func (w Week) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *Week) UnmarshalText(b []byte) error {
	parsed, err := ParseWeek(string(b))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
