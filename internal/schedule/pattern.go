package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/pkordes/carpool/internal/domain"
)

// WeeklyPattern maps canonical weekday tokens to the clock times of the trips
// on that day. A day without trips has no key at all; an empty slice is never
// produced by this package.
type WeeklyPattern map[Weekday][]Clock

// ParsePattern builds a WeeklyPattern from loosely typed input, e.g. a
// decoded JSON object. Weekday keys are matched case-insensitively and keys
// that differ only in case are merged. Days with no times are dropped.
func ParsePattern(in map[string][]string) (WeeklyPattern, error) {
	out := WeeklyPattern{}
	for key, times := range in {
		day, err := ParseWeekday(key)
		if err != nil {
			return nil, err
		}
		for _, s := range times {
			c, err := ParseClock(s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", day, err)
			}
			out[day] = append(out[day], c)
		}
	}
	for day, clocks := range out {
		out[day] = normalize(clocks)
	}
	return out, nil
}

// ToLocal shifts a UTC-anchored pattern into loc.
// A time that crosses midnight moves into the neighbouring weekday, wrapping
// Sunday↔Monday. ref selects the week whose UTC offsets apply, so the same
// pattern converts differently in summer and winter.
func ToLocal(p WeeklyPattern, loc *time.Location, ref time.Time) (WeeklyPattern, error) {
	return shift(p, time.UTC, loc, ref)
}

// ToUTC is the inverse of ToLocal: it shifts a pattern expressed in loc into
// UTC using the offsets of the week containing ref.
func ToUTC(p WeeklyPattern, loc *time.Location, ref time.Time) (WeeklyPattern, error) {
	return shift(p, loc, time.UTC, ref)
}

func shift(p WeeklyPattern, from, to *time.Location, ref time.Time) (WeeklyPattern, error) {
	monday := WeekOf(ref.In(from)).Monday()
	out := WeeklyPattern{}
	for day, clocks := range p {
		if day.Offset() < 0 {
			return nil, fmt.Errorf("%w: unknown weekday %q", domain.ErrValidation, string(day))
		}
		d := monday.AddDate(0, 0, day.Offset())
		for _, c := range clocks {
			t := time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, from).In(to)
			key := WeekdayOf(t.Weekday())
			out[key] = append(out[key], Clock{Hour: t.Hour(), Minute: t.Minute()})
		}
	}
	for day, clocks := range out {
		out[day] = normalize(clocks)
	}
	return out, nil
}

// normalize sorts clocks ascending and drops duplicates.
func normalize(clocks []Clock) []Clock {
	slices.SortFunc(clocks, func(a, b Clock) int { return a.minutes() - b.minutes() })
	return slices.Compact(clocks)
}

// Strings renders the pattern with "HH:MM" values, keeping the canonical keys.
func (p WeeklyPattern) Strings() map[string][]string {
	out := make(map[string][]string, len(p))
	for day, clocks := range p {
		vals := make([]string, len(clocks))
		for i, c := range clocks {
			vals[i] = c.String()
		}
		out[string(day)] = vals
	}
	return out
}
