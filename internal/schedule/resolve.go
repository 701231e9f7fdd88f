package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkordes/carpool/internal/domain"
)

// LoadLocation loads an IANA timezone.
// The empty name and "Local" are rejected: both would silently pick up the
// process timezone instead of the caller's.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: timezone is required", domain.ErrValidation)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", domain.ErrValidation, name)
	}
	return loc, nil
}

// Resolve returns the UTC instant of the given local weekday and clock time
// in the given ISO week, interpreted in loc.
//
// Local times that do not exist (spring-forward gap) or exist twice
// (fall-back overlap) are resolved with time.Date's rules.
func Resolve(day Weekday, week Week, clock Clock, loc *time.Location) time.Time {
	d := week.Monday().AddDate(0, 0, day.Offset())
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour, clock.Minute, 0, 0, loc).UTC()
}

// ResolveLabels parses the textual trip coordinates and resolves them.
// All parse failures wrap domain.ErrValidation.
func ResolveLabels(weekday, week, localTime, timezone string) (time.Time, error) {
	day, err := ParseWeekday(weekday)
	if err != nil {
		return time.Time{}, err
	}
	w, err := ParseWeek(week)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := ParseClock(localTime)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	return Resolve(day, w, clock, loc), nil
}

// WeekBounds returns the half-open UTC range [start, end) covering the ISO
// week from local Monday midnight to the following local Monday midnight.
// The range is not always exactly 7×24h when a DST change falls inside it.
func WeekBounds(week Week, loc *time.Location) (time.Time, time.Time) {
	m := week.Monday()
	start := time.Date(m.Year(), m.Month(), m.Day(), 0, 0, 0, 0, loc)
	end := time.Date(m.Year(), m.Month(), m.Day()+7, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC()
}
