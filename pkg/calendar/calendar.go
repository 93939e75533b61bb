// Package calendar converts between calendar dates and the (week, day)
// positions that weekly plans are laid out on.
//
// Weeks are anchored on Monday: week 1 is the week containing the first
// Thursday of the year, and days run Monday=1 … Sunday=7.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for due dates.
const DateLayout = "2006-01-02"

// Position is a (week, day) slot within a week-numbered year.
type Position struct {
	Year int `json:"year"`
	Week int `json:"week"`
	Day  int `json:"day"`
}

// String renders the position as an ISO-like week date, e.g. 2024-W01-1.
func (p Position) String() string {
	return fmt.Sprintf("%04d-W%02d-%d", p.Year, p.Week, p.Day)
}

// Date returns the calendar date of the position as YYYY-MM-DD.
func (p Position) Date() string {
	return DateFromWeekDay(p.Year, p.Week, p.Day)
}

// Tomorrow moves one day forward. Sunday rolls over to Monday of the next
// week number; the year is left alone, so week 53 becomes week 54.
func (p Position) Tomorrow() Position {
	if p.Day == 7 {
		return Position{Year: p.Year, Week: p.Week + 1, Day: 1}
	}
	return Position{Year: p.Year, Week: p.Week, Day: p.Day + 1}
}

// Weekday returns t's day of week with Sunday normalized to 7.
func Weekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekMonday returns the Monday that starts week 1 of year.
func WeekMonday(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	wd := Weekday(jan1)
	if wd <= 4 {
		return jan1.AddDate(0, 0, -(wd - 1))
	}
	return jan1.AddDate(0, 0, 8-wd)
}

// DateOf returns the midnight-UTC date of (year, week, day).
func DateOf(year, week, day int) time.Time {
	return WeekMonday(year).AddDate(0, 0, (week-1)*7+(day-1))
}

// DateFromWeekDay returns the date of (year, week, day) as YYYY-MM-DD.
func DateFromWeekDay(year, week, day int) string {
	return DateOf(year, week, day).Format(DateLayout)
}

// PositionOf returns the (year, week, day) that t's calendar date falls on.
// The year is the week-numbering year, which differs from t.Year() for a few
// days around January 1.
func PositionOf(t time.Time) Position {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	year := d.Year()
	start := WeekMonday(year + 1)
	if !d.Before(start) {
		year++
	} else {
		start = WeekMonday(year)
		if d.Before(start) {
			year--
			start = WeekMonday(year)
		}
	}

	days := int(d.Sub(start).Hours() / 24)
	return Position{Year: year, Week: days/7 + 1, Day: Weekday(d)}
}

// ParseDate parses a YYYY-MM-DD date and returns its position.
func ParseDate(s string) (Position, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Position{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return PositionOf(t), nil
}
