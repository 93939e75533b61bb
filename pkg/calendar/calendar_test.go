package calendar

import (
	"testing"
	"time"
)

func TestDateFromWeekDayYearBoundaries(t *testing.T) {
	cases := []struct {
		name             string
		year, week, day int
		want             string
	}{
		{"jan 1 on monday", 2024, 1, 1, "2024-01-01"},
		{"jan 1 on wednesday", 2020, 1, 1, "2019-12-30"},
		{"jan 1 on thursday", 2026, 1, 1, "2025-12-29"},
		{"jan 1 on friday", 2021, 1, 1, "2021-01-04"},
		{"jan 1 on saturday", 2022, 1, 1, "2022-01-03"},
		{"jan 1 on sunday", 2023, 1, 1, "2023-01-02"},
		{"sunday of week 1", 2024, 1, 7, "2024-01-07"},
		{"mid year", 2024, 27, 3, "2024-07-03"},
		{"53-week year", 2015, 53, 7, "2016-01-03"},
		{"last week spills into next year", 2021, 52, 7, "2022-01-02"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DateFromWeekDay(tc.year, tc.week, tc.day)
			if got != tc.want {
				t.Errorf("DateFromWeekDay(%d, %d, %d) = %s, want %s", tc.year, tc.week, tc.day, got, tc.want)
			}
		})
	}
}

func TestPositionRoundTrip(t *testing.T) {
	for year := 1990; year <= 2060; year++ {
		for week := 1; week <= 52; week++ {
			for day := 1; day <= 7; day++ {
				want := Position{Year: year, Week: week, Day: day}
				got := PositionOf(DateOf(year, week, day))
				if got != want {
					t.Fatalf("PositionOf(DateOf(%v)) = %v", want, got)
				}
			}
		}
	}
}

func TestPositionOfMatchesISOWeek(t *testing.T) {
	start := time.Date(1999, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2031, 2, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		y, w := d.ISOWeek()
		got := PositionOf(d)
		if got.Year != y || got.Week != w {
			t.Fatalf("%s: got %v, ISOWeek says %d-W%02d", d.Format(DateLayout), got, y, w)
		}
	}
}

func TestPositionOfIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	late := time.Date(2024, 1, 7, 23, 59, 0, 0, loc)
	got := PositionOf(late)
	want := Position{Year: 2024, Week: 1, Day: 7}
	if got != want {
		t.Errorf("PositionOf(%s) = %v, want %v", late, got, want)
	}
}

func TestTomorrow(t *testing.T) {
	cases := []struct {
		in, want Position
	}{
		{Position{2024, 10, 1}, Position{2024, 10, 2}},
		{Position{2024, 10, 6}, Position{2024, 10, 7}},
		{Position{2024, 10, 7}, Position{2024, 11, 1}},
		{Position{2020, 53, 7}, Position{2020, 54, 1}},
	}
	for _, tc := range cases {
		if got := tc.in.Tomorrow(); got != tc.want {
			t.Errorf("%v.Tomorrow() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTodayUsesLocation(t *testing.T) {
	instant := time.Date(2024, 1, 7, 23, 30, 0, 0, time.UTC)
	sofia := time.FixedZone("EET", 2*60*60)

	if got := Today(FixedClock(instant), time.UTC); got != (Position{2024, 1, 7}) {
		t.Errorf("Today in UTC = %v", got)
	}
	if got := Today(FixedClock(instant), sofia); got != (Position{2024, 2, 1}) {
		t.Errorf("Today in EET = %v", got)
	}
}

func TestParseDate(t *testing.T) {
	p, err := ParseDate("2021-01-03")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if p != (Position{2020, 53, 7}) {
		t.Errorf("ParseDate(2021-01-03) = %v", p)
	}
	if _, err := ParseDate("03/01/2021"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestDayName(t *testing.T) {
	if got := DayName(1); got != "Понеделник" {
		t.Errorf("DayName(1) = %q", got)
	}
	if got := DayName(7); got != "Неделя" {
		t.Errorf("DayName(7) = %q", got)
	}
	for _, d := range []int{0, 8, -1} {
		if got := DayName(d); got != "" {
			t.Errorf("DayName(%d) = %q, want empty", d, got)
		}
	}
}
