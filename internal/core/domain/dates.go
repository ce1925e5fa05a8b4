package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Date layouts used by the source and by operators.
const (
	DottedDateLayout  = "02.01.2006" // daily endpoints and bot commands
	SlashedDateLayout = "02/01/2006" // period endpoint
	MonthLayout       = "01.2006"
)

// ParseDate accepts DD.MM.YYYY or DD/MM/YYYY.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DottedDateLayout, SlashedDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("date %q is not in DD.MM.YYYY format", s)
}

// FormatDotted renders d as DD.MM.YYYY.
func FormatDotted(d civil.Date) string {
	return d.In(time.UTC).Format(DottedDateLayout)
}

// FormatSlashed renders d as DD/MM/YYYY.
func FormatSlashed(d civil.Date) string {
	return d.In(time.UTC).Format(SlashedDateLayout)
}

// ParsePeriod parses an operator supplied period. Accepted forms:
//
//	MM.YYYY                    whole calendar month
//	DD.MM.YYYY-DD.MM.YYYY      inclusive range
//	DD/MM/YYYY-DD/MM/YYYY      inclusive range
func ParsePeriod(s string) (from, to civil.Date, err error) {
	s = strings.TrimSpace(s)
	if len(s) == len(MonthLayout) && s[2] == '.' {
		t, perr := time.Parse(MonthLayout, s)
		if perr != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid month %q: expected MM.YYYY", s)
		}
		from = civil.DateOf(t)
		to = civil.DateOf(t.AddDate(0, 1, -1))
		return from, to, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid period %q: expected MM.YYYY or DD.MM.YYYY-DD.MM.YYYY", s)
	}
	if from, err = ParseDate(parts[0]); err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	if to, err = ParseDate(parts[1]); err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	if to.Before(from) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid period %q: end is before start", s)
	}
	return from, to, nil
}

// ClampToToday returns to, or today when to lies in the future.
func ClampToToday(to, today civil.Date) civil.Date {
	if to.After(today) {
		return today
	}
	return to
}

// EnumerateDates lists every calendar date in [from, to], dropping dates after today.
func EnumerateDates(from, to, today civil.Date) []civil.Date {
	to = ClampToToday(to, today)
	var dates []civil.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// MonthRange returns the first and last day of the given month.
func MonthRange(month time.Month, year int) (civil.Date, civil.Date) {
	first := civil.Date{Year: year, Month: month, Day: 1}
	last := civil.DateOf(first.In(time.UTC).AddDate(0, 1, -1))
	return first, last
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}
