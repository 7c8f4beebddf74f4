package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var referenceMonthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ReferenceMonth is a YYYY-MM billing period token.
type ReferenceMonth struct {
	Year  int
	Month time.Month
}

// ParseReferenceMonth validates and splits a YYYY-MM token.
func ParseReferenceMonth(token string) (ReferenceMonth, error) {
	if !referenceMonthPattern.MatchString(token) {
		return ReferenceMonth{}, fmt.Errorf("reference month %q must match YYYY-MM", token)
	}
	year, _ := strconv.Atoi(token[:4])
	month, _ := strconv.Atoi(token[5:])
	return ReferenceMonth{Year: year, Month: time.Month(month)}, nil
}

// ReferenceMonthOf returns the billing period containing t.
func ReferenceMonthOf(t time.Time) ReferenceMonth {
	return ReferenceMonth{Year: t.Year(), Month: t.Month()}
}

// Next returns the following calendar month.
func (r ReferenceMonth) Next() ReferenceMonth {
	first := time.Date(r.Year, r.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return ReferenceMonth{Year: first.Year(), Month: first.Month()}
}

// DueDate places day inside the month. Days past the end of the month roll
// over the way time.Date normalizes them.
func (r ReferenceMonth) DueDate(day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(r.Year, r.Month, day, 0, 0, 0, 0, loc)
}

func (r ReferenceMonth) String() string {
	return fmt.Sprintf("%04d-%02d", r.Year, int(r.Month))
}

// MonthlyDescription is the description stamped on recurring payments.
func MonthlyDescription(token string) string {
	return "Mensalidade " + token
}

// WithDay keeps the year and month of t and substitutes day, clamped to the
// last day of that month.
func WithDay(t time.Time, day int) time.Time {
	if last := DaysIn(t.Year(), t.Month()); day > last {
		day = last
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
