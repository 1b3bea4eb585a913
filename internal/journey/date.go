package journey

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without time of day or location.
// Arithmetic on Date never passes through an instant, so daylight saving
// transitions and UTC offsets cannot move a date across midnight.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the normalized calendar date, so NewDate(2024, 1, 32) is 2024-02-01.
func NewDate(year int, month time.Month, day int) Date {
	return dateOfUTC(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t as seen in t's own location.
// Callers convert the instant into the user's location first.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func dateOfUTC(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// anchor pins the date to noon UTC, far enough from midnight that day
// arithmetic through time.Time stays on the same calendar day.
func (d Date) anchor() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// AddDays returns the date n calendar days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// DaysSince returns the number of calendar days from other to d.
func (d Date) DaysSince(other Date) int {
	// time.Duration saturates beyond ~292 years, Unix seconds do not
	return int((d.anchor().Unix() - other.anchor().Unix()) / 86400)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Before(other Date) bool {
	return d.anchor().Before(other.anchor())
}

func (d Date) After(other Date) bool {
	return d.anchor().After(other.anchor())
}

// String formats the date as YYYY-MM-DD, the format upload records are keyed by.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Display formats the date for status messages, e.g. 1/3/2024.
func (d Date) Display() string {
	return d.anchor().Format("1/2/2006")
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
