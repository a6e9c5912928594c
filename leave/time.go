package leave

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar date (no time of day, UTC)
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar date. The zero Date means "unset" and encodes as "".
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp. "" yields the zero Date.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate panics on malformed input. For tests and constants.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool       { return d.Time.IsZero() }
func (d Date) Year() int          { return d.Time.Year() }
func (d Date) Month() time.Month  { return d.Time.Month() }
func (d Date) Day() int           { return d.Time.Day() }
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// MonthOf returns the month containing d.
func (d Date) MonthOf() Month { return Month{Year: d.Year(), Month: d.Month()} }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// MONTH - Year-month, the granularity of the projection
// =============================================================================

const monthLayout = "2006-01"

// Month identifies a calendar month. Its key form is "YYYY-MM".
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return MonthOfTime(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// MonthOfTime returns the month containing t, in t's location.
func MonthOfTime(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOfTime(t), nil
}

func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

// First returns the first day of the month.
func (m Month) First() Date { return NewDate(m.Year, m.Month, 1) }

// AddMonths normalizes overflow, so December + 1 is January of the next year.
func (m Month) AddMonths(n int) Month {
	return MonthOfTime(time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

func (m Month) index() int          { return m.Year*12 + int(m.Month) - 1 }
func (m Month) Before(o Month) bool { return m.index() < o.index() }
func (m Month) After(o Month) bool  { return m.index() > o.index() }
func (m Month) IsZero() bool        { return m.Year == 0 && m.Month == 0 }

// MonthsBetween returns the signed number of months from a to b.
func MonthsBetween(a, b Month) int { return b.index() - a.index() }

// Key returns "YYYY-MM".
func (m Month) Key() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// Display returns a short human label such as "Jan 2024".
func (m Month) Display() string { return m.First().Time.Format("Jan 2006") }

func (m Month) String() string { return m.Key() }

// Contains reports whether d falls in m.
func (m Month) Contains(d Date) bool {
	return !d.IsZero() && d.Year() == m.Year && d.Month() == m.Month
}

func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Key())
}

func (m *Month) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMonth, data)
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
