package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar date in the process-local timezone. No timezone
// conversion is performed: the date is taken from the wall clock as is.
type Day struct {
	t time.Time // midnight UTC of the date, keeps Day comparable
}

// NewDay builds a Day from its components.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar date of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return NewDay(y, m, d)
}

// Today returns the current local calendar date.
func Today() Day {
	return DayOf(time.Now())
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t), nil
}

func (d Day) String() string {
	return d.t.Format(dayLayout)
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d.t.IsZero()
}

// AddDays returns the date n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return Day{t: d.t.AddDate(0, 0, n)}
}

func (d Day) Before(o Day) bool { return d.t.Before(o.t) }
func (d Day) After(o Day) bool  { return d.t.After(o.t) }

// Sub returns the number of days from o to d.
func (d Day) Sub(o Day) int {
	return int(d.t.Sub(o.t).Hours() / 24)
}

// Start returns local midnight of d in loc.
func (d Day) Start(loc *time.Location) time.Time {
	y, m, dd := d.t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, loc)
}

// Value stores a Day as YYYY-MM-DD text.
func (d Day) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan reads a Day stored as text (or as a timestamp by drivers that parse it).
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseDay(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		parsed, err := ParseDay(string(v))
		if err != nil {
			return err
		}
		*d = parsed
	case time.Time:
		*d = DayOf(v)
	case nil:
		*d = Day{}
	default:
		return fmt.Errorf("cannot scan %T into Day", src)
	}
	return nil
}

// MarshalText encodes a Day as YYYY-MM-DD, also in JSON.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
