package booking

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time stored as seconds since midnight.
// EndOfDay (24:00) is accepted as an end bound only.
type TimeOfDay int

const EndOfDay TimeOfDay = 24 * 60 * 60

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS" (fractional seconds are dropped).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	clock := s
	if i := strings.IndexByte(clock, '.'); i >= 0 {
		if !allDigits(clock[i+1:]) || strings.Count(clock[:i], ":") != 2 {
			return 0, fmt.Errorf("%w: malformed time %q", ErrInvalidInterval, s)
		}
		clock = clock[:i]
	}

	parts := strings.Split(clock, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: malformed time %q", ErrInvalidInterval, s)
	}

	limits := []int{24, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		if len(p) != 2 || !allDigits(p) {
			return 0, fmt.Errorf("%w: malformed time %q", ErrInvalidInterval, s)
		}
		n, _ := strconv.Atoi(p)
		if n > limits[i] {
			return 0, fmt.Errorf("%w: malformed time %q", ErrInvalidInterval, s)
		}
		values[i] = n
	}

	t := TimeOfDay(values[0]*3600 + values[1]*60 + values[2])
	if t > EndOfDay {
		return 0, fmt.Errorf("%w: time %q is past midnight", ErrInvalidInterval, s)
	}
	return t, nil
}

// MustTimeOfDay is ParseTimeOfDay for constants and tests.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf returns the wall-clock part of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) clock() (int, int, int) {
	return int(t) / 3600, (int(t) % 3600) / 60, int(t) % 60
}

// String renders HH:MM, or HH:MM:SS when seconds are set.
func (t TimeOfDay) String() string {
	h, m, s := t.clock()
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Value encodes the time as a Postgres TIME literal.
func (t TimeOfDay) Value() (driver.Value, error) {
	h, m, s := t.clock()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
}

func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return t.UnmarshalText(v)
	case string:
		return t.UnmarshalText([]byte(v))
	case time.Time:
		// lib/pq decodes TIME '24:00' as midnight of the following day
		if v.Year() == 0 && v.YearDay() == 2 && TimeOfDayOf(v) == 0 {
			*t = EndOfDay
			return nil
		}
		*t = TimeOfDayOf(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

// Date is a calendar date without time zone.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	day := s
	if len(day) > len(dateLayout) {
		// timestamps such as 2024-05-01T00:00:00Z or 2024-05-01 00:00:00
		if sep := day[len(dateLayout)]; sep != 'T' && sep != ' ' {
			return Date{}, fmt.Errorf("%w: malformed date %q", ErrInvalidInterval, s)
		}
		day = day[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, day)
	if err != nil {
		return Date{}, fmt.Errorf("%w: malformed date %q", ErrInvalidInterval, s)
	}
	return Date{t: t}, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) String() string     { return d.t.Format(dateLayout) }
func (d Date) Time() time.Time    { return d.t }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.UnmarshalText(v)
	case string:
		return d.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// Interval is a half-open time range [Start, End) within one day.
type Interval struct {
	Start TimeOfDay `json:"start_time" db:"start_time"`
	End   TimeOfDay `json:"end_time" db:"end_time"`
}

func NewInterval(start, end TimeOfDay) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate rejects empty and reversed ranges and a 24:00 start.
func (i Interval) Validate() error {
	if i.Start < 0 || i.End > EndOfDay || i.Start >= EndOfDay {
		return fmt.Errorf("%w: %s-%s is outside the day", ErrInvalidInterval, i.Start, i.End)
	}
	if i.Start >= i.End {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidInterval, i.Start, i.End)
	}
	return nil
}

// Overlaps reports whether the ranges share an instant. Touching ranges do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

// Hours is the interval length in hours, rounded to cents of an hour.
func (i Interval) Hours() float64 {
	return roundCents(float64(i.End-i.Start) / 3600)
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}
