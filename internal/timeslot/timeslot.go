// Package timeslot holds the calendar-date and time-of-day values used by
// reservations, their parsers, and the overlap rule every conflict check uses.
package timeslot

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidFormat   = errors.New("invalid date or time format")
	ErrInvalidInterval = errors.New("end time must be after start time")
)

const (
	dateLayout      = "2006-01-02"
	timeLayout      = "15:04"
	secondsInDay    = 24 * 60 * 60
	secondsInMinute = 60
)

// Legacy layouts stay accepted so older clients keep working.
var (
	dateLayouts = []string{dateLayout, "02-01-2006", "2006/01/02"}
	timeLayouts = []string{timeLayout, "15:04:05"}
)

// Date is a calendar day without a clock or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of value in value's own location.
func DateOf(value time.Time) Date {
	year, month, day := value.Date()
	return Date{Year: year, Month: month, Day: day}
}

func ParseDate(raw string) (Date, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Date{}, ErrInvalidFormat
	}
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return DateOf(parsed), nil
		}
	}
	return Date{}, ErrInvalidFormat
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// At combines the day with a time of day in location.
func (d Date) At(clock TimeOfDay, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	midnight := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, location)
	return midnight.Add(time.Duration(clock) * time.Second)
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch value := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(value)
		return nil
	case string:
		return d.scanText(value)
	case []byte:
		return d.scanText(string(value))
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

func (d *Date) scanText(raw string) error {
	value := strings.TrimSpace(raw)
	if len(value) >= len(dateLayout) {
		value = value[:len(dateLayout)]
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return fmt.Errorf("scan date %q: %w", raw, err)
	}
	*d = DateOf(parsed)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay counts seconds since midnight.
type TimeOfDay int

func NewTimeOfDay(hour int, minute int) TimeOfDay {
	return TimeOfDay(hour*60*secondsInMinute + minute*secondsInMinute)
}

func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, ErrInvalidFormat
	}
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return TimeOfDay(parsed.Hour()*3600 + parsed.Minute()*60 + parsed.Second()), nil
		}
	}
	return 0, ErrInvalidFormat
}

// ClockOf returns the time of day of value in value's own location.
func ClockOf(value time.Time) TimeOfDay {
	return TimeOfDay(value.Hour()*3600 + value.Minute()*60 + value.Second())
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < secondsInDay
}

func (t TimeOfDay) String() string {
	hours := int(t) / 3600
	minutes := (int(t) % 3600) / secondsInMinute
	seconds := int(t) % secondsInMinute
	if seconds != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *TimeOfDay) Scan(src any) error {
	switch value := src.(type) {
	case int64:
		*t = TimeOfDay(value)
	case int32:
		*t = TimeOfDay(value)
	case int:
		*t = TimeOfDay(value)
	case float64:
		*t = TimeOfDay(int64(value))
	case []byte:
		parsed, err := ParseTimeOfDay(string(value))
		if err != nil {
			return fmt.Errorf("scan time of day %q: %w", value, err)
		}
		*t = parsed
	case string:
		parsed, err := ParseTimeOfDay(value)
		if err != nil {
			return fmt.Errorf("scan time of day %q: %w", value, err)
		}
		*t = parsed
	default:
		return fmt.Errorf("scan time of day: unsupported type %T", src)
	}
	return nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Interval is a half-open [Start, End) range within one day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

func ParseInterval(rawStart string, rawEnd string) (Interval, error) {
	start, err := ParseTimeOfDay(rawStart)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseTimeOfDay(rawEnd)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: end}, nil
}

func (i Interval) Validate() error {
	if !i.Start.Valid() || !i.End.Valid() {
		return ErrInvalidFormat
	}
	if i.Start >= i.End {
		return ErrInvalidInterval
	}
	return nil
}

func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
// Ranges that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}
