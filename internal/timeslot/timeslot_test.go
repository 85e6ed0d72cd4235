package timeslot

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDateAcceptsCanonicalAndLegacyLayouts(t *testing.T) {
	t.Parallel()

	want := NewDate(2025, time.January, 31)
	for _, raw := range []string{"2025-01-31", " 2025-01-31 ", "31-01-2025", "2025/01/31"} {
		got, err := ParseDate(raw)
		if err != nil {
			t.Fatalf("ParseDate(%q) unexpected error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseDate(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "tomorrow", "2025-13-01", "2025-02-30", "01/31/2025"} {
		if _, err := ParseDate(raw); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("ParseDate(%q) expected ErrInvalidFormat, got %v", raw, err)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want TimeOfDay
	}{
		{raw: "00:00", want: 0},
		{raw: "09:30", want: NewTimeOfDay(9, 30)},
		{raw: "23:59", want: NewTimeOfDay(23, 59)},
		{raw: "10:15:30", want: NewTimeOfDay(10, 15) + 30},
	}
	for _, test := range tests {
		got, err := ParseTimeOfDay(test.raw)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) unexpected error: %v", test.raw, err)
		}
		if got != test.want {
			t.Fatalf("ParseTimeOfDay(%q) = %d, want %d", test.raw, got, test.want)
		}
	}

	for _, raw := range []string{"", "24:00", "9am", "10:61"} {
		if _, err := ParseTimeOfDay(raw); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("ParseTimeOfDay(%q) expected ErrInvalidFormat, got %v", raw, err)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	t.Parallel()

	if got := NewTimeOfDay(7, 5).String(); got != "07:05" {
		t.Fatalf("expected 07:05, got %q", got)
	}
	if got := (NewTimeOfDay(7, 5) + 9).String(); got != "07:05:09" {
		t.Fatalf("expected 07:05:09, got %q", got)
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	t.Parallel()

	points := []TimeOfDay{0, NewTimeOfDay(9, 0), NewTimeOfDay(10, 0), NewTimeOfDay(10, 30), NewTimeOfDay(11, 0), NewTimeOfDay(12, 0)}
	for _, aStart := range points {
		for _, aEnd := range points {
			if aStart >= aEnd {
				continue
			}
			for _, bStart := range points {
				for _, bEnd := range points {
					if bStart >= bEnd {
						continue
					}
					if Overlaps(aStart, aEnd, bStart, bEnd) != Overlaps(bStart, bEnd, aStart, aEnd) {
						t.Fatalf("overlap not symmetric for [%v,%v) and [%v,%v)", aStart, aEnd, bStart, bEnd)
					}
				}
			}
		}
	}
}

func TestOverlapsBoundaries(t *testing.T) {
	t.Parallel()

	nine := NewTimeOfDay(9, 0)
	ten := NewTimeOfDay(10, 0)
	eleven := NewTimeOfDay(11, 0)

	if Overlaps(nine, ten, ten, eleven) {
		t.Fatal("touching intervals must not overlap")
	}
	if Overlaps(ten, eleven, nine, ten) {
		t.Fatal("touching intervals must not overlap in reverse order")
	}
	if !Overlaps(nine, ten, nine, ten) {
		t.Fatal("identical intervals must overlap")
	}
	if !Overlaps(nine, eleven, ten, ten+60) {
		t.Fatal("contained interval must overlap")
	}
}

func TestIntervalValidate(t *testing.T) {
	t.Parallel()

	if err := (Interval{Start: NewTimeOfDay(10, 0), End: NewTimeOfDay(10, 0)}).Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for zero-length interval, got %v", err)
	}
	if err := (Interval{Start: NewTimeOfDay(11, 0), End: NewTimeOfDay(10, 0)}).Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for inverted interval, got %v", err)
	}
	if err := (Interval{Start: NewTimeOfDay(10, 0), End: NewTimeOfDay(11, 0)}).Validate(); err != nil {
		t.Fatalf("expected valid interval, got %v", err)
	}
}

func TestDateAtCombinesClockInLocation(t *testing.T) {
	t.Parallel()

	location := time.FixedZone("UTC+3", 3*60*60)
	got := NewDate(2025, time.March, 2).At(NewTimeOfDay(14, 45), location)
	want := time.Date(2025, time.March, 2, 14, 45, 0, 0, location)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDateBefore(t *testing.T) {
	t.Parallel()

	if !NewDate(2024, time.December, 31).Before(NewDate(2025, time.January, 1)) {
		t.Fatal("expected year rollover to order correctly")
	}
	if NewDate(2025, time.January, 1).Before(NewDate(2025, time.January, 1)) {
		t.Fatal("a date must not be before itself")
	}
}

func TestDateAndTimeScan(t *testing.T) {
	t.Parallel()

	var date Date
	if err := date.Scan("2025-04-09"); err != nil {
		t.Fatalf("scan string date: %v", err)
	}
	if date != NewDate(2025, time.April, 9) {
		t.Fatalf("unexpected scanned date %v", date)
	}
	if err := date.Scan(time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("scan time date: %v", err)
	}
	if date != NewDate(2025, time.April, 10) {
		t.Fatalf("unexpected scanned date %v", date)
	}

	var clock TimeOfDay
	if err := clock.Scan(int64(NewTimeOfDay(8, 15))); err != nil {
		t.Fatalf("scan int time: %v", err)
	}
	if clock != NewTimeOfDay(8, 15) {
		t.Fatalf("unexpected scanned time %v", clock)
	}
}

func TestJSONRoundTripUsesCanonicalText(t *testing.T) {
	t.Parallel()

	payload := struct {
		Date  Date      `json:"date"`
		Start TimeOfDay `json:"start"`
	}{Date: NewDate(2025, time.May, 1), Start: NewTimeOfDay(9, 0)}

	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `{"date":"2025-05-01","start":"09:00"}` {
		t.Fatalf("unexpected JSON %s", encoded)
	}
}
