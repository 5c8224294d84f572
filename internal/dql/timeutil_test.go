package dql

import (
	"testing"
	"time"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		text string
		want Interval
	}{
		{"1y", Interval{Years: 1}},
		{"2 years", Interval{Years: 2}},
		{"1y 2mo", Interval{Years: 1, Months: 2}},
		{"3w", Interval{Weeks: 3}},
		{"5d 6h", Interval{Days: 5, Hours: 6}},
		{"90m", Interval{Minutes: 90}},
		{"10 sec", Interval{Seconds: 10}},
		{"250ms", Interval{Millis: 250}},
		{"7us", Interval{Micros: 7}},
		{"-1d", Interval{Days: -1}},
		{"1 year, 2 months", Interval{Years: 1, Months: 2}},
		{"1h 30min", Interval{Hours: 1, Minutes: 30}},
	}
	for _, tt := range tests {
		got, err := ParseInterval(tt.text)
		if err != nil {
			t.Fatalf("ParseInterval(%q) failed: %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("ParseInterval(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}

func TestParseIntervalErrors(t *testing.T) {
	for _, text := range []string{"", "abc", "1 fortnight", "x1d"} {
		if _, err := ParseInterval(text); err == nil {
			t.Errorf("ParseInterval(%q) should fail", text)
		}
	}
}

func TestIntervalStringRoundTrip(t *testing.T) {
	ivs := []Interval{
		{Years: 1, Months: 2},
		{Weeks: 1, Days: 3, Hours: 4},
		{Minutes: 90, Seconds: 5},
		{Millis: 100, Micros: 9},
		{},
	}
	for _, iv := range ivs {
		got, err := ParseInterval(iv.String())
		if err != nil {
			t.Fatalf("Reparsing %q failed: %v", iv.String(), err)
		}
		if got != iv {
			t.Errorf("Round trip of %q = %+v, want %+v", iv.String(), got, iv)
		}
	}
	if (Interval{}).String() != "0s" {
		t.Errorf("Zero interval renders as %q, want 0s", Interval{}.String())
	}
}

func TestIntervalNegatePlus(t *testing.T) {
	iv := Interval{Years: 1, Days: 2, Seconds: 3}
	if !iv.Plus(iv.Negate()).IsZero() {
		t.Error("iv + (-iv) should be zero")
	}
	sum := iv.Plus(Interval{Days: 5})
	if sum.Days != 7 || sum.Years != 1 || sum.Seconds != 3 {
		t.Errorf("Plus = %+v", sum)
	}
}

func TestIntervalAddTo(t *testing.T) {
	base := time.Date(2020, 1, 31, 12, 0, 0, 0, time.UTC)

	// Calendar units use AddDate semantics: Jan 31 + 1 month lands on
	// Mar 2.
	got := Interval{Months: 1}.AddTo(base)
	want := time.Date(2020, 3, 2, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("+1mo = %v, want %v", got, want)
	}

	got = Interval{Weeks: 1, Hours: 2}.AddTo(base)
	want = time.Date(2020, 2, 7, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("+1w 2h = %v, want %v", got, want)
	}
}

func TestParseTimestampStrings(t *testing.T) {
	tests := []struct {
		text string
		want time.Time
	}{
		{"2024-06-01T10:30:00Z", time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-06-01 10:30:00", time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-06-01 10:30", time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-6-1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.text, true)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) failed: %v", tt.text, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	if _, err := ParseTimestamp("not a date", true); err == nil {
		t.Error("Expected an error for an unparseable datetime")
	}
}

func TestParseTimestampEpoch(t *testing.T) {
	// Seconds reading.
	got, err := ParseTimestamp(int64(1700000000), true)
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	if got.Year() != 2023 {
		t.Errorf("Epoch seconds landed in year %d, want 2023", got.Year())
	}

	// A millisecond epoch read as seconds lands past year 9999, so it
	// re-reads as milliseconds.
	got, err = ParseTimestamp(int64(1700000000000), true)
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	if got.Year() != 2023 {
		t.Errorf("Epoch millis landed in year %d, want 2023", got.Year())
	}
}

func TestToEpoch(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 30, 0, 250000000, time.UTC)
	d := ToEpoch(ts)
	if d.Text('f') != "1717237800.25" {
		t.Errorf("ToEpoch = %s, want 1717237800.25", d.Text('f'))
	}

	// Whole seconds reduce away the fraction.
	d = ToEpoch(time.Unix(1700000000, 0))
	if d.Text('f') != "1700000000" {
		t.Errorf("ToEpoch = %s, want 1700000000", d.Text('f'))
	}
}
