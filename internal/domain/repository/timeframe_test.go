package repository

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeframeValid(t *testing.T) {
	cases := []struct {
		tf   Timeframe
		mag  int
		unit Unit
	}{
		{"1s", 1, UnitSecond},
		{"1m", 1, UnitMinute},
		{"15m", 15, UnitMinute},
		{"4h", 4, UnitHour},
		{"1d", 1, UnitDay},
		{"1M", 1, UnitMonth},
		{"1Y", 1, UnitYear},
		{"2y", 2, UnitYear},
	}
	for _, c := range cases {
		spec, err := ParseTimeframe(c.tf)
		if err != nil {
			t.Fatalf("%s: %v", c.tf, err)
		}
		if spec.Magnitude != c.mag || spec.Unit != c.unit {
			t.Fatalf("%s: got %+v", c.tf, spec)
		}
	}
}

func TestParseTimeframeInvalid(t *testing.T) {
	for _, tf := range []Timeframe{"", "m", "5", "0m", "00h", "-1m", "5x", "m5", "1.5h", "1000001m", "99999999999999999999m"} {
		if _, err := ParseTimeframe(tf); !errors.Is(err, ErrInvalidTimeframe) {
			t.Fatalf("%q: expected ErrInvalidTimeframe, got %v", tf, err)
		}
	}
}

func TestIntervalRoundTrip(t *testing.T) {
	for _, tf := range []Timeframe{"1s", "3m", "15m", "2h", "1d", "1M", "1Y"} {
		spec, err := ParseTimeframe(tf)
		if err != nil {
			t.Fatalf("%s: %v", tf, err)
		}
		if got := spec.Interval(); got != string(tf) {
			t.Fatalf("round trip %s -> %s", tf, got)
		}
	}
	// lowercase year normalizes to the canonical uppercase form
	spec, err := ParseTimeframe("1y")
	if err != nil {
		t.Fatalf("1y: %v", err)
	}
	if got := spec.Interval(); got != "1Y" {
		t.Fatalf("expected 1Y, got %s", got)
	}
}

func TestNextFixedUnits(t *testing.T) {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		tf   Timeframe
		want time.Time
	}{
		{"30s", base.Add(30 * time.Second)},
		{"5m", base.Add(5 * time.Minute)},
		{"4h", base.Add(4 * time.Hour)},
		{"1d", base.Add(24 * time.Hour)},
	}
	for _, c := range cases {
		spec, err := ParseTimeframe(c.tf)
		if err != nil {
			t.Fatalf("%s: %v", c.tf, err)
		}
		if got := spec.Next(base); !got.Equal(c.want) {
			t.Fatalf("%s: got %v want %v", c.tf, got, c.want)
		}
	}
}

func TestNextMonthClampsDay(t *testing.T) {
	cases := []struct {
		in   time.Time
		mag  int
		want time.Time
	}{
		// leap February
		{time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC), 1, time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC)},
		// non-leap February
		{time.Date(2023, 1, 31, 9, 30, 0, 0, time.UTC), 1, time.Date(2023, 2, 28, 9, 30, 0, 0, time.UTC)},
		// century non-leap rule (1900 was not a leap year)
		{time.Date(1900, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC)},
		// 400-year leap rule
		{time.Date(2000, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC)},
		// 31 -> 30 day month
		{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
		// year rollover
		{time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC), 3, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)},
		// multi-year span
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 13, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		spec := Spec{Magnitude: c.mag, Unit: UnitMonth}
		if got := spec.Next(c.in); !got.Equal(c.want) {
			t.Fatalf("%v + %dM: got %v want %v", c.in, c.mag, got, c.want)
		}
	}
}

func TestNextYearIs365Days(t *testing.T) {
	in := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	spec := Spec{Magnitude: 1, Unit: UnitYear}
	if got := spec.Next(in); !got.Equal(in.Add(365 * 24 * time.Hour)) {
		t.Fatalf("got %v", got)
	}
}

func TestNextAlwaysAdvances(t *testing.T) {
	in := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)
	for _, tf := range []Timeframe{"1s", "1m", "1h", "1d", "1M", "1Y"} {
		spec, err := ParseTimeframe(tf)
		if err != nil {
			t.Fatalf("%s: %v", tf, err)
		}
		if got := spec.Next(in); !got.After(in) {
			t.Fatalf("%s: %v does not advance past %v", tf, got, in)
		}
	}
}

func TestFiveMinuteScenario(t *testing.T) {
	spec, err := ParseTimeframe("5m")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	want := time.Date(2024, 5, 1, 12, 5, 0, 0, time.UTC)
	if got := spec.Next(last); !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
