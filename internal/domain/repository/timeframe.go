package repository

import (
	"errors"
	"fmt"
	"time"
)

// Timeframe is the exchange-form interval token, e.g. "1m", "15m", "1M".
type Timeframe string

// ErrInvalidTimeframe reports a token that does not match <integer><unit>.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// maxMagnitude bounds the parsed magnitude so long digit runs fail instead
// of overflowing the accumulator.
const maxMagnitude = 1_000_000

// Unit is a calendar unit in the long form the forecast service expects.
type Unit string

const (
	UnitSecond Unit = "seconds"
	UnitMinute Unit = "minutes"
	UnitHour   Unit = "hours"
	UnitDay    Unit = "days"
	UnitMonth  Unit = "months"
	UnitYear   Unit = "years"
)

// Spec is a parsed timeframe: positive magnitude plus calendar unit.
// Immutable once parsed.
type Spec struct {
	Magnitude int
	Unit      Unit
}

// ParseTimeframe parses an exchange-form token into a Spec.
// Lowercase m is minute, uppercase M is month; Y and y both mean year.
func ParseTimeframe(tf Timeframe) (Spec, error) {
	s := string(tf)
	if len(s) < 2 {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}
	unit, ok := unitFor(s[len(s)-1])
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}
	mag := 0
	for _, r := range s[:len(s)-1] {
		if r < '0' || r > '9' {
			return Spec{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
		}
		mag = mag*10 + int(r-'0')
		if mag > maxMagnitude {
			return Spec{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
		}
	}
	if mag <= 0 {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}
	return Spec{Magnitude: mag, Unit: unit}, nil
}

func unitFor(b byte) (Unit, bool) {
	switch b {
	case 's':
		return UnitSecond, true
	case 'm':
		return UnitMinute, true
	case 'h':
		return UnitHour, true
	case 'd':
		return UnitDay, true
	case 'M':
		return UnitMonth, true
	case 'Y', 'y':
		return UnitYear, true
	default:
		return "", false
	}
}

// Interval formats a parsed timeframe back to the exchange-form token accepted by the
// kline stream subscription.
func (s Spec) Interval() string {
	return fmt.Sprintf("%d%s", s.Magnitude, s.Unit.letter())
}

func (u Unit) letter() string {
	switch u {
	case UnitSecond:
		return "s"
	case UnitMinute:
		return "m"
	case UnitHour:
		return "h"
	case UnitDay:
		return "d"
	case UnitMonth:
		return "M"
	case UnitYear:
		return "Y"
	}
	return "?"
}

// Next computes the open time of the candle after t for this spec.
// Months roll over calendar-correctly with the day clamped to the target
// month's last valid day. Years are approximated as magnitude*365 days; the
// approximation is preserved from the upstream contract.
func (s Spec) Next(t time.Time) time.Time {
	switch s.Unit {
	case UnitSecond:
		return t.Add(time.Duration(s.Magnitude) * time.Second)
	case UnitMinute:
		return t.Add(time.Duration(s.Magnitude) * time.Minute)
	case UnitHour:
		return t.Add(time.Duration(s.Magnitude) * time.Hour)
	case UnitDay:
		return t.Add(time.Duration(s.Magnitude) * 24 * time.Hour)
	case UnitMonth:
		return addMonths(t, s.Magnitude)
	case UnitYear:
		return t.Add(time.Duration(s.Magnitude) * 365 * 24 * time.Hour)
	}
	return t
}

// addMonths avoids time.AddDate, which normalizes Jan 31 + 1 month into
// early March instead of clamping to the end of February.
func addMonths(t time.Time, n int) time.Time {
	month := int(t.Month()) - 1 + n
	year := t.Year() + month/12
	month = month%12 + 1
	day := t.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 29
	}
	return 28
}
