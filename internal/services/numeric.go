package services

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percent returns part/whole*100 rounded to 2 places, or zero when whole is zero.
// The result is not capped.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// GrowthRate is (current-previous)/previous*100 rounded to 2 places. A zero
// baseline yields 100 when current is positive and 0 otherwise.
func GrowthRate(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

// Average returns total/count rounded to 2 places.
func Average(total decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(count)).Round(2)
}

// DisplayProgress is the 0..100 whole-number progress used for progress bars.
func DisplayProgress(current, target decimal.Decimal) int64 {
	p := Percent(current, target).Round(0).IntPart()
	if p > 100 {
		return 100
	}
	return p
}

// Window is a half-open time range [Start, End) in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DayWindow covers the UTC calendar day containing t.
func DayWindow(t time.Time) Window {
	start := truncateDay(t)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekWindow covers seven UTC days starting at the day containing t.
func WeekWindow(t time.Time) Window {
	start := truncateDay(t)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthWindow covers the full UTC calendar month.
func MonthWindow(year int, month time.Month) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// PreviousMonth returns the window of the calendar month before w.
func (w Window) PreviousMonth() Window {
	start := w.Start.AddDate(0, -1, 0)
	return Window{Start: start, End: w.Start}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, validationf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func dateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
