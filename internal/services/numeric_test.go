package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		previous string
		want     string
	}{
		{"zero baseline with activity", "250", "0", "100"},
		{"zero baseline without activity", "0", "0", "0"},
		{"growth", "150", "100", "50"},
		{"decline", "50", "200", "-75"},
		{"rounded", "2", "3", "-33.33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrowthRate(d(tt.current), d(tt.previous))
			if !got.Equal(d(tt.want)) {
				t.Errorf("GrowthRate(%s, %s) = %s, want %s", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func TestPercentNotCapped(t *testing.T) {
	if got := Percent(d("1500"), d("1000")); !got.Equal(d("150")) {
		t.Errorf("Percent = %s, want 150", got)
	}
	if got := Percent(d("1"), d("3")); !got.Equal(d("33.33")) {
		t.Errorf("Percent = %s, want 33.33", got)
	}
	if got := Percent(d("10"), decimal.Zero); !got.IsZero() {
		t.Errorf("Percent with zero target = %s, want 0", got)
	}
}

func TestDisplayProgressCapped(t *testing.T) {
	if got := DisplayProgress(d("1500"), d("1000")); got != 100 {
		t.Errorf("DisplayProgress = %d, want 100", got)
	}
	if got := DisplayProgress(d("333"), d("1000")); got != 33 {
		t.Errorf("DisplayProgress = %d, want 33", got)
	}
}

func TestRepeatedIncrementsDoNotDrift(t *testing.T) {
	total := decimal.Zero
	for i := 0; i < 1000; i++ {
		total = total.Add(d("0.10"))
	}
	if !total.Equal(d("100")) {
		t.Errorf("sum of 1000 x 0.10 = %s, want 100", total)
	}
}

func TestWindows(t *testing.T) {
	at := time.Date(2024, 1, 15, 17, 30, 0, 0, time.UTC)

	day := DayWindow(at)
	if !day.Start.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) || !day.End.Equal(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DayWindow = %v", day)
	}
	if !day.Contains(time.Date(2024, 1, 15, 23, 59, 59, 999, time.UTC)) {
		t.Error("day window should contain 23:59:59.999")
	}
	if day.Contains(day.End) {
		t.Error("day window should exclude its end")
	}

	week := WeekWindow(at)
	if got := week.End.Sub(week.Start); got != 7*24*time.Hour {
		t.Errorf("week length = %v", got)
	}

	feb := MonthWindow(2024, time.February)
	if !feb.End.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MonthWindow end = %v", feb.End)
	}
	jan := MonthWindow(2024, time.January).PreviousMonth()
	if !jan.Start.Equal(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PreviousMonth start = %v", jan.Start)
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2024-01-15"); err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	for _, s := range []string{"", "2024/01/15", "2024-13-01", "15-01-2024"} {
		if _, err := ParseDate(s); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseDate(%q) error = %v, want validation error", s, err)
		}
	}
}
