package core

import (
	"testing"
	"time"
)

func TestLastDayOfMonth(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		want  int
	}{
		{"january", 2025, time.January, 31},
		{"february non-leap", 2025, time.February, 28},
		{"february leap", 2024, time.February, 29},
		{"february century non-leap", 1900, time.February, 28},
		{"february 400-year leap", 2000, time.February, 29},
		{"april", 2025, time.April, 30},
		{"december", 2025, time.December, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastDayOfMonth(tt.year, tt.month); got != tt.want {
				t.Errorf("LastDayOfMonth(%d, %v) = %d, want %d", tt.year, tt.month, got, tt.want)
			}
		})
	}
}

func TestSafeDueDate(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		month   time.Month
		dueDay  int
		wantDay int
	}{
		{"day 31 in february clamps to 28", 2025, time.February, 31, 28},
		{"day 31 in leap february clamps to 29", 2024, time.February, 31, 29},
		{"day 31 in april clamps to 30", 2025, time.April, 31, 30},
		{"day 31 in january stays 31", 2025, time.January, 31, 31},
		{"day 15 never clamps", 2025, time.February, 15, 15},
		{"day 1 never clamps", 2025, time.February, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeDueDate(tt.year, tt.month, tt.dueDay)
			if got.Day() != tt.wantDay {
				t.Errorf("day = %d, want %d", got.Day(), tt.wantDay)
			}
			// The clamp must never overflow into the next month.
			if got.Year() != tt.year || got.Month() != tt.month {
				t.Errorf("date %v left the target month %d-%v", got, tt.year, tt.month)
			}
			if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
				t.Errorf("date %v is not at start of day", got)
			}
		})
	}
}

func TestSafeDueDateNeverOverflows(t *testing.T) {
	// Exhaustive: every (month, dueDay) combination lands inside its month
	// with day == min(dueDay, month length).
	for year := 2023; year <= 2025; year++ {
		for month := time.January; month <= time.December; month++ {
			for dueDay := 1; dueDay <= 31; dueDay++ {
				got := SafeDueDate(year, month, dueDay)
				want := dueDay
				if last := LastDayOfMonth(year, month); want > last {
					want = last
				}
				if got.Day() != want || got.Month() != month || got.Year() != year {
					t.Fatalf("SafeDueDate(%d, %v, %d) = %v, want day %d in same month",
						year, month, dueDay, got, want)
				}
			}
		}
	}
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name         string
		base         time.Time
		frequency    Frequency
		dueDay       int
		periodsAhead int
		want         time.Time
	}{
		{
			name:         "weekly adds seven days per period",
			base:         time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
			frequency:    Weekly,
			dueDay:       6,
			periodsAhead: 2,
			want:         time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "biweekly adds fourteen days per period",
			base:         time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
			frequency:    Biweekly,
			dueDay:       6,
			periodsAhead: 1,
			want:         time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "monthly clamp is recomputed per period, not sticky",
			base:         time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			frequency:    Monthly,
			dueDay:       31,
			periodsAhead: 2,
			want:         time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "monthly into february clamps",
			base:         time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			frequency:    Monthly,
			dueDay:       31,
			periodsAhead: 1,
			want:         time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "monthly wraps december into next year",
			base:         time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC),
			frequency:    Monthly,
			dueDay:       15,
			periodsAhead: 3,
			want:         time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "yearly leap to non-leap clamps feb 29 to 28",
			base:         time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			frequency:    Yearly,
			dueDay:       29,
			periodsAhead: 1,
			want:         time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "yearly back to leap restores day 29",
			base:         time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			frequency:    Yearly,
			dueDay:       29,
			periodsAhead: 4,
			want:         time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "period zero is the clamped base-aligned date",
			base:         time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
			frequency:    Monthly,
			dueDay:       31,
			periodsAhead: 0,
			want:         time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "unknown frequency projects monthly",
			base:         time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			frequency:    Frequency("fortnightly"),
			dueDay:       15,
			periodsAhead: 1,
			want:         time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "time of day on base is ignored",
			base:         time.Date(2025, 1, 6, 17, 45, 12, 0, time.UTC),
			frequency:    Weekly,
			dueDay:       6,
			periodsAhead: 1,
			want:         time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.base, tt.frequency, tt.dueDay, tt.periodsAhead)
			if !got.Equal(tt.want) {
				t.Errorf("NextDueDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateDueDatesMonthlyDay31(t *testing.T) {
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	dates := GenerateDueDates(start, Monthly, 31, 12)

	wantDays := []int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if len(dates) != len(wantDays) {
		t.Fatalf("got %d dates, want %d", len(dates), len(wantDays))
	}
	for i, d := range dates {
		if d.Day() != wantDays[i] {
			t.Errorf("period %d: day = %d, want %d (date %v)", i, d.Day(), wantDays[i], d)
		}
		if d.Month() != time.Month(i+1) || d.Year() != 2025 {
			t.Errorf("period %d: landed on %v, want 2025-%02d", i, d, i+1)
		}
	}
}

func TestGenerateDueDatesInclusiveOfPeriodZero(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	dates := GenerateDueDates(start, Weekly, 10, 3)

	if len(dates) != 3 {
		t.Fatalf("got %d dates, want 3", len(dates))
	}
	if !dates[0].Equal(start) {
		t.Errorf("period zero = %v, want the start date %v", dates[0], start)
	}
	if !dates[1].Equal(start.AddDate(0, 0, 7)) || !dates[2].Equal(start.AddDate(0, 0, 14)) {
		t.Errorf("unexpected sequence: %v", dates)
	}
}

func TestGenerateDueDatesIsRestartable(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	first := GenerateDueDates(start, Monthly, 31, 6)
	second := GenerateDueDates(start, Monthly, 31, 6)
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("period %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestDayHelpers(t *testing.T) {
	a := time.Date(2025, 5, 20, 23, 58, 0, 0, time.UTC)
	b := time.Date(2025, 5, 20, 0, 1, 0, 0, time.UTC)

	if !SameDay(a, b) {
		t.Error("SameDay should ignore time of day")
	}
	if SameDay(a, a.AddDate(0, 0, 1)) {
		t.Error("SameDay across midnight should be false")
	}
	if got := StartOfDay(a); got.Hour() != 0 || got.Day() != 20 {
		t.Errorf("StartOfDay = %v", got)
	}
	if got := EndOfDay(b); got.Hour() != 23 || got.Day() != 20 {
		t.Errorf("EndOfDay = %v", got)
	}
}
