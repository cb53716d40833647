package game

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateEntityName(t *testing.T) {
	if err := validateEntityName("Midnight Static"); err != nil {
		t.Fatalf("expected valid entity name: %v", err)
	}
	invalid := []string{"", "   ", "admin anthem", strings.Repeat("a", 65)}
	for _, name := range invalid {
		if err := validateEntityName(name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected %q to fail with ErrInvalidName, got %v", name, err)
		}
	}
}

func TestWeekOfYear(t *testing.T) {
	tests := []struct {
		week     int
		wantWeek int
		wantYear int
	}{
		{week: 0, wantWeek: 1, wantYear: 1},
		{week: 1, wantWeek: 1, wantYear: 1},
		{week: 52, wantWeek: 52, wantYear: 1},
		{week: 53, wantWeek: 1, wantYear: 2},
		{week: 110, wantWeek: 6, wantYear: 3},
	}
	for _, tc := range tests {
		if got := WeekOfYear(tc.week); got != tc.wantWeek {
			t.Fatalf("week=%d got week-of-year %d want %d", tc.week, got, tc.wantWeek)
		}
		if got := YearOf(tc.week); got != tc.wantYear {
			t.Fatalf("week=%d got year %d want %d", tc.week, got, tc.wantYear)
		}
	}
}

func TestDollarsToMicros(t *testing.T) {
	if got := DollarsToMicros(12.5); got != 12_500_000 {
		t.Fatalf("got %d", got)
	}
	if got := MicrosToDollars(2_500_000); got != 2.5 {
		t.Fatalf("got %f", got)
	}
}

func TestPayoutMicros(t *testing.T) {
	if got := PayoutMicros("Streamify", 1000); got != 3_800_000 {
		t.Fatalf("streamify payout %d", got)
	}
	if got := PayoutMicros("Nowhere", 1000); got != 0 {
		t.Fatalf("unknown platform payout %d", got)
	}
	if got := PayoutMicros("Streamify", -5); got != 0 {
		t.Fatalf("negative streams payout %d", got)
	}
}
