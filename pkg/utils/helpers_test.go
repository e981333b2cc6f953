package utils

import (
	"testing"
	"time"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in       float64
		decimals int
		want     float64
	}{
		{1.25, 1, 1.3},
		{0.7000000001, 1, 0.7},
		{6.0, 0, 6},
		{0.48828125, 2, 0.49},
	}
	for _, tt := range tests {
		if got := Round(tt.in, tt.decimals); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.in, tt.decimals, got, tt.want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	got, err := ParseFloat(" 12.5% ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 12.5 {
		t.Errorf("ParseFloat = %v, want 12.5", got)
	}

	if _, err := ParseFloat("--"); err == nil {
		t.Error("expected error for non-numeric input")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(0.5, 2); got != 25 {
		t.Errorf("Percent(0.5, 2) = %v, want 25", got)
	}
	if got := Percent(1, 0); got != 0 {
		t.Errorf("Percent(1, 0) = %v, want 0", got)
	}
}

func TestFormatAge(t *testing.T) {
	if got := FormatAge(-1); got != "never" {
		t.Errorf("FormatAge(-1) = %q", got)
	}
	if got := FormatAge(2500 * time.Millisecond); got != "2.5s" {
		t.Errorf("FormatAge(2.5s) = %q", got)
	}
}

func TestFormatUptime(t *testing.T) {
	if got := FormatUptime(3 * 24 * 3600); got != "3 days" {
		t.Errorf("FormatUptime = %q", got)
	}
	if got := FormatUptime(120); got != "2 minutes" {
		t.Errorf("FormatUptime = %q", got)
	}
}
