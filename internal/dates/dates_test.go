package dates

import (
	"fmt"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	now := day(2026, time.March, 1)

	tests := []struct {
		name  string
		input string
		iso   string
		ok    bool
	}{
		{"us slash", "1/5/2026", "2026-01-05", true},
		{"year first slash", "2026/1/5", "2026-01-05", true},
		{"two digit year", "12/31/25", "2025-12-31", true},
		{"padded slash", "01/05/2026", "2026-01-05", true},
		{"slash month out of range", "13/01/2026", "", false},
		{"slash day out of range", "2/30/2026", "", false},
		{"slash three digit year", "1/5/202", "", false},
		{"iso", "2026-01-05", "2026-01-05", true},
		{"iso unpadded", "2026-1-5", "2026-01-05", true},
		{"iso invalid", "2026-02-30", "", false},
		{"month first", "Jan 5", "2026-01-05", true},
		{"month first with year", "Jan 5, 2024", "2024-01-05", true},
		{"day first", "5 Jan", "2026-01-05", true},
		{"day first with year", "5 Jan 2024", "2024-01-05", true},
		{"long month name", "February 14", "2026-02-14", true},
		{"ordinal day", "March 3rd", "2026-03-03", true},
		{"lower case", "dec 1 25", "2025-12-01", true},
		{"fallback rfc3339", "2026-01-05T10:00:00Z", "2026-01-05", true},
		{"fallback dashed month", "05-Jan-2026", "2026-01-05", true},
		{"fallback dotted", "2026.01.05", "2026-01-05", true},
		{"fallback weekday", "Monday, January 5, 2026", "2026-01-05", true},
		{"garbage", "not a date", "", false},
		{"empty", "   ", "", false},
		{"unknown month", "Foo 5", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input, now)
			if ok != tt.ok {
				t.Fatalf("Normalize(%q) ok = %v, want %v (got %v)", tt.input, ok, tt.ok, got)
			}
			if ok && got.ISO() != tt.iso {
				t.Errorf("Normalize(%q) = %s, want %s", tt.input, got.ISO(), tt.iso)
			}
		})
	}
}

func TestNormalizeInfersYear(t *testing.T) {
	tests := []struct {
		input string
		now   time.Time
		year  int
	}{
		{"Jan 5", day(2026, time.March, 1), 2026},
		{"Dec 20", day(2026, time.January, 2), 2025},
		{"Mar 1", day(2026, time.January, 1), 2026},  // 59 days ahead
		{"Mar 3", day(2026, time.January, 1), 2025},  // 61 days ahead
		{"Dec 31", day(2026, time.December, 1), 2026}, // future but close
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Normalize(tt.input, tt.now)
			if !ok {
				t.Fatalf("Normalize(%q) failed", tt.input)
			}
			if got.Year != tt.year {
				t.Errorf("year = %d, want %d", got.Year, tt.year)
			}
		})
	}
}

func TestSlashRoundTrip(t *testing.T) {
	now := day(2026, time.June, 1)
	for m := 1; m <= 12; m++ {
		for d := 1; d <= 12; d++ {
			in := fmt.Sprintf("%d/%d/2026", m, d)
			got, ok := Normalize(in, now)
			if !ok {
				t.Fatalf("Normalize(%q) failed", in)
			}
			want := fmt.Sprintf("%02d/%02d/2026", m, d)
			if got.Display() != want {
				t.Fatalf("Display(%q) = %s, want %s", in, got.Display(), want)
			}
		}
	}
}

func TestDateRendering(t *testing.T) {
	d, ok := New(2026, time.January, 5)
	if !ok {
		t.Fatal("expected valid date")
	}
	if d.ISO() != "2026-01-05" {
		t.Errorf("ISO = %s", d.ISO())
	}
	if d.Display() != "01/05/2026" {
		t.Errorf("Display = %s", d.Display())
	}
	loc := time.FixedZone("X", -5*3600)
	if got := d.Time(loc); !got.Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, loc)) {
		t.Errorf("Time = %v", got)
	}
	if _, ok := New(2025, time.February, 29); ok {
		t.Error("2025-02-29 should be invalid")
	}
	if _, ok := New(2024, time.February, 29); !ok {
		t.Error("2024-02-29 should be valid")
	}
	earlier, _ := New(2025, time.December, 31)
	if !earlier.Before(d) || d.Before(earlier) {
		t.Error("Before ordering wrong")
	}
}
