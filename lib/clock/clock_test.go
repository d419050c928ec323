package clock

import (
	"testing"
	"time"
)

func TestElapsedPercentBounds(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	expires := created.Add(60 * time.Minute)

	if got := ElapsedPercent(created, expires, created); got != 0 {
		t.Errorf("at creation expected 0, got %v", got)
	}
	if got := ElapsedPercent(created, expires, created.Add(30*time.Minute)); got != 50 {
		t.Errorf("at half-life expected 50, got %v", got)
	}
	if got := ElapsedPercent(created, expires, expires); got != 100 {
		t.Errorf("at expiry expected exactly 100, got %v", got)
	}
	if got := ElapsedPercent(created, expires, expires.Add(time.Hour)); got != 100 {
		t.Errorf("past expiry expected 100, got %v", got)
	}
	if got := ElapsedPercent(created, expires, created.Add(-time.Minute)); got != 0 {
		t.Errorf("before creation expected 0, got %v", got)
	}
}

func TestElapsedPercentMonotonic(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	expires := created.Add(15 * time.Minute)

	prev := -1.0
	for i := 0; i <= 20; i++ {
		now := created.Add(time.Duration(i) * time.Minute)
		got := ElapsedPercent(created, expires, now)
		if got < prev {
			t.Fatalf("not monotonic at minute %d: %v < %v", i, got, prev)
		}
		if got < 0 || got > 100 {
			t.Fatalf("out of bounds at minute %d: %v", i, got)
		}
		prev = got
	}
}

func TestElapsedPercentNoExpiry(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := ElapsedPercent(created, time.Time{}, created.Add(time.Hour)); got != 0 {
		t.Errorf("non-expiring listing expected 0, got %v", got)
	}
}

func TestDayStart(t *testing.T) {
	moment := time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := DayStart(moment); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// a moment east of UTC can land on the previous UTC day
	plus3 := time.FixedZone("UTC+3", 3*60*60)
	early := time.Date(2025, 3, 11, 1, 30, 0, 0, plus3)
	if got := DayStart(early); !got.Equal(want) {
		t.Errorf("expected boundary %v for %v, got %v", want, early, got)
	}
}
