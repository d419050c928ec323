package clock

import "time"

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// DayStart truncates a moment to its UTC calendar-day boundary. The daily
// posting quota resets at this boundary; it is pinned to UTC so the reset is
// the same regardless of which server handles the request.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ElapsedPercent returns how much of a listing's lifetime has passed, as a
// percentage clamped to [0,100]. It drives the depletion bar: 0 right after
// creation, exactly 100 the instant now reaches expiresAt. A zero expiresAt
// means the listing never expires and the value is 0.
func ElapsedPercent(createdAt, expiresAt, now time.Time) float64 {
	if expiresAt.IsZero() {
		return 0
	}
	if !now.Before(expiresAt) {
		return 100
	}
	total := expiresAt.Sub(createdAt)
	if total <= 0 {
		return 100
	}
	elapsed := now.Sub(createdAt)
	if elapsed <= 0 {
		return 0
	}
	percent := 100 * float64(elapsed) / float64(total)
	if percent > 100 {
		return 100
	}
	return percent
}
