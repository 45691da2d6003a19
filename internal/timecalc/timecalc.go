package timecalc

import (
	"fmt"
	"math"
	"time"

	"github.com/mesworks/floortimer/internal/timer"
)

// Elapsed computes the total elapsed minutes of a session at the given
// wall-clock instant: committed minutes from previous running phases plus the
// live delta of the current running phase. It is deterministic and
// side-effect-free so client display and server accounting agree.
//
// Negative or non-finite results are a data-integrity defect (clock skew, a
// zeroed started_at): the returned value is clamped to the last committed
// non-negative amount and the error describes the anomaly for offline
// investigation. The error is never fatal.
func Elapsed(s *timer.Session, now time.Time) (float64, error) {
	committed := s.AccumulatedMinutes
	if !isFinite(committed) || committed < 0 {
		return 0, fmt.Errorf("%w: session %s has accumulated_minutes=%v", timer.ErrDataIntegrity, s.ID, committed)
	}
	if s.State != timer.StateRunning {
		return committed, nil
	}
	if s.StartedAt.IsZero() {
		return committed, fmt.Errorf("%w: running session %s has no started_at", timer.ErrDataIntegrity, s.ID)
	}
	delta := now.Sub(s.StartedAt).Seconds() / 60
	if !isFinite(delta) || delta < 0 {
		return committed, fmt.Errorf("%w: session %s running delta %.2fm at %s", timer.ErrDataIntegrity, s.ID, delta, now.UTC().Format(time.RFC3339))
	}
	return committed + delta, nil
}

// RunningDelta is the live portion only: minutes since the current running
// phase began, clamped to zero on skew.
func RunningDelta(s *timer.Session, now time.Time) (float64, error) {
	total, err := Elapsed(s, now)
	return total - s.AccumulatedMinutes, err
}

// RoundMinutes rounds to two decimals for persistence and presentation.
// Sub-minute precision is kept everywhere else.
func RoundMinutes(m float64) float64 {
	if !isFinite(m) {
		return 0
	}
	return math.Round(m*100) / 100
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Day returns the UTC calendar date key for t, e.g. "2026-08-28". All daily
// accounting is keyed on UTC days; presentation layers localize.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// StartOfDay returns 00:00:00 UTC of the same day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the first instant of the next UTC day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// SameDay reports whether two times fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a) == Day(b)
}

// FormatMinutes renders minutes as a human-readable string like "1h 40m".
func FormatMinutes(m float64) string {
	total := int(math.Round(m))
	h := total / 60
	mins := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
