package timecalc

import (
	"errors"
	"testing"
	"time"

	"github.com/mesworks/floortimer/internal/timer"
)

var t0 = time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

func TestElapsed_Running(t *testing.T) {
	s := &timer.Session{ID: "s1", State: timer.StateRunning, StartedAt: t0, AccumulatedMinutes: 30}
	got, err := Elapsed(s, t0.Add(15*time.Minute))
	if err != nil {
		t.Fatalf("Elapsed failed: %v", err)
	}
	if got != 45 {
		t.Errorf("expected 45 minutes, got %v", got)
	}
}

func TestElapsed_PausedIgnoresStartedAt(t *testing.T) {
	s := &timer.Session{ID: "s1", State: timer.StatePaused, StartedAt: t0, AccumulatedMinutes: 30}
	got, err := Elapsed(s, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Elapsed failed: %v", err)
	}
	if got != 30 {
		t.Errorf("paused session should not accrue, got %v", got)
	}
}

func TestElapsed_SubMinutePrecision(t *testing.T) {
	s := &timer.Session{ID: "s1", State: timer.StateRunning, StartedAt: t0}
	got, err := Elapsed(s, t0.Add(90*time.Second))
	if err != nil {
		t.Fatalf("Elapsed failed: %v", err)
	}
	if got != 1.5 {
		t.Errorf("expected 1.5 minutes, got %v", got)
	}
}

func TestElapsed_ClockSkewClamps(t *testing.T) {
	s := &timer.Session{ID: "s1", State: timer.StateRunning, StartedAt: t0, AccumulatedMinutes: 12}
	got, err := Elapsed(s, t0.Add(-5*time.Minute))
	if !errors.Is(err, timer.ErrDataIntegrity) {
		t.Errorf("expected ErrDataIntegrity, got %v", err)
	}
	if got != 12 {
		t.Errorf("expected clamp to committed 12 minutes, got %v", got)
	}
}

func TestElapsed_MissingStartedAt(t *testing.T) {
	s := &timer.Session{ID: "s1", State: timer.StateRunning, AccumulatedMinutes: 7}
	got, err := Elapsed(s, t0)
	if !errors.Is(err, timer.ErrDataIntegrity) {
		t.Errorf("expected ErrDataIntegrity, got %v", err)
	}
	if got != 7 {
		t.Errorf("expected clamp to committed 7 minutes, got %v", got)
	}
}

func TestRoundMinutes(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{59.999, 60},
		{0.005, 0.01},
		{12.3456, 12.35},
		{0, 0},
	}
	for _, c := range cases {
		if got := RoundMinutes(c.in); got != c.want {
			t.Errorf("RoundMinutes(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDayHelpers(t *testing.T) {
	local := time.Date(2026, 8, 28, 23, 30, 0, 0, time.FixedZone("floor", 2*3600))
	if Day(local) != "2026-08-28" {
		t.Errorf("Day should normalize to UTC, got %s", Day(local))
	}
	if !SameDay(t0, t0.Add(17*time.Hour)) {
		t.Errorf("expected same UTC day")
	}
	if SameDay(t0, t0.Add(24*time.Hour)) {
		t.Errorf("expected different UTC day")
	}
	if !EndOfDay(t0).Equal(StartOfDay(t0).AddDate(0, 0, 1)) {
		t.Errorf("EndOfDay should be start of next day")
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := FormatMinutes(100); got != "1h 40m" {
		t.Errorf("expected 1h 40m, got %s", got)
	}
	if got := FormatMinutes(45); got != "45m" {
		t.Errorf("expected 45m, got %s", got)
	}
}
