package auction

import (
	"testing"
	"time"
)

func testSchedule() Schedule {
	return Schedule{
		SeasonStart:   "2026-04-01",
		BreakStart:    "2026-07-13",
		BreakEnd:      "2026-07-27",
		PlayoffCutoff: "2026-09-07",
		TimeZone:      "America/New_York",
	}
}

// et parses a league-local timestamp for the test schedule.
func et(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestPhaseForWindows(t *testing.T) {
	sched := testSchedule()
	tests := []struct {
		at   string
		want Phase
	}{
		{"2026-04-06 14:59:59", PhaseOffWeek},
		{"2026-04-06 15:00:00", PhaseOriginatingWindow},
		{"2026-04-06 23:30:00", PhaseOriginatingWindow},
		{"2026-04-07 00:00:00", PhaseOriginatingWindow},
		{"2026-04-07 23:59:59", PhaseOriginatingWindow},
		{"2026-04-08 00:00:00", PhaseChallengeWindow},
		{"2026-04-09 12:00:00", PhaseChallengeWindow},
		{"2026-04-10 21:00:00", PhaseChallengeWindow},
		{"2026-04-10 21:00:01", PhaseOffWeek},
		{"2026-04-11 09:00:00", PhaseOriginatingFinal},
		{"2026-04-11 22:00:00", PhaseOriginatingFinal},
		{"2026-04-11 22:00:01", PhaseOffWeek},
		{"2026-04-12 08:00:00", PhaseProcessing},
		{"2026-04-12 23:59:59", PhaseProcessing},
	}
	for _, tc := range tests {
		got := PhaseFor(et(t, tc.at), sched)
		if got != tc.want {
			t.Fatalf("PhaseFor(%s) = %s, want %s", tc.at, got, tc.want)
		}
	}
}

func TestPhaseForConvertsToLeagueTime(t *testing.T) {
	sched := testSchedule()
	// 19:00 UTC on Mon Apr 6 is 15:00 in New York, so the window is open.
	at := time.Date(2026, 4, 6, 19, 0, 0, 0, time.UTC)
	if got := PhaseFor(at, sched); got != PhaseOriginatingWindow {
		t.Fatalf("PhaseFor(19:00 UTC Monday) = %s, want %s", got, PhaseOriginatingWindow)
	}
	// 18:59 UTC is still 14:59 league time.
	at = time.Date(2026, 4, 6, 18, 59, 0, 0, time.UTC)
	if got := PhaseFor(at, sched); got != PhaseOffWeek {
		t.Fatalf("PhaseFor(18:59 UTC Monday) = %s, want %s", got, PhaseOffWeek)
	}
}

func TestScheduleActive(t *testing.T) {
	sched := testSchedule()
	tests := []struct {
		at   string
		want bool
	}{
		{"2026-03-31 12:00:00", false}, // pre-season
		{"2026-04-01 12:00:00", true},
		{"2026-07-12 12:00:00", true},  // last day before break
		{"2026-07-13 12:00:00", false}, // break start
		{"2026-07-26 12:00:00", false}, // last break day
		{"2026-07-27 12:00:00", true},  // break end, auctions resume
		{"2026-09-06 12:00:00", true},  // day before cutoff
		{"2026-09-07 12:00:00", false}, // playoff cutoff
	}
	for _, tc := range tests {
		if got := sched.Active(et(t, tc.at)); got != tc.want {
			t.Fatalf("Active(%s) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestPhaseForInactiveWeeks(t *testing.T) {
	sched := testSchedule()
	// A Tuesday inside the mid-season break is off regardless of clock.
	if got := PhaseFor(et(t, "2026-07-14 12:00:00"), sched); got != PhaseOffWeek {
		t.Fatalf("break Tuesday = %s, want %s", got, PhaseOffWeek)
	}
	// A Sunday past the playoff cutoff never enters processing.
	if got := PhaseFor(et(t, "2026-09-13 09:00:00"), sched); got != PhaseOffWeek {
		t.Fatalf("playoff Sunday = %s, want %s", got, PhaseOffWeek)
	}
}

func TestWeekStartFor(t *testing.T) {
	sched := testSchedule()
	tests := []struct {
		at   string
		want string
	}{
		{"2026-04-06 00:00:00", "2026-04-06"}, // Monday maps to itself
		{"2026-04-08 12:00:00", "2026-04-06"},
		{"2026-04-12 23:59:59", "2026-04-06"}, // Sunday stays in the same week
		{"2026-04-13 00:00:00", "2026-04-13"},
	}
	for _, tc := range tests {
		if got := WeekStartFor(et(t, tc.at), sched); got != tc.want {
			t.Fatalf("WeekStartFor(%s) = %s, want %s", tc.at, got, tc.want)
		}
	}
}

func TestWeekStartForUsesLeagueLocalDay(t *testing.T) {
	sched := testSchedule()
	// 01:00 UTC on Mon Apr 13 is still Sunday evening in New York, so
	// the instant belongs to the week of Apr 6.
	at := time.Date(2026, 4, 13, 1, 0, 0, 0, time.UTC)
	if got := WeekStartFor(at, sched); got != "2026-04-06" {
		t.Fatalf("WeekStartFor(01:00 UTC Monday) = %s, want 2026-04-06", got)
	}
}

func TestScheduleBadTimeZoneFallsBackToUTC(t *testing.T) {
	sched := testSchedule()
	sched.TimeZone = "Not/AZone"
	// Falls back to UTC rather than failing: the same instant now reads
	// as 19:00, inside the Monday window.
	at := time.Date(2026, 4, 6, 19, 0, 0, 0, time.UTC)
	if got := PhaseFor(at, sched); got != PhaseOriginatingWindow {
		t.Fatalf("PhaseFor with bad zone = %s, want %s", got, PhaseOriginatingWindow)
	}
}
