package auction

import "time"

// Phase is the high-level phase of the weekly auction. OffWeek means
// auctions are not running at all this week (pre-season, mid-season
// break, playoffs).
type Phase string

const (
	PhaseOffWeek           Phase = "off_week"
	PhaseOriginatingWindow Phase = "ob_window"
	PhaseChallengeWindow   Phase = "cb_window"
	PhaseOriginatingFinal  Phase = "ob_final"
	PhaseProcessing        Phase = "processing"
)

// Schedule holds the season boundaries, as league-local calendar dates
// (YYYY-MM-DD), plus the league timezone. A copy is snapshotted into
// every week record when it is created.
type Schedule struct {
	SeasonStart   string `json:"season_start"`
	BreakStart    string `json:"break_start"`
	BreakEnd      string `json:"break_end"`
	PlayoffCutoff string `json:"playoff_cutoff"`
	TimeZone      string `json:"time_zone"`
}

const dateLayout = "2006-01-02"

func (s Schedule) location() *time.Location {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Active reports whether the auction runs at all during the week
// containing now. Pre-season, the mid-season break, and everything from
// the playoff cutoff onward are inactive.
func (s Schedule) Active(now time.Time) bool {
	start, err := time.Parse(dateLayout, s.SeasonStart)
	if err != nil {
		return false
	}
	breakStart, err := time.Parse(dateLayout, s.BreakStart)
	if err != nil {
		return false
	}
	breakEnd, err := time.Parse(dateLayout, s.BreakEnd)
	if err != nil {
		return false
	}
	playoffs, err := time.Parse(dateLayout, s.PlayoffCutoff)
	if err != nil {
		return false
	}

	local := now.In(s.location())
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	if d.Before(start) {
		return false
	}
	if !d.Before(breakStart) && d.Before(breakEnd) {
		return false
	}
	if !d.Before(playoffs) {
		return false
	}
	return true
}

// PhaseFor derives the auction phase for a timestamp. It is a pure
// function of (now, sched); the cached phase on a week record is
// advisory only and is always recomputed through here.
func PhaseFor(now time.Time, sched Schedule) Phase {
	if !sched.Active(now) {
		return PhaseOffWeek
	}

	local := now.In(sched.location())
	secs := local.Hour()*3600 + local.Minute()*60 + local.Second()

	switch local.Weekday() {
	case time.Monday:
		if secs >= 15*3600 {
			return PhaseOriginatingWindow
		}
	case time.Tuesday:
		return PhaseOriginatingWindow
	case time.Wednesday, time.Thursday:
		return PhaseChallengeWindow
	case time.Friday:
		if secs <= 21*3600 {
			return PhaseChallengeWindow
		}
	case time.Saturday:
		if secs <= 22*3600 {
			return PhaseOriginatingFinal
		}
	case time.Sunday:
		return PhaseProcessing
	}
	return PhaseOffWeek
}

// WeekStartFor returns the league-local Monday date (YYYY-MM-DD) of the
// week containing now. Week records are keyed by this value.
func WeekStartFor(now time.Time, sched Schedule) string {
	local := now.In(sched.location())
	back := (int(local.Weekday()) + 6) % 7
	monday := local.AddDate(0, 0, -back)
	return monday.Format(dateLayout)
}
