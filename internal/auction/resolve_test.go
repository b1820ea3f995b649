package auction

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedWeek(t *testing.T, f *fixture, week *Week) {
	t.Helper()
	if week.WeekStart == "" {
		week.WeekStart = "2026-04-06"
	}
	week.Schedule = testSchedule()
	if len(week.PriorityOrder) == 0 {
		week.PriorityOrder = []string{"DDD", "CCC", "BBB", "AAA"}
	}
	if err := f.store.Save(context.Background(), week); err != nil {
		t.Fatalf("seed week: %v", err)
	}
}

func resolveSunday(t *testing.T, f *fixture) (Summary, error) {
	t.Helper()
	return f.svc.ResolveWeek(context.Background(), et(t, "2026-04-12 09:00:00"))
}

func TestResolveUncontestedOriginatingClearsAtFlatPrice(t *testing.T) {
	f := newFixture()
	mustPlace(t, f, "AAA", "p1", 15, BidOriginating, et(t, "2026-04-06 16:00:00"))

	summary, err := resolveSunday(t, f)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if summary.Status != StatusResolved {
		t.Fatalf("status = %s", summary.Status)
	}
	win, ok := summary.Winners["p1"]
	if !ok {
		t.Fatalf("p1 missing from winners: %+v", summary.Winners)
	}
	if win.Team != "AAA" || win.Amount != 10 || win.Source != WinUncontested {
		t.Fatalf("winner = %+v, want AAA at $10 uncontested", win)
	}

	if p, _ := f.roster.FindProspect(context.Background(), "p1"); p == nil || p.Owner != "AAA" {
		t.Fatalf("prospect not assigned: %+v", p)
	}
	if tag := f.roster.tags["p1"]; tag != DefaultContractTag {
		t.Fatalf("contract tag = %q, want %q", tag, DefaultContractTag)
	}
	debits := f.ledger.debitsFor("AAA")
	if len(debits) != 1 || debits[0].amount != 10 {
		t.Fatalf("debits = %+v, want one $10 debit", debits)
	}
}

func TestResolveChallengeTieAndDecision(t *testing.T) {
	monday := et(t, "2026-04-06 16:00:00")
	wed10 := et(t, "2026-04-08 10:00:00")
	wed11 := et(t, "2026-04-08 11:00:00")

	seed := func(t *testing.T, f *fixture, decisions []MatchDecision) {
		seedWeek(t, f, &Week{
			PriorityOrder: []string{"CCC", "BBB", "AAA"},
			Bids: []Bid{
				{ID: "b1", Team: "AAA", ProspectID: "p1", Amount: 10, Kind: BidOriginating, SubmittedAt: monday.UTC()},
				{ID: "b2", Team: "BBB", ProspectID: "p1", Amount: 20, Kind: BidChallenge, SubmittedAt: wed10.UTC()},
				{ID: "b3", Team: "CCC", ProspectID: "p1", Amount: 20, Kind: BidChallenge, SubmittedAt: wed11.UTC()},
			},
			Decisions: decisions,
		})
	}

	t.Run("match keeps prospect at challenge price", func(t *testing.T) {
		f := newFixture()
		seed(t, f, []MatchDecision{{Team: "AAA", ProspectID: "p1", Decision: DecisionMatch}})
		summary, err := resolveSunday(t, f)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		win := summary.Winners["p1"]
		if win.Team != "AAA" || win.Amount != 20 || win.Source != WinMatched {
			t.Fatalf("winner = %+v, want AAA at $20 matched", win)
		}
	})

	t.Run("forfeit sends tie to worse standing", func(t *testing.T) {
		f := newFixture()
		seed(t, f, []MatchDecision{{Team: "AAA", ProspectID: "p1", Decision: DecisionForfeit}})
		summary, err := resolveSunday(t, f)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		win := summary.Winners["p1"]
		if win.Team != "CCC" || win.Amount != 20 || win.Source != WinChallenge {
			t.Fatalf("winner = %+v, want CCC at $20", win)
		}
	})

	t.Run("no decision counts as forfeit", func(t *testing.T) {
		f := newFixture()
		seed(t, f, nil)
		summary, err := resolveSunday(t, f)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		win := summary.Winners["p1"]
		if win.Team != "CCC" || win.Amount != 20 || win.Source != WinChallenge {
			t.Fatalf("winner = %+v, want CCC at $20", win)
		}
	})
}

func TestResolveDropsLatestWinWhenOverBudget(t *testing.T) {
	f := newFixture()
	f.ledger.balances["DDD"] = 50
	monday := et(t, "2026-04-06 16:00:00")

	seedWeek(t, f, &Week{
		Bids: []Bid{
			{ID: "b1", Team: "AAA", ProspectID: "p1", Amount: 10, Kind: BidOriginating, SubmittedAt: monday.UTC()},
			{ID: "b2", Team: "BBB", ProspectID: "p2", Amount: 10, Kind: BidOriginating, SubmittedAt: monday.UTC()},
			{ID: "b3", Team: "DDD", ProspectID: "p1", Amount: 30, Kind: BidChallenge, SubmittedAt: et(t, "2026-04-08 10:00:00").UTC()},
			{ID: "b4", Team: "DDD", ProspectID: "p2", Amount: 40, Kind: BidChallenge, SubmittedAt: et(t, "2026-04-08 11:00:00").UTC()},
		},
	})

	summary, err := resolveSunday(t, f)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// DDD cannot afford both wins, so its later win (p2) is dropped and
	// p2 falls back to its originating bid at the flat price.
	p1 := summary.Winners["p1"]
	if p1.Team != "DDD" || p1.Amount != 30 || p1.Source != WinChallenge {
		t.Fatalf("p1 winner = %+v, want DDD at $30", p1)
	}
	p2 := summary.Winners["p2"]
	if p2.Team != "BBB" || p2.Amount != 10 || p2.Source != WinUncontested {
		t.Fatalf("p2 winner = %+v, want BBB at $10", p2)
	}

	if d := f.ledger.debitsFor("DDD"); len(d) != 1 || d[0].amount != 30 {
		t.Fatalf("DDD debits = %+v, want one $30", d)
	}
	if d := f.ledger.debitsFor("BBB"); len(d) != 1 || d[0].amount != 10 {
		t.Fatalf("BBB debits = %+v, want one $10", d)
	}
	if d := f.ledger.debitsFor("AAA"); len(d) != 0 {
		t.Fatalf("AAA debits = %+v, want none", d)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture()
	mustPlace(t, f, "AAA", "p1", 15, BidOriginating, et(t, "2026-04-06 16:00:00"))

	first, err := resolveSunday(t, f)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := resolveSunday(t, f)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.Status != first.Status || len(second.Winners) != len(first.Winners) {
		t.Fatalf("second resolve diverged: %+v vs %+v", second, first)
	}
	if d := f.ledger.debitsFor("AAA"); len(d) != 1 {
		t.Fatalf("debits = %+v, want exactly one", d)
	}
}

func TestResolveRetriesAfterPartialApply(t *testing.T) {
	f := newFixture()
	monday := et(t, "2026-04-06 16:00:00")
	seedWeek(t, f, &Week{
		Bids: []Bid{
			{ID: "b1", Team: "AAA", ProspectID: "p1", Amount: 10, Kind: BidOriginating, SubmittedAt: monday.UTC()},
			{ID: "b2", Team: "BBB", ProspectID: "p2", Amount: 10, Kind: BidOriginating, SubmittedAt: monday.UTC()},
		},
	})
	f.ledger.failFor["BBB"] = errors.New("ledger down")

	if _, err := resolveSunday(t, f); err == nil {
		t.Fatalf("expected first resolve to fail")
	}
	if d := f.ledger.debitsFor("AAA"); len(d) != 1 {
		t.Fatalf("AAA debits after failed run = %+v, want one", d)
	}

	delete(f.ledger.failFor, "BBB")
	summary, err := resolveSunday(t, f)
	if err != nil {
		t.Fatalf("retry resolve: %v", err)
	}
	if summary.Status != StatusResolved || len(summary.Winners) != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if d := f.ledger.debitsFor("AAA"); len(d) != 1 {
		t.Fatalf("AAA double-debited: %+v", d)
	}
	if d := f.ledger.debitsFor("BBB"); len(d) != 1 {
		t.Fatalf("BBB debits = %+v, want one", d)
	}

	week, err := f.store.Load(context.Background(), "2026-04-06")
	if err != nil || week == nil {
		t.Fatalf("load week: %v", err)
	}
	if len(week.AppliedTeams) != 2 {
		t.Fatalf("applied teams = %v", week.AppliedTeams)
	}
}

func TestResolveInactiveAndEmptyWeeks(t *testing.T) {
	f := newFixture()
	summary, err := f.svc.ResolveWeek(context.Background(), et(t, "2026-03-29 09:00:00"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if summary.Status != StatusInactive {
		t.Fatalf("status = %s, want %s", summary.Status, StatusInactive)
	}

	f = newFixture()
	summary, err = resolveSunday(t, f)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if summary.Status != StatusNoBids {
		t.Fatalf("status = %s, want %s", summary.Status, StatusNoBids)
	}
	if len(summary.Winners) != 0 {
		t.Fatalf("winners = %+v, want none", summary.Winners)
	}
}

func TestResolveMatchedPriceFollowsHighestChallenge(t *testing.T) {
	f := newFixture()
	monday := et(t, "2026-04-06 16:00:00")
	seedWeek(t, f, &Week{
		Bids: []Bid{
			{ID: "b1", Team: "AAA", ProspectID: "p1", Amount: 10, Kind: BidOriginating, SubmittedAt: monday.UTC()},
			{ID: "b2", Team: "BBB", ProspectID: "p1", Amount: 15, Kind: BidChallenge, SubmittedAt: et(t, "2026-04-08 10:00:00").UTC()},
			{ID: "b3", Team: "CCC", ProspectID: "p1", Amount: 25, Kind: BidChallenge, SubmittedAt: et(t, "2026-04-09 10:00:00").UTC()},
		},
		Decisions: []MatchDecision{{Team: "AAA", ProspectID: "p1", Decision: DecisionMatch, DecidedAt: time.Now().UTC()}},
	})

	summary, err := resolveSunday(t, f)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	win := summary.Winners["p1"]
	if win.Team != "AAA" || win.Amount != 25 || win.Source != WinMatched {
		t.Fatalf("winner = %+v, want AAA matching at $25", win)
	}
}
