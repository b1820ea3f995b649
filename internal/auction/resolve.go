package auction

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ResolveWeek runs the Sunday processing pass: tentative winners,
// affordability enforcement, then ownership and ledger application.
// It is idempotent; re-invoking on a resolved week returns the stored
// summary and issues no further debits. A run interrupted partway
// through applying results is safe to retry: apply is keyed by
// (week, team) and already-applied teams are skipped.
func (s *Service) ResolveWeek(ctx context.Context, now time.Time) (Summary, error) {
	weekStart := WeekStartFor(now, s.sched)
	if err := s.lockWeek(weekStart); err != nil {
		return Summary{}, err
	}
	defer s.unlockWeek(weekStart)

	week, err := s.loadOrInitWeek(ctx, now)
	if err != nil {
		return Summary{}, err
	}

	if week.Resolution != nil {
		// Already resolved; finish any interrupted apply and return
		// the stored summary.
		if err := s.applyResolution(ctx, week, now); err != nil {
			return *week.Resolution, err
		}
		return *week.Resolution, nil
	}

	if !week.Schedule.Active(now) {
		return Summary{Status: StatusInactive, Winners: map[string]WinningBid{}}, nil
	}
	if len(week.Bids) == 0 {
		return Summary{Status: StatusNoBids, Winners: map[string]WinningBid{}}, nil
	}

	balances, err := s.balancesFor(ctx, week)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Status:  StatusResolved,
		Winners: resolveWinners(week, balances),
	}

	// Pin the computed winners before touching the roster or ledger so
	// a retry after a partial apply replays the same allocation instead
	// of re-deriving one against already-debited balances.
	week.Resolution = &summary
	week.Phase = PhaseProcessing
	week.LastUpdated = now.UTC()
	if err := s.store.Save(ctx, week); err != nil {
		return Summary{}, fmt.Errorf("save week %s: %w", week.WeekStart, err)
	}

	if err := s.applyResolution(ctx, week, now); err != nil {
		return summary, err
	}

	s.log.Info("week resolved", "week_start", week.WeekStart, "winners", len(summary.Winners))
	return summary, nil
}

func (s *Service) balancesFor(ctx context.Context, week *Week) (map[string]int, error) {
	balances := make(map[string]int)
	for _, b := range week.Bids {
		if _, ok := balances[b.Team]; ok {
			continue
		}
		balance, err := s.ledger.Balance(ctx, b.Team)
		if err != nil {
			return nil, fmt.Errorf("balance lookup for %s: %w", b.Team, err)
		}
		balances[b.Team] = balance
	}
	return balances, nil
}

// outcome is a tentative per-prospect result. SubmittedAt is the
// timestamp of the bid that produced the win, which drives the
// drop-latest-first affordability rule.
type outcome struct {
	Team        string
	Amount      int
	Source      string
	SubmittedAt time.Time
}

// resolveWinners computes the final allocation: tentative winners per
// prospect, then a bounded fixed-point loop that drops an over-budget
// team's latest win and re-derives that one prospect with the team
// excluded. Each step permanently removes one (prospect, team) pair,
// so the loop terminates after at most len(bids) steps.
func resolveWinners(week *Week, balances map[string]int) map[string]WinningBid {
	prio := make(map[string]int, len(week.PriorityOrder))
	for i, team := range week.PriorityOrder {
		prio[team] = i
	}

	byProspect := make(map[string][]Bid)
	for _, b := range week.Bids {
		byProspect[b.ProspectID] = append(byProspect[b.ProspectID], b)
	}

	outcomes := make(map[string]outcome)
	for pid, pbids := range byProspect {
		if o := tentativeOutcome(pbids, week.Decisions, prio, nil); o != nil {
			outcomes[pid] = *o
		}
	}

	removed := make(map[string]map[string]bool)
	for step := 0; step < len(week.Bids); step++ {
		team, ok := overBudgetTeam(outcomes, balances)
		if !ok {
			break
		}
		pid := latestWin(outcomes, team)
		if removed[pid] == nil {
			removed[pid] = make(map[string]bool)
		}
		removed[pid][team] = true
		delete(outcomes, pid)
		if o := tentativeOutcome(byProspect[pid], week.Decisions, prio, removed[pid]); o != nil {
			outcomes[pid] = *o
		}
	}

	winners := make(map[string]WinningBid, len(outcomes))
	for pid, o := range outcomes {
		winners[pid] = WinningBid{Team: o.Team, Amount: o.Amount, Source: o.Source}
	}
	return winners
}

// tentativeOutcome derives the winner for one prospect's bid set,
// ignoring affordability. removed teams are excluded from both bids
// and decisions.
func tentativeOutcome(bids []Bid, decisions []MatchDecision, prio map[string]int, removed map[string]bool) *outcome {
	var ob *Bid
	var cbs []Bid
	for i := range bids {
		if removed[bids[i].Team] {
			continue
		}
		switch bids[i].Kind {
		case BidOriginating:
			if ob == nil {
				ob = &bids[i]
			}
		case BidChallenge:
			cbs = append(cbs, bids[i])
		}
	}
	if ob == nil && len(cbs) == 0 {
		return nil
	}

	var best *Bid
	for i := range cbs {
		c := &cbs[i]
		if best == nil || c.Amount > best.Amount ||
			(c.Amount == best.Amount && beatsTie(c.Team, best.Team, prio)) {
			best = c
		}
	}

	// No challenges: originating team wins at the flat minimum, not at
	// its stated amount. Preserved league behavior.
	if best == nil {
		return &outcome{Team: ob.Team, Amount: MinOriginatingBid, Source: WinUncontested, SubmittedAt: ob.SubmittedAt}
	}

	if ob != nil && decisionFor(decisions, ob.Team, ob.ProspectID, removed) == DecisionMatch {
		return &outcome{Team: ob.Team, Amount: best.Amount, Source: WinMatched, SubmittedAt: best.SubmittedAt}
	}
	return &outcome{Team: best.Team, Amount: best.Amount, Source: WinChallenge, SubmittedAt: best.SubmittedAt}
}

// beatsTie reports whether team a outranks team b for equal challenge
// amounts: lower priority index (worse standing) first, team ID as the
// final deterministic tiebreak.
func beatsTie(a, b string, prio map[string]int) bool {
	ia, ib := priorityIndex(a, prio), priorityIndex(b, prio)
	if ia != ib {
		return ia < ib
	}
	return a < b
}

func priorityIndex(team string, prio map[string]int) int {
	if i, ok := prio[team]; ok {
		return i
	}
	return len(prio) + 1
}

func decisionFor(decisions []MatchDecision, team, prospectID string, removed map[string]bool) Decision {
	for _, d := range decisions {
		if removed[d.Team] {
			continue
		}
		if d.Team == team && d.ProspectID == prospectID {
			return d.Decision
		}
	}
	return ""
}

// overBudgetTeam returns the first team (in sorted order, for
// determinism) whose tentative spend exceeds its balance.
func overBudgetTeam(outcomes map[string]outcome, balances map[string]int) (string, bool) {
	totals := make(map[string]int)
	for _, o := range outcomes {
		totals[o.Team] += o.Amount
	}
	teams := make([]string, 0, len(totals))
	for team := range totals {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	for _, team := range teams {
		if totals[team] > balances[team] {
			return team, true
		}
	}
	return "", false
}

// latestWin returns the prospect whose win the team acquired most
// recently, by the submitted-at of the producing bid.
func latestWin(outcomes map[string]outcome, team string) string {
	best := ""
	var bestAt time.Time
	for pid, o := range outcomes {
		if o.Team != team {
			continue
		}
		if best == "" || o.SubmittedAt.After(bestAt) ||
			(o.SubmittedAt.Equal(bestAt) && pid > best) {
			best = pid
			bestAt = o.SubmittedAt
		}
	}
	return best
}

// applyResolution pushes final results into the roster and ledger,
// one team at a time. Each completed team is recorded on the week and
// persisted before moving on, so a collaborator fault partway through
// leaves the run retryable without rolling back or double-debiting.
func (s *Service) applyResolution(ctx context.Context, week *Week, now time.Time) error {
	if week.Resolution == nil || week.Resolution.Status != StatusResolved {
		return nil
	}

	totals := make(map[string]int)
	prospects := make(map[string][]string)
	for pid, win := range week.Resolution.Winners {
		totals[win.Team] += win.Amount
		prospects[win.Team] = append(prospects[win.Team], pid)
	}

	applied := make(map[string]bool, len(week.AppliedTeams))
	for _, team := range week.AppliedTeams {
		applied[team] = true
	}

	teams := make([]string, 0, len(totals))
	for team := range totals {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	for _, team := range teams {
		if applied[team] {
			continue
		}
		pids := prospects[team]
		sort.Strings(pids)
		for _, pid := range pids {
			if err := s.roster.AssignOwner(ctx, pid, team, DefaultContractTag); err != nil {
				return fmt.Errorf("assign prospect %s to %s: %w", pid, team, err)
			}
		}
		if err := s.ledger.Debit(ctx, team, totals[team], "prospect auction week "+week.WeekStart); err != nil {
			return fmt.Errorf("debit %s: %w", team, err)
		}
		week.AppliedTeams = append(week.AppliedTeams, team)
		week.LastUpdated = now.UTC()
		if err := s.store.Save(ctx, week); err != nil {
			return fmt.Errorf("save week %s: %w", week.WeekStart, err)
		}
	}
	return nil
}
