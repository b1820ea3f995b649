package auction

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLockWait bounds how long a mutating operation waits for a
// week's lock before failing with ErrWeekBusy.
const DefaultLockWait = 5 * time.Second

// Service is the auction engine. All rule enforcement for the weekly
// prospect auction lives here so Discord commands, HTTP handlers, and
// the scheduled resolution job share one source of truth.
//
// Mutating operations are linearized per week: the load-validate-
// append-save cycle runs under a lock keyed by the week-start date, so
// concurrent bids cannot both validate against a stale snapshot.
type Service struct {
	store     WeekStore
	roster    Roster
	ledger    Ledger
	standings Standings
	sched     Schedule
	log       *slog.Logger

	lockWait time.Duration

	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewService(store WeekStore, roster Roster, ledger Ledger, standings Standings, sched Schedule, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		roster:    roster,
		ledger:    ledger,
		standings: standings,
		sched:     sched,
		log:       logger,
		lockWait:  DefaultLockWait,
		locks:     make(map[string]chan struct{}),
	}
}

// SetLockWait overrides the per-week lock acquisition timeout.
func (s *Service) SetLockWait(d time.Duration) {
	if d > 0 {
		s.lockWait = d
	}
}

func (s *Service) lockWeek(weekStart string) error {
	s.mu.Lock()
	ch, ok := s.locks[weekStart]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[weekStart] = ch
	}
	s.mu.Unlock()

	t := time.NewTimer(s.lockWait)
	defer t.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-t.C:
		return fmt.Errorf("%w: week %s", ErrWeekBusy, weekStart)
	}
}

func (s *Service) unlockWeek(weekStart string) {
	s.mu.Lock()
	ch := s.locks[weekStart]
	s.mu.Unlock()
	<-ch
}

// loadOrInitWeek returns the record for the week containing now,
// creating and persisting a fresh one on first touch. Callers must
// hold the week lock.
func (s *Service) loadOrInitWeek(ctx context.Context, now time.Time) (*Week, error) {
	weekStart := WeekStartFor(now, s.sched)
	week, err := s.store.Load(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("load week %s: %w", weekStart, err)
	}
	if week != nil {
		return week, nil
	}

	order, err := s.standings.PriorityOrder(ctx)
	if err != nil || len(order) == 0 {
		if err != nil {
			s.log.Warn("standings unavailable, falling back to alphabetical priority", "err", err)
		}
		teams, terr := s.roster.Teams(ctx)
		if terr != nil {
			return nil, fmt.Errorf("priority fallback: %w", terr)
		}
		sort.Strings(teams)
		order = teams
	}

	week = &Week{
		WeekStart:     weekStart,
		Phase:         PhaseFor(now, s.sched),
		PriorityOrder: order,
		Schedule:      s.sched,
		LastUpdated:   now.UTC(),
	}
	if err := s.store.Save(ctx, week); err != nil {
		return nil, fmt.Errorf("init week %s: %w", weekStart, err)
	}
	s.log.Info("initialized auction week", "week_start", weekStart, "phase", week.Phase)
	return week, nil
}

// CurrentPhase returns the phase for now, lazily creating the week
// record on first touch so its schedule snapshot is pinned.
func (s *Service) CurrentPhase(ctx context.Context, now time.Time) (Phase, error) {
	weekStart := WeekStartFor(now, s.sched)
	if err := s.lockWeek(weekStart); err != nil {
		return PhaseOffWeek, err
	}
	defer s.unlockWeek(weekStart)

	week, err := s.loadOrInitWeek(ctx, now)
	if err != nil {
		return PhaseOffWeek, err
	}
	return PhaseFor(now, week.Schedule), nil
}

// WeekSnapshot returns a copy of the current week record.
func (s *Service) WeekSnapshot(ctx context.Context, now time.Time) (*Week, error) {
	weekStart := WeekStartFor(now, s.sched)
	if err := s.lockWeek(weekStart); err != nil {
		return nil, err
	}
	defer s.unlockWeek(weekStart)

	week, err := s.loadOrInitWeek(ctx, now)
	if err != nil {
		return nil, err
	}
	snapshot := *week
	snapshot.Phase = PhaseFor(now, week.Schedule)
	return &snapshot, nil
}

// BidInput carries one bid submission. Now is explicit so the rules
// stay deterministic and testable.
type BidInput struct {
	Team       string
	ProspectID string
	Amount     int
	Kind       BidKind
	Now        time.Time
}

// PlaceBid validates and appends a bid, returning it with the
// recomputed phase. Checks short-circuit in a fixed order so each
// failure mode has a distinct rejection.
func (s *Service) PlaceBid(ctx context.Context, in BidInput) (Bid, Phase, error) {
	weekStart := WeekStartFor(in.Now, s.sched)
	if err := s.lockWeek(weekStart); err != nil {
		return Bid{}, PhaseOffWeek, err
	}
	defer s.unlockWeek(weekStart)

	week, err := s.loadOrInitWeek(ctx, in.Now)
	if err != nil {
		return Bid{}, PhaseOffWeek, err
	}

	if !week.Schedule.Active(in.Now) {
		return Bid{}, PhaseOffWeek, ErrWeekInactive
	}
	phase := PhaseFor(in.Now, week.Schedule)
	switch phase {
	case PhaseOffWeek:
		return Bid{}, phase, ErrBidsClosed
	case PhaseProcessing:
		return Bid{}, phase, ErrProcessingClosed
	}

	kind := BidKind(strings.ToUpper(strings.TrimSpace(string(in.Kind))))
	switch kind {
	case BidOriginating:
		if phase != PhaseOriginatingWindow {
			return Bid{}, phase, ErrOriginatingClosed
		}
	case BidChallenge:
		if phase != PhaseChallengeWindow {
			return Bid{}, phase, ErrChallengeClosed
		}
	default:
		return Bid{}, phase, ErrInvalidBidKind
	}

	team := strings.ToUpper(strings.TrimSpace(in.Team))
	known, err := s.roster.IsKnownTeam(ctx, team)
	if err != nil {
		return Bid{}, phase, fmt.Errorf("roster lookup: %w", err)
	}
	if !known {
		return Bid{}, phase, fmt.Errorf("%w: %s", ErrUnknownTeam, team)
	}
	if in.Amount <= 0 {
		return Bid{}, phase, ErrNonPositiveAmount
	}

	prospect, err := s.roster.FindProspect(ctx, strings.TrimSpace(in.ProspectID))
	if err != nil {
		return Bid{}, phase, fmt.Errorf("prospect lookup: %w", err)
	}
	if prospect == nil {
		return Bid{}, phase, ErrProspectNotFound
	}
	if prospect.Owner != "" {
		return Bid{}, phase, ErrProspectOwned
	}

	localDate := in.Now.In(week.Schedule.location()).Format(dateLayout)

	switch kind {
	case BidOriginating:
		if in.Amount < MinOriginatingBid {
			return Bid{}, phase, ErrBelowMinimumBid
		}
		for _, b := range week.Bids {
			if b.Kind != BidOriginating {
				continue
			}
			if b.Team == team {
				return Bid{}, phase, ErrTeamHasOriginating
			}
			if b.ProspectID == prospect.ID {
				return Bid{}, phase, ErrProspectHasOriginating
			}
		}
	case BidChallenge:
		obTeam := originatingTeam(week.Bids, prospect.ID)
		if obTeam == "" {
			return Bid{}, phase, ErrNoOriginatingBid
		}
		if obTeam == team {
			return Bid{}, phase, ErrOwnOriginatingBid
		}
		high := highBid(week.Bids, prospect.ID)
		if in.Amount < high+MinRaise {
			return Bid{}, phase, fmt.Errorf("%w: must be at least $%d above current high ($%d)", ErrInsufficientRaise, MinRaise, high)
		}
		for _, b := range week.Bids {
			if b.Kind == BidChallenge && b.Team == team && b.ProspectID == prospect.ID && b.LocalDate == localDate {
				return Bid{}, phase, ErrDailyChallengeUsed
			}
		}
	}

	// Soft affordability gate. Resolution re-checks against fresh
	// balances, so this only stops obviously unaffordable bids.
	balance, err := s.ledger.Balance(ctx, team)
	if err != nil {
		return Bid{}, phase, fmt.Errorf("balance lookup: %w", err)
	}
	committed := committedTotal(week.Bids, team)
	if committed+in.Amount > balance {
		return Bid{}, phase, fmt.Errorf("%w: $%d available (total $%d, committed $%d)",
			ErrInsufficientFunds, balance-committed, balance, committed)
	}

	bid := Bid{
		ID:          uuid.NewString(),
		Team:        team,
		ProspectID:  prospect.ID,
		Amount:      in.Amount,
		Kind:        kind,
		SubmittedAt: in.Now.UTC(),
		LocalDate:   localDate,
	}
	week.Bids = append(week.Bids, bid)
	week.Phase = phase
	week.LastUpdated = in.Now.UTC()
	if err := s.store.Save(ctx, week); err != nil {
		return Bid{}, phase, fmt.Errorf("save week %s: %w", week.WeekStart, err)
	}

	s.log.Info("bid placed",
		"week_start", week.WeekStart, "team", team,
		"prospect", prospect.ID, "amount", in.Amount, "kind", kind)
	return bid, phase, nil
}

// DecisionInput carries one match/forfeit decision.
type DecisionInput struct {
	Team       string
	ProspectID string
	Decision   string
	Source     string
	Now        time.Time
}

// RecordDecision validates and appends a Match or Forfeit. Decisions
// are final; a second attempt is rejected.
func (s *Service) RecordDecision(ctx context.Context, in DecisionInput) (MatchDecision, error) {
	weekStart := WeekStartFor(in.Now, s.sched)
	if err := s.lockWeek(weekStart); err != nil {
		return MatchDecision{}, err
	}
	defer s.unlockWeek(weekStart)

	week, err := s.loadOrInitWeek(ctx, in.Now)
	if err != nil {
		return MatchDecision{}, err
	}

	if !week.Schedule.Active(in.Now) {
		return MatchDecision{}, ErrWeekInactive
	}
	if PhaseFor(in.Now, week.Schedule) != PhaseOriginatingFinal {
		return MatchDecision{}, ErrDecisionClosed
	}

	decision := Decision(strings.ToLower(strings.TrimSpace(in.Decision)))
	if decision != DecisionMatch && decision != DecisionForfeit {
		return MatchDecision{}, ErrInvalidDecision
	}

	team := strings.ToUpper(strings.TrimSpace(in.Team))
	prospectID := strings.TrimSpace(in.ProspectID)

	obTeam := originatingTeam(week.Bids, prospectID)
	if obTeam == "" {
		return MatchDecision{}, ErrNoOriginatingBid
	}
	if obTeam != team {
		return MatchDecision{}, ErrNotOriginatingTeam
	}
	for _, d := range week.Decisions {
		if d.Team == team && d.ProspectID == prospectID {
			return MatchDecision{}, ErrAlreadyDecided
		}
	}

	record := MatchDecision{
		Team:       team,
		ProspectID: prospectID,
		Decision:   decision,
		DecidedAt:  in.Now.UTC(),
		Source:     in.Source,
	}
	week.Decisions = append(week.Decisions, record)
	week.LastUpdated = in.Now.UTC()
	if err := s.store.Save(ctx, week); err != nil {
		return MatchDecision{}, fmt.Errorf("save week %s: %w", week.WeekStart, err)
	}

	s.log.Info("decision recorded",
		"week_start", week.WeekStart, "team", team,
		"prospect", prospectID, "decision", decision, "source", in.Source)
	return record, nil
}

// Wallet reports a team's ledger balance alongside its currently
// committed total for the week containing now.
func (s *Service) Wallet(ctx context.Context, team string, now time.Time) (balance, committed int, err error) {
	team = strings.ToUpper(strings.TrimSpace(team))
	balance, err = s.ledger.Balance(ctx, team)
	if err != nil {
		return 0, 0, fmt.Errorf("balance lookup: %w", err)
	}
	week, err := s.store.Load(ctx, WeekStartFor(now, s.sched))
	if err != nil {
		return 0, 0, fmt.Errorf("load week: %w", err)
	}
	if week != nil {
		committed = committedTotal(week.Bids, team)
	}
	return balance, committed, nil
}

// originatingTeam returns the team holding the prospect's originating
// bid, or "" when there is none.
func originatingTeam(bids []Bid, prospectID string) string {
	for _, b := range bids {
		if b.Kind == BidOriginating && b.ProspectID == prospectID {
			return b.Team
		}
	}
	return ""
}

// highBid returns the current high bid amount on a prospect across
// both bid kinds.
func highBid(bids []Bid, prospectID string) int {
	high := 0
	for _, b := range bids {
		if b.ProspectID == prospectID && b.Amount > high {
			high = b.Amount
		}
	}
	return high
}

// committedTotal sums the amounts on prospects where team currently
// holds the high bid. Ties go to the earliest submission because bids
// are scanned in submission order and only strict raises take over.
func committedTotal(bids []Bid, team string) int {
	type holder struct {
		team   string
		amount int
	}
	highs := make(map[string]holder)
	for _, b := range bids {
		if b.Amount > highs[b.ProspectID].amount {
			highs[b.ProspectID] = holder{team: b.Team, amount: b.Amount}
		}
	}
	total := 0
	for _, h := range highs {
		if h.team == team {
			total += h.amount
		}
	}
	return total
}
