package auction

import "context"

// Prospect is the slice of the roster record the engine needs. An
// empty Owner means the prospect is unowned and eligible.
type Prospect struct {
	ID    string
	Name  string
	Owner string
}

// WeekStore persists week records, keyed by week-start date. Load
// returns (nil, nil) when no record exists yet.
type WeekStore interface {
	Load(ctx context.Context, weekStart string) (*Week, error)
	Save(ctx context.Context, week *Week) error
}

// Roster is the catalog of teams and prospects. It is shared with the
// draft and trade subsystems; the auction engine is a client of it,
// not its owner.
type Roster interface {
	IsKnownTeam(ctx context.Context, team string) (bool, error)
	Teams(ctx context.Context) ([]string, error)
	FindProspect(ctx context.Context, prospectID string) (*Prospect, error)
	AssignOwner(ctx context.Context, prospectID, team, defaultTag string) error
}

// Ledger holds each team's spendable WizBucks. Resolution issues one
// debit per team per week, not one per prospect.
type Ledger interface {
	Balance(ctx context.Context, team string) (int, error)
	Debit(ctx context.Context, team string, amount int, reason string) error
}

// Standings supplies the weekly priority order, worst record first.
type Standings interface {
	PriorityOrder(ctx context.Context) ([]string, error)
}
