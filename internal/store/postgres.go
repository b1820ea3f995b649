// Package store implements the auction engine's collaborators on
// Postgres: the per-week state record, the roster/prospect catalog,
// the WizBucks ledger, and the standings-derived priority order.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zpressley/fbp-auction/internal/auction"
)

// Weeks persists week records as one JSONB row per week-start date.
// Records are independent of each other, matching how the engine
// loads and saves them.
type Weeks struct {
	db *pgxpool.Pool
}

func NewWeeks(db *pgxpool.Pool) *Weeks {
	return &Weeks{db: db}
}

func (s *Weeks) Load(ctx context.Context, weekStart string) (*auction.Week, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT state
		FROM auction.weeks
		WHERE week_start = $1
	`, weekStart).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var week auction.Week
	if err := json.Unmarshal(raw, &week); err != nil {
		return nil, fmt.Errorf("decode week %s: %w", weekStart, err)
	}
	return &week, nil
}

func (s *Weeks) Save(ctx context.Context, week *auction.Week) error {
	raw, err := json.Marshal(week)
	if err != nil {
		return fmt.Errorf("encode week %s: %w", week.WeekStart, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO auction.weeks (week_start, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (week_start) DO UPDATE
		SET state = EXCLUDED.state, updated_at = now()
	`, week.WeekStart, raw)
	return err
}

// Roster reads teams and farm prospects from the shared league tables.
// The auction engine only consumes them; drafts and trades own the
// wider schema.
type Roster struct {
	db *pgxpool.Pool
}

func NewRoster(db *pgxpool.Pool) *Roster {
	return &Roster{db: db}
}

func (r *Roster) IsKnownTeam(ctx context.Context, team string) (bool, error) {
	var known bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM league.teams WHERE abbreviation = $1)
	`, team).Scan(&known)
	return known, err
}

func (r *Roster) Teams(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT abbreviation
		FROM league.teams
		ORDER BY abbreviation
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, err
		}
		out = append(out, team)
	}
	return out, rows.Err()
}

// FindProspect resolves by ID first, then by exact name among unowned
// farm prospects. Returns (nil, nil) when nothing matches.
func (r *Roster) FindProspect(ctx context.Context, prospectID string) (*auction.Prospect, error) {
	var p auction.Prospect
	err := r.db.QueryRow(ctx, `
		SELECT player_id, name, COALESCE(manager, '')
		FROM league.players
		WHERE player_id = $1 AND player_type = 'Farm'
	`, prospectID).Scan(&p.ID, &p.Name, &p.Owner)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRow(ctx, `
		SELECT player_id, name, COALESCE(manager, '')
		FROM league.players
		WHERE name = $1 AND player_type = 'Farm'
		  AND (manager IS NULL OR manager = '')
		ORDER BY player_id
		LIMIT 1
	`, prospectID).Scan(&p.ID, &p.Name, &p.Owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Roster) AssignOwner(ctx context.Context, prospectID, team, defaultTag string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE league.players
		SET manager = $2,
		    contract_type = CASE
		        WHEN contract_type IS NULL OR contract_type = '' THEN $3
		        ELSE contract_type
		    END,
		    updated_at = now()
		WHERE player_id = $1
	`, prospectID, team, defaultTag)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("prospect %s not found", prospectID)
	}
	return nil
}

// TeamByDiscordID maps a Discord user to their league team, for the
// bot's slash commands. Returns "" when the user is not linked.
func (r *Roster) TeamByDiscordID(ctx context.Context, discordID string) (string, error) {
	var team string
	err := r.db.QueryRow(ctx, `
		SELECT team
		FROM league.managers
		WHERE discord_id = $1
	`, discordID).Scan(&team)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return team, err
}

// Ledger is the single gate for WizBucks mutations. Every debit
// updates the wallet row and appends a transaction with the resulting
// balance, inside one transaction, so the wallet and the history stay
// in sync.
type Ledger struct {
	db *pgxpool.Pool
}

func NewLedger(db *pgxpool.Pool) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Balance(ctx context.Context, team string) (int, error) {
	var balance int
	err := l.db.QueryRow(ctx, `
		SELECT balance
		FROM league.wizbucks
		WHERE team = $1
	`, team).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (l *Ledger) Debit(ctx context.Context, team string, amount int, reason string) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO league.wizbucks (team, balance)
		VALUES ($1, 0)
		ON CONFLICT (team) DO NOTHING
	`, team); err != nil {
		return err
	}

	var balance int
	if err := tx.QueryRow(ctx, `
		SELECT balance
		FROM league.wizbucks
		WHERE team = $1
		FOR UPDATE
	`, team).Scan(&balance); err != nil {
		return err
	}

	after := balance - amount
	if _, err := tx.Exec(ctx, `
		UPDATE league.wizbucks
		SET balance = $1, updated_at = now()
		WHERE team = $2
	`, after, team); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO league.wizbucks_transactions
		    (tx_group_id, team, amount, balance_after, transaction_type, description)
		VALUES ($1, $2, $3, $4, 'auction_win', $5)
	`, uuid.NewString(), team, -amount, after, reason); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Standings exposes the weekly priority order: worst record first,
// team ID as a stable tiebreak.
type Standings struct {
	db *pgxpool.Pool
}

func NewStandings(db *pgxpool.Pool) *Standings {
	return &Standings{db: db}
}

func (s *Standings) PriorityOrder(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT team
		FROM league.standings
		ORDER BY rank DESC, team
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, err
		}
		out = append(out, team)
	}
	return out, rows.Err()
}
