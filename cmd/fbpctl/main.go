package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "github.com/zpressley/fbp-auction/internal/cli"
	"github.com/zpressley/fbp-auction/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()

	root := &cobra.Command{
		Use:          "fbpctl",
		Short:        "FBP prospect auction CLI",
		SilenceUsage: true,
	}

	root.AddCommand(
		newPhaseCmd(&cfg),
		newWeekCmd(&cfg),
		newBidCmd(&cfg),
		newDecideCmd(&cfg),
		newWizbucksCmd(&cfg),
		newResolveCmd(&cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(cfg *config.CLIConfig) *cl.Client {
	return cl.NewClient(cfg.APIBaseURL, cfg.AdminKey)
}

func requireTeam(cfg *config.CLIConfig, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.ToUpper(strings.TrimSpace(args[0])), nil
	}
	if cfg.Team != "" {
		return strings.ToUpper(cfg.Team), nil
	}
	return "", fmt.Errorf("team required: pass it as an argument or set FBPCTL_TEAM")
}

func newPhaseCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "phase",
		Short: "Show the current auction phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(cfg).Phase(ctx)
			if err != nil {
				return err
			}
			return renderPhase(out)
		},
	}
}

func newWeekCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show the current auction week: bids, decisions, priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(cfg).Week(ctx)
			if err != nil {
				return err
			}
			return renderWeek(out)
		},
	}
}

func newBidCmd(cfg *config.CLIConfig) *cobra.Command {
	var team string
	var kind string
	cmd := &cobra.Command{
		Use:   "bid PROSPECT AMOUNT",
		Short: "Place an originating or challenge bid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bidTeam, err := requireTeam(cfg, []string{team})
			if err != nil {
				return err
			}
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("amount must be a whole dollar figure: %q", args[1])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(cfg).PlaceBid(ctx, bidTeam, args[0], amount, strings.ToUpper(kind))
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Bid recorded: %s $%d on %s", strings.ToUpper(kind), amount, args[0]))
			return renderBid(out)
		},
	}
	cmd.Flags().StringVarP(&team, "team", "t", "", "team abbreviation (defaults to FBPCTL_TEAM)")
	cmd.Flags().StringVarP(&kind, "kind", "k", "OB", "bid kind: OB or CB")
	return cmd
}

func newDecideCmd(cfg *config.CLIConfig) *cobra.Command {
	var team string
	cmd := &cobra.Command{
		Use:   "decide PROSPECT match|forfeit",
		Short: "Record a match-or-forfeit decision on a challenged prospect",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decTeam, err := requireTeam(cfg, []string{team})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(cfg).RecordDecision(ctx, decTeam, args[0], strings.ToLower(args[1]))
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Decision recorded: %s on %s", strings.ToLower(args[1]), args[0]))
			return renderDecision(out)
		},
	}
	cmd.Flags().StringVarP(&team, "team", "t", "", "team abbreviation (defaults to FBPCTL_TEAM)")
	return cmd
}

func newWizbucksCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "wizbucks [TEAM]",
		Short: "Show a team's WizBucks balance and committed bids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := requireTeam(cfg, args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(cfg).Wizbucks(ctx, team)
			if err != nil {
				return err
			}
			return renderWizbucks(team, out)
		},
	}
}

func newResolveCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Run weekly resolution (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(cfg.AdminKey) == "" {
				return fmt.Errorf("FBP_ADMIN_KEY is required for resolve")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			out, err := newClient(cfg).Resolve(ctx)
			if err != nil {
				return err
			}
			return renderResolution(out)
		},
	}
}
