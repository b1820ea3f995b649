package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zpressley/fbp-auction/internal/auction"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

var phaseLabels = map[auction.Phase]string{
	auction.PhaseOffWeek:           "off week (no auction activity)",
	auction.PhaseOriginatingWindow: "originating bids open (Mon 3pm through Tue night)",
	auction.PhaseChallengeWindow:   "challenge bids open (Wed through Fri 9pm)",
	auction.PhaseOriginatingFinal:  "final originating bids open (Sat until 10pm)",
	auction.PhaseProcessing:        "processing (Sunday resolution)",
}

func decodeInto[T any](raw map[string]any) (T, error) {
	var out T
	buf, err := json.Marshal(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(buf, &out); err != nil {
		return out, err
	}
	return out, nil
}

type phasePayload struct {
	Phase auction.Phase `json:"phase"`
}

type bidPayload struct {
	Bid   auction.Bid   `json:"bid"`
	Phase auction.Phase `json:"phase"`
}

type decisionPayload struct {
	Decision auction.MatchDecision `json:"decision"`
}

type wizbucksPayload struct {
	Team      string `json:"team"`
	Balance   int    `json:"balance"`
	Committed int    `json:"committed"`
	Available int    `json:"available"`
}

func renderPhase(raw map[string]any) error {
	p, err := decodeInto[phasePayload](raw)
	if err != nil {
		return err
	}
	label, ok := phaseLabels[p.Phase]
	if !ok {
		label = string(p.Phase)
	}
	accent.Printf("Phase: %s\n", p.Phase)
	fmt.Println(label)
	return nil
}

func renderWeek(raw map[string]any) error {
	week, err := decodeInto[auction.Week](raw)
	if err != nil {
		return err
	}

	accent.Printf("\n== AUCTION WEEK %s ==\n", week.WeekStart)
	fmt.Printf("Phase:    %s\n", week.Phase)
	fmt.Printf("Priority: %s\n", strings.Join(week.PriorityOrder, " > "))

	fmt.Println()
	accent.Println("Bids")
	if len(week.Bids) == 0 {
		printInfo("No bids this week.")
	} else {
		fmt.Printf("%-6s %-6s %-28s %8s %-22s\n", "KIND", "TEAM", "PROSPECT", "AMOUNT", "SUBMITTED")
		for _, b := range week.Bids {
			fmt.Printf("%-6s %-6s %-28s %8s %-22s\n",
				b.Kind,
				b.Team,
				truncate(b.ProspectID, 28),
				fmt.Sprintf("$%d", b.Amount),
				b.SubmittedAt.Format("2006-01-02 15:04 MST"),
			)
		}
	}

	if len(week.Decisions) > 0 {
		fmt.Println()
		accent.Println("Decisions")
		for _, d := range week.Decisions {
			fmt.Printf("%-6s %-28s %s\n", d.Team, truncate(d.ProspectID, 28), d.Decision)
		}
	}

	if week.Resolution != nil {
		fmt.Println()
		renderSummary(*week.Resolution)
	}
	fmt.Println()
	return nil
}

func renderBid(raw map[string]any) error {
	p, err := decodeInto[bidPayload](raw)
	if err != nil {
		return err
	}
	fmt.Printf("%s bid of $%d by %s on %s (id %s)\n",
		p.Bid.Kind, p.Bid.Amount, p.Bid.Team, p.Bid.ProspectID, p.Bid.ID)
	return nil
}

func renderDecision(raw map[string]any) error {
	p, err := decodeInto[decisionPayload](raw)
	if err != nil {
		return err
	}
	fmt.Printf("%s will %s on %s\n", p.Decision.Team, p.Decision.Decision, p.Decision.ProspectID)
	return nil
}

func renderWizbucks(team string, raw map[string]any) error {
	p, err := decodeInto[wizbucksPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s WIZBUCKS ==\n", team)
	fmt.Printf("Balance:   $%d\n", p.Balance)
	fmt.Printf("Committed: $%d\n", p.Committed)
	fmt.Printf("Available: $%d\n", p.Available)
	fmt.Println()
	return nil
}

func renderResolution(raw map[string]any) error {
	summary, err := decodeInto[auction.Summary](raw)
	if err != nil {
		return err
	}
	renderSummary(summary)
	return nil
}

func renderSummary(summary auction.Summary) {
	accent.Println("Resolution")
	switch summary.Status {
	case auction.StatusInactive:
		warn.Println("Season inactive: no auction ran this week.")
		return
	case auction.StatusNoBids:
		printInfo("No bids were placed this week.")
		return
	}

	prospects := make([]string, 0, len(summary.Winners))
	for pid := range summary.Winners {
		prospects = append(prospects, pid)
	}
	sort.Strings(prospects)

	fmt.Printf("%-28s %-6s %8s %-12s\n", "PROSPECT", "TEAM", "PRICE", "HOW")
	for _, pid := range prospects {
		win := summary.Winners[pid]
		fmt.Printf("%-28s %-6s %8s %-12s\n",
			truncate(pid, 28), win.Team, fmt.Sprintf("$%d", win.Amount), win.Source)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
