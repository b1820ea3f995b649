// Package bot is the Discord surface of the prospect auction. It maps
// slash commands onto the auction engine and renders rejections
// verbatim; no rules live here.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/zpressley/fbp-auction/internal/auction"
	"github.com/zpressley/fbp-auction/internal/config"
)

// TeamDirectory resolves a Discord user to their league team.
type TeamDirectory interface {
	TeamByDiscordID(ctx context.Context, discordID string) (string, error)
}

var phaseText = map[auction.Phase]string{
	auction.PhaseOffWeek:           "No auction this week.",
	auction.PhaseOriginatingWindow: "Originating bids are open (Mon 3pm-Tue night).",
	auction.PhaseChallengeWindow:   "Challenge bids are open (Wed-Fri 9pm).",
	auction.PhaseOriginatingFinal:  "OB managers may match or forfeit (Saturday).",
	auction.PhaseProcessing:        "Auction is processing (Sunday).",
}

type Bot struct {
	cfg     config.BotConfig
	log     *slog.Logger
	svc     *auction.Service
	teams   TeamDirectory
	session *discordgo.Session
}

func New(cfg config.BotConfig, logger *slog.Logger, svc *auction.Service, teams TeamDirectory) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		cfg:     cfg,
		log:     logger,
		svc:     svc,
		teams:   teams,
		session: session,
	}
	session.AddHandler(b.handleInteraction)
	return b, nil
}

// Start opens the gateway connection and registers the slash commands
// for the configured guild.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, commands()); err != nil {
		b.session.Close()
		return fmt.Errorf("register commands: %w", err)
	}
	b.log.Info("auction bot connected", "user", b.session.State.User.Username)
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func commands() []*discordgo.ApplicationCommand {
	kindChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Originating Bid (OB)", Value: string(auction.BidOriginating)},
		{Name: "Challenge Bid (CB)", Value: string(auction.BidChallenge)},
	}
	decisionChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Match", Value: string(auction.DecisionMatch)},
		{Name: "Forfeit", Value: string(auction.DecisionForfeit)},
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        "auction",
			Description: "View the current prospect auction phase",
		},
		{
			Name:        "bid",
			Description: "Place an Originating Bid (OB) or Challenge Bid (CB)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prospect",
					Description: "Prospect identifier (id or exact name)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Bid amount in WizBucks",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "OB or CB",
					Required:    true,
					Choices:     kindChoices,
				},
			},
		},
		{
			Name:        "decide",
			Description: "Match or forfeit the leading challenge on your OB",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prospect",
					Description: "Prospect identifier",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "decision",
					Description: "match or forfeit",
					Required:    true,
					Choices:     decisionChoices,
				},
			},
		},
		{
			Name:        "wizbucks",
			Description: "Show your WizBucks balance and committed total",
		},
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	team, err := b.callerTeam(ctx, i)
	if err != nil {
		b.log.Error("team lookup failed", "err", err)
		b.reply(s, i, "Something went wrong looking up your team. Try again.")
		return
	}
	if team == "" {
		b.reply(s, i, "You are not mapped to an FBP team. Contact an admin to be linked.")
		return
	}

	switch i.ApplicationCommandData().Name {
	case "auction":
		b.handleStatus(ctx, s, i, team)
	case "bid":
		b.handleBid(ctx, s, i, team)
	case "decide":
		b.handleDecide(ctx, s, i, team)
	case "wizbucks":
		b.handleWizbucks(ctx, s, i, team)
	}
}

func (b *Bot) callerTeam(ctx context.Context, i *discordgo.InteractionCreate) (string, error) {
	var userID string
	if i.Member != nil && i.Member.User != nil {
		userID = i.Member.User.ID
	} else if i.User != nil {
		userID = i.User.ID
	}
	if userID == "" {
		return "", nil
	}
	return b.teams.TeamByDiscordID(ctx, userID)
}

func (b *Bot) handleStatus(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, team string) {
	phase, err := b.svc.CurrentPhase(ctx, time.Now())
	if err != nil {
		b.log.Error("phase lookup failed", "err", err)
		b.reply(s, i, "Could not read the auction state. Try again.")
		return
	}
	b.reply(s, i, fmt.Sprintf("**Weekly Prospect Auction**\n%s\nYour team: `%s`", phaseText[phase], team))
}

func (b *Bot) handleBid(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, team string) {
	opts := optionMap(i)
	bid, _, err := b.svc.PlaceBid(ctx, auction.BidInput{
		Team:       team,
		ProspectID: opts["prospect"].StringValue(),
		Amount:     int(opts["amount"].IntValue()),
		Kind:       auction.BidKind(opts["kind"].StringValue()),
		Now:        time.Now(),
	})
	if err != nil {
		b.replyDomainError(s, i, err)
		return
	}
	b.reply(s, i, fmt.Sprintf("Bid placed: %s $%d on `%s`.", bid.Kind, bid.Amount, bid.ProspectID))
}

func (b *Bot) handleDecide(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, team string) {
	opts := optionMap(i)
	record, err := b.svc.RecordDecision(ctx, auction.DecisionInput{
		Team:       team,
		ProspectID: opts["prospect"].StringValue(),
		Decision:   opts["decision"].StringValue(),
		Source:     "discord",
		Now:        time.Now(),
	})
	if err != nil {
		b.replyDomainError(s, i, err)
		return
	}
	b.reply(s, i, fmt.Sprintf("Recorded **%s** for `%s`. Decisions are final.", record.Decision, record.ProspectID))
}

func (b *Bot) handleWizbucks(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, team string) {
	balance, committed, err := b.svc.Wallet(ctx, team, time.Now())
	if err != nil {
		b.log.Error("wallet lookup failed", "err", err)
		b.reply(s, i, "Could not read your WizBucks. Try again.")
		return
	}
	b.reply(s, i, fmt.Sprintf("`%s` has $%d WB (committed $%d, available $%d).",
		team, balance, committed, balance-committed))
}

func (b *Bot) replyDomainError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if auction.IsRejection(err) {
		msg := err.Error()
		b.reply(s, i, strings.ToUpper(msg[:1])+msg[1:])
		return
	}
	b.log.Error("command failed", "err", err)
	b.reply(s, i, "Something went wrong. Try again or ping an admin.")
}

func (b *Bot) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Error("interaction respond failed", "err", err)
	}
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}
