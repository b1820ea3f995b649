package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zpressley/fbp-auction/internal/auction"
)

type ServerConfig struct {
	Addr        string
	DatabaseURL string
	AdminKey    string
	Schedule    auction.Schedule
}

type WorkerConfig struct {
	DatabaseURL string
	Schedule    auction.Schedule
	CheckEvery  time.Duration
	RunOnce     bool
}

type BotConfig struct {
	DatabaseURL string
	Token       string
	GuildID     string
	Schedule    auction.Schedule
}

type CLIConfig struct {
	APIBaseURL string
	AdminKey   string
	Team       string
}

func LoadServerFromEnv() (ServerConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("FBP_API_ADDR", ":8080")
	}

	sched, err := loadSchedule()
	if err != nil {
		return ServerConfig{}, err
	}
	cfg := ServerConfig{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AdminKey:    strings.TrimSpace(os.Getenv("FBP_ADMIN_KEY")),
		Schedule:    sched,
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AdminKey == "" {
		return cfg, fmt.Errorf("FBP_ADMIN_KEY is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	sched, err := loadSchedule()
	if err != nil {
		return WorkerConfig{}, err
	}
	cfg := WorkerConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Schedule:    sched,
		CheckEvery:  envDurationDefault("FBP_RESOLVE_CHECK_EVERY", 15*time.Minute),
		RunOnce:     envBoolDefault("FBP_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadBotFromEnv() (BotConfig, error) {
	sched, err := loadSchedule()
	if err != nil {
		return BotConfig{}, err
	}
	cfg := BotConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Token:       strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
		GuildID:     strings.TrimSpace(os.Getenv("FBP_GUILD_ID")),
		Schedule:    sched,
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Token == "" {
		return cfg, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("FBPCTL_API_BASE_URL", "http://localhost:8080"), "/"),
		AdminKey:   strings.TrimSpace(os.Getenv("FBP_ADMIN_KEY")),
		Team:       strings.ToUpper(strings.TrimSpace(os.Getenv("FBPCTL_TEAM"))),
	}
}

// loadSchedule reads the four season dates and the league timezone.
// Defaults match the current season; update per season.
func loadSchedule() (auction.Schedule, error) {
	sched := auction.Schedule{
		SeasonStart:   envDefault("FBP_SEASON_START", "2026-04-01"),
		BreakStart:    envDefault("FBP_BREAK_START", "2026-07-13"),
		BreakEnd:      envDefault("FBP_BREAK_END", "2026-07-27"),
		PlayoffCutoff: envDefault("FBP_PLAYOFF_CUTOFF", "2026-09-07"),
		TimeZone:      envDefault("FBP_TIMEZONE", "America/New_York"),
	}
	for key, v := range map[string]string{
		"FBP_SEASON_START":   sched.SeasonStart,
		"FBP_BREAK_START":    sched.BreakStart,
		"FBP_BREAK_END":      sched.BreakEnd,
		"FBP_PLAYOFF_CUTOFF": sched.PlayoffCutoff,
	} {
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return sched, fmt.Errorf("%s: invalid date %q", key, v)
		}
	}
	if _, err := time.LoadLocation(sched.TimeZone); err != nil {
		return sched, fmt.Errorf("FBP_TIMEZONE: %w", err)
	}
	return sched, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
