package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DiscordToken        string
	DiscordClientID     string
	DiscordClientSecret string
	DiscordCallbackURL  string
	NoticeChannelID     string
	CommandPrefix       string
	AdminIDs            []string

	WebURL         string
	ServerPort     string
	SessionSecret  string
	SessionTTL     time.Duration
	CookieSecure   bool
	AllowedOrigins []string

	StoreDriver string
	DataDir     string
	SQLitePath  string
	RedisURL    string

	LogLevel  string
	LogPretty bool

	EnableDiscord bool
	EnableWeb     bool

	Party PartyConfig
}

type PartyConfig struct {
	Types        []PartyType
	Classes      map[string][]string
	Points       PointWeights
	MatchHistory int
}

type PartyType struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Teams      int    `json:"teams"`
	MaxPerTeam int    `json:"maxPerTeam"`
}

type PointWeights struct {
	Win     int `json:"win"`
	Loss    int `json:"loss"`
	PerKill int `json:"perKill"`
}

func (p PartyConfig) Type(key string) (PartyType, bool) {
	for _, t := range p.Types {
		if t.Key == key {
			return t, true
		}
	}
	return PartyType{}, false
}

func DefaultParty() PartyConfig {
	return PartyConfig{
		Types: []PartyType{
			{Key: "mock_battle", Name: "모의전", Icon: "❌", Teams: 2, MaxPerTeam: 5},
			{Key: "regular_battle", Name: "정규전", Icon: "🔥", Teams: 2, MaxPerTeam: 5},
			{Key: "black_claw", Name: "검은발톱", Icon: "⚫", Teams: 1, MaxPerTeam: 5},
			{Key: "pk", Name: "PK", Icon: "⚡", Teams: 1, MaxPerTeam: 5},
			{Key: "raid", Name: "레이드", Icon: "👑", Teams: 1, MaxPerTeam: 5},
			{Key: "training", Name: "훈련", Icon: "🎯", Teams: 2, MaxPerTeam: 5},
		},
		Classes: map[string][]string{
			"일반": {"방패보병", "폴암보병", "궁기병", "궁수", "창기병"},
			"귀족": {"궁기병", "궁수", "창기병"},
		},
		Points: PointWeights{Win: 100, Loss: 50, PerKill: 1},
	}
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	party := DefaultParty()
	party.Points = PointWeights{
		Win:     getEnvInt("POINTS_WIN", party.Points.Win),
		Loss:    getEnvInt("POINTS_LOSS", party.Points.Loss),
		PerKill: getEnvInt("POINTS_PER_KILL", party.Points.PerKill),
	}
	party.MatchHistory = getEnvInt("MATCH_HISTORY_LIMIT", 0)

	cfg := &Config{
		DiscordToken:        getEnv("DISCORD_TOKEN", ""),
		DiscordClientID:     getEnv("DISCORD_CLIENT_ID", ""),
		DiscordClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
		DiscordCallbackURL:  getEnv("DISCORD_CALLBACK_URL", "http://localhost:3000/auth/discord/callback"),
		NoticeChannelID:     getEnv("PARTY_NOTICE_CHANNEL_ID", ""),
		CommandPrefix:       getEnv("COMMAND_PREFIX", "!"),
		AdminIDs:            splitList(getEnv("ADMIN_IDS", "")),

		WebURL:         strings.TrimRight(getEnv("WEB_URL", "http://localhost:3000"), "/"),
		ServerPort:     getEnv("WEB_PORT", "3000"),
		SessionSecret:  getEnv("SESSION_SECRET", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		StoreDriver: getEnv("STORE_DRIVER", "file"),
		DataDir:     getEnv("DATA_DIR", "data"),
		SQLitePath:  getEnv("SQLITE_PATH", "aimdot.db"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),

		EnableDiscord: getEnvBool("ENABLE_DISCORD", true),
		EnableWeb:     getEnvBool("ENABLE_WEB", true),

		Party: party,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("store_driver", cfg.StoreDriver).
		Str("server_port", cfg.ServerPort).
		Str("web_url", cfg.WebURL).
		Str("log_level", cfg.LogLevel).
		Bool("discord", cfg.EnableDiscord).
		Bool("web", cfg.EnableWeb).
		Int("admins", len(cfg.AdminIDs)).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) validate() error {
	if c.EnableDiscord && c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required when ENABLE_DISCORD is true")
	}
	if c.EnableWeb && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required when ENABLE_WEB is true")
	}
	switch c.StoreDriver {
	case "file", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func (c *Config) IsAdminID(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var Module = fx.Provide(Load)
