// config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates everything the service reads from the environment.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Economy     EconomyConfig
	Games       GameConfig
	Withdrawals WithdrawalConfig
	Audit       AuditConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

type DatabaseConfig struct {
	Driver string // postgres | sqlite
	DSN    string
}

// AuthConfig describes how a request's user identity is resolved.
// GatewayToken guards every route; JWTSecret and AuthServiceURL are optional
// alternatives to the gateway-forwarded X-User-ID header.
type AuthConfig struct {
	GatewayToken   string
	JWTSecret      string
	AuthServiceURL string
}

// EconomyConfig holds the emission and reward constants shared by every reward path.
type EconomyConfig struct {
	MaxDailyEmission int64
	XPPerTask        int64
	XPPerGame        int64
	ReferralPercent  int64
	Location         *time.Location // "local midnight" for daily limits
	MaxTxAttempts    int
}

type GameConfig struct {
	MinDurationSeconds float64
	MaxScorePerSecond  float64
	RewardDivisor      int64
	AbandonAfter       time.Duration
	// SweepAfter is how long an open session may sit before the scheduler
	// garbage-collects it. Never shorter than AbandonAfter.
	SweepAfter         time.Duration
	LevelGates         map[string]int
	ActivationRequired map[string]bool
}

type WithdrawalConfig struct {
	MinAmount     int64
	MaxPerDay     int64
	CooldownHours float64
	MinLevel      int
}

// AuditConfig points at the R2 bucket receiving the nightly report. Empty
// Bucket disables the export.
type AuditConfig struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Prefix          string
}

// Enabled reports whether the audit export has somewhere to go.
func (a AuditConfig) Enabled() bool {
	return a.Bucket != "" && a.AccountID != ""
}

// Default returns the production defaults without touching the environment.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "5200",
			AllowedOrigins: "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		Economy: EconomyConfig{
			MaxDailyEmission: 100000,
			XPPerTask:        10,
			XPPerGame:        15,
			ReferralPercent:  10,
			Location:         time.UTC,
			MaxTxAttempts:    5,
		},
		Games: GameConfig{
			MinDurationSeconds: 9,
			MaxScorePerSecond:  12,
			RewardDivisor:      5,
			AbandonAfter:       60 * time.Second,
			SweepAfter:         24 * time.Hour,
			LevelGates: map[string]int{
				"tap_race":        1,
				"spin_wheel":      2,
				"puzzle_game":     3,
				"reaction_sprint": 4,
			},
			ActivationRequired: map[string]bool{
				"spin_wheel":      true,
				"puzzle_game":     true,
				"reaction_sprint": true,
			},
		},
		Withdrawals: WithdrawalConfig{
			MinAmount:     100,
			MaxPerDay:     3,
			CooldownHours: 6,
			MinLevel:      4,
		},
		Audit: AuditConfig{
			Prefix: "audit",
		},
	}
}

// Load reads configuration from environment variables, falling back to Default().
func Load() (Config, error) {
	cfg := Default()

	cfg.Server.Port = valueOrDefault("PORT", cfg.Server.Port)
	cfg.Server.AllowedOrigins = normalizeOrigins(valueOrDefault("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins))

	cfg.Database.Driver = strings.ToLower(valueOrDefault("DB_DRIVER", cfg.Database.Driver))
	cfg.Database.DSN = os.Getenv("DATABASE_URL")
	if cfg.Database.DSN == "" {
		if cfg.Database.Driver != "sqlite" {
			return cfg, fmt.Errorf("DATABASE_URL environment variable not set")
		}
		cfg.Database.DSN = "dulp.db"
	}

	cfg.Auth.GatewayToken = os.Getenv("GAME_SERVICE_TOKEN")
	if cfg.Auth.GatewayToken == "" {
		return cfg, fmt.Errorf("GAME_SERVICE_TOKEN environment variable not set")
	}
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.Auth.AuthServiceURL = os.Getenv("AUTH_SERVICE_URL")

	var err error
	if cfg.Economy.MaxDailyEmission, err = parseInt64("MAX_DAILY_EMISSION", cfg.Economy.MaxDailyEmission); err != nil {
		return cfg, err
	}
	if cfg.Economy.XPPerTask, err = parseInt64("XP_PER_TASK", cfg.Economy.XPPerTask); err != nil {
		return cfg, err
	}
	if cfg.Economy.XPPerGame, err = parseInt64("XP_PER_GAME", cfg.Economy.XPPerGame); err != nil {
		return cfg, err
	}
	if cfg.Economy.ReferralPercent, err = parseInt64("REFERRAL_PERCENT", cfg.Economy.ReferralPercent); err != nil {
		return cfg, err
	}
	if tz := os.Getenv("LOCAL_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("invalid LOCAL_TIMEZONE %q: %w", tz, err)
		}
		cfg.Economy.Location = loc
	}

	if cfg.Games.MinDurationSeconds, err = parseFloat("GAME_MIN_DURATION_SECONDS", cfg.Games.MinDurationSeconds); err != nil {
		return cfg, err
	}
	if cfg.Games.MaxScorePerSecond, err = parseFloat("GAME_MAX_SCORE_PER_SECOND", cfg.Games.MaxScorePerSecond); err != nil {
		return cfg, err
	}
	if cfg.Games.RewardDivisor, err = parseInt64("GAME_REWARD_DIVISOR", cfg.Games.RewardDivisor); err != nil {
		return cfg, err
	}
	if cfg.Games.RewardDivisor <= 0 {
		return cfg, fmt.Errorf("GAME_REWARD_DIVISOR must be positive")
	}
	if raw := os.Getenv("GAME_ABANDON_AFTER"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid GAME_ABANDON_AFTER %q: %w", raw, err)
		}
		cfg.Games.AbandonAfter = d
	}
	if raw := os.Getenv("GAME_SWEEP_AFTER"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid GAME_SWEEP_AFTER %q: %w", raw, err)
		}
		cfg.Games.SweepAfter = d
	}
	if cfg.Games.SweepAfter < cfg.Games.AbandonAfter {
		return cfg, fmt.Errorf("GAME_SWEEP_AFTER (%s) must not be shorter than GAME_ABANDON_AFTER (%s)", cfg.Games.SweepAfter, cfg.Games.AbandonAfter)
	}

	if cfg.Withdrawals.MinAmount, err = parseInt64("MIN_WITHDRAWAL", cfg.Withdrawals.MinAmount); err != nil {
		return cfg, err
	}
	if cfg.Withdrawals.MaxPerDay, err = parseInt64("MAX_DAILY_WITHDRAWALS", cfg.Withdrawals.MaxPerDay); err != nil {
		return cfg, err
	}
	if cfg.Withdrawals.CooldownHours, err = parseFloat("WITHDRAWAL_COOLDOWN_HOURS", cfg.Withdrawals.CooldownHours); err != nil {
		return cfg, err
	}
	minLevel, err := parseInt64("MIN_WITHDRAWAL_LEVEL", int64(cfg.Withdrawals.MinLevel))
	if err != nil {
		return cfg, err
	}
	cfg.Withdrawals.MinLevel = int(minLevel)

	cfg.Audit.AccountID = os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	cfg.Audit.AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.Audit.AccessKeySecret = os.Getenv("R2_ACCESS_KEY_SECRET")
	cfg.Audit.Bucket = os.Getenv("R2_BUCKET_NAME")
	cfg.Audit.Prefix = valueOrDefault("AUDIT_PREFIX", cfg.Audit.Prefix)
	if !cfg.Audit.Enabled() {
		log.Println("⚠️  R2 audit export not configured, nightly reports will be skipped")
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func parseInt64(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

// normalizeOrigins trims spaces around each comma-separated origin.
func normalizeOrigins(csv string) string {
	origins := strings.Split(csv, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return strings.Join(origins, ",")
}
