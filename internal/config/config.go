package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stardom/internal/game"
	"stardom/internal/store"
)

type APIConfig struct {
	Addr       string
	ArtistName string
	// APIToken, when set, is required as a bearer token on /v1.
	APIToken        string
	EventsPollEvery time.Duration
	Store           store.Options
	Tuning          game.Tuning
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

type WorkerConfig struct {
	ArtistName string
	Store      store.Options
	Tuning     game.Tuning
	LogLevel   slog.Level
	WeekEvery  time.Duration
	RunOnce    bool
}

type CLIConfig struct {
	// APIBaseURL switches the CLI to remote mode when set.
	APIBaseURL string
	APIToken   string
	Store      store.Options
	Tuning     game.Tuning
	LogLevel   slog.Level
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("STARDOM_API_ADDR", ":8080")
	}

	tuning, err := LoadTuningFromEnv()
	if err != nil {
		return APIConfig{}, err
	}
	cfg := APIConfig{
		Addr:            addr,
		ArtistName:      envDefault("STARDOM_ARTIST", "New Artist"),
		APIToken:        strings.TrimSpace(os.Getenv("STARDOM_API_TOKEN")),
		EventsPollEvery: envDurationDefault("STARDOM_EVENTS_POLL", 5*time.Second),
		Store:           storeFromEnv(store.BackendSQLite),
		Tuning:          tuning,
		LogLevel:        ParseLevel(os.Getenv("STARDOM_LOG_LEVEL")),
		ShutdownTimeout: envDurationDefault("STARDOM_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if err := validateStore(cfg.Store); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	tuning, err := LoadTuningFromEnv()
	if err != nil {
		return WorkerConfig{}, err
	}
	cfg := WorkerConfig{
		ArtistName: envDefault("STARDOM_ARTIST", "New Artist"),
		Store:      storeFromEnv(store.BackendSQLite),
		Tuning:     tuning,
		LogLevel:   ParseLevel(os.Getenv("STARDOM_LOG_LEVEL")),
		WeekEvery:  envDurationDefault("STARDOM_WEEK_EVERY", 5*time.Minute),
		RunOnce:    envBoolDefault("STARDOM_WORKER_RUN_ONCE", false),
	}
	if cfg.WeekEvery <= 0 {
		return cfg, fmt.Errorf("STARDOM_WEEK_EVERY must be positive")
	}
	if err := validateStore(cfg.Store); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func LoadCLIFromEnv() (CLIConfig, error) {
	tuning, err := LoadTuningFromEnv()
	if err != nil {
		return CLIConfig{}, err
	}
	cfg := CLIConfig{
		APIBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("STARDOM_API_URL")), "/"),
		APIToken:   strings.TrimSpace(os.Getenv("STARDOM_API_TOKEN")),
		Store:      storeFromEnv(store.BackendFile),
		Tuning:     tuning,
		LogLevel:   ParseLevel(envDefault("STARDOM_LOG_LEVEL", "warn")),
	}
	return cfg, validateStore(cfg.Store)
}

// storeFromEnv picks postgres whenever DATABASE_URL is set unless
// STARDOM_STORE says otherwise.
func storeFromEnv(fallback string) store.Options {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn != "" {
		fallback = store.BackendPostgres
	}
	return store.Options{
		Backend:     strings.ToLower(envDefault("STARDOM_STORE", fallback)),
		Path:        strings.TrimSpace(os.Getenv("STARDOM_SAVE_PATH")),
		DatabaseURL: dsn,
		Slot:        envDefault("STARDOM_SLOT", store.DefaultSlot),
	}
}

func validateStore(opts store.Options) error {
	switch opts.Backend {
	case store.BackendFile, store.BackendSQLite:
		return nil
	case store.BackendPostgres:
		if opts.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		return nil
	default:
		return fmt.Errorf("STARDOM_STORE must be file, sqlite or postgres, got %q", opts.Backend)
	}
}

// LoadTuningFromEnv reads STARDOM_TUNING_FILE when set and applies
// STARDOM_SEED on top.
func LoadTuningFromEnv() (game.Tuning, error) {
	tuning := game.DefaultTuning()
	if path := strings.TrimSpace(os.Getenv("STARDOM_TUNING_FILE")); path != "" {
		var err error
		tuning, err = LoadTuning(path)
		if err != nil {
			return tuning, err
		}
	}
	tuning.Seed = envInt64Default("STARDOM_SEED", tuning.Seed)
	return tuning, nil
}

// LoadTuning parses a YAML tuning file over the defaults, so omitted keys
// keep their default values.
func LoadTuning(path string) (game.Tuning, error) {
	tuning := game.DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, fmt.Errorf("reading tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return tuning, fmt.Errorf("parsing tuning file: %w", err)
	}
	if tuning.TrendChance < 0 || tuning.TrendChance > 1 {
		return tuning, fmt.Errorf("trend_chance must be between 0 and 1, got %f", tuning.TrendChance)
	}
	if tuning.AwardWinChance < 0 || tuning.AwardWinChance > 1 {
		return tuning, fmt.Errorf("award_win_chance must be between 0 and 1, got %f", tuning.AwardWinChance)
	}
	return tuning, nil
}

// ParseLevel maps debug, info, warn and error to a slog.Level. Anything
// else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
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

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
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
