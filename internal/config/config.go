// README: Config loader with env defaults for HTTP, store, Firebase, DB, Redis, Kafka and ride settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// PresenceConfig controls the lastSeen liveness window and the heartbeat cadence.
// The two are independent: Window decides who counts as online, Heartbeat decides
// how often an open session refreshes lastSeen.
type PresenceConfig struct {
	Window    time.Duration
	Heartbeat time.Duration
}

type NotifyConfig struct {
	Recency time.Duration
	Display time.Duration
}

type Config struct {
	HTTP struct {
		Addr string
	}
	Log struct {
		Level string
	}
	Store struct {
		Backend string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	Maps struct {
		APIKey string
	}
	Presence    PresenceConfig
	Notify      NotifyConfig
	TimeZone    string
	Leaderboard struct {
		Size int
	}
	Auth struct {
		MaxFailedAttempts int
		LockoutWindow     time.Duration
	}
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("CAMPUSRIDE_HTTP_ADDR", ":8080")
	cfg.Log.Level = envOrDefault("CAMPUSRIDE_LOG_LEVEL", "info")
	cfg.Store.Backend = envOrDefault("CAMPUSRIDE_STORE", StoreFirestore)
	cfg.Firebase.ProjectID = envOrDefault("CAMPUSRIDE_FIREBASE_PROJECT_ID", "")
	cfg.Firebase.CredentialsFile = envOrDefault("CAMPUSRIDE_FIREBASE_CREDENTIALS", "")
	cfg.DB.DSN = envOrDefault("CAMPUSRIDE_DB_DSN", "")
	cfg.Redis.Addr = envOrDefault("CAMPUSRIDE_REDIS_ADDR", "")
	cfg.Kafka.Brokers = envOrDefaultList("CAMPUSRIDE_KAFKA_BROKERS", nil)
	cfg.Kafka.Topic = envOrDefault("CAMPUSRIDE_KAFKA_TOPIC", "ride-events")
	cfg.Maps.APIKey = envOrDefault("CAMPUSRIDE_MAPS_API_KEY", "")
	cfg.Presence.Window = envOrDefaultDuration("CAMPUSRIDE_PRESENCE_WINDOW", 5*time.Minute)
	cfg.Presence.Heartbeat = envOrDefaultDuration("CAMPUSRIDE_HEARTBEAT_INTERVAL", 10*time.Minute)
	cfg.Notify.Recency = envOrDefaultDuration("CAMPUSRIDE_NOTIFY_RECENCY", 30*time.Second)
	cfg.Notify.Display = envOrDefaultDuration("CAMPUSRIDE_NOTIFY_DISPLAY", 5*time.Second)
	cfg.TimeZone = envOrDefault("CAMPUSRIDE_TIMEZONE", "Europe/Istanbul")
	cfg.Leaderboard.Size = envOrDefaultInt("CAMPUSRIDE_LEADERBOARD_SIZE", 5)
	cfg.Auth.MaxFailedAttempts = envOrDefaultInt("CAMPUSRIDE_AUTH_MAX_FAILURES", 5)
	cfg.Auth.LockoutWindow = envOrDefaultDuration("CAMPUSRIDE_AUTH_LOCKOUT", 15*time.Minute)
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	// Auth always goes through Firebase; the memory store pairs with the
	// auth emulator (FIREBASE_AUTH_EMULATOR_HOST) for local runs.
	if c.Firebase.ProjectID == "" {
		return errors.New("CAMPUSRIDE_FIREBASE_PROJECT_ID is required")
	}
	switch c.Store.Backend {
	case StoreFirestore, StoreMemory:
	default:
		return errors.New("CAMPUSRIDE_STORE must be firestore or memory")
	}
	if c.Presence.Window <= 0 {
		return errors.New("presence window must be positive")
	}
	if c.Presence.Heartbeat <= 0 {
		return errors.New("heartbeat interval must be positive")
	}
	if c.Notify.Recency <= 0 || c.Notify.Display <= 0 {
		return errors.New("notification recency and display durations must be positive")
	}
	if c.Leaderboard.Size <= 0 {
		return errors.New("leaderboard size must be positive")
	}
	return nil
}

// Location resolves the configured time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
