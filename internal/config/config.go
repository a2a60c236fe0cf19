package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, read from SPROUT_* environment
// variables. A .env file in the working directory is loaded if present.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string

	SyncBaseURL string
	SyncToken   string

	ReminderLead     time.Duration
	ReminderInterval time.Duration
	SyncInterval     time.Duration
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	// Missing .env is fine; real deployments set env vars directly.
	godotenv.Load()

	return Config{
		Port:     getenv("SPROUT_PORT", "8080"),
		DBPath:   getenv("SPROUT_DB_PATH", "sprout.db"),
		LogLevel: getenv("SPROUT_LOG_LEVEL", "info"),

		VAPIDPublicKey:  os.Getenv("SPROUT_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("SPROUT_VAPID_PRIVATE_KEY"),
		PushSubscriber:  getenv("SPROUT_PUSH_SUBSCRIBER", "mailto:noreply@sprout.local"),

		SyncBaseURL: os.Getenv("SPROUT_SYNC_URL"),
		SyncToken:   os.Getenv("SPROUT_SYNC_TOKEN"),

		ReminderLead:     getenvDuration("SPROUT_REMINDER_LEAD_MINUTES", 5) * time.Minute,
		ReminderInterval: getenvDuration("SPROUT_REMINDER_TICK_SECONDS", 30) * time.Second,
		SyncInterval:     getenvDuration("SPROUT_SYNC_TICK_SECONDS", 30) * time.Second,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback int64) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(fallback)
}
