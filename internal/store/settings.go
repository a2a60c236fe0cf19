package store

import (
	"database/sql"
	"fmt"
	"time"
)

var notificationKeys = []string{
	"sound_alerts_enabled",
	"reminder_lead_minutes",
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// GetBool returns the setting parsed as a boolean, or fallback when the key
// is missing or unparseable.
func (s *SettingsStore) GetBool(key string, fallback bool) bool {
	value, err := s.Get(key)
	if err != nil {
		return fallback
	}
	switch value {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return fallback
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetNotificationSettings returns the notification-related settings.
func (s *SettingsStore) GetNotificationSettings() (map[string]string, error) {
	settings := make(map[string]string)
	for _, key := range notificationKeys {
		var value string
		err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get notification setting %q: %w", key, err)
		}
		settings[key] = value
	}
	return settings, nil
}
