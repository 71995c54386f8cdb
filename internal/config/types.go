package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the file-backed part of the configuration. Secrets (bot token,
// Airtable key) never live here; see Secrets.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Telegram  TelegramConfig  `json:"telegram"`
	Airtable  AirtableConfig  `json:"airtable"`
	Reconcile ReconcileConfig `json:"reconcile"`
	Relay     RelayConfig     `json:"relay"`
	Journal   JournalConfig   `json:"journal,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type TelegramConfig struct {
	// ChatID is the announcement target (group or channel id).
	ChatID     int64 `json:"chat_id"`
	RatePerSec int   `json:"rate_per_sec,omitempty"`
}

type AirtableConfig struct {
	BaseID     string `json:"base_id"`
	Table      string `json:"table"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

type ReconcileConfig struct {
	Enabled  bool   `json:"enabled"`
	Cron     string `json:"cron,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type RelayConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
}

type JournalConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

func (c *Config) withDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Airtable.Table) == "" {
		c.Airtable.Table = "Image link"
	}
	if strings.TrimSpace(c.Relay.Addr) == "" {
		c.Relay.Addr = ":8080"
	}
}

// Validate rejects configs that cannot possibly run. Durations are parsed
// here so a bad value fails the reload instead of a later Start.
func (c *Config) Validate() error {
	if c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required")
	}
	if strings.TrimSpace(c.Airtable.BaseID) == "" {
		return errors.New("airtable.base_id is required")
	}
	if _, err := ParseDurationField("airtable.timeout", c.Airtable.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("journal.busy_timeout", c.Journal.BusyTimeout); err != nil {
		return err
	}
	return nil
}

// AirtableTimeout returns the parsed request timeout (0 means client default).
func (c *Config) AirtableTimeout() time.Duration {
	d, _ := ParseDurationField("airtable.timeout", c.Airtable.Timeout)
	return d
}

// JournalBusyTimeout returns the parsed sqlite busy timeout.
func (c *Config) JournalBusyTimeout() time.Duration {
	d, _ := ParseDurationField("journal.busy_timeout", c.Journal.BusyTimeout)
	return d
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
