package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
logging:
  level: debug
  console: true
telegram:
  chat_id: -100123456
airtable:
  base_id: appJcTn3eQUXKQEKT
reconcile:
  enabled: true
  cron: "0,10,20,30,40,50 * * * *"
relay:
  enabled: true
journal:
  driver: sqlite
  path: ./stampbot.db
  busy_timeout: 5s
`

func TestLoadYAMLWithDefaults(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Telegram.ChatID != -100123456 {
		t.Fatalf("cfg = %+v", cfg)
	}
	// Defaults fill in what the file omitted.
	if cfg.Airtable.Table != "Image link" {
		t.Fatalf("table default = %q", cfg.Airtable.Table)
	}
	if cfg.Relay.Addr != ":8080" {
		t.Fatalf("relay addr default = %q", cfg.Relay.Addr)
	}
	if got := cfg.JournalBusyTimeout(); got != 5*time.Second {
		t.Fatalf("busy timeout = %v", got)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML+"\nbogus_section:\n  x: 1\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRequiresChatAndBase(t *testing.T) {
	t.Parallel()
	missingChat := strings.Replace(validYAML, "chat_id: -100123456", "chat_id: 0", 1)
	if _, err := NewManager(writeConfig(t, "config.yaml", missingChat)).Load(); err == nil {
		t.Fatal("expected error for missing chat_id")
	}
	missingBase := strings.Replace(validYAML, "base_id: appJcTn3eQUXKQEKT", `base_id: ""`, 1)
	if _, err := NewManager(writeConfig(t, "config.yaml", missingBase)).Load(); err == nil {
		t.Fatal("expected error for missing base_id")
	}
}

func TestValidateRejectsBadDuration(t *testing.T) {
	t.Parallel()
	bad := strings.Replace(validYAML, "busy_timeout: 5s", "busy_timeout: five", 1)
	if _, err := NewManager(writeConfig(t, "config.yaml", bad)).Load(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", " 10s "); err != nil || d != 10*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty should be 0: %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("negative duration should fail")
	}
}

func TestSecretsFromEnvironment(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("AIRTABLE_API_KEY", "key0")
	t.Setenv("PORT", "9090")

	s, err := LoadSecrets()
	if err != nil {
		t.Fatalf("LoadSecrets: %v", err)
	}
	if s.BotToken != "123:abc" || s.AirtableAPIKey != "key0" || s.Port != "9090" {
		t.Fatalf("secrets = %+v", s)
	}
}

func TestSecretsRequireToken(t *testing.T) {
	// t.Setenv registers the restore; envconfig only treats an absent (not
	// empty) variable as missing, so unset it for real.
	t.Setenv("BOT_TOKEN", "")
	os.Unsetenv("BOT_TOKEN")
	t.Setenv("AIRTABLE_API_KEY", "key0")
	if _, err := LoadSecrets(); err == nil {
		t.Fatal("expected error for missing BOT_TOKEN")
	}
}
