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

const sampleYAML = `
telegram:
  token: "123:abc"
  bot_name: remembot
  poll_timeout: 15s
logging:
  level: debug
  console: true
  file:
    enabled: true
    path: ./remembot.log
  telegram:
    enabled: false
    chat_id: 0
    min_level: warn
    rate_per_sec: 1
reminders:
  poll_interval: 30s
  quick_threshold: 10m
  min_delay: 10s
bot:
  update_menu: true
storage:
  driver: sqlite
  path: ./reminders.db
  busy_timeout: 5s
`

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.BotName != "remembot" {
		t.Fatalf("bot_name = %q", cfg.Telegram.BotName)
	}
	if cfg.Reminders.PollInterval != "30s" {
		t.Fatalf("poll_interval = %q", cfg.Reminders.PollInterval)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", sampleYAML+"\nsurprise: true\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("unknown top-level key accepted")
	}
}

func TestBadDurationRejected(t *testing.T) {
	t.Parallel()
	body := strings.Replace(sampleYAML, "poll_interval: 30s", "poll_interval: soon", 1)
	m := NewManager(writeConfig(t, "config.yaml", body))
	_, err := m.Load()
	if err == nil || !strings.Contains(err.Error(), "reminders.poll_interval") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadJSONPassthrough(t *testing.T) {
	t.Parallel()
	body := `{"telegram":{"token":"123:abc","bot_name":"remembot"}}`
	m := NewManager(writeConfig(t, "config.json", body))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.BotName != "remembot" {
		t.Fatalf("bot_name = %q", cfg.Telegram.BotName)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "explicit", raw: "90s", want: 90 * time.Second},
		{name: "empty uses default", raw: "", want: time.Minute},
		{name: "whitespace uses default", raw: "  ", want: time.Minute},
		{name: "garbage", raw: "soon", wantErr: true},
		{name: "negative", raw: "-5s", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationOrDefault("reminders.poll_interval", tt.raw, time.Minute)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "reminders.poll_interval") {
					t.Fatalf("err = %v, want field path in error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{}
	newCfg := &Config{
		Logging: LoggingConfig{Level: "debug", Console: true},
		Storage: &StorageConfig{Driver: "sqlite", Path: "./db"},
	}
	changed, _ := SummarizeChange(oldCfg, newCfg)
	want := "logging,storage"
	if got := strings.Join(changed, ","); got != want {
		t.Fatalf("changed = %q, want %q", got, want)
	}
}
