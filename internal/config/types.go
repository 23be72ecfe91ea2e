package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Reminders RemindersConfig `json:"reminders"`
	Bot       BotConfig       `json:"bot"`

	// Storage controls the persistence layer. Nil means disabled: only quick
	// in-memory reminders will work.
	Storage *StorageConfig `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// BotName is the bot's username without the leading @, used to claim
	// "/cmd@name" commands in groups.
	BotName string `json:"bot_name"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// RemindersConfig controls scheduling behavior.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// Defaults when omitted: poll_interval "1m", quick_threshold "10m",
// min_delay "10s".
type RemindersConfig struct {
	PollInterval   string `json:"poll_interval,omitempty"`
	QuickThreshold string `json:"quick_threshold,omitempty"`
	MinDelay       string `json:"min_delay,omitempty"`
}

type BotConfig struct {
	// HandlerTimeout is a Go duration string bounding one command execution.
	HandlerTimeout string `json:"handler_timeout,omitempty"`
	AdminCacheTTL  string `json:"admin_cache_ttl,omitempty"`
	// UpdateMenu pushes the command list to the platform menu on startup.
	UpdateMenu bool `json:"update_menu"`
}

type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
