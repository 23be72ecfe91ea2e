package config

import (
	"sort"
	"strings"

	logx "remembot/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (the bot token) never appear.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		strings.TrimSpace(oldCfg.Telegram.BotName) != strings.TrimSpace(newCfg.Telegram.BotName) ||
		(oldCfg.Telegram.Token != "") != (newCfg.Telegram.Token != "") {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.bot_name", strings.TrimSpace(newCfg.Telegram.BotName)),
			logx.Bool("telegram.token_set", newCfg.Telegram.Token != ""),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Reminders != newCfg.Reminders {
		changed = append(changed, "reminders")
		attrs = append(attrs,
			logx.String("reminders.poll_interval", newCfg.Reminders.PollInterval),
			logx.String("reminders.quick_threshold", newCfg.Reminders.QuickThreshold),
			logx.String("reminders.min_delay", newCfg.Reminders.MinDelay),
		)
	}

	if oldCfg.Bot != newCfg.Bot {
		changed = append(changed, "bot")
	}

	// Nil storage means disabled.
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if oldCfg.Storage != nil {
		oDriver = strings.TrimSpace(oldCfg.Storage.Driver)
		oBusy = strings.TrimSpace(oldCfg.Storage.BusyTimeout)
		oPathSet = strings.TrimSpace(oldCfg.Storage.Path) != ""
	}
	if newCfg.Storage != nil {
		nDriver = strings.TrimSpace(newCfg.Storage.Driver)
		nBusy = strings.TrimSpace(newCfg.Storage.BusyTimeout)
		nPathSet = strings.TrimSpace(newCfg.Storage.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
