// Package app wires configuration, logging, storage, the Telegram adapter,
// the reminder service and the command router into one process.
package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"remembot/internal/bot"
	"remembot/internal/config"
	"remembot/internal/reminder"
	"remembot/internal/runtime/supervisor"
	"remembot/internal/services/reminders"
	"remembot/internal/storage"
	kit "remembot/internal/transport"
	"remembot/internal/transport/telegram"
	logx "remembot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter *telegram.Adapter
	svc     *reminders.Service
	router  *bot.Router

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogging(cfg), ad)
	log = log.With(logx.String("comp", "app"))

	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
		if err != nil {
			return nil, err
		}
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, logs.Logger().With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		if store != nil {
			log.Info("storage enabled", logx.String("driver", cfg.Storage.Driver))
		}
	}

	remCfg, err := mapReminders(cfg)
	if err != nil {
		return nil, err
	}
	svc := reminders.New(remCfg, store, ad, reminder.ParseDateString,
		logs.Logger().With(logx.String("comp", "reminders")))

	botCfg, err := mapBot(cfg)
	if err != nil {
		return nil, err
	}
	router := bot.New(botCfg, ad, svc, logs.Logger().With(logx.String("comp", "bot")))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logs,
		store:   store,
		adapter: ad,
		svc:     svc,
		router:  router,
		updates: make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	runCtx := a.sup.Context()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.sup.Go("config.watch", a.cfgm.Watch)

	// Live config: logging sinks follow the file without a restart. Other
	// sections need one, they only affect construction.
	updates := a.cfgm.Subscribe(1)
	a.sup.Go0("config.apply", func(c context.Context) {
		defer a.cfgm.Unsubscribe(updates)
		for {
			select {
			case <-c.Done():
				return
			case cfg := <-updates:
				if cfg == nil {
					continue
				}
				a.logs.Apply(mapLogging(cfg))
			}
		}
	})

	if err := a.svc.Start(runCtx); err != nil {
		return err
	}
	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return err
	}
	a.router.Run(runCtx, a.updates)

	if cfg := a.cfgm.Get(); cfg != nil && cfg.Bot.UpdateMenu {
		mctx, cancel := context.WithTimeout(runCtx, 10*time.Second)
		if err := a.adapter.UpdateMenuCommands(mctx, a.router.Commands()); err != nil {
			a.log.Warn("menu update failed", logx.Err(err))
		}
		cancel()
	}

	// Best-effort readiness signal; a no-op outside systemd.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	if a.adapter != nil {
		_ = a.adapter.Stop(ctx)
	}
	if a.svc != nil {
		_ = a.svc.Stop(ctx)
	}
	if a.sup != nil {
		a.sup.Cancel()
		_ = a.sup.Wait(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapReminders(cfg *config.Config) (reminders.Config, error) {
	poll, err := config.ParseDurationOrDefault("reminders.poll_interval", cfg.Reminders.PollInterval, time.Minute)
	if err != nil {
		return reminders.Config{}, err
	}
	quick, err := config.ParseDurationOrDefault("reminders.quick_threshold", cfg.Reminders.QuickThreshold, 10*time.Minute)
	if err != nil {
		return reminders.Config{}, err
	}
	minDelay, err := config.ParseDurationOrDefault("reminders.min_delay", cfg.Reminders.MinDelay, 10*time.Second)
	if err != nil {
		return reminders.Config{}, err
	}
	return reminders.Config{
		PollInterval:   poll,
		QuickThreshold: quick,
		MinDelay:       minDelay,
	}, nil
}

func mapBot(cfg *config.Config) (bot.Config, error) {
	ht, err := config.ParseDurationOrDefault("bot.handler_timeout", cfg.Bot.HandlerTimeout, 30*time.Second)
	if err != nil {
		return bot.Config{}, err
	}
	ttl, err := config.ParseDurationOrDefault("bot.admin_cache_ttl", cfg.Bot.AdminCacheTTL, 5*time.Minute)
	if err != nil {
		return bot.Config{}, err
	}
	return bot.Config{
		BotName:        cfg.Telegram.BotName,
		HandlerTimeout: ht,
		AdminCacheTTL:  ttl,
	}, nil
}
