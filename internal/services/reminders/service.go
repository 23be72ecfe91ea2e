// Package reminders schedules, persists and delivers chat reminders.
//
// Short one-shot reminders live in memory; everything else is persisted and
// picked up by a periodic store poll, so reminders survive restarts and fire
// late rather than never.
package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/robfig/cron/v3"

	"remembot/internal/reminder"
	rtsup "remembot/internal/runtime/supervisor"
	"remembot/internal/storage"
	logx "remembot/pkg/logx"
)

type Service struct {
	cfg   Config
	log   logx.Logger
	store storage.Store
	send  Dispatcher
	dates reminder.DateParser
	now   func() time.Time

	mu  sync.Mutex
	c   *cron.Cron
	sup *rtsup.Supervisor

	// names caches member display names per (chat, user) for mention
	// resolution. Entries expire so renames are picked up.
	names *expirable.LRU[memberKey, string]
}

// New builds the service. store may be nil (storage disabled); recurring and
// long reminders are then rejected while quick ones still work.
func New(cfg Config, store storage.Store, send Dispatcher, dates reminder.DateParser, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   cfg.withDefaults(),
		log:   log,
		store: store,
		send:  send,
		dates: dates,
		now:   time.Now,
		names: expirable.NewLRU[memberKey, string](256, nil, 10*time.Minute),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil {
		return nil
	}

	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log.With(logx.String("comp", "reminders"))),
		rtsup.WithCancelOnError(false),
	)

	if s.store == nil {
		s.log.Warn("storage disabled, only quick reminders will work")
		return nil
	}

	c := cron.New()
	sup := s.sup
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.cfg.PollInterval), func() {
		s.poll(sup.Context())
	}); err != nil {
		return fmt.Errorf("schedule poll: %w", err)
	}
	c.Start()
	s.c = c

	// Catch up anything that came due while the process was down.
	sup.Go0("poll.catchup", func(c context.Context) {
		s.poll(c)
	})

	s.log.Info("service started",
		logx.Duration("poll_interval", s.cfg.PollInterval),
		logx.Duration("quick_threshold", s.cfg.QuickThreshold))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	sup := s.sup
	s.c = nil
	s.sup = nil
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if sup != nil {
		return sup.Stop(ctx)
	}
	return nil
}
