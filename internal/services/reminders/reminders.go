package reminders

import (
	"context"
	"fmt"
	"time"

	"remembot/internal/reminder"
	"remembot/internal/storage"
	logx "remembot/pkg/logx"
)

// Create parses the trigger expression and schedules the reminder.
//
// One-shot reminders closer than QuickThreshold are held in memory: they are
// the overwhelmingly common case and not worth a store round trip, at the cost
// of being lost on restart. Everything else is persisted.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	now := s.now().UTC()

	span, msg, err := reminder.Parse(req.Input, now, s.dates)
	if err != nil {
		return CreateResult{}, err
	}
	if span < s.cfg.MinDelay {
		return CreateResult{}, &reminder.UserError{
			Kind: reminder.ErrPastTime,
			Text: fmt.Sprintf("Please give a time at least %s from now.", s.cfg.MinDelay),
		}
	}

	trigger := now.Add(span)
	r := reminder.Reminder{
		OwnerID:         req.OwnerID,
		OriginMessageID: req.MessageID,
		OriginChatID:    req.ChatID,
		CreatedAt:       now,
		TriggerAt:       trigger,
		Message:         msg,
		Recurrence:      req.Recurrence,
		Active:          true,
	}
	if req.Recurrence.IsRecurring() {
		r.OriginalTriggerAt = trigger
	}

	if req.Recurrence == reminder.None && span < s.cfg.QuickThreshold {
		s.scheduleQuick(r, span)
		s.log.Debug("quick reminder scheduled",
			logx.Int64("owner", r.OwnerID), logx.Duration("span", span))
		return CreateResult{TriggerAt: trigger, Quick: true, Message: msg}, nil
	}

	if s.store == nil {
		return CreateResult{}, storage.ErrDisabled
	}
	id, err := s.store.Insert(ctx, r)
	if err != nil {
		return CreateResult{}, err
	}
	s.log.Info("reminder stored",
		logx.Int64("id", id), logx.Int64("owner", r.OwnerID),
		logx.Time("trigger_at", trigger), logx.String("recurrence", r.Recurrence.String()))
	return CreateResult{ID: id, TriggerAt: trigger, Message: msg, Recurrence: req.Recurrence}, nil
}

// Cancel deactivates a stored reminder. Only the owner or a chat admin may
// cancel; the returned reminder reflects the row as it was, for confirmation
// text.
func (s *Service) Cancel(ctx context.Context, id, requester int64, isAdmin bool) (*reminder.Reminder, error) {
	if s.store == nil {
		return nil, storage.ErrDisabled
	}
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &reminder.UserError{
			Kind: reminder.ErrNotFound,
			Text: fmt.Sprintf("No reminder with id %d exists.", id),
		}
	}
	if !r.Active {
		return nil, &reminder.UserError{
			Kind: reminder.ErrExpired,
			Text: fmt.Sprintf("Reminder %d already fired or was cancelled.", id),
		}
	}
	if r.OwnerID != requester && !isAdmin {
		return nil, &reminder.UserError{
			Kind: reminder.ErrUnauthorized,
			Text: "Only the reminder's owner or a chat admin can cancel it.",
		}
	}
	if _, err := s.store.Deactivate(ctx, id); err != nil {
		return nil, err
	}
	s.log.Info("reminder cancelled", logx.Int64("id", id), logx.Int64("by", requester))
	r.Active = false
	return r, nil
}

// Describe looks up a stored reminder, active or not.
func (s *Service) Describe(ctx context.Context, id int64) (*reminder.Reminder, error) {
	if s.store == nil {
		return nil, storage.ErrDisabled
	}
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &reminder.UserError{
			Kind: reminder.ErrNotFound,
			Text: fmt.Sprintf("No reminder with id %d exists.", id),
		}
	}
	return r, nil
}

func (s *Service) scheduleQuick(r reminder.Reminder, span time.Duration) {
	run := func(ctx context.Context) {
		t := time.NewTimer(span)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := s.deliver(ctx, r); err != nil {
			s.log.Warn("quick reminder delivery failed",
				logx.Int64("owner", r.OwnerID), logx.Err(err))
		}
	}

	s.mu.Lock()
	sup := s.sup
	s.mu.Unlock()
	if sup != nil {
		sup.Go0("quick_reminder", run)
		return
	}
	go run(context.Background())
}
