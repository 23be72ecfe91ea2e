package reminders

import (
	"context"
	"strconv"
	"strings"

	"remembot/internal/reminder"
	kit "remembot/internal/transport"
	logx "remembot/pkg/logx"
)

// poll scans the store for due reminders and processes each one.
// Delivery failures never block bookkeeping: a row that cannot be sent is
// still advanced or deactivated, otherwise it would be retried forever.
func (s *Service) poll(ctx context.Context) {
	now := s.now().UTC()
	due, err := s.store.GetDue(ctx, now)
	if err != nil {
		s.log.Error("due scan failed", logx.Err(err))
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Debug("processing due reminders", logx.Int("count", len(due)))

	for _, r := range due {
		if err := s.deliver(ctx, r); err != nil {
			s.log.Warn("delivery failed",
				logx.Int64("id", r.ID), logx.Int64("chat", r.OriginChatID), logx.Err(err))
		}
		if err := s.advance(ctx, r); err != nil {
			s.log.Error("bookkeeping failed", logx.Int64("id", r.ID), logx.Err(err))
		}
	}
}

// advance re-arms a recurring reminder or retires a one-shot.
// The next occurrence is always computed from the original anchor, not the
// last trigger, so monthly and yearly phase never drifts.
func (s *Service) advance(ctx context.Context, r reminder.Reminder) error {
	if !r.Recurrence.IsRecurring() {
		_, err := s.store.Deactivate(ctx, r.ID)
		return err
	}
	anchor := r.OriginalTriggerAt
	if anchor.IsZero() {
		// Rows from before the anchor column existed.
		anchor = r.TriggerAt
	}
	next := reminder.Next(r.Recurrence, anchor, s.now().UTC())
	_, err := s.store.UpdateTriggerAt(ctx, r.ID, next)
	if err == nil {
		s.log.Debug("reminder re-armed", logx.Int64("id", r.ID), logx.Time("next", next))
	}
	return err
}

func (s *Service) deliver(ctx context.Context, r reminder.Reminder) error {
	body := deliveryText(s.renderMessage(ctx, r.OriginChatID, r.Message), r.Recurrence)
	to := kit.ChatTarget{ChatID: r.OriginChatID}

	if r.OriginMessageID != 0 {
		_, err := s.send.SendText(ctx, to, body, &kit.SendOptions{
			ReplyTo:        r.OriginMessageID,
			DisablePreview: true,
		})
		if err == nil {
			return nil
		}
		// The origin message may have been deleted; fall back to a fresh send.
		s.log.Debug("reply to origin failed, sending fresh",
			logx.Int64("id", r.ID), logx.Err(err))
	}
	// A fresh message carries no reply context, so address the owner
	// explicitly or they cannot tell the reminder is theirs.
	body = s.ownerTag(ctx, r.OriginChatID, r.OwnerID) + " " + body
	_, err := s.send.SendText(ctx, to, body, &kit.SendOptions{DisablePreview: true})
	return err
}

// ownerTag renders a mention for the reminder's owner, degrading to the raw
// id when the member lookup fails.
func (s *Service) ownerTag(ctx context.Context, chatID, ownerID int64) string {
	if tag, ok := s.memberTag(ctx, chatID, ownerID); ok {
		return tag
	}
	return "@" + strconv.FormatInt(ownerID, 10)
}

// memberTag resolves a chat member's display name through the TTL cache.
func (s *Service) memberTag(ctx context.Context, chatID, userID int64) (string, bool) {
	key := memberKey{chat: chatID, user: userID}
	if name, ok := s.names.Get(key); ok {
		return "@" + name, true
	}
	name, err := s.send.MemberName(ctx, chatID, userID)
	if err != nil || name == "" {
		return "", false
	}
	s.names.Add(key, name)
	return "@" + name, true
}

// renderMessage resolves \@\id mention escapes against current chat
// membership. Resolution happens here, at delivery time, so a member who
// left or was renamed after the reminder was created is handled correctly.
func (s *Service) renderMessage(ctx context.Context, chatID int64, msg string) string {
	if msg == "" {
		return ""
	}
	resolveUser := func(token string) (string, bool) {
		if i := strings.Index(token, "#"); i >= 0 {
			token = token[:i]
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return "", false
		}
		return s.memberTag(ctx, chatID, id)
	}
	// Telegram has no role mentions; unknown tokens fall back to literals.
	return reminder.ResolveEscapedMentions(msg, resolveUser, nil)
}

func deliveryText(msg string, rec reminder.Recurrence) string {
	if strings.TrimSpace(msg) == "" {
		if rec.IsRecurring() {
			return "⏰ Recurring reminder!"
		}
		return "⏰ Reminder!"
	}
	return "⏰ Reminder: " + msg
}
