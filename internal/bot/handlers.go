package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"remembot/internal/reminder"
	"remembot/internal/services/reminders"
	logx "remembot/pkg/logx"
)

func (r *Router) registerCommands() {
	r.register(&Command{
		Name:        "remind",
		Aliases:     []string{"remindme"},
		Description: "Set a reminder",
		Usage:       "/remind <number> <unit> [message], /remind <unix ts> [message], or /remind <date>; <message>",
		Handle:      r.handleRemind,
	})
	r.register(&Command{
		Name:        "recur",
		Description: "Set a recurring reminder",
		Usage:       "/recur <trigger> <message> <daily|weekly|fortnightly|monthly|month-end|yearly|year-end>",
		Handle:      r.handleRecur,
	})
	r.register(&Command{
		Name:        "forget",
		Description: "Cancel a reminder by id",
		Usage:       "/forget <id>",
		Handle:      r.handleForget,
	})
	r.register(&Command{
		Name:        "reminder",
		Description: "Show a reminder by id",
		Usage:       "/reminder <id>",
		Handle:      r.handleDescribe,
	})
	r.register(&Command{
		Name:        "help",
		Aliases:     []string{"start"},
		Description: "Show usage",
		Handle:      r.handleHelp,
	})
}

func (r *Router) handleRemind(ctx context.Context, req *Request) error {
	if strings.TrimSpace(req.Args) == "" {
		return r.reply(ctx, req, "Usage: "+r.cmds["remind"].Usage)
	}
	res, err := r.svc.Create(ctx, reminders.CreateRequest{
		OwnerID:   req.Msg.FromID,
		ChatID:    req.Msg.ChatID,
		MessageID: req.Msg.ID,
		Input:     req.Args,
	})
	if err != nil {
		return r.fail(ctx, req, err)
	}
	return r.reply(ctx, req, formatCreated(res))
}

func (r *Router) handleRecur(ctx context.Context, req *Request) error {
	fields := strings.Fields(req.Args)
	if len(fields) < 2 {
		return r.reply(ctx, req, "Usage: "+r.cmds["recur"].Usage)
	}

	// The recurrence keyword is always the last token.
	last := fields[len(fields)-1]
	kind, ok := reminder.ParseRecurrence(last)
	if !ok {
		return r.reply(ctx, req, fmt.Sprintf(
			"%q is not a recurrence I know. Use one of: daily, bi-daily, weekly, fortnightly, monthly, month-end, yearly, year-end.", last))
	}
	input := strings.TrimSpace(req.Args[:strings.LastIndex(req.Args, last)])

	res, err := r.svc.Create(ctx, reminders.CreateRequest{
		OwnerID:    req.Msg.FromID,
		ChatID:     req.Msg.ChatID,
		MessageID:  req.Msg.ID,
		Input:      input,
		Recurrence: kind,
	})
	if err != nil {
		return r.fail(ctx, req, err)
	}
	return r.reply(ctx, req, formatCreated(res))
}

func (r *Router) handleForget(ctx context.Context, req *Request) error {
	id, err := strconv.ParseInt(strings.TrimSpace(req.Args), 10, 64)
	if err != nil {
		return r.reply(ctx, req, "Usage: "+r.cmds["forget"].Usage)
	}

	// Try as plain owner first; only consult the admin list when ownership
	// alone is not enough. Keeps the common case off the API.
	rem, cErr := r.svc.Cancel(ctx, id, req.Msg.FromID, false)
	if ue, ok := reminder.AsUserError(cErr); ok && ue.Kind == reminder.ErrUnauthorized && req.Msg.IsGroup {
		if r.isChatAdmin(ctx, req.Msg.ChatID, req.Msg.FromID) {
			rem, cErr = r.svc.Cancel(ctx, id, req.Msg.FromID, true)
		}
	}
	if cErr != nil {
		return r.fail(ctx, req, cErr)
	}
	return r.reply(ctx, req, fmt.Sprintf("🗑 Reminder #%d cancelled. It was set for %s.",
		rem.ID, formatWhen(rem.TriggerAt)))
}

func (r *Router) handleDescribe(ctx context.Context, req *Request) error {
	id, err := strconv.ParseInt(strings.TrimSpace(req.Args), 10, 64)
	if err != nil {
		return r.reply(ctx, req, "Usage: "+r.cmds["reminder"].Usage)
	}
	rem, err := r.svc.Describe(ctx, id)
	if err != nil {
		return r.fail(ctx, req, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reminder #%d\n", rem.ID)
	if rem.Active {
		fmt.Fprintf(&b, "Fires: %s\n", formatWhen(rem.TriggerAt))
	} else {
		fmt.Fprintf(&b, "Status: fired or cancelled (was %s)\n", formatWhen(rem.TriggerAt))
	}
	if rem.Recurrence.IsRecurring() {
		fmt.Fprintf(&b, "Repeats: %s\n", rem.Recurrence)
	}
	if rem.Message != "" {
		fmt.Fprintf(&b, "Message: %s", rem.Message)
	}
	return r.reply(ctx, req, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) handleHelp(ctx context.Context, req *Request) error {
	var b strings.Builder
	b.WriteString("I remember things so you don't have to.\n\n")
	for _, c := range r.list {
		fmt.Fprintf(&b, "/%s - %s\n", c.Name, c.Description)
		if c.Usage != "" {
			fmt.Fprintf(&b, "    %s\n", c.Usage)
		}
	}
	b.WriteString("\nEscape mentions as \\@\\<id> and I'll resolve them when the reminder fires.")
	return r.reply(ctx, req, b.String())
}

// fail reports a handler error to the user. Expected user errors are sent
// verbatim, anything else is logged and masked.
func (r *Router) fail(ctx context.Context, req *Request, err error) error {
	if ue, ok := reminder.AsUserError(err); ok {
		return r.reply(ctx, req, ue.Text)
	}
	req.Logger.Error("command error", logx.Err(err))
	return r.reply(ctx, req, "Something went wrong, please try again.")
}

func formatCreated(res reminders.CreateResult) string {
	when := formatWhen(res.TriggerAt)
	if res.Quick {
		return fmt.Sprintf("⏳ Got it! I'll remind you at %s.", when)
	}
	s := fmt.Sprintf("⏳ Reminder #%d set for %s. Cancel it with /forget %d.", res.ID, when, res.ID)
	if res.Recurrence.IsRecurring() {
		s += fmt.Sprintf(" Repeats %s.", res.Recurrence)
	}
	return s
}

func formatWhen(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}
