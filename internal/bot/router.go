// Package bot routes incoming chat commands to the reminder service.
package bot

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	rtsup "remembot/internal/runtime/supervisor"
	"remembot/internal/services/reminders"
	kit "remembot/internal/transport"
	logx "remembot/pkg/logx"
)

type Config struct {
	// BotName is the bot's username, used to claim /cmd@name forms in groups.
	BotName string
	// HandlerTimeout bounds a single command execution.
	HandlerTimeout time.Duration
	// AdminCacheTTL bounds how stale the per-chat admin list may be.
	AdminCacheTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
	if c.AdminCacheTTL <= 0 {
		c.AdminCacheTTL = 5 * time.Minute
	}
	return c
}

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handle      HandlerFunc
}

// Request is the per-command view of an incoming message.
type Request struct {
	Msg  kit.Message
	Chat kit.ChatTarget
	// Args is the raw text after the command token, newlines preserved.
	Args   string
	Logger logx.Logger
}

type Router struct {
	cfg     Config
	log     logx.Logger
	adapter kit.Adapter
	svc     *reminders.Service

	cmds map[string]*Command
	list []*Command
	mw   []Middleware

	// admins caches per-chat admin id lists so /forget authorization does
	// not hit the API on every call.
	admins *expirable.LRU[int64, []int64]

	sup *rtsup.Supervisor
}

func New(cfg Config, adapter kit.Adapter, svc *reminders.Service, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	r := &Router{
		cfg:     cfg,
		log:     log,
		adapter: adapter,
		svc:     svc,
		cmds:    map[string]*Command{},
		admins:  expirable.NewLRU[int64, []int64](128, nil, cfg.AdminCacheTTL),
	}
	r.mw = []Middleware{
		MWPanicRecover(log),
		MWRequestLog(log),
		MWTimeout(cfg.HandlerTimeout),
	}
	r.registerCommands()
	return r
}

func (r *Router) register(c *Command) {
	r.list = append(r.list, c)
	r.cmds[c.Name] = c
	for _, a := range c.Aliases {
		r.cmds[a] = c
	}
}

// Commands returns the menu entries for the platform command list.
func (r *Router) Commands() []kit.BotCommand {
	out := make([]kit.BotCommand, 0, len(r.list))
	for _, c := range r.list {
		out = append(out, kit.BotCommand{Command: c.Name, Description: c.Description})
	}
	return out
}

// Run consumes updates until ctx is cancelled. Handlers run inline so a
// chat's commands are processed in order.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) {
	r.sup = rtsup.New(ctx, rtsup.WithLogger(r.log.With(logx.String("comp", "bot"))))
	r.sup.Go0("router.loop", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case up, ok := <-updates:
				if !ok {
					return
				}
				r.handleUpdate(c, up)
			}
		}
	})
}

func (r *Router) Wait(ctx context.Context) error {
	if r.sup == nil {
		return nil
	}
	return r.sup.Wait(ctx)
}

func (r *Router) handleUpdate(ctx context.Context, up kit.Update) {
	m := up.Message
	if m == nil {
		return
	}
	name, args, ok := r.matchCommand(m)
	if !ok {
		return
	}
	cmd, found := r.cmds[name]
	if !found {
		return
	}

	req := &Request{
		Msg:    *m,
		Chat:   kit.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID},
		Args:   args,
		Logger: r.log.With(logx.String("cmd", name), logx.Int64("from", m.FromID)),
	}
	h := Chain(cmd.Handle, r.mw...)
	if err := h(ctx, req); err != nil {
		req.Logger.Warn("command failed", logx.Err(err))
	}
}

// matchCommand extracts the command name and raw argument text from a
// message. Newlines in the argument text survive, the trigger grammar
// depends on them.
func (r *Router) matchCommand(m *kit.Message) (name, args string, ok bool) {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	tok := text[1:]
	rest := ""
	if i := strings.IndexAny(tok, " \n"); i >= 0 {
		rest = strings.TrimLeft(tok[i:], " \n")
		tok = tok[:i]
	}

	// "/remind@somebot" addressed to another bot is not ours.
	if i := strings.Index(tok, "@"); i >= 0 {
		target := tok[i+1:]
		tok = tok[:i]
		if r.cfg.BotName != "" && !strings.EqualFold(target, r.cfg.BotName) {
			return "", "", false
		}
	}
	return strings.ToLower(tok), rest, true
}

// reply sends text as a reply to the triggering message, falling back to a
// plain send when the reply target is rejected.
func (r *Router) reply(ctx context.Context, req *Request, text string) error {
	_, err := r.adapter.SendText(ctx, req.Chat, text, &kit.SendOptions{
		ReplyTo:        req.Msg.ID,
		DisablePreview: true,
	})
	if err == nil {
		return nil
	}
	_, err = r.adapter.SendText(ctx, req.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}

// isChatAdmin reports whether userID currently administers the chat.
// Lookup failures deny: authorization must not open up when the API flakes.
func (r *Router) isChatAdmin(ctx context.Context, chatID, userID int64) bool {
	ids, ok := r.admins.Get(chatID)
	if !ok {
		var err error
		ids, err = r.adapter.ChatAdmins(ctx, chatID)
		if err != nil {
			r.log.Warn("admin lookup failed", logx.Int64("chat", chatID), logx.Err(err))
			return false
		}
		r.admins.Add(chatID, ids)
	}
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}
