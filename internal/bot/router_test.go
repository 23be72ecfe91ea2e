package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"remembot/internal/reminder"
	"remembot/internal/services/reminders"
	kit "remembot/internal/transport"
	logx "remembot/pkg/logx"
)

type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]reminder.Reminder
}

func newMemStore() *memStore { return &memStore{rows: map[int64]reminder.Reminder{}} }

func (m *memStore) Insert(_ context.Context, r reminder.Reminder) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	m.rows[r.ID] = r
	return r.ID, nil
}

func (m *memStore) GetDue(_ context.Context, asOf time.Time) ([]reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reminder.Reminder
	for _, r := range m.rows {
		if r.Active && !r.TriggerAt.After(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*reminder.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) Deactivate(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || !r.Active {
		return false, nil
	}
	r.Active = false
	m.rows[id] = r
	return true, nil
}

func (m *memStore) UpdateTriggerAt(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	r.TriggerAt = at
	m.rows[id] = r
	return true, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) row(t *testing.T, id int64) reminder.Reminder {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		t.Fatalf("no row %d", id)
	}
	return r
}

type stubAdapter struct {
	mu     sync.Mutex
	sent   []string
	admins map[int64][]int64
}

func (a *stubAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (a *stubAdapter) Stop(context.Context) error                     { return nil }

func (a *stubAdapter) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, text)
	return kit.MessageRef{MessageID: len(a.sent)}, nil
}

func (a *stubAdapter) ChatAdmins(_ context.Context, chatID int64) ([]int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids, ok := a.admins[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %d not found", chatID)
	}
	return ids, nil
}

func (a *stubAdapter) MemberName(context.Context, int64, int64) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (a *stubAdapter) lastReply(t *testing.T) string {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.sent) == 0 {
		t.Fatal("no reply sent")
	}
	return a.sent[len(a.sent)-1]
}

func newTestRouter(st *memStore, ad *stubAdapter) *Router {
	svc := reminders.New(reminders.Config{
		QuickThreshold: 600 * time.Second,
		MinDelay:       10 * time.Second,
	}, st, ad, nil, logx.Nop())
	return New(Config{BotName: "remembot"}, ad, svc, logx.Nop())
}

func msgUpdate(text string, from int64, group bool) kit.Update {
	return kit.Update{Message: &kit.Message{
		ID: 42, ChatID: -100, FromID: from, Text: text, IsGroup: group,
	}}
}

func TestRemindDurable(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ad := &stubAdapter{}
	r := newTestRouter(st, ad)

	r.handleUpdate(context.Background(), msgUpdate("/remind 2 hours call mom", 7, true))

	reply := ad.lastReply(t)
	if !strings.Contains(reply, "Reminder #1") || !strings.Contains(reply, "/forget 1") {
		t.Fatalf("reply = %q", reply)
	}
	row := st.row(t, 1)
	if row.OwnerID != 7 || row.Message != "call mom" || row.OriginMessageID != 42 {
		t.Fatalf("row = %+v", row)
	}
}

func TestRemindUserErrorIsVerbatim(t *testing.T) {
	t.Parallel()
	ad := &stubAdapter{}
	r := newTestRouter(newMemStore(), ad)

	r.handleUpdate(context.Background(), msgUpdate("/remind banana hours x", 7, false))

	reply := ad.lastReply(t)
	if !strings.Contains(reply, "Please enter a number") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestRecurStripsTrailingKeyword(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ad := &stubAdapter{}
	r := newTestRouter(st, ad)

	r.handleUpdate(context.Background(), msgUpdate("/recur 600 seconds water plants daily", 7, false))

	row := st.row(t, 1)
	if row.Recurrence != reminder.Daily {
		t.Fatalf("recurrence = %v", row.Recurrence)
	}
	if row.Message != "water plants" {
		t.Fatalf("message = %q", row.Message)
	}
	if row.OriginalTriggerAt.IsZero() {
		t.Fatal("recurring row has no anchor")
	}
}

func TestRecurRejectsUnknownKeyword(t *testing.T) {
	t.Parallel()
	ad := &stubAdapter{}
	r := newTestRouter(newMemStore(), ad)

	r.handleUpdate(context.Background(), msgUpdate("/recur 600 seconds x sometimes", 7, false))

	if reply := ad.lastReply(t); !strings.Contains(reply, "not a recurrence") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestForgetOwnerAndAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newMemStore()
	ad := &stubAdapter{admins: map[int64][]int64{-100: {99}}}
	r := newTestRouter(st, ad)

	r.handleUpdate(ctx, msgUpdate("/remind 2 hours secret", 7, true))

	// A stranger cannot cancel someone else's reminder.
	r.handleUpdate(ctx, msgUpdate("/forget 1", 8, true))
	if reply := ad.lastReply(t); !strings.Contains(reply, "owner or a chat admin") {
		t.Fatalf("stranger reply = %q", reply)
	}
	if !st.row(t, 1).Active {
		t.Fatal("stranger cancelled the reminder")
	}

	// A chat admin can.
	r.handleUpdate(ctx, msgUpdate("/forget 1", 99, true))
	if reply := ad.lastReply(t); !strings.Contains(reply, "cancelled") {
		t.Fatalf("admin reply = %q", reply)
	}
	if st.row(t, 1).Active {
		t.Fatal("admin cancel had no effect")
	}
}

func TestForgetMissing(t *testing.T) {
	t.Parallel()
	ad := &stubAdapter{}
	r := newTestRouter(newMemStore(), ad)

	r.handleUpdate(context.Background(), msgUpdate("/forget 5", 7, false))

	if reply := ad.lastReply(t); !strings.Contains(reply, "No reminder with id 5") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ad := &stubAdapter{}
	r := newTestRouter(st, ad)
	ctx := context.Background()

	r.handleUpdate(ctx, msgUpdate("/recur 20 minutes standup weekly", 7, false))
	r.handleUpdate(ctx, msgUpdate("/reminder 1", 7, false))

	reply := ad.lastReply(t)
	for _, want := range []string{"Reminder #1", "Repeats: weekly", "Message: standup"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("reply %q missing %q", reply, want)
		}
	}
}

func TestBotNameAddressing(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ad := &stubAdapter{}
	r := newTestRouter(st, ad)
	ctx := context.Background()

	r.handleUpdate(ctx, msgUpdate("/remind@otherbot 2 hours x", 7, true))
	if len(ad.sent) != 0 {
		t.Fatalf("handled a command addressed to another bot: %q", ad.sent)
	}

	r.handleUpdate(ctx, msgUpdate("/remind@remembot 2 hours x", 7, true))
	if len(ad.sent) != 1 {
		t.Fatalf("did not handle command addressed to us: %q", ad.sent)
	}
}

func TestNewlineAfterUnitSurvivesRouting(t *testing.T) {
	t.Parallel()
	st := newMemStore()
	ad := &stubAdapter{}
	r := newTestRouter(st, ad)

	r.handleUpdate(context.Background(), msgUpdate("/remind 2 hours\nbuy milk", 7, false))

	if row := st.row(t, 1); row.Message != "buy milk" {
		t.Fatalf("message = %q", row.Message)
	}
}
