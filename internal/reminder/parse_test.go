package reminder

import (
	"errors"
	"testing"
	"time"
)

var ref = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestParseRelative(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		span time.Duration
		msg  string
	}{
		{name: "minutes", raw: "5 minutes get tea", span: 5 * time.Minute, msg: "get tea"},
		{name: "singular", raw: "1 hour", span: time.Hour, msg: ""},
		{name: "fractional", raw: "1.5 hours stretch", span: 90 * time.Minute, msg: "stretch"},
		{name: "abbreviated unit", raw: "10 mins", span: 10 * time.Minute, msg: ""},
		{name: "weeks", raw: "2 weeks renew library books", span: 14 * 24 * time.Hour, msg: "renew library books"},
		{name: "case insensitive", raw: "3 Days", span: 72 * time.Hour, msg: ""},
		{name: "newline after unit", raw: "2 minutes\ntake the bread out", span: 2 * time.Minute, msg: "take the bread out"},
		{name: "newline in message survives", raw: "1 hour\nline one\nline two", span: time.Hour, msg: "line one\nline two"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			span, msg, err := Parse(tt.raw, ref, nil)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if span != tt.span {
				t.Fatalf("span = %v, want %v", span, tt.span)
			}
			if msg != tt.msg {
				t.Fatalf("msg = %q, want %q", msg, tt.msg)
			}
		})
	}
}

func TestParseEpoch(t *testing.T) {
	t.Parallel()
	target := ref.Add(10 * time.Minute)
	epoch := target.Unix()

	tests := []struct {
		name string
		raw  string
		msg  string
	}{
		{name: "bare", raw: "1741608600 the time has come", msg: "the time has come"},
		{name: "tag decorated", raw: "<t:1741608600> the time has come", msg: "the time has come"},
		{name: "colon decorated", raw: ":1741608600", msg: ""},
	}

	if epoch != 1741608600 {
		t.Fatalf("test fixture drift: epoch = %d", epoch)
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			span, msg, err := Parse(tt.raw, ref, nil)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if got := ref.Add(span); !got.Equal(target) {
				t.Fatalf("trigger = %v, want %v", got, target)
			}
			if msg != tt.msg {
				t.Fatalf("msg = %q, want %q", msg, tt.msg)
			}
		})
	}
}

func TestParseDateForm(t *testing.T) {
	t.Parallel()
	target := ref.Add(48 * time.Hour)
	fakeDates := func(s string) (time.Time, error) {
		if s == "march 12th, noon" {
			return target, nil
		}
		return time.Time{}, errors.New("unparseable")
	}

	span, msg, err := Parse("march 12th, noon; water the plants", ref, fakeDates)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := ref.Add(span); !got.Equal(target) {
		t.Fatalf("trigger = %v, want %v", got, target)
	}
	if msg != "water the plants" {
		t.Fatalf("msg = %q", msg)
	}

	// A message whose semicolon fragment is not a date must still parse as
	// the relative grammar.
	span, msg, err = Parse("5 minutes eat; sleep; repeat", ref, fakeDates)
	if err != nil {
		t.Fatalf("Parse with stray semicolon error: %v", err)
	}
	if span != 5*time.Minute || msg != "eat; sleep; repeat" {
		t.Fatalf("got span=%v msg=%q", span, msg)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		kind ErrorKind
	}{
		{name: "empty", raw: "", kind: ErrSyntax},
		{name: "one token", raw: "tomorrow", kind: ErrSyntax},
		{name: "not a number", raw: "five minutes", kind: ErrNotANumber},
		{name: "unknown unit", raw: "5 parsecs", kind: ErrBadUnit},
		{name: "past epoch", raw: "1500000000 too late", kind: ErrPastTime},
		{name: "zero span", raw: "0 seconds hi", kind: ErrPastTime},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.raw, ref, nil)
			ue, ok := AsUserError(err)
			if !ok {
				t.Fatalf("Parse(%q) err = %v, want *UserError", tt.raw, err)
			}
			if ue.Kind != tt.kind {
				t.Fatalf("kind = %v, want %v", ue.Kind, tt.kind)
			}
			if ue.Text == "" {
				t.Fatal("user error must carry guidance text")
			}
		})
	}
}

func TestParseRecurrenceAliases(t *testing.T) {
	t.Parallel()
	tests := []struct {
		alias string
		want  Recurrence
	}{
		{"daily", Daily}, {"d", Daily},
		{"bd", BiDaily}, {"bidaily", BiDaily},
		{"w", Weekly}, {"Weekly", Weekly},
		{"fn", Fortnightly}, {"fortnight", Fortnightly},
		{"m", Monthly}, {"monthly", Monthly},
		{"me", MonthEnd}, {"month-end", MonthEnd},
		{"y", Yearly}, {"year", Yearly},
		{"ye", YearEnd}, {"yearend", YearEnd},
	}
	for _, tt := range tests {
		got, ok := ParseRecurrence(tt.alias)
		if !ok || got != tt.want {
			t.Fatalf("ParseRecurrence(%q) = %v, %v; want %v", tt.alias, got, ok, tt.want)
		}
	}
	if _, ok := ParseRecurrence("sometimes"); ok {
		t.Fatal("expected unknown keyword to be rejected")
	}
}
