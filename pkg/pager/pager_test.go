package pager

import (
	"strings"
	"testing"
)

func TestSplitShortPassthrough(t *testing.T) {
	t.Parallel()
	got := Split("hello", 100)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("Split = %q", got)
	}
}

func TestSplitEmpty(t *testing.T) {
	t.Parallel()
	got := Split("", 100)
	if len(got) != 1 || got[0] != "" {
		t.Fatalf("Split = %q", got)
	}
}

func TestSplitRespectsLimit(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("0123456789\n")
	}
	chunks := Split(b.String(), 80)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 80 {
			t.Fatalf("chunk %d is %d runes", i, n)
		}
		if c == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
	joined := strings.Join(chunks, "\n")
	if strings.Count(joined, "0123456789") != 100 {
		t.Fatalf("lines lost: %d", strings.Count(joined, "0123456789"))
	}
}

func TestSplitKeepsFencesBalanced(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	b.WriteString("before\n```\n")
	for i := 0; i < 50; i++ {
		b.WriteString("code line here\n")
	}
	b.WriteString("```\nafter\n")

	chunks := Split(b.String(), 120)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		n := 0
		for _, line := range strings.Split(c, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				n++
			}
		}
		if n%2 != 0 {
			t.Fatalf("chunk %d has unbalanced fences:\n%s", i, c)
		}
	}
}

func TestSplitHardSplitsLongLine(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", 300)
	chunks := Split(long, 100)
	if len(chunks) < 3 {
		t.Fatalf("expected >= 3 chunks, got %d", len(chunks))
	}
	var total int
	for i, c := range chunks {
		if n := len([]rune(c)); n > 100 {
			t.Fatalf("chunk %d is %d runes", i, n)
		}
		total += strings.Count(c, "a")
	}
	if total != 300 {
		t.Fatalf("characters lost: %d", total)
	}
}
