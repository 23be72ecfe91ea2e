// Package pager splits long outgoing messages into chat-sized chunks.
//
// Splits prefer line boundaries and never leave a ``` fenced code block
// dangling: a chunk that ends inside a fence is closed, and the fence is
// reopened at the start of the next chunk.
package pager

import "strings"

const (
	// DefaultLimit is a safe per-message length for chat transports.
	DefaultLimit = 4000

	fence = "```"
)

// Split breaks s into chunks of at most limit runes. Empty input yields a
// single empty chunk so callers always have something to send.
func Split(s string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit < 64 {
		limit = 64
	}
	if len([]rune(s)) <= limit {
		return []string{s}
	}

	var (
		out     []string
		cur     strings.Builder
		curLen  int
		inFence bool
	)

	flush := func() {
		if curLen == 0 {
			return
		}
		chunk := strings.TrimRight(cur.String(), "\n")
		if inFence {
			chunk += "\n" + fence
		}
		out = append(out, chunk)
		cur.Reset()
		curLen = 0
		if inFence {
			cur.WriteString(fence + "\n")
			curLen = len(fence) + 1
		}
	}

	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" {
			continue
		}
		lineRunes := len([]rune(line))

		// Reserve room for a closing fence when one is open or opening.
		reserve := 0
		if inFence || isFenceLine(line) {
			reserve = len(fence) + 1
		}

		if lineRunes > limit-curLen-reserve && curLen > 0 {
			flush()
		}

		// A single line longer than the limit is hard-split.
		for len([]rune(line)) > limit-curLen-reserve {
			rs := []rune(line)
			take := limit - curLen - reserve
			if take <= 0 {
				flush()
				continue
			}
			cur.WriteString(string(rs[:take]))
			curLen += take
			flush()
			line = string(rs[take:])
		}

		if isFenceLine(line) {
			inFence = !inFence
		}
		cur.WriteString(line)
		curLen += len([]rune(line))
	}
	flush()

	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func isFenceLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), fence)
}
