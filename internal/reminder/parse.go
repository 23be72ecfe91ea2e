package reminder

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateParser converts a free-form calendar date string ("december 25th, 8:00am")
// into a point in time. Parsing of arbitrary date text is delegated rather than
// reimplemented here.
type DateParser func(s string) (time.Time, error)

// ParseDateString is the production DateParser, backed by dateparse.
// Naive date strings are interpreted as UTC.
func ParseDateString(s string) (time.Time, error) {
	return dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
}

// epochPattern matches inputs that lead with a 10-digit unix timestamp,
// optionally decorated as a chat timestamp tag ("<t:1640419200...", "t:...", ":...").
var epochPattern = regexp.MustCompile(`^\s*<?t?:?(\d{10})`)

// Parse turns a raw trigger expression into a wait duration relative to ref,
// plus the remainder of the input as the reminder message.
//
// Three grammars are tried in order:
//  1. leading 10-digit unix timestamp
//  2. "<date string>; <message>" with the date delegated to dates
//  3. "<number> <unit> [message...]" where unit is second/minute/hour/day/week
//     matched by case-insensitive prefix
//
// All failures come back as *UserError values; the duration is always a span
// from ref so callers treat every grammar identically.
func Parse(raw string, ref time.Time, dates DateParser) (time.Duration, string, error) {
	if m := epochPattern.FindStringSubmatch(raw); m != nil {
		secs, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			parts := strings.Split(strings.TrimSpace(raw), " ")
			msg := strings.Join(parts[1:], " ")
			return checkSpan(time.Unix(secs, 0).UTC().Sub(ref), msg)
		}
	}

	if i := strings.Index(raw, ";"); i >= 0 && dates != nil {
		datePart, msg := raw[:i], strings.TrimSpace(raw[i+1:])
		span, ok := parseDatePart(datePart, ref, dates)
		if ok {
			return checkSpan(span, msg)
		}
		// An unparseable date falls through to the relative grammar, matching
		// how stray semicolons inside a plain relative message should behave.
	}

	return parseRelative(raw, ref)
}

func parseDatePart(s string, ref time.Time, dates DateParser) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "now") {
		return 0, true
	}
	ts, err := dates(s)
	if err != nil {
		return 0, false
	}
	return ts.Sub(ref), true
}

func parseRelative(raw string, ref time.Time) (time.Duration, string, error) {
	parts := strings.Split(strings.TrimSpace(raw), " ")

	// The unit token may carry the start of the message after a line break
	// instead of a space: ["1", "second\nThis", "here"] must become
	// ["1", "second", "This", "here"].
	if len(parts) > 1 && strings.Contains(parts[1], "\n") {
		sub := strings.SplitN(parts[1], "\n", 2)
		rest := append([]string{sub[1]}, parts[2:]...)
		parts = append(parts[:2:2], rest...)
		parts[1] = sub[0]
	}

	if len(parts) < 2 {
		return 0, "", userErr(ErrSyntax,
			"Incorrect syntax for a reminder. Use `<number> <unit> [message]`, a unix timestamp, or `<date>; <message>`.")
	}

	n, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, "", userErr(ErrNotANumber, "Please enter a number of time units.")
	}

	unit, ok := unitDuration(parts[1])
	if !ok {
		return 0, "", userErr(ErrBadUnit,
			"Please specify a time in the form of `<number> <second(s)|minute(s)|hour(s)|day(s)|week(s)>`.")
	}

	return checkSpan(time.Duration(n*float64(unit)), strings.Join(parts[2:], " "))
}

func unitDuration(unit string) (time.Duration, bool) {
	u := strings.ToLower(unit)
	switch {
	case strings.HasPrefix(u, "sec"):
		return time.Second, true
	case strings.HasPrefix(u, "min"):
		return time.Minute, true
	case strings.HasPrefix(u, "hour"):
		return time.Hour, true
	case strings.HasPrefix(u, "day"):
		return 24 * time.Hour, true
	case strings.HasPrefix(u, "week"):
		return 7 * 24 * time.Hour, true
	}
	return 0, false
}

func checkSpan(span time.Duration, msg string) (time.Duration, string, error) {
	if span < time.Second {
		return 0, "", userErr(ErrPastTime, "Please give a time that is in the future.")
	}
	return span, msg, nil
}
