package reminder

import (
	"regexp"
	"strings"
)

// escapedMention matches tokens written as \@\Name (optionally with a
// legacy #1234 discriminator suffix). Users escape mentions this way at
// creation time so the bot can re-resolve them when the reminder fires.
var escapedMention = regexp.MustCompile(`\\@\\\w+(?:#\d{4})?`)

// MentionResolver resolves a bare token ("alice", "everyone") to a
// platform-specific mention string. ok is false when the token does not
// name anything the resolver knows about.
type MentionResolver func(token string) (mention string, ok bool)

// ResolveEscapedMentions substitutes every \@\token escape in text.
// Resolution order: user, then role, then a literal "@token" fallback so the
// message still reads sensibly when membership has changed.
//
// This must run at delivery time, not at creation time: stored messages keep
// the escaped form so resolution always reflects current membership.
func ResolveEscapedMentions(text string, resolveUser, resolveRole MentionResolver) string {
	return escapedMention.ReplaceAllStringFunc(text, func(match string) string {
		token := strings.TrimPrefix(match, `\@\`)
		if resolveUser != nil {
			if m, ok := resolveUser(token); ok {
				return m
			}
		}
		if resolveRole != nil {
			if m, ok := resolveRole(token); ok {
				return m
			}
		}
		return "@" + token
	})
}
