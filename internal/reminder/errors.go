package reminder

// UserError is an expected, user-correctable failure. Its Text is sent back
// to the chat verbatim, so every instance must be a complete, actionable
// sentence rather than a generic "invalid input".
type UserError struct {
	Kind ErrorKind
	Text string
}

type ErrorKind int

const (
	// ErrSyntax: fewer than two tokens in the relative form.
	ErrSyntax ErrorKind = iota + 1
	// ErrNotANumber: the first relative-form token is not a number.
	ErrNotANumber
	// ErrBadUnit: the unit token matches none of the known keywords.
	ErrBadUnit
	// ErrPastTime: the requested time is in the past or too soon.
	ErrPastTime
	// ErrNotFound: no reminder exists with the given id.
	ErrNotFound
	// ErrExpired: the reminder exists but is no longer active.
	ErrExpired
	// ErrUnauthorized: the requester may not cancel this reminder.
	ErrUnauthorized
)

func (e *UserError) Error() string { return e.Text }

func userErr(kind ErrorKind, text string) *UserError {
	return &UserError{Kind: kind, Text: text}
}

// AsUserError returns the UserError wrapped in err, if any.
func AsUserError(err error) (*UserError, bool) {
	ue, ok := err.(*UserError)
	return ue, ok
}
