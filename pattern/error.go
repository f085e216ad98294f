package pattern

import "fmt"

// Error is returned for malformed path patterns: unbalanced group syntax or
// conflicting parameter names. It is fatal at configuration load.
type Error struct {
	Pattern  string
	Position int
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid pattern %q at offset %d: %s", e.Pattern, e.Position, e.Message)
}
