package feed

import "fmt"

// ParseError is returned when a feed document is not well-formed enough to
// locate a channel/item structure. An empty channel is not an error.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("feed parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
