package ledger

import (
	"errors"
	"fmt"
)

// ErrTransport classifies every failure to obtain a usable reply from the
// ledger application: timeouts, refused connections, HTTP errors and
// undecodable bodies all match it.
var ErrTransport = errors.New("ledger transport failure")

// TransportError wraps the underlying cause of a transport failure
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes every TransportError match ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
