package domain

import "fmt"

// GateError reports a plan gate that rejected a request. Err is one of
// ErrLimitReached, ErrOptionLocked or ErrFeatureLocked.
type GateError struct {
	Err     error
	Key     string
	Message string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Key)
}

func (e *GateError) Unwrap() error {
	return e.Err
}
