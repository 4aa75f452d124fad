package auth

import (
	"errors"
	"fmt"
)

// Field identifies which login form element a resolution failure
// refers to.
type Field string

const (
	FieldIdentifier Field = "identifier"
	FieldSecret     Field = "secret"
	FieldSubmit     Field = "submit"
)

// ErrVerificationFailed reports that credentials were submitted but
// the post-submit state is not authenticated. A login failure, not a
// crash; the caller owns retry policy.
var ErrVerificationFailed = errors.New("post-submit verification failed: not authenticated")

// ElementNotFoundError reports candidate exhaustion for one login form
// field. Recoverable; the caller decides whether to retry.
type ElementNotFoundError struct {
	Field Field
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no candidate matched the %s field", e.Field)
}

// TransportError reports an engine or navigation failure. Fatal for
// the current attempt; never retried internally.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
