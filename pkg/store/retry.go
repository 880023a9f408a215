package store

import (
	"context"
	"errors"
	"time"
)

// retryAttempts and retryDelay bound retries of transient backend errors.
var (
	retryAttempts = 3
	retryDelay    = 200 * time.Millisecond
)

// transientError marks a backend error worth retrying (timeouts, dropped
// connections).
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// transient wraps err as retryable. A nil error stays nil.
func transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// retry runs fn until it succeeds, fails permanently, or retryAttempts is
// reached, doubling the delay each time. The last error is returned
// unwrapped.
func retry(ctx context.Context, fn func() error) error {
	delay := retryDelay
	var last error
	for i := range retryAttempts {
		err := fn()
		if err == nil {
			return nil
		}
		last = err
		if !isTransient(err) {
			break
		}
		if i < retryAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	var te *transientError
	if errors.As(last, &te) {
		return te.err
	}
	return last
}
