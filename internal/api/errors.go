package api

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyResponse = errors.New("empty response")
	// ErrNotSent marks failures that happened before the request left the
	// process, e.g. a cancelled wait on the rate limiter.
	ErrNotSent = errors.New("request not sent")
)

// TransportError covers network failures, non-200 statuses and empty bodies.
// Endpoint never includes the query string so API keys stay out of logs.
type TransportError struct {
	Method   string
	Endpoint string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
