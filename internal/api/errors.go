package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrUnauthorized marks credential failures that must invalidate the stored
// token, as opposed to generic request failures.
var ErrUnauthorized = errors.New("unauthorized")

// ErrTimedOut marks requests that exceeded their deadline.
var ErrTimedOut = errors.New("request timed out")

// Error is the normalized failure shape for every backend call. Callers never
// see raw transport errors.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func (e *Error) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// IsUnauthorized reports whether err represents a missing, invalid, or
// expired credential.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTimeout reports whether err represents an exceeded deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimedOut)
}

func normalizeTransportErr(err error, fallback string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: please check your connection and try again", ErrTimedOut)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: please check your connection and try again", ErrTimedOut)
	}
	if fallback == "" {
		fallback = "could not reach the wellness service"
	}
	return fmt.Errorf("%s: %w", fallback, err)
}
