package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// ErrorKind classifies provider failures
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindRejected
	KindUnreachable
	KindMalformed
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindRejected:
		return "rejected"
	case KindUnreachable:
		return "unreachable"
	case KindMalformed:
		return "malformed"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// ExchangeError is returned by ExchangeCode. No token accompanies it.
type ExchangeError struct {
	Kind   ErrorKind
	Status int // set for KindRejected
	Err    error
}

func (e *ExchangeError) Error() string {
	if e.Kind == KindRejected && e.Status != 0 {
		return fmt.Sprintf("code exchange rejected (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("code exchange %s: %v", e.Kind, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// ProfileError is returned by FetchProfile.
type ProfileError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *ProfileError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("profile fetch %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("profile fetch %s: %v", e.Kind, e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err says the provider rejected the token.
func IsUnauthorized(err error) bool {
	var pe *ProfileError
	return errors.As(err, &pe) && pe.Kind == KindUnauthorized
}

// classifyExchangeError maps an oauth2 exchange failure onto the exchange taxonomy.
func classifyExchangeError(err error) *ExchangeError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &ExchangeError{Kind: KindRejected, Status: status, Err: err}
	}
	if isTransportError(err) {
		return &ExchangeError{Kind: KindUnreachable, Err: err}
	}
	return &ExchangeError{Kind: KindMalformed, Err: err}
}

func isTransportError(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
