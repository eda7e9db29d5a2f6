package session

import (
	"errors"
	"fmt"

	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/auth/providers"
)

// ErrWatchdogExpired is the cause of a Failed outcome when the exchange did not settle in time.
var ErrWatchdogExpired = errors.New("session: callback was not resolved in time")

type OutcomeKind int

const (
	Authenticated OutcomeKind = iota + 1
	Denied
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case Denied:
		return "denied"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one callback landing. Token and Profile are
// set for Authenticated (Profile may be nil), Reason for Denied, Cause for Failed.
type Outcome struct {
	Kind    OutcomeKind
	Token   string
	Profile *models.UserProfile
	Reason  string
	Cause   error

	Route  Route
	Notice string
}

func (o Outcome) String() string {
	switch o.Kind {
	case Authenticated:
		return fmt.Sprintf("authenticated (profile: %t)", o.Profile != nil)
	case Denied:
		return fmt.Sprintf("denied: %s", o.Reason)
	case Failed:
		return fmt.Sprintf("failed: %v", o.Cause)
	default:
		return "unknown outcome"
	}
}

// failureNotice is the one-line message shown for a failed exchange.
func failureNotice(err error) string {
	var ee *providers.ExchangeError
	if errors.As(err, &ee) {
		switch ee.Kind {
		case providers.KindRejected:
			return "The sign-in provider rejected the request. Please sign in again."
		case providers.KindInvalidInput:
			return "The sign-in response was incomplete. Please sign in again."
		}
	}
	if errors.Is(err, ErrWatchdogExpired) {
		return "Sign-in is taking longer than expected."
	}
	return "Could not reach the sign-in service. Please try again."
}

func denialNotice(reason string) string {
	return fmt.Sprintf("Sign-in was not completed (%s).", reason)
}
