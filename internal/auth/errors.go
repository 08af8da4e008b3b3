package auth

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an expected auth rejection. Anything that is not a *Error
// is treated as an internal fault.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindLocked
	KindInvalidCredential
	KindUnauthorized
	KindNoRoleAssigned
	KindDispatchFailure
)

// String returns a stable identifier for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindLocked:
		return "locked"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindUnauthorized:
		return "unauthorized"
	case KindNoRoleAssigned:
		return "no_role_assigned"
	case KindDispatchFailure:
		return "dispatch_failure"
	default:
		return "internal"
	}
}

// Error is a typed, expected rejection returned by the auth engine. Callers
// distinguish expected rejections from system faults by checking KindOf.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfter carries the remaining cooldown when Kind is KindLocked.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf extracts the rejection kind from an error returned by the engine.
// Internal faults map to KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func notFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func locked(wait time.Duration) *Error {
	wait = wait.Round(time.Second)
	return &Error{
		Kind:       KindLocked,
		Message:    fmt.Sprintf("too many failed login attempts, you can login after %s", wait),
		RetryAfter: wait,
	}
}

func invalidCredential(message string) *Error {
	return &Error{Kind: KindInvalidCredential, Message: message}
}

func unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func noRole(message string) *Error {
	return &Error{Kind: KindNoRoleAssigned, Message: message}
}

func dispatchFailure(message string) *Error {
	return &Error{Kind: KindDispatchFailure, Message: message}
}
