package entitlement

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrNoActiveEntitlement = errors.New("no active entitlement")
	ErrLimitReached        = errors.New("usage limit reached")
	ErrExpired             = errors.New("plan expired")
	ErrUpstream            = errors.New("upstream service failed")
	ErrLookup              = errors.New("entitlement lookup failed")
	ErrInvalidUsageKind    = errors.New("invalid usage kind")
)

// Kind is the machine-readable failure category returned to clients.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindNoActivePlan    Kind = "no_active_plan"
	KindLimitReached    Kind = "limit_reached"
	KindExpired         Kind = "expired"
	KindUpstream        Kind = "upstream"
	KindInvalidRequest  Kind = "invalid_request"
	KindInternal        Kind = "internal"
)

// NextAction is what the client should offer the user.
type NextAction string

const (
	NextActionLogin     NextAction = "login"
	NextActionSubscribe NextAction = "subscribe"
	NextActionUpgrade   NextAction = "upgrade"
	NextActionRenew     NextAction = "renew"
	NextActionRetry     NextAction = "retry"
	NextActionNone      NextAction = ""
)

// KindOf classifies an error from any ledger operation.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrNoActiveEntitlement):
		return KindNoActivePlan
	case errors.Is(err, ErrLimitReached):
		return KindLimitReached
	case errors.Is(err, ErrExpired):
		return KindExpired
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	case errors.Is(err, ErrInvalidUsageKind):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}

func (k Kind) NextAction() NextAction {
	switch k {
	case KindUnauthenticated:
		return NextActionLogin
	case KindNoActivePlan:
		return NextActionSubscribe
	case KindLimitReached:
		return NextActionUpgrade
	case KindExpired:
		return NextActionRenew
	case KindInvalidRequest:
		return NextActionNone
	default:
		return NextActionRetry
	}
}

// Upstream wraps a provider failure so that errors.Is(err, ErrUpstream) holds.
func Upstream(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
