package backend

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingJobDetails = errors.New("missing job details")

const (
	MessageMissingJob  = "Enter Job Details"
	MessageRateLimited = "Too many requests. Please try again later."
	MessageGeneric     = "An error occurred."
)

type Kind int

const (
	KindPrecondition Kind = iota
	KindRateLimited
	KindServer
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is returned for every failed submission. Message carries the server
// provided text when there was one.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "backend %s", e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err, defaulting to KindTransport for foreign errors.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, ErrMissingJobDetails) {
		return KindPrecondition
	}
	return KindTransport
}

// UserMessage maps a submission error to the notice shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingJobDetails) {
		return MessageMissingJob
	}
	var be *Error
	if !errors.As(err, &be) {
		return MessageGeneric
	}
	switch be.Kind {
	case KindRateLimited:
		return MessageRateLimited
	case KindServer:
		if be.Message != "" {
			return be.Message
		}
	}
	return MessageGeneric
}
