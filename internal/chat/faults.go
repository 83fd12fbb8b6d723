package chat

import (
	"errors"
	"fmt"
)

// Fault classifies a failed operation for boundary mapping. Handlers map
// faults to status codes; the core never picks an HTTP status itself.
type Fault string

const (
	FaultValidation Fault = "validation"
	FaultNotFound   Fault = "not_found"
	FaultConflict   Fault = "conflict"
	FaultStore      Fault = "store"
	FaultUpstream   Fault = "upstream"
	FaultInternal   Fault = "internal"
)

// Error pairs a fault class with a caller-safe message. The wrapped cause
// stays server-side: store and upstream detail must never reach a client.
type Error struct {
	Fault  Fault
	Public string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Public, e.Err)
	}
	return e.Public
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a fault error whose message is safe to surface.
func Errorf(fault Fault, format string, args ...any) error {
	return &Error{Fault: fault, Public: fmt.Sprintf(format, args...)}
}

// WrapFault attaches a fault class to err, hiding its text behind an opaque
// public message. Returns nil when err is nil.
func WrapFault(fault Fault, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Fault: fault, Public: publicMessage(fault), Err: err}
}

func publicMessage(fault Fault) string {
	switch fault {
	case FaultStore:
		return "Database error"
	case FaultUpstream:
		return "Assistant service error"
	case FaultNotFound:
		return "User not found"
	case FaultConflict:
		return "Already logged"
	default:
		return "Internal error"
	}
}

// FaultOf extracts the fault class from err, defaulting to internal.
func FaultOf(err error) Fault {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Fault
	}
	return FaultInternal
}

// PublicMessage returns the caller-safe message for err.
func PublicMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Public
	}
	return publicMessage(FaultInternal)
}
