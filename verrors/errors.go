package verrors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the host the error occurred
type Phase string

const (
	PhaseLoad       Phase = "load"       // manifest and binary loading
	PhaseCapability Phase = "capability" // permission enforcement
	PhaseHost       Phase = "host"       // host surface calls
	PhaseRuntime    Phase = "runtime"    // guest execution
	PhaseRoute      Phase = "route"      // command routing
	PhaseWire       Phase = "wire"       // envelope encoding/decoding
)

// Kind categorizes the error
type Kind string

const (
	KindIO             Kind = "io"
	KindMalformed      Kind = "malformed"
	KindIncompatible   Kind = "incompatible"
	KindTamper         Kind = "tamper"
	KindDenied         Kind = "denied"
	KindNotFound       Kind = "not_found"
	KindGuestFailure   Kind = "guest_failure"
	KindTrap           Kind = "trap"
	KindTimeout        Kind = "timeout"
	KindInvalidInput   Kind = "invalid_input"
	KindNotImplemented Kind = "not_implemented"
)

// Error is the structured error type used throughout the host
type Error struct {
	Cause      error
	Phase      Phase
	Kind       Kind
	ModuleID   string
	Capability string
	Detail     string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.ModuleID != "" {
		b.WriteString(" module ")
		b.WriteString(e.ModuleID)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two Errors match when their
// Phase and Kind agree, so callers can test categories with sentinel values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// GuestMessage returns the failure string handed to guests: the denied
// capability text for denials, otherwise the detail followed by the cause's
// text when a cause is set (falling back to the full formatted error when
// there is no detail). Guests never see phases or module ids, which are host-side
// diagnostics.
func (e *Error) GuestMessage() string {
	if e.Kind == KindDenied {
		return "capability denied: " + e.Detail
	}
	if e.Detail != "" {
		if e.Cause != nil {
			return e.Detail + ": " + e.Cause.Error()
		}
		return e.Detail
	}
	return e.Error()
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Module sets the module id
func (b *Builder) Module(id string) *Builder {
	b.err.ModuleID = id
	return b
}

// Capability sets the denied capability name
func (b *Builder) Capability(name string) *Builder {
	b.err.Capability = name
	return b
}

// Detail sets the human-readable detail
func (b *Builder) Detail(format string, args ...any) *Builder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}
