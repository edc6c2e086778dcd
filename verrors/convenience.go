package verrors

// Convenience constructors for the host's error taxonomy. Each maps to one row
// of the install/load, capability, routing, and guest-fault categories.

// IO wraps a filesystem or network failure.
func IO(phase Phase, op string, err error) *Error {
	return New(phase, KindIO).Detail("%s", op).Cause(err).Build()
}

// Malformed reports an unparseable descriptor or envelope.
func Malformed(phase Phase, what string, err error) *Error {
	return New(phase, KindMalformed).Detail("%s", what).Cause(err).Build()
}

// Incompatible reports a manifest requiring a newer host API.
func Incompatible(moduleID string, required, supported uint32) *Error {
	return New(PhaseLoad, KindIncompatible).
		Module(moduleID).
		Detail("requires api_version %d but host only supports %d", required, supported).
		Build()
}

// Tamper reports a hash mismatch for a module directory.
func Tamper(dir string) *Error {
	return New(PhaseLoad, KindTamper).Detail("hash mismatch for %s", dir).Build()
}

// Denied reports a capability check failure. The detail becomes the guest's
// failure text, prefixed with "capability denied: ".
func Denied(capability, format string, args ...any) *Error {
	return New(PhaseCapability, KindDenied).Capability(capability).Detail(format, args...).Build()
}

// RouteNotFound reports a command targeting an unregistered module.
func RouteNotFound(target string) *Error {
	return New(PhaseRoute, KindNotFound).Detail("module '%s' not registered", target).Build()
}

// GuestFailure wraps a failure result returned by a guest entry point.
func GuestFailure(moduleID, entry, msg string) *Error {
	return New(PhaseRuntime, KindGuestFailure).Module(moduleID).Detail("%s: %s", entry, msg).Build()
}

// Trap wraps an unrecoverable fault raised inside a guest call.
func Trap(moduleID, entry string, err error) *Error {
	return New(PhaseRuntime, KindTrap).Module(moduleID).Detail("%s", entry).Cause(err).Build()
}

// NotImplemented reports a host function that is declared but not yet wired.
func NotImplemented(what string) *Error {
	return New(PhaseHost, KindNotImplemented).Detail("%s not yet implemented", what).Build()
}
