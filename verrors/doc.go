// Package verrors provides structured error types for the vessel extension host.
//
// Errors are categorized by Phase (where in the host the error occurred) and
// Kind (what went wrong). The Error type carries the module id, the denied
// capability name where applicable, and a cause chain.
//
// Use the Builder for structured construction:
//
//	err := verrors.New(verrors.PhaseLoad, verrors.KindTamper).
//		Module("weather").
//		Detail("hash mismatch").
//		Build()
//
// Or the convenience constructors for the common cases:
//
//	err := verrors.Denied("storage", "storage not declared")
//	err := verrors.Tamper(dir)
//
// All errors implement the standard error interface and support errors.Is/As;
// Is matches on Phase and Kind so callers can test categories without string
// comparison.
package verrors
