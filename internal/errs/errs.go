// Package errs defines the error taxonomy from spec.md §7: transient
// dependency errors, config errors, invariant violations, user-actionable
// errors, and timeouts. Tool and node boundaries classify errors into
// this taxonomy so the Coordinator and the graph router can react to
// error *kind*, not just error *text*.
package errs

import (
	"errors"
	"fmt"
)

// Kind tags an error with its §7 taxonomy category.
type Kind string

const (
	// KindTransient is a network blip, slow dependency, or third-party 5xx.
	// Retried with backoff at the call site; surfaced only after the retry budget is spent.
	KindTransient Kind = "transient"
	// KindConfig is an unknown agent type, unknown capability, or missing env var.
	// Fatal; surfaced at service startup or on first use.
	KindConfig Kind = "config"
	// KindInvariant is a violated precondition, e.g. acquiring an already-held
	// lock, or deploying without an allocation.
	KindInvariant Kind = "invariant"
	// KindUserActionable requires a human: a missing secret, an unprovisioned server.
	KindUserActionable Kind = "user_actionable"
	// KindTimeout is a per-call or session-wide timeout.
	KindTimeout Kind = "timeout"
)

// Error wraps an underlying error with a taxonomy Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a taxonomy error of the given kind.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a taxonomy kind to an existing error.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the taxonomy Kind from err, defaulting to KindTransient
// when err does not carry one (the conservative choice: an unclassified
// failure is retried rather than silently dropped or surfaced raw).
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindTransient
}

// IsUserActionable reports whether err should be relayed to the end user
// via respond_to_user rather than retried or treated as a bug.
func IsUserActionable(err error) bool {
	return KindOf(err) == KindUserActionable
}
