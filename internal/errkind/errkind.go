// Package errkind defines the closed taxonomy of failures the correlated
// generation engine can raise, and the policy each one implies for callers.
package errkind

import "fmt"

// Kind is a closed enumeration of the error categories the engine produces.
// Callers switch on Kind rather than matching error strings.
type Kind int

const (
	// Unknown is never returned by this package; it guards against a
	// zero-valued Kind being mistaken for a real category.
	Unknown Kind = iota
	// Config marks invalid or inconsistent configuration, an unknown
	// faker method, or an unresolved reference. Fatal, pre-I/O.
	Config
	// EmptyPool marks a sample from a master entity that produced zero
	// records. Fatal for the sampling task.
	EmptyPool
	// MissingReference marks a reference-typed derived field whose
	// parent record could not be found. The record is dropped.
	MissingReference
	// Generation marks a field evaluation failure. The record is
	// dropped; the entity's sequence counter has already advanced.
	Generation
	// QueueFull marks publisher back-pressure. Callers retry with a
	// bounded backoff before counting a failure.
	QueueFull
	// SchemaRegistration marks a schema registry rejection or network
	// error during schema registration. Fatal for the entity's task.
	SchemaRegistration
	// IncompatibleSchema marks a registry-side compatibility rejection.
	// Fatal for the entity's task.
	IncompatibleSchema
	// Delivery marks a permanent async delivery failure reported by the
	// broker client. Counted as a failure; not retried at this layer.
	Delivery
	// DrainTimeout marks a flush deadline exceeded during shutdown.
	DrainTimeout
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case EmptyPool:
		return "EmptyPool"
	case MissingReference:
		return "MissingReference"
	case Generation:
		return "GenerationError"
	case QueueFull:
		return "QueueFull"
	case SchemaRegistration:
		return "SchemaRegistrationError"
	case IncompatibleSchema:
		return "IncompatibleSchemaError"
	case Delivery:
		return "DeliveryError"
	case DrainTimeout:
		return "DrainTimeout"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across component boundaries. It
// carries enough context (entity, field) for the orchestrator to log and
// account for failures without re-parsing error strings.
type Error struct {
	Kind   Kind
	Entity string
	Field  string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Entity != "" && e.Field != "":
		return fmt.Sprintf("%s: entity=%s field=%s: %v", e.Kind, e.Entity, e.Field, e.Err)
	case e.Entity != "":
		return fmt.Sprintf("%s: entity=%s: %v", e.Kind, e.Entity, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error wrapping err under the given kind, with optional
// entity/field context.
func New(kind Kind, entity, field string, err error) *Error {
	return &Error{Kind: kind, Entity: entity, Field: field, Err: err}
}

// Newf builds an Error from a formatted message.
func Newf(kind Kind, entity, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Entity: entity, Field: field, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if x, ok := err.(*Error); ok {
		e = x
	} else {
		return false
	}
	return e.Kind == kind
}

// ExitCode maps a terminal error to the process exit codes spec.md §6
// defines: 0 success, 1 runtime error, 2 config error, 3 drain timeout.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if x, ok := err.(*Error); ok {
		e = x
	}
	if e == nil {
		return 1
	}
	switch e.Kind {
	case Config:
		return 2
	case DrainTimeout:
		return 3
	default:
		return 1
	}
}
