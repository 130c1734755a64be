// Package fault is the error taxonomy shared by every HTTP and RPC surface.
//
// Handlers construct faults at the point of failure; the transport layers map
// them to status codes in exactly one place each (WriteHTTP, GRPCStatus).
// Anything that is not a *Fault is treated as Internal and never leaks
// implementation detail to the caller.
package fault

import (
	"errors"
	"fmt"
)

// Kind partitions failures by how the caller should react.
type Kind int

const (
	// Validation marks bad input to a surface; never retried.
	Validation Kind = iota
	// NotFound marks a reference to an absent order or proposal.
	NotFound
	// Conflict marks duplicate streams or duplicate identifiers.
	Conflict
	// Unavailable marks a failing external dependency (persistence, chat,
	// distance oracle, message bus).
	Unavailable
	// Expired marks an operation on an order past its deadline.
	Expired
	// Internal marks everything unexpected.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Unavailable:
		return "unavailable"
	case Expired:
		return "expired"
	default:
		return "internal"
	}
}

// Fault carries a kind, a caller-safe message, and optional detail.
type Fault struct {
	Kind    Kind
	Message string
	Details string
	cause   error
}

func (f *Fault) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.cause }

// New builds a fault with a formatted message.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause while keeping the caller-safe message separate.
func Wrap(kind Kind, cause error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithDetails returns a copy carrying extra caller-visible detail.
func (f *Fault) WithDetails(details string) *Fault {
	c := *f
	c.Details = details
	return &c
}

// KindOf extracts the kind of err, defaulting to Internal for foreign errors.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Internal
}

// Is reports whether err is a fault of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
