package numeric

import "fmt"

// TypeError reports misuse of a DualValue: reading through the wrong tag,
// or combining values whose tags the operation does not permit.
//
// TypeErrors are delivered by panic. A tag violation means a stepper or
// distribution implementation wrote code that cannot be correct for the
// value shapes flowing through it; recovering and continuing would corrupt
// the chain state. Use Catch at test and boundary code that needs the panic
// as an error value.
type TypeError struct {
	// Op names the operation that was misused (e.g. "AddInPlace").
	Op string

	// Message describes the violation.
	Message string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("invalid dual-value operation: %s: %s", e.Op, e.Message)
}

// newTypeError constructs a TypeError with a formatted message.
func newTypeError(op, format string, args ...any) *TypeError {
	return &TypeError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// Catch invokes fn and converts a *TypeError panic into a returned error.
// Panics of any other kind propagate unchanged.
func Catch(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		te, ok := r.(*TypeError)
		if !ok {
			panic(r)
		}
		err = te
	}()
	fn()
	return nil
}
