package directive

import "fmt"

// Error is a directive-tagged failure: which directive, on which schema
// property, and the underlying cause. A directive that cannot resolve its
// source raises one of these without aborting the whole pass; the calling
// command decides whether it is fatal.
type Error struct {
	Directive Kind
	Property  string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("directive %s on %q: %v", e.Directive, e.Property, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, property string, err error) *Error {
	return &Error{Directive: kind, Property: property, Err: err}
}
