// Package kernel contains the types shared by every kernel sub-system.
package kernel

// Error describes a failure reported by a kernel sub-system. Kernel code
// cannot rely on errors.New (the Go allocator may not be available yet) so
// all errors are declared up-front as package-level *Error values and
// compared by identity.
type Error struct {
	// The module that reported the error.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target describes the same failure as e. It allows code
// running on top of the kernel packages (e.g. host tools) to use errors.Is
// on wrapped kernel errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}

	return e == t || (e.Module == t.Module && e.Message == t.Message)
}
