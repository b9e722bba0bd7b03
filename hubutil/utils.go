// Package hubutil holds small generic helpers shared by kvo and store that
// don't belong to either package's domain vocabulary.
package hubutil

import "fmt"

// Must panics if err is not nil, otherwise returns value. Used at
// construction sites where failure indicates programmer error, never
// recoverable runtime state (see spec's ProgrammerError category).
func Must[T any](value T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("hubutil.Must: %v", err))
	}
	return value
}

// Ptr returns a pointer to v, useful for optional struct fields.
func Ptr[T any](v T) *T {
	return &v
}

// PtrValue returns *p, or the zero value of T if p is nil.
func PtrValue[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
