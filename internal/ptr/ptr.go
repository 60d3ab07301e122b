// Package ptr holds small generic helpers for the pointer-valued option
// structs used by the config package, where nil means "not set".
package ptr

// FromValue returns a pointer to a copy of v.
func FromValue[T any](v T) *T {
	return &v
}

// Clone returns a pointer to a copy of *x, or nil when x is nil.
func Clone[T any](x *T) *T {
	if x == nil {
		return nil
	}

	v := *x
	return &v
}

// CloneOr clones x when it is set and falls back to a clone of fallback.
func CloneOr[T any](x *T, fallback *T) *T {
	if x != nil {
		return Clone(x)
	}

	return Clone(fallback)
}

// ValueOr dereferences x, returning v when x is nil.
func ValueOr[T any](x *T, v T) T {
	if x == nil {
		return v
	}

	return *x
}
