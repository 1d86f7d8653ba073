// Package pointer provides helpers for taking the address of values.
package pointer

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}
