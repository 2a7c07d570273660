// Package testutil provides shared test helpers.
package testutil

// Ptr returns a pointer to v, for optional manifest fields in table tests.
func Ptr[T any](v T) *T { return &v }
