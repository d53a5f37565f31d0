// Package utils holds pointer helpers for the nullable columns (match scores,
// avatar URLs) that sqlx maps to pointer fields.
package utils

import "strings"

// Ptr gives a pointer to a literal value.
func Ptr[T any](v T) *T {
	return &v
}

func OrZero[T comparable](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Returns nil on an empty or all whitespace string
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
