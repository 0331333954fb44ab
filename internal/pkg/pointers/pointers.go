// Package pointers has address-of helpers for nullable model fields,
// where nil means "unknown" rather than zero.
package pointers

// Int returns a pointer to v, e.g. for a component's pin count when the
// package string carried one.
func Int(v int) *int { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
