// Package clock hides the wall clock behind a small interface so that code
// deriving time-stepped values (TOTP codes, record timestamps) can be driven
// by a controllable clock in tests.
package clock
