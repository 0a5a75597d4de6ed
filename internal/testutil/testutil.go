// Package testutil contains the small assertion helpers used across the
// module's tests.
package testutil

import (
	"errors"
	"reflect"
	"testing"
)

// Equals fails the test if got is not deeply equal to want.
func Equals[T any](t testing.TB, got, want T) {
	t.Helper()
	if reflect.DeepEqual(got, want) {
		return
	}
	t.Fatalf("got %+v want %+v", got, want)
}

// OK fails the test if err is non-nil.
func OK(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("got %v want nil", err)
	}
}

// Error fails the test if err is nil.
func Error(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("got nil want error")
	}
}

// ErrorIs fails the test if err does not wrap want.
func ErrorIs(t testing.TB, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("err got %v want %v", err, want)
	}
}

// FatalIf fails the test if the condition holds.
func FatalIf(t testing.TB, c bool, f string, args ...any) {
	t.Helper()
	if c {
		t.Fatalf(f, args...)
	}
}
