package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecoverConvertsPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "Tree.Fit")
		panic("mat: dimension mismatch")
	}

	err := fit()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "Tree.Fit" {
		t.Errorf("Operation = %q, want Tree.Fit", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if want := "panic in Tree.Fit: mat: dimension mismatch"; panicErr.Error() != want {
		t.Errorf("Error() = %q, want %q", panicErr.Error(), want)
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include stack trace information")
	}
}

func TestRecoverWithoutPanic(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err, "Noop")
		return nil
	}
	if err := run(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestRecoverKeepsExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	run := func() (err error) {
		defer Recover(&err, "Scorer")
		err = originalErr
		panic("panic after error")
	}

	err := run()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "panic in Scorer") {
		t.Errorf("Error message should contain panic info: %s", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("Should be able to identify original error with errors.Is")
	}
}

func TestSafeExecute(t *testing.T) {
	fnErr := fmt.Errorf("function error")

	tests := []struct {
		name      string
		fn        func() error
		wantErr   error
		wantPanic bool
	}{
		{"success", func() error { return nil }, nil, false},
		{"returned error", func() error { return fnErr }, fnErr, false},
		{"panic", func() error { panic("boom") }, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("op", tt.fn)

			var panicErr *PanicError
			if got := errors.As(err, &panicErr); got != tt.wantPanic {
				t.Fatalf("PanicError = %v, want %v (err: %v)", got, tt.wantPanic, err)
			}
			if !tt.wantPanic && err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecoverPanicValueTypes(t *testing.T) {
	testCases := []struct {
		name       string
		panicValue interface{}
		want       string
	}{
		{"string", "string panic", "string panic"},
		{"int", 42, "42"},
		{"error", fmt.Errorf("error as panic"), "error as panic"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			run := func() (err error) {
				defer Recover(&err, "TypeTest")
				panic(tc.panicValue)
			}

			var panicErr *PanicError
			if !errors.As(run(), &panicErr) {
				t.Fatal("Expected PanicError")
			}
			if got := fmt.Sprintf("%v", panicErr.PanicValue); got != tc.want {
				t.Errorf("PanicValue = %v, want %v", got, tc.want)
			}
		})
	}
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("BenchmarkOp", func() error { return nil })
	}
}
