package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeNetwork, "fetch failed")
		expected := "[NETWORK_ERROR] fetch failed: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeRateLimited, "slow down"))
		if !IsCode(err, CodeRateLimited) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
		if CodeOf(err) != CodeRateLimited {
			t.Errorf("expected CodeOf RATE_LIMITED, got %s", CodeOf(err))
		}
	})

	t.Run("ContextIsSorted", func(t *testing.T) {
		err := New(CodeNotFound, "missing")
		err = AddContext(err, CtxSHA, "abc")
		err = AddContext(err, CtxRepo, "o/r")
		expected := "[NOT_FOUND] missing {repo=o/r sha=abc}"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("AddContextWrapsPlainErrors", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxPath, "a/b")
		if !IsCode(err, CodeInternal) {
			t.Errorf("expected INTERNAL_ERROR, got %v", err)
		}
		if AddContext(nil, CtxPath, "a") != nil {
			t.Error("expected nil passthrough")
		}
	})
}

func TestShort(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "Nil", err: nil, want: ""},
		{name: "Plain", err: errors.New("plain"), want: "plain"},
		{name: "NotFound", err: New(CodeNotFound, "README.md"), want: "not found: README.md"},
		{name: "Network", err: Wrap(errors.New("dial"), CodeNetwork, "GET /repos"), want: "network error: GET /repos"},
		{name: "Validation", err: New(CodeValidationError, "name is required"), want: "name is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Short(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
