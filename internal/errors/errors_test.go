package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(CodeInvalidPath, CategoryState, "invalid path \"a..b\"")
	if got := err.Error(); got != `R001: invalid path "a..b"` {
		t.Errorf("Error() = %q", got)
	}

	bare := &Error{Message: "no code"}
	if bare.Error() != "no code" {
		t.Errorf("Error() without code = %q", bare.Error())
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, CodeAsyncRejected, CategoryAsync, "resolution failed")

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	var structured *Error
	wrapped := fmt.Errorf("outer: %w", err)
	if !stderrors.As(wrapped, &structured) {
		t.Fatal("errors.As should find the structured error")
	}
	if structured.Code != CodeAsyncRejected {
		t.Errorf("code = %q, want %q", structured.Code, CodeAsyncRejected)
	}
}

func TestCodeOf(t *testing.T) {
	err := Newf(CodeDepthExceeded, CategoryRender, "depth %d exceeded", 100)
	wrapped := fmt.Errorf("render: %w", err)

	if got := CodeOf(wrapped); got != CodeDepthExceeded {
		t.Errorf("CodeOf = %q, want %q", got, CodeDepthExceeded)
	}
	if got := CodeOf(stderrors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestWithSuggestion(t *testing.T) {
	err := New(CodeConfigInvalid, CategoryConfig, "bad port").
		WithSuggestion("ports must be between 1 and 65535")
	if err.Suggestion == "" {
		t.Error("suggestion not set")
	}
}
