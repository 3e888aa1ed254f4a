package apperr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestError(t *testing.T) {
	err := New(CodeInvalidInput, "bad body", io.ErrUnexpectedEOF)
	if err.Error() != "invalid_input: bad body: unexpected EOF" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should see the wrapped error")
	}
	if New(CodeNotFound, "no such file", nil).Error() != "not_found: no such file" {
		t.Error("unexpected message without a cause")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", New(CodeInputTooLarge, "too big", nil))

	if got := CodeOf(wrapped); got != CodeInputTooLarge {
		t.Errorf("CodeOf = %q", got)
	}
	if got := MessageOf(wrapped); got != "too big" {
		t.Errorf("MessageOf = %q", got)
	}
	if got := CodeOf(io.EOF); got != CodeInternal {
		t.Errorf("CodeOf(plain) = %q", got)
	}
	if got := MessageOf(io.EOF); got != "internal error" {
		t.Errorf("MessageOf(plain) = %q", got)
	}
}
