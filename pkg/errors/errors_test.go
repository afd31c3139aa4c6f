package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInvalidWorkflow, cause, "failed to load")

	if err.Code != ErrCodeInvalidWorkflow {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidWorkflow)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if want := "INVALID_WORKFLOW: failed to load: underlying error"; err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeInvalidInput, "test"), ErrCodeInvalidInput, true},
		{"non-matching code", New(ErrCodeInvalidInput, "test"), ErrCodeNodeNotFound, false},
		{"wrapped error", Wrap(ErrCodeInternal, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeInternal, true},
		{"fmt wrapped", fmt.Errorf("ctx: %w", New(ErrCodeNodeNotFound, "x")), ErrCodeNodeNotFound, true},
		{"non-Error type", errors.New("plain error"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeUnsupported, "test")); got != ErrCodeUnsupported {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeUnsupported)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %v, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidInput, "friendly message")); got != "friendly message" {
		t.Errorf("UserMessage() = %v", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage() = %v", got)
	}
}

func TestFromLoad(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"missing file", fmt.Errorf("open x.json: %w", fs.ErrNotExist), ErrCodeFileNotFound},
		{"bad json", errors.New("unexpected end of JSON input"), ErrCodeInvalidWorkflow},
		{"already coded", New(ErrCodeInternal, "boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(FromLoad(tt.err, "x.json")); got != tt.want {
				t.Errorf("FromLoad() code = %v, want %v", got, tt.want)
			}
		})
	}
	if FromLoad(nil, "x.json") != nil {
		t.Error("FromLoad(nil) should be nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrCodeInvalidWorkflow, ""), http.StatusBadRequest},
		{New(ErrCodeInvalidPath, ""), http.StatusBadRequest},
		{New(ErrCodeNodeNotFound, ""), http.StatusNotFound},
		{New(ErrCodeUnsupported, ""), http.StatusNotImplemented},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
