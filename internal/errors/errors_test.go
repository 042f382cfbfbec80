package errors

import (
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Code:    ErrTimeout,
		Status:  504,
		Message: "deadline exceeded",
	}

	expected := "TIMEOUT: deadline exceeded"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewValidation(t *testing.T) {
	err := NewValidation("text too short")

	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "text too short" {
		t.Errorf("Message = %q, want %q", err.Message, "text too short")
	}
}

func TestNewRejected_KeepsServerMessage(t *testing.T) {
	err := NewRejected("Texto muito curto para classificar.", 400)

	if err.Code != ErrRejected {
		t.Errorf("Code = %q, want %q", err.Code, ErrRejected)
	}
	if err.Message != "Texto muito curto para classificar." {
		t.Errorf("Message = %q, want server message verbatim", err.Message)
	}
	if err.Details["http_status"] != 400 {
		t.Errorf("Details[http_status] = %v, want 400", err.Details["http_status"])
	}
}

func TestNewLanguageUnavailable(t *testing.T) {
	err := NewLanguageUnavailable("en", "pt")
	if err.Code != ErrLanguageUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrLanguageUnavailable)
	}
	if err.Message != "no en version of this reply (showing pt)" {
		t.Errorf("Message = %q", err.Message)
	}

	unchanged := NewLanguageUnavailable("en", "")
	if unchanged.Message != "no en version of this reply" {
		t.Errorf("Message = %q", unchanged.Message)
	}
}

func TestNewTransport_RecordsCause(t *testing.T) {
	err := NewTransport("failed to communicate with the classification service", fmt.Errorf("connection refused"))

	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Details["cause"] != "connection refused" {
		t.Errorf("Details[cause] = %v", err.Details["cause"])
	}

	noCause := NewTransport("bad body", nil)
	if noCause.Details != nil {
		t.Errorf("Details = %v, want nil", noCause.Details)
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))
	if err.Code != ErrInternal || err.Message != "disk full" {
		t.Errorf("got %v", err)
	}

	nilErr := NewInternal(nil)
	if nilErr.Message != "internal error" {
		t.Errorf("Message = %q, want %q", nilErr.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewTimeout(), ErrTimeout, true},
		{"different code", NewTimeout(), ErrTransport, false},
		{"wrapped", fmt.Errorf("submit: %w", NewBusy()), ErrBusy, true},
		{"plain error", fmt.Errorf("boom"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	canceled := NewCanceled()
	if got := As(fmt.Errorf("wrap: %w", canceled)); got != canceled {
		t.Errorf("As() = %v, want the wrapped AppError", got)
	}

	got := As(fmt.Errorf("boom"))
	if got.Code != ErrInternal || got.Message != "boom" {
		t.Errorf("As(plain) = %v, want INTERNAL boom", got)
	}
}
