package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("assign: %w", Conflict("session_in_progress", "session %d busy", 7))
	if got := StatusOf(err); got != http.StatusConflict {
		t.Fatalf("StatusOf=%d, want 409", got)
	}
	if got := CodeOf(err); got != "session_in_progress" {
		t.Fatalf("CodeOf=%q", got)
	}
	if !IsConflict(err) || IsForbidden(err) {
		t.Fatalf("unexpected classification for %v", err)
	}
}

func TestStatusOf_PlainError(t *testing.T) {
	if got := StatusOf(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("StatusOf=%d, want 500", got)
	}
}

func TestInternal_KeepsCause(t *testing.T) {
	sentinel := errors.New("room gone")
	err := Internal("room_join_failed", fmt.Errorf("add member: %w", sentinel))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected errors.Is to reach sentinel")
	}
	if err.Error() != "add member: room gone" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
