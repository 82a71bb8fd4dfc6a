package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"unauthorized", Unauthorized("no"), KindUnauthorized},
		{"bad request", BadRequest("bad"), KindBadRequest},
		{"not found", NotFound("gone"), KindNotFound},
		{"conflict", Conflict("dup"), KindConflict},
		{"wrapped", fmt.Errorf("invite: %w", Conflict("dup")), KindConflict},
		{"plain error", errors.New("boom"), KindInternal},
		{"internal", Internal("db", errors.New("boom")), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessageOf_HidesInternalDetail(t *testing.T) {
	err := Internal("select members", errors.New("connection refused"))
	if got := MessageOf(err); got != "internal server error" {
		t.Errorf("MessageOf = %q, want generic message", got)
	}
	if got := MessageOf(BadRequest("Invalid credentials.")); got != "Invalid credentials." {
		t.Errorf("MessageOf = %q", got)
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFound("Invite not found."))
	if !errors.Is(err, &Error{Kind: KindNotFound}) {
		t.Error("errors.Is should match on kind")
	}
	if errors.Is(err, &Error{Kind: KindConflict}) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestInternal_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	if !errors.Is(Internal("x", cause), cause) {
		t.Error("Internal should unwrap to cause")
	}
}
