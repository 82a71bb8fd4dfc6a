package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndMatches(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == "secret123" {
		t.Fatalf("Hash returned %q", hash)
	}
	if !h.Matches(hash, "secret123") {
		t.Error("Matches should accept the original password")
	}
	if h.Matches(hash, "wrong") {
		t.Error("Matches should reject a wrong password")
	}
}

func TestHasher_MatchesEmptyOrBadHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if h.Matches("", "") {
		t.Error("empty hash must never match")
	}
	if h.Matches("not-a-bcrypt-hash", "secret123") {
		t.Error("malformed hash must never match")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{-3, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{12, 12},
		{99, bcrypt.MaxCost},
	}
	for _, tt := range tests {
		if got := NewHasher(tt.in).Cost; got != tt.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"too short", "abc12", ErrPasswordTooShort},
		{"minimum", "abc123", nil},
		{"multibyte counts runes", "ääääää", nil},
		{"too long", strings.Repeat("x", 73), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePassword(tt.password); err != tt.wantErr {
				t.Errorf("ValidatePassword = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
