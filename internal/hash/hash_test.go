package hash

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptRoundTrip(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	hashed, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hashed == "correct horse battery staple" {
		t.Fatal("hash equals plaintext")
	}

	if !h.Compare("correct horse battery staple", hashed) {
		t.Fatal("correct password rejected")
	}
	if h.Compare("wrong password", hashed) {
		t.Fatal("wrong password accepted")
	}
	if h.Compare("correct horse battery staple", "not-a-hash") {
		t.Fatal("malformed hash accepted")
	}
}

func TestNewBcryptDefaultsCost(t *testing.T) {
	h := NewBcrypt(0)
	if h.cost != DefaultCost {
		t.Fatalf("cost = %d, want %d", h.cost, DefaultCost)
	}
}
