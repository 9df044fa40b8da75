package token

import (
	"errors"
	"testing"
	"time"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	codec, err := NewCodec(Config{
		AccessSecret:     []byte("access-secret-for-tests"),
		AccessExpiresIn:  "15m",
		RefreshSecret:    []byte("refresh-secret-for-tests"),
		RefreshExpiresIn: "30d",
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func TestNewCodecRejectsBadConfig(t *testing.T) {
	if _, err := NewCodec(Config{AccessExpiresIn: "15m", RefreshExpiresIn: "30d"}); err == nil {
		t.Fatal("expected error for missing secrets")
	}
	if _, err := NewCodec(Config{
		AccessSecret:     []byte("a"),
		RefreshSecret:    []byte("b"),
		AccessExpiresIn:  "15x",
		RefreshExpiresIn: "30d",
	}); err == nil {
		t.Fatal("expected error for invalid access spec")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.SignAccess(AccessPayload{UserID: "u1", SessionID: "s1"})
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	payload, err := codec.VerifyAccess(signed)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if payload.UserID != "u1" || payload.SessionID != "s1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestRefreshTokenCarriesSessionOnly(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.SignRefresh(RefreshPayload{SessionID: "s7"})
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}

	payload, err := codec.VerifyRefresh(signed)
	if err != nil {
		t.Fatalf("VerifyRefresh failed: %v", err)
	}
	if payload.SessionID != "s7" {
		t.Fatalf("unexpected session id: %q", payload.SessionID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	codec := newTestCodec(t)

	// A refresh token must not verify as an access token: the secrets differ.
	signed, err := codec.SignRefresh(RefreshPayload{SessionID: "s1"})
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}

	if _, err := codec.VerifyAccess(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	codec := newTestCodec(t)

	past := time.Now().Add(-2 * time.Hour)
	signed, err := codec.WithNow(func() time.Time { return past }).SignAccess(
		AccessPayload{UserID: "u1", SessionID: "s1"},
	)
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	if _, err := codec.VerifyAccess(signed); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec := newTestCodec(t)

	for _, tok := range []string{"", "abc", "a.b.c"} {
		if _, err := codec.VerifyAccess(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("VerifyAccess(%q) error = %v, want ErrTokenInvalid", tok, err)
		}
	}
}
