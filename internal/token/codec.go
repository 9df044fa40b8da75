// Package token signs and verifies the access and refresh JWTs. Tokens are
// stateless proofs: the session document, not the token's own expiry claim,
// is the authority on validity.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/squeezyhq/squeezy/internal/expiry"
)

// Audience is the fixed audience claim embedded in every token.
const Audience = "user"

var (
	// ErrTokenInvalid covers signature, audience, and malformed-claim failures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when the expiry claim has passed.
	ErrTokenExpired = errors.New("token expired")
)

// AccessPayload identifies the user without a database round trip; the
// request-authentication middleware consults it on every call.
type AccessPayload struct {
	UserID    string
	SessionID string
}

// RefreshPayload only locates the session document, which is authoritative.
type RefreshPayload struct {
	SessionID string
}

type accessClaims struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// Config holds the signing secrets and lifetime specs for both token kinds.
type Config struct {
	AccessSecret     []byte
	AccessExpiresIn  string // duration spec, e.g. "15m"
	RefreshSecret    []byte
	RefreshExpiresIn string // duration spec, e.g. "30d"
}

// Codec issues and verifies HMAC-signed tokens. Safe for concurrent use.
type Codec struct {
	config Config
	now    func() time.Time
}

// NewCodec validates the configuration up front so a bad duration spec fails
// at startup rather than on the first login.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token codec requires access and refresh secrets")
	}
	if _, err := expiry.CalculateExpirationDate(cfg.AccessExpiresIn); err != nil {
		return nil, fmt.Errorf("access expiry spec %q: %w", cfg.AccessExpiresIn, err)
	}
	if _, err := expiry.CalculateExpirationDate(cfg.RefreshExpiresIn); err != nil {
		return nil, fmt.Errorf("refresh expiry spec %q: %w", cfg.RefreshExpiresIn, err)
	}
	return &Codec{config: cfg, now: time.Now}, nil
}

// WithNow fixes the codec's clock. Test hook.
func (c *Codec) WithNow(now func() time.Time) *Codec {
	clone := *c
	clone.now = now
	return &clone
}

// SignAccess issues an access token carrying both user and session ids.
func (c *Codec) SignAccess(payload AccessPayload) (string, error) {
	return c.sign(payload.UserID, payload.SessionID, c.config.AccessSecret, c.config.AccessExpiresIn)
}

// SignRefresh issues a refresh token carrying the session id only. The
// userId/sessionId asymmetry with SignAccess is deliberate.
func (c *Codec) SignRefresh(payload RefreshPayload) (string, error) {
	return c.sign("", payload.SessionID, c.config.RefreshSecret, c.config.RefreshExpiresIn)
}

// VerifyAccess checks signature, expiry, and audience of an access token.
func (c *Codec) VerifyAccess(tokenStr string) (*AccessPayload, error) {
	claims, err := c.verify(tokenStr, c.config.AccessSecret)
	if err != nil {
		return nil, err
	}
	return &AccessPayload{UserID: claims.UserID, SessionID: claims.SessionID}, nil
}

// VerifyRefresh checks signature, expiry, and audience of a refresh token.
func (c *Codec) VerifyRefresh(tokenStr string) (*RefreshPayload, error) {
	claims, err := c.verify(tokenStr, c.config.RefreshSecret)
	if err != nil {
		return nil, err
	}
	return &RefreshPayload{SessionID: claims.SessionID}, nil
}

func (c *Codec) sign(userID, sessionID string, secret []byte, expiresIn string) (string, error) {
	now := c.now()
	expiresAt, err := expiry.ExpirationFrom(now, expiresIn)
	if err != nil {
		return "", err
	}

	claims := accessClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (c *Codec) verify(tokenStr string, secret []byte) (*accessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(c.now),
	)

	token, err := parser.ParseWithClaims(tokenStr, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session claim", ErrTokenInvalid)
	}

	return claims, nil
}
