// Package mfa manages TOTP second-factor enrollment and the MFA leg of
// login. Secrets live in the user's preferences; a secret exists from
// provisioning until revocation, but only counts once Enable2FA is set.
package mfa

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"log/slog"
	"net/url"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/squeezyhq/squeezy/internal/apperr"
	"github.com/squeezyhq/squeezy/internal/models"
)

// Issuer is the label authenticator apps file the account under.
const Issuer = "Squeezy"

const qrImageSize = 200

// UserRepo is the slice of the users collection this service needs.
type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePreferences(ctx context.Context, id primitive.ObjectID, prefs models.UserPreferences) error
}

// TokenIssuer opens a session and signs the token pair once the second
// factor has been proven.
type TokenIssuer interface {
	IssueTokens(ctx context.Context, user *models.User, userAgent string) (access, refresh string, err error)
}

// Service implements TOTP enrollment and verification.
type Service struct {
	users  UserRepo
	issuer TokenIssuer
	logger *slog.Logger
}

// NewService wires the MFA service.
func NewService(users UserRepo, issuer TokenIssuer, logger *slog.Logger) *Service {
	return &Service{users: users, issuer: issuer, logger: logger}
}

// Setup is the provisioning material handed to the authenticator app.
type Setup struct {
	Message    string `json:"message"`
	Secret     string `json:"secret,omitempty"`
	QRImageURL string `json:"qrImageUrl,omitempty"`
}

// GenerateSetup provisions (or re-serves) the TOTP secret and its QR code.
// Calling it again before verification returns the same secret, so an
// interrupted enrollment can resume. Once MFA is enabled it returns early
// without material.
func (s *Service) GenerateSetup(ctx context.Context, user *models.User) (*Setup, error) {
	if user.Preferences.Enable2FA {
		return &Setup{Message: "MFA is already enabled"}, nil
	}

	var key *otp.Key
	var err error
	if secret := user.Preferences.TwoFactorSecret; secret != "" {
		key, err = keyFromSecret(secret, user.Email)
	} else {
		key, err = totp.Generate(totp.GenerateOpts{Issuer: Issuer, AccountName: user.Email})
		if err == nil {
			prefs := user.Preferences
			prefs.TwoFactorSecret = key.Secret()
			if updateErr := s.users.UpdatePreferences(ctx, user.ID, prefs); updateErr != nil {
				return nil, apperr.Internal(updateErr)
			}
			user.Preferences = prefs
		}
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	qr, err := qrDataURL(key)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info("mfa setup generated", "userId", user.ID.Hex())
	return &Setup{
		Message:    "Scan the QR code or use the setup key",
		Secret:     key.Secret(),
		QRImageURL: qr,
	}, nil
}

// VerifySetup proves possession of the provisioned secret and switches MFA
// on. Verifying an already-enabled account is a no-op success.
func (s *Service) VerifySetup(ctx context.Context, user *models.User, code string) (*models.UserPreferences, error) {
	if user.Preferences.Enable2FA {
		return &user.Preferences, nil
	}
	if user.Preferences.TwoFactorSecret == "" {
		return nil, apperr.BadRequest(apperr.CodeMFAUnavailable, "MFA setup has not been generated")
	}
	if !totp.Validate(code, user.Preferences.TwoFactorSecret) {
		return nil, apperr.BadRequest(apperr.CodeInvalidMFACode, "invalid MFA code, please try again")
	}

	prefs := user.Preferences
	prefs.Enable2FA = true
	if err := s.users.UpdatePreferences(ctx, user.ID, prefs); err != nil {
		return nil, apperr.Internal(err)
	}
	user.Preferences = prefs

	s.logger.Info("mfa enabled", "userId", user.ID.Hex())
	return &prefs, nil
}

// RevokeResult reports the outcome of a revocation attempt.
type RevokeResult struct {
	Message     string                  `json:"message"`
	Preferences *models.UserPreferences `json:"userPreferences"`
}

// Revoke switches MFA off and discards the secret. Re-enabling requires a
// fresh enrollment. Revoking an account that never enabled MFA is a no-op,
// mirroring GenerateSetup's early return for an already-enabled one.
func (s *Service) Revoke(ctx context.Context, user *models.User) (*RevokeResult, error) {
	if !user.Preferences.Enable2FA {
		return &RevokeResult{
			Message:     "MFA is not enabled",
			Preferences: &user.Preferences,
		}, nil
	}

	prefs := user.Preferences
	prefs.Enable2FA = false
	prefs.TwoFactorSecret = ""
	if err := s.users.UpdatePreferences(ctx, user.ID, prefs); err != nil {
		return nil, apperr.Internal(err)
	}
	user.Preferences = prefs

	s.logger.Info("mfa revoked", "userId", user.ID.Hex())
	return &RevokeResult{
		Message:     "MFA revoked successfully",
		Preferences: &prefs,
	}, nil
}

// LoginResult carries the session tokens issued after a successful MFA login.
type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

// VerifyLogin completes the second leg of an MFA-gated login: check the
// passcode against the stored secret, then open the session that the first
// leg withheld.
func (s *Service) VerifyLogin(ctx context.Context, email, code, userAgent string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	if !user.Preferences.Enable2FA || user.Preferences.TwoFactorSecret == "" {
		return nil, apperr.BadRequest(apperr.CodeMFAUnavailable, "MFA is not enabled for this account")
	}
	if !totp.Validate(code, user.Preferences.TwoFactorSecret) {
		return nil, apperr.BadRequest(apperr.CodeInvalidMFACode, "invalid MFA code, please try again")
	}

	access, refresh, err := s.issuer.IssueTokens(ctx, user, userAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("mfa login verified", "userId", user.ID.Hex())
	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// keyFromSecret rebuilds the provisioning key for a secret generated on an
// earlier setup call, so the QR code stays stable across retries.
func keyFromSecret(secret, email string) (*otp.Key, error) {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", Issuer)
	rawURL := fmt.Sprintf("otpauth://totp/%s:%s?%s",
		url.PathEscape(Issuer), url.PathEscape(email), v.Encode())
	return otp.NewKeyFromURL(rawURL)
}

// qrDataURL renders the provisioning QR code as an inline data URL.
func qrDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
