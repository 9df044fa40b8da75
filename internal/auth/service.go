// Package auth implements the account lifecycle: registration, email
// verification, login, refresh rotation, password reset, and logout. It
// orchestrates the stores and collaborators but owns no transport concerns.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/squeezyhq/squeezy/internal/apperr"
	"github.com/squeezyhq/squeezy/internal/expiry"
	"github.com/squeezyhq/squeezy/internal/hash"
	"github.com/squeezyhq/squeezy/internal/mail"
	"github.com/squeezyhq/squeezy/internal/models"
	"github.com/squeezyhq/squeezy/internal/pending"
	"github.com/squeezyhq/squeezy/internal/queue"
	"github.com/squeezyhq/squeezy/internal/token"
)

const (
	// maxResetRequests is how many reset codes a user may mint inside the
	// rolling rate-limit window.
	maxResetRequests = 2
)

// UserRepo is the slice of the users collection this service needs.
type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
}

// SessionRepo is the slice of the sessions collection this service needs.
type SessionRepo interface {
	Insert(ctx context.Context, userID primitive.ObjectID, userAgent string, expiredAt time.Time) (*models.Session, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error)
	UpdateExpiredAt(ctx context.Context, id primitive.ObjectID, expiredAt time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error
}

// CodeRepo is the slice of the verification-codes collection this service needs.
type CodeRepo interface {
	Insert(ctx context.Context, userID primitive.ObjectID, codeType models.VerificationType, expiresAt time.Time) (*models.VerificationCode, error)
	FindValid(ctx context.Context, code string, codeType models.VerificationType, now time.Time) (*models.VerificationCode, error)
	CountSince(ctx context.Context, userID primitive.ObjectID, codeType models.VerificationType, since time.Time) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PendingStore holds registrations awaiting email verification.
type PendingStore interface {
	Put(ctx context.Context, record *pending.Record) error
	Get(ctx context.Context, email string) (*pending.Record, error)
	GetEmailByCode(ctx context.Context, code string) (string, error)
	Delete(ctx context.Context, email, code string) error
}

// Config carries the service-level knobs.
type Config struct {
	// AppOrigin is the frontend origin embedded in emailed links.
	AppOrigin string
	// RefreshExpiresIn is the session lifetime spec, e.g. "30d".
	RefreshExpiresIn string
}

// Service is the authentication core. All dependencies are injected; the
// clock is injectable so expiry behavior is testable at fixed instants.
type Service struct {
	config   Config
	users    UserRepo
	sessions SessionRepo
	codes    CodeRepo
	pending  PendingStore
	hasher   hash.Hasher
	codec    *token.Codec
	queue    queue.Enqueuer
	mailer   mail.Mailer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the authentication core. The refresh lifetime spec is
// validated so a bad configuration fails at startup.
func NewService(cfg Config, users UserRepo, sessions SessionRepo, codes CodeRepo, pendingStore PendingStore, hasher hash.Hasher, codec *token.Codec, enqueuer queue.Enqueuer, mailer mail.Mailer, logger *slog.Logger) (*Service, error) {
	if _, err := expiry.CalculateExpirationDate(cfg.RefreshExpiresIn); err != nil {
		return nil, fmt.Errorf("refresh expiry spec %q: %w", cfg.RefreshExpiresIn, err)
	}
	return &Service{
		config:   cfg,
		users:    users,
		sessions: sessions,
		codes:    codes,
		pending:  pendingStore,
		hasher:   hasher,
		codec:    codec,
		queue:    enqueuer,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// WithNow fixes the service clock. Test hook.
func (s *Service) WithNow(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

// RegisterInput is the payload of a registration request. Password arrives
// already validated for length and confirmation match.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register stages a new account in the pending store and queues the
// verification email. No user document is written until the email is
// confirmed; a failed email enqueue does not undo the staged registration.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return apperr.Internal(err)
	}
	if exists {
		return apperr.BadRequest(apperr.CodeEmailAlreadyExists, "user already exists with this email")
	}

	staged, err := s.pending.Get(ctx, in.Email)
	if err != nil {
		return apperr.Internal(err)
	}
	if staged != nil {
		return apperr.BadRequest(apperr.CodeEmailAlreadyExists, "registration pending, please verify your email")
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return apperr.Internal(err)
	}

	now := s.now()
	record := &pending.Record{
		Name:             in.Name,
		Email:            in.Email,
		Password:         hashed,
		VerificationCode: uuid.NewString(),
		ExpiresAt:        now.Add(40 * time.Minute),
		CreatedAt:        now,
	}
	if err := s.pending.Put(ctx, record); err != nil {
		return apperr.Internal(err)
	}

	// Fire and forget: the user can re-register if the email never lands,
	// but the staged registration must not be rolled back here.
	verificationURL := fmt.Sprintf("%s/confirm-account?code=%s", s.config.AppOrigin, record.VerificationCode)
	if err := s.queue.EnqueueVerificationEmail(ctx, queue.VerificationEmailPayload{
		Email:           in.Email,
		VerificationURL: verificationURL,
	}); err != nil {
		s.logger.Error("failed to enqueue verification email", "email", in.Email, "error", err)
	}

	s.logger.Info("registration staged", "email", in.Email)
	return nil
}

// LoginInput is the payload of a login request.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

// LoginResult is the outcome of a successful credential check. When
// MFARequired is set no session exists yet and both tokens are empty.
type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	MFARequired  bool
}

// Login checks credentials and, unless MFA gates the account, opens a
// session. A pending (unverified) registration and an unverified user both
// surface as not-verified; a wrong password and an unknown email surface
// identically so the response does not reveal which accounts exist.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	staged, err := s.pending.Get(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if staged != nil {
		return nil, apperr.Unauthorized(apperr.CodeNotVerified, "please verify your email address")
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.Unauthorized(apperr.CodeInvalidCredentials, "invalid email or password")
	}
	if !user.IsEmailVerified {
		return nil, apperr.Unauthorized(apperr.CodeNotVerified, "please verify your email address")
	}
	if !s.hasher.Compare(in.Password, user.Password) {
		return nil, apperr.Unauthorized(apperr.CodeInvalidCredentials, "invalid email or password")
	}

	if user.Preferences.Enable2FA {
		s.logger.Info("login gated on mfa", "userId", user.ID.Hex())
		return &LoginResult{User: user, MFARequired: true}, nil
	}

	access, refresh, err := s.IssueTokens(ctx, user, in.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "userId", user.ID.Hex())
	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// IssueTokens opens a session and signs the access/refresh pair for it.
// Shared by password login, MFA login, and the OAuth callback.
func (s *Service) IssueTokens(ctx context.Context, user *models.User, userAgent string) (access, refresh string, err error) {
	expiredAt, err := expiry.ExpirationFrom(s.now(), s.config.RefreshExpiresIn)
	if err != nil {
		return "", "", apperr.Internal(err)
	}

	session, err := s.sessions.Insert(ctx, user.ID, userAgent, expiredAt)
	if err != nil {
		return "", "", apperr.Internal(err)
	}

	access, err = s.codec.SignAccess(token.AccessPayload{
		UserID:    user.ID.Hex(),
		SessionID: session.ID.Hex(),
	})
	if err != nil {
		return "", "", apperr.Internal(err)
	}

	refresh, err = s.codec.SignRefresh(token.RefreshPayload{SessionID: session.ID.Hex()})
	if err != nil {
		return "", "", apperr.Internal(err)
	}

	return access, refresh, nil
}

// RefreshResult carries the new access token and, only when the session was
// rotated, a new refresh token.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// Refresh exchanges a refresh token for a fresh access token. When the
// backing session has a day or less of life left its expiry is pushed out
// and a new refresh token is issued alongside; otherwise the caller keeps
// using the one it has.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	payload, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized(apperr.CodeInvalidToken, "invalid refresh token").WithCause(err)
	}

	sessionID, err := primitive.ObjectIDFromHex(payload.SessionID)
	if err != nil {
		return nil, apperr.Unauthorized(apperr.CodeInvalidToken, "invalid refresh token").WithCause(err)
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if session == nil {
		return nil, apperr.Unauthorized(apperr.CodeInvalidToken, "session does not exist")
	}

	now := s.now()
	if session.Expired(now) {
		return nil, apperr.Unauthorized(apperr.CodeSessionExpired, "session expired")
	}

	result := &RefreshResult{}

	if session.ExpiredAt.Sub(now) <= expiry.OneDay {
		newExpiredAt, err := expiry.ExpirationFrom(now, s.config.RefreshExpiresIn)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if err := s.sessions.UpdateExpiredAt(ctx, sessionID, newExpiredAt); err != nil {
			return nil, apperr.Internal(err)
		}
		result.RefreshToken, err = s.codec.SignRefresh(token.RefreshPayload{SessionID: payload.SessionID})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		s.logger.Info("session rotated", "sessionId", payload.SessionID)
	}

	result.AccessToken, err = s.codec.SignAccess(token.AccessPayload{
		UserID:    session.UserID.Hex(),
		SessionID: payload.SessionID,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return result, nil
}

// VerifyEmail promotes a pending registration into a real user. The code's
// pointer key and the record it resolves to must still agree; a mismatch
// means the registration was re-staged with a newer code and this one is
// dead. A logically expired record is deleted on read.
func (s *Service) VerifyEmail(ctx context.Context, code string) (*models.User, error) {
	invalid := apperr.BadRequest(apperr.CodeVerificationError, "invalid or expired verification code")

	email, err := s.pending.GetEmailByCode(ctx, code)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if email == "" {
		return nil, invalid
	}

	record, err := s.pending.Get(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if record == nil || record.VerificationCode != code {
		return nil, invalid
	}

	if s.now().After(record.ExpiresAt) {
		if err := s.pending.Delete(ctx, email, code); err != nil {
			s.logger.Error("failed to delete expired pending registration", "email", email, "error", err)
		}
		return nil, invalid
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		// The account was created by another path (e.g. OAuth) while this
		// registration sat pending. The staged copy is stale.
		if err := s.pending.Delete(ctx, email, code); err != nil {
			s.logger.Error("failed to delete stale pending registration", "email", email, "error", err)
		}
		return nil, apperr.BadRequest(apperr.CodeEmailAlreadyExists, "user already exists with this email")
	}

	user, err := s.users.Insert(ctx, &models.User{
		Name:            record.Name,
		Email:           record.Email,
		Password:        record.Password,
		IsEmailVerified: true,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.pending.Delete(ctx, email, code); err != nil {
		s.logger.Error("failed to delete pending registration after verification", "email", email, "error", err)
	}

	s.logger.Info("email verified, user created", "userId", user.ID.Hex())
	return user, nil
}

// ForgetPassword mints a password-reset code and emails its link. At most
// two codes per user inside a rolling three-minute window; delivery without
// a provider id counts as failure since the user would wait on a link that
// never arrives.
func (s *Service) ForgetPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return apperr.NotFound("user not found")
	}

	now := s.now()
	issued, err := s.codes.CountSince(ctx, user.ID, models.VerificationPasswordReset, now.Add(-3*time.Minute))
	if err != nil {
		return apperr.Internal(err)
	}
	if issued >= maxResetRequests {
		return apperr.TooManyRequests("too many requests, try again later")
	}

	expiresAt := now.Add(time.Hour)
	code, err := s.codes.Insert(ctx, user.ID, models.VerificationPasswordReset, expiresAt)
	if err != nil {
		return apperr.Internal(err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?code=%s&exp=%d", s.config.AppOrigin, code.Code, expiresAt.UnixMilli())
	id, err := s.mailer.Send(ctx, mail.PasswordResetTemplate(email, resetURL))
	if err != nil || id == "" {
		return apperr.BadRequest(apperr.CodeEmailDelivery, "failed to send password reset email").WithCause(err)
	}

	s.logger.Info("password reset email sent", "userId", user.ID.Hex())
	return nil
}

// ResetPassword sets a new password for the user behind a valid reset code,
// consumes the code, and revokes every session of that user so nothing
// issued before the reset stays usable.
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	valid, err := s.codes.FindValid(ctx, code, models.VerificationPasswordReset, s.now())
	if err != nil {
		return apperr.Internal(err)
	}
	if valid == nil {
		return apperr.NotFound("invalid or expired verification code")
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, valid.UserID, hashed); err != nil {
		return apperr.BadRequest(apperr.CodeValidation, "failed to reset password").WithCause(err)
	}

	if err := s.codes.Delete(ctx, valid.ID); err != nil {
		s.logger.Error("failed to delete consumed reset code", "codeId", valid.ID.Hex(), "error", err)
	}

	if err := s.sessions.DeleteAllForUser(ctx, valid.UserID); err != nil {
		return apperr.Internal(err)
	}

	s.logger.Info("password reset", "userId", valid.UserID.Hex())
	return nil
}

// Logout deletes the session behind the current access token. Logging out a
// session that is already gone succeeds.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	id, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// HandleGoogleOAuth finishes an OAuth login for an already-resolved user.
// The MFA gate applies exactly as it does to password login.
func (s *Service) HandleGoogleOAuth(ctx context.Context, user *models.User, userAgent string) (*LoginResult, error) {
	if user.Preferences.Enable2FA {
		s.logger.Info("oauth login gated on mfa", "userId", user.ID.Hex())
		return &LoginResult{User: user, MFARequired: true}, nil
	}

	access, refresh, err := s.IssueTokens(ctx, user, userAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("oauth login", "userId", user.ID.Hex())
	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}
