// Package session exposes the device-session management surface: listing a
// user's active sessions, resolving the current one, and revoking one by id.
package session

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/squeezyhq/squeezy/internal/apperr"
	"github.com/squeezyhq/squeezy/internal/models"
)

// SessionRepo is the slice of the sessions collection this service needs.
type SessionRepo interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error)
	FindActiveByUser(ctx context.Context, userID primitive.ObjectID, now time.Time) ([]models.Session, error)
	DeleteByIDAndUser(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
}

// UserRepo resolves the user behind the current session.
type UserRepo interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Service implements session management.
type Service struct {
	sessions SessionRepo
	users    UserRepo
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the session service.
func NewService(sessions SessionRepo, users UserRepo, logger *slog.Logger) *Service {
	return &Service{sessions: sessions, users: users, logger: logger, now: time.Now}
}

// WithNow fixes the service clock. Test hook.
func (s *Service) WithNow(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

// Info is one session as presented to its owner. IsCurrent marks the
// session the request itself rode in on.
type Info struct {
	models.Session
	IsCurrent bool `json:"isCurrent,omitempty"`
}

// List returns the user's active sessions, newest first, with the caller's
// own session flagged.
func (s *Service) List(ctx context.Context, userID primitive.ObjectID, currentSessionID string) ([]Info, error) {
	sessions, err := s.sessions.FindActiveByUser(ctx, userID, s.now())
	if err != nil {
		return nil, apperr.Internal(err)
	}

	infos := make([]Info, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, Info{
			Session:   session,
			IsCurrent: session.ID.Hex() == currentSessionID,
		})
	}
	return infos, nil
}

// Current resolves the user behind a session id. An expired or deleted
// session no longer identifies anyone.
func (s *Service) Current(ctx context.Context, sessionID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, apperr.NotFound("session not found")
	}

	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if session == nil || session.Expired(s.now()) {
		return nil, apperr.NotFound("session not found")
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

// Delete revokes one of the caller's sessions. The ownership filter is part
// of the query, so one user can never revoke another's session.
func (s *Service) Delete(ctx context.Context, sessionID string, userID primitive.ObjectID) error {
	id, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return apperr.NotFound("session not found")
	}

	deleted, err := s.sessions.DeleteByIDAndUser(ctx, id, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !deleted {
		return apperr.NotFound("session not found")
	}

	s.logger.Info("session revoked", "sessionId", sessionID, "userId", userID.Hex())
	return nil
}
