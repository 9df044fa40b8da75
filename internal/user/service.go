// Package user exposes profile lookup for authenticated callers.
package user

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/squeezyhq/squeezy/internal/apperr"
	"github.com/squeezyhq/squeezy/internal/models"
)

// UserRepo is the slice of the users collection this service needs.
type UserRepo interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Service implements user lookup.
type Service struct {
	users UserRepo
}

// NewService wires the user service.
func NewService(users UserRepo) *Service {
	return &Service{users: users}
}

// FindByID returns the user document, or a not-found error. Sensitive
// fields never serialize; the model's JSON tags elide them.
func (s *Service) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}
