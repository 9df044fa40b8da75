package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/squeezyhq/squeezy/internal/models"
)

// VerificationCodeRepository stores single-use codes, currently only the
// password-reset kind.
type VerificationCodeRepository struct {
	col *mongo.Collection
}

// Insert creates a code of the given type expiring at expiresAt. The code
// value itself is a fresh UUID.
func (r *VerificationCodeRepository) Insert(ctx context.Context, userID primitive.ObjectID, codeType models.VerificationType, expiresAt time.Time) (*models.VerificationCode, error) {
	code := &models.VerificationCode{
		UserID:    userID,
		Code:      uuid.NewString(),
		Type:      codeType,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}

	result, err := r.col.InsertOne(ctx, code)
	if err != nil {
		return nil, err
	}
	code.ID = result.InsertedID.(primitive.ObjectID)
	return code, nil
}

// FindValid looks up an unexpired code of the given type.
func (r *VerificationCodeRepository) FindValid(ctx context.Context, code string, codeType models.VerificationType, now time.Time) (*models.VerificationCode, error) {
	var record models.VerificationCode
	err := r.col.FindOne(ctx, bson.M{
		"code":      code,
		"type":      codeType,
		"expiresAt": bson.M{"$gt": now},
	}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CountSince counts codes a user created after the cutoff. Drives the reset
// rate limit.
func (r *VerificationCodeRepository) CountSince(ctx context.Context, userID primitive.ObjectID, codeType models.VerificationType, since time.Time) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"type":      codeType,
		"createdAt": bson.M{"$gt": since},
	})
}

// Delete consumes a code after use.
func (r *VerificationCodeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
