package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/squeezyhq/squeezy/internal/models"
)

// SessionRepository reads and writes the sessions collection. Expired rows
// are not swept; readers check ExpiredAt themselves.
type SessionRepository struct {
	col *mongo.Collection
}

// Insert creates a session ending at expiredAt.
func (r *SessionRepository) Insert(ctx context.Context, userID primitive.ObjectID, userAgent string, expiredAt time.Time) (*models.Session, error) {
	session := &models.Session{
		UserID:    userID,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
		ExpiredAt: expiredAt,
	}

	result, err := r.col.InsertOne(ctx, session)
	if err != nil {
		return nil, err
	}
	session.ID = result.InsertedID.(primitive.ObjectID)
	return session, nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error) {
	var session models.Session
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindActiveByUser lists a user's unexpired sessions, newest first.
func (r *SessionRepository) FindActiveByUser(ctx context.Context, userID primitive.ObjectID, now time.Time) ([]models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{
		"userId":    userID,
		"expiredAt": bson.M{"$gt": now},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []models.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateExpiredAt overwrites the session expiry; refresh rotation's sliding
// renewal. Concurrent rotations are last-writer-wins.
func (r *SessionRepository) UpdateExpiredAt(ctx context.Context, id primitive.ObjectID, expiredAt time.Time) error {
	result, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"expiredAt": expiredAt}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a session. Deleting an absent id is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteByIDAndUser removes one session only if it belongs to the user.
// Returns false when nothing matched.
func (r *SessionRepository) DeleteByIDAndUser(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

// DeleteAllForUser is the cascading invalidation on password reset: a leaked
// session must not survive it.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}
