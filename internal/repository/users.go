package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/squeezyhq/squeezy/internal/models"
)

// UserRepository reads and writes the users collection. Lookups return
// (nil, nil) when no document matches; absence is not an error at this layer.
type UserRepository struct {
	col *mongo.Collection
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert creates the user document and stamps its timestamps and id.
func (r *UserRepository) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.col.InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	return r.updateFields(ctx, id, bson.M{"password": passwordHash})
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, id primitive.ObjectID, prefs models.UserPreferences) error {
	return r.updateFields(ctx, id, bson.M{"userPreferences": prefs})
}

// LinkGoogle attaches the external identity and marks the email verified;
// Google only hands over addresses it has already verified.
func (r *UserRepository) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID, avatar string) error {
	fields := bson.M{"googleId": googleID, "isEmailVerified": true}
	if avatar != "" {
		fields["avatar"] = avatar
	}
	return r.updateFields(ctx, id, fields)
}

func (r *UserRepository) updateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now()
	result, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
