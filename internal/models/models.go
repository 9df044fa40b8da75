// Package models holds the persistent document types stored in MongoDB.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VerificationType tags a verification code with its purpose.
type VerificationType string

// VerificationPasswordReset marks single-use password-reset codes.
const VerificationPasswordReset VerificationType = "PASSWORD_RESET"

// UserPreferences carries the per-user MFA and notification settings.
// TwoFactorSecret is present from provisioning until revocation and is never
// serialized outward.
type UserPreferences struct {
	Enable2FA         bool   `bson:"enable2FA" json:"enable2FA"`
	EmailNotification bool   `bson:"emailNotification" json:"emailNotification"`
	TwoFactorSecret   string `bson:"twoFactorSecret,omitempty" json:"-"`
}

// User is the persistent identity record. A User document exists iff the
// email has been verified at least once; registration alone never writes one.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Email           string             `bson:"email" json:"email"`
	Password        string             `bson:"password" json:"-"`
	IsEmailVerified bool               `bson:"isEmailVerified" json:"isEmailVerified"`
	GoogleID        string             `bson:"googleId,omitempty" json:"-"`
	Avatar          string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Preferences     UserPreferences    `bson:"userPreferences" json:"userPreferences"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Session is one device login. Expiry is enforced when the record is read;
// nothing sweeps expired rows proactively.
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	UserAgent string             `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	ExpiredAt time.Time          `bson:"expiredAt" json:"expiredAt"`
}

// Expired reports whether the session is invalid at the given instant,
// regardless of any token expiry claims referencing it.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiredAt.After(now)
}

// VerificationCode is a persistent single-use code, currently only issued
// for password resets. Deleted immediately after a successful reset.
type VerificationCode struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Code      string             `bson:"code" json:"code"`
	Type      VerificationType   `bson:"type" json:"type"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
}
