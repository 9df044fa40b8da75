// Package repository provides the MongoDB-backed persistence layer. One
// client is created at startup and shared by every request.
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const pingTimeout = 5 * time.Second

// Connect establishes the shared MongoDB client and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, err
	}

	return client, nil
}

// Repositories bundles the collection-level repositories over one database.
type Repositories struct {
	Users    *UserRepository
	Sessions *SessionRepository
	Codes    *VerificationCodeRepository
}

// New wires the repositories against the named database.
func New(client *mongo.Client, dbName string) *Repositories {
	db := client.Database(dbName)
	return &Repositories{
		Users:    &UserRepository{col: db.Collection("users")},
		Sessions: &SessionRepository{col: db.Collection("sessions")},
		Codes:    &VerificationCodeRepository{col: db.Collection("verification-codes")},
	}
}
