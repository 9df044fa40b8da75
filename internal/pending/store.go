// Package pending is the transient holder for registrations that have not
// completed email verification. Records live only in Redis under a TTL, so
// an abandoned registration costs no permanent storage and expired entries
// vanish without a background sweep.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix = "pending:user:"
	codeKeyPrefix = "verification:code:"

	// TTL is the physical Redis expiry. The record's own ExpiresAt is 40
	// minutes, leaving a safety margin between logical and physical expiry.
	TTL = 45 * time.Minute
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("pending store redis unavailable")

// Record is one not-yet-verified registration. Password holds the bcrypt
// hash; the plaintext is never stored.
type Record struct {
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Password         string    `json:"password"`
	VerificationCode string    `json:"verificationCode"`
	ExpiresAt        time.Time `json:"expiresAt"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Store reads and writes pending registrations. Two keys point at the same
// logical record: one by email, one by verification code.
type Store struct {
	redis redis.UniversalClient
}

// NewStore wraps the shared Redis client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{redis: client}
}

func userKey(email string) string { return userKeyPrefix + email }
func codeKey(code string) string  { return codeKeyPrefix + code }

// Put writes the record under both keys with identical TTLs. A concurrent
// Put for the same email wins last-writer; the older code's pointer key is
// left orphaned and resolves to a record that no longer matches it, which
// verification rejects.
func (s *Store) Put(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(record.Email), data, TTL)
		pipe.Set(ctx, codeKey(record.VerificationCode), record.Email, TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get returns the pending record for an email, or nil when none exists.
// Absence is a normal outcome, not an error.
func (s *Store) Get(ctx context.Context, email string) (*Record, error) {
	data, err := s.redis.Get(ctx, userKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("corrupt pending record for %s: %w", email, err)
	}

	return &record, nil
}

// GetEmailByCode resolves a verification code to its email, or "" when the
// code is unknown or expired.
func (s *Store) GetEmailByCode(ctx context.Context, code string) (string, error) {
	email, err := s.redis.Get(ctx, codeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return email, nil
}

// Delete removes both keys. Called on successful verification and on
// cleanup-on-read when a record's logical expiry has passed.
func (s *Store) Delete(ctx context.Context, email, code string) error {
	if err := s.redis.Del(ctx, userKey(email), codeKey(code)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
