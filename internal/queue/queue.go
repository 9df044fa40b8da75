// Package queue defines the durable email jobs and their Redis-backed
// transport. Delivery is at-least-once; the queue, not the caller, owns the
// retry policy (3 attempts, exponential backoff starting at 2s).
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TypeVerificationEmail is the registered task type for verification emails.
const TypeVerificationEmail = "email:verification"

const (
	maxRetry     = 3
	baseBackoff  = 2 * time.Second
	taskDeadline = time.Minute
)

// VerificationEmailPayload carries everything the worker needs to deliver
// one verification email.
type VerificationEmailPayload struct {
	Email           string `json:"email"`
	VerificationURL string `json:"verificationUrl"`
}

// Enqueuer is the producer-side contract the auth service depends on.
type Enqueuer interface {
	EnqueueVerificationEmail(ctx context.Context, payload VerificationEmailPayload) error
}

// Client enqueues tasks onto the shared Redis instance.
type Client struct {
	inner *asynq.Client
}

// NewClient builds the producer-side queue client.
func NewClient(opt asynq.RedisClientOpt) *Client {
	return &Client{inner: asynq.NewClient(opt)}
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.inner.Close() }

func (c *Client) EnqueueVerificationEmail(ctx context.Context, payload VerificationEmailPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeVerificationEmail, data)
	_, err = c.inner.EnqueueContext(ctx, task,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskDeadline),
	)
	return err
}

// RetryDelay implements the exponential backoff from the base delay:
// 2s, 4s, 8s.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := baseBackoff
	for i := 1; i < n; i++ {
		delay *= 2
	}
	return delay
}
