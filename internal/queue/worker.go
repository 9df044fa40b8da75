package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/squeezyhq/squeezy/internal/mail"
)

// NewServer builds the consumer-side worker with the queue's retry policy.
func NewServer(opt asynq.RedisClientOpt) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency:    5,
		RetryDelayFunc: RetryDelay,
	})
}

// NewMux registers the email handlers.
func NewMux(mailer mail.Mailer, log *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeVerificationEmail, HandleVerificationEmail(mailer, log))
	return mux
}

// HandleVerificationEmail delivers one verification email. A send that
// yields no delivery id fails the task so the queue retries it.
func HandleVerificationEmail(mailer mail.Mailer, log *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload VerificationEmailPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		id, err := mailer.Send(ctx, mail.VerifyEmailTemplate(payload.Email, payload.VerificationURL))
		if err != nil {
			log.Error("verification email delivery failed", "email", payload.Email, "error", err)
			return err
		}
		if id == "" {
			return fmt.Errorf("mailer returned no delivery id for %s", payload.Email)
		}

		log.Info("verification email sent", "email", payload.Email, "deliveryId", id)
		return nil
	}
}
