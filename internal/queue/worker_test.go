package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/squeezyhq/squeezy/internal/mail"
)

type stubMailer struct {
	sent []mail.Message
	id   string
	err  error
}

func (s *stubMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return s.id, nil
}

func verificationTask(t *testing.T, payload VerificationEmailPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(TypeVerificationEmail, data)
}

func TestHandleVerificationEmailDelivers(t *testing.T) {
	mailer := &stubMailer{id: "delivery-1"}
	handler := HandleVerificationEmail(mailer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	task := verificationTask(t, VerificationEmailPayload{
		Email:           "ada@example.com",
		VerificationURL: "https://app.example.com/confirm-account?code=abc",
	})
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mailer.sent))
	}
	if mailer.sent[0].To != "ada@example.com" {
		t.Fatalf("to = %q", mailer.sent[0].To)
	}
}

func TestHandleVerificationEmailFailuresRetry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Transport failure: retryable.
	mailer := &stubMailer{err: errors.New("smtp down")}
	task := verificationTask(t, VerificationEmailPayload{Email: "ada@example.com"})
	err := HandleVerificationEmail(mailer, logger)(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transport failure: got %v, want a retryable error", err)
	}

	// Missing delivery id: retryable.
	err = HandleVerificationEmail(&stubMailer{}, logger)(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("missing delivery id: got %v, want a retryable error", err)
	}

	// Corrupt payload: permanent.
	bad := asynq.NewTask(TypeVerificationEmail, []byte("not json"))
	err = HandleVerificationEmail(&stubMailer{id: "x"}, logger)(context.Background(), bad)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("corrupt payload: got %v, want SkipRetry", err)
	}
}

func TestRetryDelayDoublesFromBase(t *testing.T) {
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, expect := range want {
		if got := RetryDelay(i+1, nil, nil); got != expect {
			t.Fatalf("attempt %d: delay = %v, want %v", i+1, got, expect)
		}
	}
}
