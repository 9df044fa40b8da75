package pending

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb), mr
}

func testRecord(email, code string) *Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &Record{
		Name:             "Ada",
		Email:            email,
		Password:         "$2a$10$hashhashhashhashhashha",
		VerificationCode: code,
		ExpiresAt:        now.Add(40 * time.Minute),
		CreatedAt:        now,
	}
}

func TestPutThenGetByEmailAndCode(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("ada@x.com", "code-1")
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "ada@x.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for existing record")
	}
	if got.Name != rec.Name || got.VerificationCode != rec.VerificationCode {
		t.Fatalf("record mismatch: %+v", got)
	}
	if !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("ExpiresAt mismatch: got %v, want %v", got.ExpiresAt, rec.ExpiresAt)
	}

	email, err := store.GetEmailByCode(ctx, "code-1")
	if err != nil {
		t.Fatalf("GetEmailByCode failed: %v", err)
	}
	if email != "ada@x.com" {
		t.Fatalf("GetEmailByCode = %q, want ada@x.com", email)
	}
}

func TestAbsenceIsNotAnError(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	got, err := store.Get(ctx, "nobody@x.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record, got %+v", got)
	}

	email, err := store.GetEmailByCode(ctx, "unknown")
	if err != nil {
		t.Fatalf("GetEmailByCode failed: %v", err)
	}
	if email != "" {
		t.Fatalf("expected empty email, got %q", email)
	}
}

func TestDeleteRemovesBothKeys(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testRecord("ada@x.com", "code-1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "ada@x.com", "code-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := store.Get(ctx, "ada@x.com")
	if err != nil || got != nil {
		t.Fatalf("record still present after delete: %+v, err=%v", got, err)
	}
	email, err := store.GetEmailByCode(ctx, "code-1")
	if err != nil || email != "" {
		t.Fatalf("pointer still present after delete: %q, err=%v", email, err)
	}
}

func TestRecordsExpireWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testRecord("ada@x.com", "code-1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mr.FastForward(TTL + time.Minute)

	got, err := store.Get(ctx, "ada@x.com")
	if err != nil || got != nil {
		t.Fatalf("record survived TTL: %+v, err=%v", got, err)
	}
	email, err := store.GetEmailByCode(ctx, "code-1")
	if err != nil || email != "" {
		t.Fatalf("pointer survived TTL: %q, err=%v", email, err)
	}
}

func TestDuplicatePutOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testRecord("ada@x.com", "code-1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, testRecord("ada@x.com", "code-2")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := store.Get(ctx, "ada@x.com")
	if err != nil || got == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.VerificationCode != "code-2" {
		t.Fatalf("expected last writer to win, got code %q", got.VerificationCode)
	}

	// The superseded code's pointer is orphaned but still resolves; the
	// record check at verification time rejects it.
	email, err := store.GetEmailByCode(ctx, "code-1")
	if err != nil {
		t.Fatalf("GetEmailByCode failed: %v", err)
	}
	if email != "ada@x.com" {
		t.Fatalf("orphaned pointer = %q, want ada@x.com", email)
	}
}
