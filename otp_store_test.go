package busauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestOTPStore(t *testing.T) (*otpStore, func(d time.Duration)) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(func() { mr.Close() })

	store := newOTPStore(rdb, OTPConfig{
		TTL:         15 * time.Minute,
		RetainTTL:   24 * time.Hour,
		RedisPrefix: "ba",
	})
	return store, mr.FastForward
}

// backdateOTPCode rewrites the stored record for code with a logical
// deadline in the past, leaving the Redis key in place.
func backdateOTPCode(t *testing.T, store *otpStore, code string) {
	t.Helper()

	ctx := context.Background()
	record, err := store.FindAny(ctx, code)
	if err != nil {
		t.Fatalf("backdate lookup failed: %v", err)
	}
	record.ExpiresAt = time.Now().Add(-time.Minute).Unix()

	encoded, err := encodeOTPRecord(record)
	if err != nil {
		t.Fatalf("backdate encode failed: %v", err)
	}
	if err := store.redis.Set(ctx, store.key(code), encoded, store.retainTTL).Err(); err != nil {
		t.Fatalf("backdate write failed: %v", err)
	}
}

func TestOTPStoreRoundTrip(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	subject := Subject{Kind: SubjectPending, ID: "p1"}
	if err := store.Create(ctx, subject, "123456"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	record, err := store.FindLive(ctx, "123456")
	if err != nil {
		t.Fatalf("FindLive failed: %v", err)
	}
	if record.Subject != subject {
		t.Fatalf("unexpected subject: %+v", record.Subject)
	}
	if record.ExpiresAt <= record.CreatedAt {
		t.Fatalf("expected ExpiresAt after CreatedAt: %+v", record)
	}
}

func TestOTPStoreMissingCode(t *testing.T) {
	store, _ := newTestOTPStore(t)

	_, err := store.FindLive(context.Background(), "999999")
	if !errors.Is(err, errOTPRecordNotFound) {
		t.Fatalf("expected errOTPRecordNotFound, got %v", err)
	}
}

func TestOTPStoreLogicalExpiryBeforeRetention(t *testing.T) {
	store, fastForward := newTestOTPStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, Subject{Kind: SubjectCredential, ID: "u1"}, "654321"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	backdateOTPCode(t, store, "654321")

	// Live lookup misses, but the record is still readable.
	if _, err := store.FindLive(ctx, "654321"); !errors.Is(err, errOTPRecordNotFound) {
		t.Fatalf("expected miss after logical expiry, got %v", err)
	}
	record, err := store.FindAny(ctx, "654321")
	if err != nil {
		t.Fatalf("FindAny after logical expiry failed: %v", err)
	}
	if record.Subject.ID != "u1" {
		t.Fatalf("unexpected subject: %+v", record.Subject)
	}

	fastForward(store.retainTTL + time.Minute)

	if _, err := store.FindAny(ctx, "654321"); !errors.Is(err, errOTPRecordNotFound) {
		t.Fatalf("expected miss after retention, got %v", err)
	}
}

func TestOTPStoreDelete(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, Subject{Kind: SubjectPending, ID: "p1"}, "111222"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Delete(ctx, "111222"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.FindAny(ctx, "111222"); !errors.Is(err, errOTPRecordNotFound) {
		t.Fatalf("expected record gone, got %v", err)
	}

	// Deleting an absent code is fine.
	if err := store.Delete(ctx, "111222"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}

func TestOTPStoreOverwriteSameCode(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, Subject{Kind: SubjectPending, ID: "p1"}, "333444"); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if err := store.Create(ctx, Subject{Kind: SubjectCredential, ID: "u9"}, "333444"); err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	record, err := store.FindLive(ctx, "333444")
	if err != nil {
		t.Fatalf("FindLive failed: %v", err)
	}
	if record.Subject.Kind != SubjectCredential || record.Subject.ID != "u9" {
		t.Fatalf("expected latest record to win, got %+v", record.Subject)
	}
}

func TestOTPRecordCodecRejectsGarbage(t *testing.T) {
	if _, err := decodeOTPRecord(nil); err == nil {
		t.Fatal("expected error for empty record")
	}
	if _, err := decodeOTPRecord([]byte{99, 1, 0, 0}); err == nil {
		t.Fatal("expected error for unknown version")
	}
	if _, err := decodeOTPRecord([]byte{otpRecordVersionV1, 42}); err == nil {
		t.Fatal("expected error for unknown subject kind")
	}
}
