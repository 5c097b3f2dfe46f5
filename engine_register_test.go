package busauth

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterStagesPendingAndSendsOTP(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	pending := newMockPendingStore()
	mailer := &recorderMailer{}
	engine := newTestEngine(t, rdb, newMockCredentialStore(), pending, mailer)

	result, err := engine.Register(ctx, RegisterRequest{
		Username: "alice",
		Password: "pw1",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if result.Message != "OTP sent to your email" {
		t.Fatalf("unexpected message: %q", result.Message)
	}

	staged, err := pending.FindByID(ctx, result.PendingID)
	if err != nil {
		t.Fatalf("pending record missing: %v", err)
	}
	if staged.Username != "alice" || staged.Email != "alice@example.com" {
		t.Fatalf("unexpected pending record: %+v", staged)
	}
	if staged.Role != "user" {
		t.Fatalf("expected default role, got %q", staged.Role)
	}
	if staged.PasswordHash == "pw1" || staged.PasswordHash == "" {
		t.Fatal("expected password to be hashed")
	}

	code := mailer.lastCode(t)
	record, err := engine.otpStore.FindLive(ctx, code)
	if err != nil {
		t.Fatalf("expected live otp for sent code: %v", err)
	}
	if record.Subject.Kind != SubjectPending || record.Subject.ID != result.PendingID {
		t.Fatalf("unexpected otp subject: %+v", record.Subject)
	}
}

func TestRegisterKeepsExplicitRole(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	pending := newMockPendingStore()
	engine := newTestEngine(t, rdb, newMockCredentialStore(), pending, &recorderMailer{})

	result, err := engine.Register(context.Background(), RegisterRequest{
		Username: "root",
		Password: "pw1",
		Email:    "root@example.com",
		Role:     "admin",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	staged, err := pending.FindByID(context.Background(), result.PendingID)
	if err != nil {
		t.Fatalf("pending record missing: %v", err)
	}
	if staged.Role != "admin" {
		t.Fatalf("expected admin role, got %q", staged.Role)
	}
}

func TestRegisterRejectsExistingUsername(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	creds := newMockCredentialStore()
	engine := newTestEngine(t, rdb, creds, newMockPendingStore(), &recorderMailer{})
	seedVerifiedUser(t, engine, creds, "alice", "pw1", "alice@example.com", "user")

	_, err := engine.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Password: "pw2",
		Email:    "other@example.com",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterRejectsPendingUsername(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	engine := newTestEngine(t, rdb, newMockCredentialStore(), newMockPendingStore(), &recorderMailer{})

	if _, err := engine.Register(ctx, RegisterRequest{
		Username: "alice",
		Password: "pw1",
		Email:    "alice@example.com",
	}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	_, err := engine.Register(ctx, RegisterRequest{
		Username: "alice",
		Password: "pw2",
		Email:    "second@example.com",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterMapsStoreDuplicateToUsernameTaken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	// Pre-checks pass but the insert itself reports a duplicate, as happens
	// when two registrations race.
	pending := newMockPendingStore()
	pending.insertErr = ErrStoreDuplicateUsername
	engine := newTestEngine(t, rdb, newMockCredentialStore(), pending, &recorderMailer{})

	_, err := engine.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Password: "pw1",
		Email:    "alice@example.com",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockCredentialStore(), newMockPendingStore(), &recorderMailer{})

	cases := []RegisterRequest{
		{Username: "", Password: "pw1", Email: "a@example.com"},
		{Username: " alice", Password: "pw1", Email: "a@example.com"},
		{Username: "alice", Password: "", Email: "a@example.com"},
		{Username: "alice", Password: "pw1", Email: "not-an-email"},
	}
	for _, req := range cases {
		if _, err := engine.Register(context.Background(), req); !errors.Is(err, ErrRegistrationInvalid) {
			t.Fatalf("request %+v: expected ErrRegistrationInvalid, got %v", req, err)
		}
	}
}

func TestRegisterRollsBackOnMailFailure(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	pending := newMockPendingStore()
	mailer := &recorderMailer{failWith: errors.New("smtp down")}
	engine := newTestEngine(t, rdb, newMockCredentialStore(), pending, mailer)

	_, err := engine.Register(ctx, RegisterRequest{
		Username: "alice",
		Password: "pw1",
		Email:    "alice@example.com",
	})
	if !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}

	// Username frees up immediately: the staged record and code are gone.
	if _, err := pending.FindByUsername(ctx, "alice"); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected pending record rolled back, got %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no otp keys left, got %v", mr.Keys())
	}

	mailer.failWith = nil
	if _, err := engine.Register(ctx, RegisterRequest{
		Username: "alice",
		Password: "pw1",
		Email:    "alice@example.com",
	}); err != nil {
		t.Fatalf("re-register after rollback failed: %v", err)
	}
}

func TestRegisterVerifyLoginEndToEnd(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	creds := newMockCredentialStore()
	pending := newMockPendingStore()
	mailer := &recorderMailer{}
	engine := newTestEngine(t, rdb, creds, pending, mailer)

	if _, err := engine.Register(ctx, RegisterRequest{
		Username: "alice",
		Password: "pw1",
		Email:    "alice@example.com",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Cannot log in before verification: the account does not exist yet.
	if _, err := engine.Login(ctx, "alice", "pw1", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials before verification, got %v", err)
	}

	verify, err := engine.VerifyOTP(ctx, mailer.lastCode(t))
	if err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	if verify.Message != "Email verified successfully. You can now log in." {
		t.Fatalf("unexpected message: %q", verify.Message)
	}

	result, err := engine.Login(ctx, "alice", "pw1", "")
	if err != nil {
		t.Fatalf("Login after verification failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected access token after verification")
	}
}
