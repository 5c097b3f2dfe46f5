package busauth

import (
	"context"
	"errors"
	"testing"
)

func TestForgotPasswordUnknownEmail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockCredentialStore(), newMockPendingStore(), &recorderMailer{})

	_, err := engine.ForgotPassword(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestForgotPasswordRejectsMalformedEmail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockCredentialStore(), newMockPendingStore(), &recorderMailer{})

	_, err := engine.ForgotPassword(context.Background(), "not-an-email")
	if !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid, got %v", err)
	}
}

func TestForgotPasswordIssuesCredentialOTP(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	creds := newMockCredentialStore()
	mailer := &recorderMailer{}
	engine := newTestEngine(t, rdb, creds, newMockPendingStore(), mailer)
	record := seedVerifiedUser(t, engine, creds, "alice", "pw1", "alice@example.com", "user")

	result, err := engine.ForgotPassword(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if result.UserID != record.UserID {
		t.Fatalf("expected user %s, got %s", record.UserID, result.UserID)
	}

	otp, err := engine.otpStore.FindLive(ctx, mailer.lastCode(t))
	if err != nil {
		t.Fatalf("expected live otp: %v", err)
	}
	if otp.Subject.Kind != SubjectCredential || otp.Subject.ID != record.UserID {
		t.Fatalf("unexpected otp subject: %+v", otp.Subject)
	}
}

func TestForgotPasswordRollsBackOTPOnMailFailure(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	creds := newMockCredentialStore()
	mailer := &recorderMailer{failWith: errors.New("smtp down")}
	engine := newTestEngine(t, rdb, creds, newMockPendingStore(), mailer)
	seedVerifiedUser(t, engine, creds, "alice", "pw1", "alice@example.com", "user")

	_, err := engine.ForgotPassword(ctx, "alice@example.com")
	if !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected otp rolled back, keys: %v", mr.Keys())
	}
}

func TestChangePasswordReplacesHash(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	creds := newMockCredentialStore()
	engine := newTestEngine(t, rdb, creds, newMockPendingStore(), &recorderMailer{})
	record := seedVerifiedUser(t, engine, creds, "alice", "old-pass", "alice@example.com", "user")

	if err := engine.ChangePassword(ctx, record.UserID, "new-pass"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// Old password no longer works, new one does.
	if _, err := engine.Login(ctx, "alice", "old-pass", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := engine.Login(ctx, "alice", "new-pass", ""); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
}

func TestChangePasswordUnknownUser(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockCredentialStore(), newMockPendingStore(), &recorderMailer{})

	err := engine.ChangePassword(context.Background(), "missing", "new-pass")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestChangePasswordRejectsEmptyPassword(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	creds := newMockCredentialStore()
	engine := newTestEngine(t, rdb, creds, newMockPendingStore(), &recorderMailer{})
	record := seedVerifiedUser(t, engine, creds, "alice", "pw1", "alice@example.com", "user")

	err := engine.ChangePassword(context.Background(), record.UserID, "")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
}

func TestForgotPasswordFullResetFlow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	creds := newMockCredentialStore()
	mailer := &recorderMailer{}
	engine := newTestEngine(t, rdb, creds, newMockPendingStore(), mailer)
	seedVerifiedUser(t, engine, creds, "alice", "forgotten", "alice@example.com", "user")

	if _, err := engine.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	verify, err := engine.VerifyOTP(ctx, mailer.lastCode(t))
	if err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}

	if err := engine.ChangePassword(ctx, verify.UserID, "brand-new"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice", "brand-new", ""); err != nil {
		t.Fatalf("Login with reset password failed: %v", err)
	}
}
