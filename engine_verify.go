package busauth

import (
	"context"
	"errors"
	"fmt"
	"log"
)

const verifyMessage = "Email verified successfully. You can now log in."

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// VerifyOTP may return an error when input validation, dependency calls, or security checks fail.
// VerifyOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A code for a pending subject promotes the staged registration into a
// verified account; a code for a credential subject marks the reset flow as
// confirmed and returns the account ID. A code past its window reports
// ErrOTPExpired, a code that was never issued reports ErrOTPInvalid.
func (e *Engine) VerifyOTP(ctx context.Context, code string) (*VerifyResult, error) {
	if e == nil || e.credentials == nil || e.pending == nil {
		return nil, ErrEngineNotReady
	}

	record, err := e.otpStore.FindLive(ctx, code)
	if err != nil {
		if !errors.Is(err, errOTPRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
		}
		_, anyErr := e.otpStore.FindAny(ctx, code)
		switch {
		case anyErr == nil:
			// Record still retained past its window.
			e.metricInc(MetricOTPVerifyExpired)
			e.emitAudit(ctx, auditEventOTPVerifyFailure, false, "", "", ErrOTPExpired, nil)
			return nil, ErrOTPExpired
		case errors.Is(anyErr, errOTPRecordNotFound):
			e.metricInc(MetricOTPVerifyFailure)
			e.emitAudit(ctx, auditEventOTPVerifyFailure, false, "", "", ErrOTPInvalid, nil)
			return nil, ErrOTPInvalid
		default:
			// Backend trouble on the retention lookup is not evidence the
			// code was bad.
			return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, anyErr)
		}
	}

	switch record.Subject.Kind {
	case SubjectPending:
		return e.promotePending(ctx, code, record.Subject.ID)
	case SubjectCredential:
		return e.confirmCredential(ctx, code, record.Subject.ID)
	default:
		return nil, ErrOTPInvalid
	}
}

func (e *Engine) promotePending(ctx context.Context, code, pendingID string) (*VerifyResult, error) {
	staged, err := e.pending.FindByID(ctx, pendingID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			// Staged registration vanished under a live code. Drop the code
			// so retries fail fast.
			if derr := e.otpStore.Delete(ctx, code); derr != nil {
				log.Printf("busauth: drop orphan otp for pending %s: %v", pendingID, derr)
			}
			e.metricInc(MetricOTPVerifyFailure)
			e.emitAudit(ctx, auditEventOTPVerifyFailure, false, "", "", ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	account, err := e.credentials.Insert(ctx, CredentialInput{
		Username:      staged.Username,
		PasswordHash:  staged.PasswordHash,
		Email:         staged.Email,
		Role:          staged.Role,
		EmailVerified: true,
	})
	if err != nil {
		if errors.Is(err, ErrStoreDuplicateUsername) || errors.Is(err, ErrStoreDuplicateEmail) {
			e.metricInc(MetricOTPVerifyFailure)
			e.emitAudit(ctx, auditEventOTPVerifyFailure, false, "", staged.Username, ErrUsernameTaken, nil)
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Cleanup is best effort; the account already exists either way.
	if err := e.pending.Delete(ctx, pendingID); err != nil {
		log.Printf("busauth: cleanup pending %s: %v", pendingID, err)
	}
	if err := e.otpStore.Delete(ctx, code); err != nil {
		log.Printf("busauth: cleanup otp for pending %s: %v", pendingID, err)
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerifySuccess, true, account.UserID, account.Username, nil, nil)

	return &VerifyResult{
		Message: verifyMessage,
		UserID:  account.UserID,
	}, nil
}

func (e *Engine) confirmCredential(ctx context.Context, code, userID string) (*VerifyResult, error) {
	account, err := e.credentials.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			if derr := e.otpStore.Delete(ctx, code); derr != nil {
				log.Printf("busauth: drop orphan otp for user %s: %v", userID, derr)
			}
			e.metricInc(MetricOTPVerifyFailure)
			e.emitAudit(ctx, auditEventOTPVerifyFailure, false, userID, "", ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.otpStore.Delete(ctx, code); err != nil {
		log.Printf("busauth: cleanup otp for user %s: %v", userID, err)
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerifySuccess, true, account.UserID, account.Username, nil, nil)

	return &VerifyResult{
		Message: verifyMessage,
		UserID:  account.UserID,
	}, nil
}
