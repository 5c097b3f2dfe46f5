package busauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"

	"github.com/ticketbus/busauth/internal"
	mailer "github.com/ticketbus/busauth/mail"
)

const resetMessage = "OTP sent to your email"

// ForgotPassword describes the forgotpassword operation and its observable behavior.
//
// ForgotPassword may return an error when input validation, dependency calls, or security checks fail.
// ForgotPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The issued code resolves to the account through VerifyOTP; the caller then
// completes the flow with ChangePassword. When mail delivery fails the code
// is rolled back.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (*ResetResult, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrResetInvalid
	}

	account, err := e.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", "", ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	code, err := internal.NewOTPCode()
	if err != nil {
		return nil, err
	}

	subject := Subject{Kind: SubjectCredential, ID: account.UserID}
	if err := e.otpStore.Create(ctx, subject, code); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}

	if err := e.sendOTPMail(ctx, mailer.TemplateResetPassword, "Reset your password", account.Email, account.Username, code); err != nil {
		if derr := e.otpStore.Delete(ctx, code); derr != nil {
			log.Printf("busauth: rollback reset otp for user %s: %v", account.UserID, derr)
		}
		e.metricInc(MetricMailDeliveryFailure)
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, account.UserID, account.Username, ErrMailDelivery, nil)
		return nil, fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, account.UserID, account.Username, nil, nil)

	return &ResetResult{
		Message: resetMessage,
		UserID:  account.UserID,
	}, nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}

	if newPassword == "" {
		e.metricInc(MetricPasswordChangeFailure)
		return ErrPasswordPolicy
	}

	account, err := e.credentials.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.metricInc(MetricPasswordChangeFailure)
			e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		return err
	}

	if err := e.credentials.SetPasswordHash(ctx, account.UserID, hash); err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, account.UserID, account.Username, nil, nil)

	return nil
}
