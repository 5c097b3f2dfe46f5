package busauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/ticketbus/busauth/internal"
	mailer "github.com/ticketbus/busauth/mail"
)

const registerMessage = "OTP sent to your email"

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A successful call leaves a staged registration plus a live one-time code
// and sends the code to the given address. The account does not exist until
// VerifyOTP promotes it. When mail delivery fails, the staged registration
// and the code are rolled back so the username frees up immediately.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.credentials == nil || e.pending == nil {
		return nil, ErrEngineNotReady
	}

	if err := validateRegisterRequest(req); err != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Username, err, nil)
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = e.config.Account.DefaultRole
	}

	// Advisory pre-checks across both stores. The pending insert below is
	// the uniqueness authority; these only shortcut the common case.
	if _, err := e.credentials.FindByUsername(ctx, req.Username); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", req.Username, ErrUsernameTaken, nil)
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrStoreNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if _, err := e.pending.FindByUsername(ctx, req.Username); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", req.Username, ErrUsernameTaken, nil)
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrStoreNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		return nil, err
	}

	staged, err := e.pending.Insert(ctx, PendingInput{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, ErrStoreDuplicateUsername) || errors.Is(err, ErrStoreDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", req.Username, err, nil)
			return nil, ErrUsernameTaken
		}
		e.metricInc(MetricRegisterFailure)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	code, err := internal.NewOTPCode()
	if err != nil {
		e.rollbackPending(ctx, staged.PendingID)
		e.metricInc(MetricRegisterFailure)
		return nil, err
	}

	subject := Subject{Kind: SubjectPending, ID: staged.PendingID}
	if err := e.otpStore.Create(ctx, subject, code); err != nil {
		e.rollbackPending(ctx, staged.PendingID)
		e.metricInc(MetricRegisterFailure)
		return nil, fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}

	if err := e.sendOTPMail(ctx, mailer.TemplateVerifyEmail, "Verify your email", req.Email, req.Username, code); err != nil {
		if derr := e.otpStore.Delete(ctx, code); derr != nil {
			log.Printf("busauth: rollback otp for pending %s: %v", staged.PendingID, derr)
		}
		e.rollbackPending(ctx, staged.PendingID)
		e.metricInc(MetricMailDeliveryFailure)
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Username, ErrMailDelivery, nil)
		return nil, fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, "", req.Username, nil, func() map[string]string {
		return map[string]string{"pending_id": staged.PendingID}
	})

	return &RegisterResult{
		Message:   registerMessage,
		PendingID: staged.PendingID,
	}, nil
}

func (e *Engine) rollbackPending(ctx context.Context, pendingID string) {
	if err := e.pending.Delete(ctx, pendingID); err != nil {
		log.Printf("busauth: rollback pending %s: %v", pendingID, err)
	}
}

func (e *Engine) sendOTPMail(ctx context.Context, template, subject, to, username, code string) error {
	return e.mailer.Send(ctx, mailer.Message{
		To:       to,
		Subject:  subject,
		Template: template,
		Context: map[string]any{
			"Username":   username,
			"Code":       code,
			"TTLMinutes": int(e.config.OTP.TTL.Minutes()),
		},
	})
}

func validateRegisterRequest(req RegisterRequest) error {
	if strings.TrimSpace(req.Username) == "" || req.Username != strings.TrimSpace(req.Username) {
		return ErrRegistrationInvalid
	}
	if req.Password == "" {
		return ErrRegistrationInvalid
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return ErrRegistrationInvalid
	}
	return nil
}
