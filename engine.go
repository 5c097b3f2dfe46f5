package busauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ticketbus/busauth/jwt"
	"github.com/ticketbus/busauth/mail"
	"github.com/ticketbus/busauth/password"
)

// Engine defines a public type used by busauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	credentials  CredentialStore
	pending      PendingStore
	otpStore     *otpStore
	mailer       mail.Mailer
	audit        *auditDispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// When presentedToken carries a still-valid token for the same username, it
// is returned unchanged instead of signing a fresh one. Any verification
// failure on the presented token falls through to normal issuance.
func (e *Engine) Login(ctx context.Context, username, plainPassword, presentedToken string) (*LoginResult, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	record, err := e.credentials.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", username, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ok, err := e.passwordHash.Verify(plainPassword, record.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, record.UserID, username, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if record.Role == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, record.UserID, username, ErrRoleMissing, nil)
		return nil, ErrRoleMissing
	}

	if !record.EmailVerified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, record.UserID, username, ErrEmailUnverified, nil)
		return nil, ErrEmailUnverified
	}

	if presentedToken != "" {
		if claims, err := e.jwtManager.Verify(presentedToken); err == nil && claims.Username == record.Username {
			e.metricInc(MetricTokenReused)
			e.metricInc(MetricLoginSuccess)
			e.emitAudit(ctx, auditEventLoginSuccess, true, record.UserID, username, nil, func() map[string]string {
				return map[string]string{"token": "reused"}
			})
			return &LoginResult{AccessToken: presentedToken, Role: record.Role}, nil
		}
	}

	token, err := e.jwtManager.Sign(record.Username, record.UserID, record.Role)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, record.UserID, username, nil, nil)

	return &LoginResult{AccessToken: token, Role: record.Role}, nil
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, token string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Verify(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return &AuthResult{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
