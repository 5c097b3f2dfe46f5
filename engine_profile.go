package busauth

import (
	"context"
	"errors"
	"fmt"
)

// Profile describes the profile operation and its observable behavior.
//
// Profile may return an error when input validation, dependency calls, or security checks fail.
// Profile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Profile(ctx context.Context, username string) (*CredentialRecord, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	record, err := e.credentials.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Never hand the hash to boundary code.
	out := *record
	out.PasswordHash = ""
	return &out, nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// UpdateProfile may return an error when input validation, dependency calls, or security checks fail.
// UpdateProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}

	if update.UserID == "" {
		return ErrProfileInvalid
	}

	account, err := e.credentials.FindByID(ctx, update.UserID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.credentials.UpdateProfile(ctx, account.UserID, update.Profile); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, auditEventProfileUpdate, true, account.UserID, account.Username, nil, nil)
	return nil
}
