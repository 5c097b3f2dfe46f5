// Package store provides Redis-backed implementations of the busauth
// CredentialStore and PendingStore contracts.
//
// Records are stored as JSON under an ID key, with username and email index
// keys pointing back at the ID. Index keys are claimed with SETNX so
// uniqueness holds under concurrent inserts: the first writer wins and later
// writers observe the duplicate sentinels.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	busauth "github.com/ticketbus/busauth"
)

const writeRetries = 4

// Redis implements busauth.CredentialStore and busauth.PendingStore on a
// single Redis client.
type Redis struct {
	redis  *redis.Client
	prefix string
}

// NewRedis describes the newredis operation and its observable behavior.
//
// NewRedis may return an error when input validation, dependency calls, or security checks fail.
// NewRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedis(client *redis.Client, prefix string) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if prefix == "" {
		prefix = "ba"
	}
	return &Redis{redis: client, prefix: prefix}, nil
}

type credentialRow struct {
	UserID        string          `json:"user_id"`
	Username      string          `json:"username"`
	PasswordHash  string          `json:"password_hash"`
	Email         string          `json:"email"`
	Role          string          `json:"role"`
	EmailVerified bool            `json:"email_verified"`
	Profile       busauth.Profile `json:"profile"`
	CreatedAt     int64           `json:"created_at"`
}

type pendingRow struct {
	PendingID    string `json:"pending_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	CreatedAt    int64  `json:"created_at"`
}

func (s *Redis) credKey(userID string) string {
	return s.prefix + ":cred:id:" + userID
}

func (s *Redis) credUsernameKey(username string) string {
	return s.prefix + ":cred:username:" + username
}

func (s *Redis) credEmailKey(email string) string {
	return s.prefix + ":cred:email:" + email
}

func (s *Redis) pendingKey(pendingID string) string {
	return s.prefix + ":pending:id:" + pendingID
}

func (s *Redis) pendingUsernameKey(username string) string {
	return s.prefix + ":pending:username:" + username
}

/*
====================================
CREDENTIAL STORE
====================================
*/

// FindByUsername describes the findbyusername operation and its observable behavior.
//
// FindByUsername may return an error when input validation, dependency calls, or security checks fail.
// FindByUsername does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) FindByUsername(ctx context.Context, username string) (*busauth.CredentialRecord, error) {
	userID, err := s.redis.Get(ctx, s.credUsernameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, busauth.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	return s.FindByID(ctx, userID)
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) FindByEmail(ctx context.Context, email string) (*busauth.CredentialRecord, error) {
	userID, err := s.redis.Get(ctx, s.credEmailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, busauth.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	return s.FindByID(ctx, userID)
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) FindByID(ctx context.Context, userID string) (*busauth.CredentialRecord, error) {
	data, err := s.redis.Get(ctx, s.credKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, busauth.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}

	var row credentialRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}

	return &busauth.CredentialRecord{
		UserID:        row.UserID,
		Username:      row.Username,
		PasswordHash:  row.PasswordHash,
		Email:         row.Email,
		Role:          row.Role,
		EmailVerified: row.EmailVerified,
		Profile:       row.Profile,
	}, nil
}

// Insert describes the insert operation and its observable behavior.
//
// Insert may return an error when input validation, dependency calls, or security checks fail.
// Insert does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) Insert(ctx context.Context, in busauth.CredentialInput) (*busauth.CredentialRecord, error) {
	userID := uuid.NewString()

	claimed, err := s.redis.SetNX(ctx, s.credUsernameKey(in.Username), userID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	if !claimed {
		return nil, busauth.ErrStoreDuplicateUsername
	}

	claimed, err = s.redis.SetNX(ctx, s.credEmailKey(in.Email), userID, 0).Result()
	if err != nil {
		s.redis.Del(ctx, s.credUsernameKey(in.Username))
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	if !claimed {
		s.redis.Del(ctx, s.credUsernameKey(in.Username))
		return nil, busauth.ErrStoreDuplicateEmail
	}

	row := credentialRow{
		UserID:        userID,
		Username:      in.Username,
		PasswordHash:  in.PasswordHash,
		Email:         in.Email,
		Role:          in.Role,
		EmailVerified: in.EmailVerified,
		CreatedAt:     time.Now().Unix(),
	}

	if err := s.setCredentialRow(ctx, &row); err != nil {
		s.redis.Del(ctx, s.credUsernameKey(in.Username), s.credEmailKey(in.Email))
		return nil, err
	}

	return &busauth.CredentialRecord{
		UserID:        row.UserID,
		Username:      row.Username,
		PasswordHash:  row.PasswordHash,
		Email:         row.Email,
		Role:          row.Role,
		EmailVerified: row.EmailVerified,
	}, nil
}

// SetEmailVerified describes the setemailverified operation and its observable behavior.
//
// SetEmailVerified may return an error when input validation, dependency calls, or security checks fail.
// SetEmailVerified does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	return s.updateCredentialRow(ctx, userID, func(row *credentialRow) {
		row.EmailVerified = verified
	})
}

// SetPasswordHash describes the setpasswordhash operation and its observable behavior.
//
// SetPasswordHash may return an error when input validation, dependency calls, or security checks fail.
// SetPasswordHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	return s.updateCredentialRow(ctx, userID, func(row *credentialRow) {
		row.PasswordHash = passwordHash
	})
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// UpdateProfile may return an error when input validation, dependency calls, or security checks fail.
// UpdateProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) UpdateProfile(ctx context.Context, userID string, profile busauth.Profile) error {
	return s.updateCredentialRow(ctx, userID, func(row *credentialRow) {
		row.Profile = profile
	})
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) Delete(ctx context.Context, userID string) error {
	record, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	keys := []string{
		s.credKey(userID),
		s.credUsernameKey(record.Username),
		s.credEmailKey(record.Email),
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Redis) setCredentialRow(ctx context.Context, row *credentialRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	if err := s.redis.Set(ctx, s.credKey(row.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Redis) updateCredentialRow(ctx context.Context, userID string, mutate func(*credentialRow)) error {
	key := s.credKey(userID)

	for i := 0; i < writeRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var row credentialRow
			if err := json.Unmarshal(data, &row); err != nil {
				return err
			}

			mutate(&row)

			updated, err := json.Marshal(&row)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, 0)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if errors.Is(err, redis.Nil) {
			return busauth.ErrStoreNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
		}
		return nil
	}

	return fmt.Errorf("%w: update contention on %s", busauth.ErrStoreUnavailable, key)
}

/*
====================================
PENDING STORE
====================================
*/

// Pending adapts the same Redis client to the busauth.PendingStore
// contract. It shares the client and prefix of the Redis it came from.
type Pending struct {
	store *Redis
}

// PendingStore describes the pendingstore operation and its observable behavior.
//
// PendingStore may return an error when input validation, dependency calls, or security checks fail.
// PendingStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) PendingStore() *Pending {
	return &Pending{store: s}
}

// FindByUsername describes the findbyusername operation and its observable behavior.
//
// FindByUsername may return an error when input validation, dependency calls, or security checks fail.
// FindByUsername does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pending) FindByUsername(ctx context.Context, username string) (*busauth.PendingRecord, error) {
	s := p.store
	pendingID, err := s.redis.Get(ctx, s.pendingUsernameKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, busauth.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	return p.FindByID(ctx, pendingID)
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pending) FindByID(ctx context.Context, pendingID string) (*busauth.PendingRecord, error) {
	s := p.store
	data, err := s.redis.Get(ctx, s.pendingKey(pendingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, busauth.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}

	var row pendingRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}

	return &busauth.PendingRecord{
		PendingID:    row.PendingID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Email:        row.Email,
		Role:         row.Role,
	}, nil
}

// Insert describes the insert operation and its observable behavior.
//
// Insert may return an error when input validation, dependency calls, or security checks fail.
// Insert does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pending) Insert(ctx context.Context, in busauth.PendingInput) (*busauth.PendingRecord, error) {
	s := p.store
	pendingID := uuid.NewString()

	claimed, err := s.redis.SetNX(ctx, s.pendingUsernameKey(in.Username), pendingID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	if !claimed {
		return nil, busauth.ErrStoreDuplicateUsername
	}

	row := pendingRow{
		PendingID:    pendingID,
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Email:        in.Email,
		Role:         in.Role,
		CreatedAt:    time.Now().Unix(),
	}

	data, err := json.Marshal(&row)
	if err != nil {
		s.redis.Del(ctx, s.pendingUsernameKey(in.Username))
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	if err := s.redis.Set(ctx, s.pendingKey(pendingID), data, 0).Err(); err != nil {
		s.redis.Del(ctx, s.pendingUsernameKey(in.Username))
		return nil, fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}

	return &busauth.PendingRecord{
		PendingID:    row.PendingID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Email:        row.Email,
		Role:         row.Role,
	}, nil
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pending) Delete(ctx context.Context, pendingID string) error {
	s := p.store
	record, err := p.FindByID(ctx, pendingID)
	if errors.Is(err, busauth.ErrStoreNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	keys := []string{
		s.pendingKey(pendingID),
		s.pendingUsernameKey(record.Username),
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", busauth.ErrStoreUnavailable, err)
	}
	return nil
}
