package busauth

import "context"

// SubjectKind defines a public type used by busauth APIs.
//
// SubjectKind instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type SubjectKind uint8

// Subject kinds recorded alongside a one-time code. A pending subject refers
// to a staged registration; a credential subject refers to an existing
// account (password reset).
const (
	SubjectPending SubjectKind = iota + 1
	SubjectCredential
)

// Subject defines a public type used by busauth APIs.
//
// Subject instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// Profile defines a public type used by busauth APIs.
//
// Profile instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Profile struct {
	FirstName   string
	LastName    string
	Phone       string
	DateOfBirth string
	Gender      string
	AvatarURL   string
}

// CredentialRecord defines a public type used by busauth APIs.
//
// CredentialRecord instances are intended to be configured during
// initialization and then treated as immutable unless documented otherwise.
type CredentialRecord struct {
	UserID        string
	Username      string
	PasswordHash  string
	Email         string
	Role          string
	EmailVerified bool
	Profile       Profile
}

// PendingRecord defines a public type used by busauth APIs.
//
// PendingRecord instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type PendingRecord struct {
	PendingID    string
	Username     string
	PasswordHash string
	Email        string
	Role         string
}

// CredentialInput defines a public type used by busauth APIs.
//
// CredentialInput instances are intended to be configured during
// initialization and then treated as immutable unless documented otherwise.
type CredentialInput struct {
	Username      string
	PasswordHash  string
	Email         string
	Role          string
	EmailVerified bool
}

// PendingInput defines a public type used by busauth APIs.
//
// PendingInput instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type PendingInput struct {
	Username     string
	PasswordHash string
	Email        string
	Role         string
}

// CredentialStore is implemented by the host application to persist verified
// accounts. Implementations must be safe for concurrent use.
//
// Insert is the uniqueness authority: when a username or email already owns a
// record the call must fail with ErrStoreDuplicateUsername or
// ErrStoreDuplicateEmail and leave the store unchanged. All lookup methods
// return ErrStoreNotFound for a missing record.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*CredentialRecord, error)
	FindByEmail(ctx context.Context, email string) (*CredentialRecord, error)
	FindByID(ctx context.Context, userID string) (*CredentialRecord, error)
	Insert(ctx context.Context, in CredentialInput) (*CredentialRecord, error)
	SetEmailVerified(ctx context.Context, userID string, verified bool) error
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
	UpdateProfile(ctx context.Context, userID string, profile Profile) error
	Delete(ctx context.Context, userID string) error
}

// PendingStore is implemented by the host application to stage registrations
// awaiting email verification. The same contract as CredentialStore applies:
// Insert enforces username uniqueness atomically and lookups miss with
// ErrStoreNotFound.
type PendingStore interface {
	FindByUsername(ctx context.Context, username string) (*PendingRecord, error)
	FindByID(ctx context.Context, pendingID string) (*PendingRecord, error)
	Insert(ctx context.Context, in PendingInput) (*PendingRecord, error)
	Delete(ctx context.Context, pendingID string) error
}

// RegisterRequest defines a public type used by busauth APIs.
//
// RegisterRequest instances are intended to be configured during
// initialization and then treated as immutable unless documented otherwise.
type RegisterRequest struct {
	Username string
	Password string
	Email    string
	Role     string
}

// RegisterResult defines a public type used by busauth APIs.
//
// RegisterResult instances are intended to be configured during
// initialization and then treated as immutable unless documented otherwise.
type RegisterResult struct {
	Message   string
	PendingID string
}

// VerifyResult defines a public type used by busauth APIs.
//
// VerifyResult instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type VerifyResult struct {
	Message string
	UserID  string
}

// LoginResult defines a public type used by busauth APIs.
//
// LoginResult instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type LoginResult struct {
	AccessToken string
	Role        string
}

// ResetResult defines a public type used by busauth APIs.
//
// ResetResult instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type ResetResult struct {
	Message string
	UserID  string
}

// ProfileUpdate defines a public type used by busauth APIs.
//
// ProfileUpdate instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type ProfileUpdate struct {
	UserID  string
	Profile Profile
}

// AuthResult defines a public type used by busauth APIs.
//
// AuthResult instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type AuthResult struct {
	UserID   string
	Username string
	Role     string
}
