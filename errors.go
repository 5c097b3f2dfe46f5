package busauth

import "errors"

// Conflict class.
var (
	// ErrUsernameTaken is an exported constant or variable used by the authentication engine.
	ErrUsernameTaken = errors.New("username already exists")
)

// Validation class.
var (
	// ErrRegistrationInvalid is an exported constant or variable used by the authentication engine.
	ErrRegistrationInvalid = errors.New("invalid registration request")
	// ErrRoleMissing is an exported constant or variable used by the authentication engine.
	ErrRoleMissing = errors.New("user role is missing")
	// ErrResetInvalid is an exported constant or variable used by the authentication engine.
	ErrResetInvalid = errors.New("invalid password reset request")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrProfileInvalid is an exported constant or variable used by the authentication engine.
	ErrProfileInvalid = errors.New("invalid profile request")
)

// NotFound class.
var (
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrOTPInvalid is an exported constant or variable used by the authentication engine.
	ErrOTPInvalid = errors.New("invalid otp")
)

// Expired class.
var (
	// ErrOTPExpired is an exported constant or variable used by the authentication engine.
	ErrOTPExpired = errors.New("otp expired")
)

// Unauthorized class.
var (
	// ErrUnauthorized is an exported constant or variable used by the authentication engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailUnverified is an exported constant or variable used by the authentication engine.
	ErrEmailUnverified = errors.New("email not verified")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid or expired token")
)

// Infrastructure class.
var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrMailDelivery is an exported constant or variable used by the authentication engine.
	ErrMailDelivery = errors.New("mail delivery failed")
	// ErrOTPUnavailable is an exported constant or variable used by the authentication engine.
	ErrOTPUnavailable = errors.New("otp backend unavailable")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("store backend unavailable")
)

// Store collaborator contract. Implementations of [CredentialStore] and
// [PendingStore] return these sentinels (wrapped or bare) so the engine can
// classify failures without knowing the backing technology.
var (
	// ErrStoreNotFound is an exported constant or variable used by the authentication engine.
	ErrStoreNotFound = errors.New("record not found")
	// ErrStoreDuplicateUsername is an exported constant or variable used by the authentication engine.
	ErrStoreDuplicateUsername = errors.New("duplicate username")
	// ErrStoreDuplicateEmail is an exported constant or variable used by the authentication engine.
	ErrStoreDuplicateEmail = errors.New("duplicate email")
)
