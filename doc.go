// Package busauth provides the authentication core of the TicketBus booking
// platform: staged registration with email OTP verification, stateless JWT
// login with best-effort token reuse, and the OTP-driven password reset flow.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// busauth is the public surface. It exposes [Engine], [Builder], [Config], the
// [CredentialStore] and [PendingStore] collaborator contracts, and value types
// (RegisterResult, LoginResult, MetricsSnapshot, etc.). Credential persistence
// is caller-provided through the store interfaces; the engine owns only the
// short-lived OTP records, which live in Redis.
//
// # What this package must NOT do
//
//   - Expose Redis clients, the OTP record codec, or mail transport details in
//     its public API.
//   - Hold server-side session state: issued tokens are self-contained and are
//     never tracked or revoked (logout is client-side deletion).
//   - Import any sub-package that re-imports busauth (no import cycles).
//
// # Consistency contract
//
// The pre-insert duplicate checks in Register are a fast-path courtesy only.
// The authoritative uniqueness guard is the store's own duplicate rejection
// ([ErrStoreDuplicateUsername]), which every conforming store implementation
// must enforce atomically.
package busauth
