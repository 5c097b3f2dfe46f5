package jwt

import (
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	m := newTestManager(t, Config{
		Secret:    []byte("test-secret"),
		AccessTTL: time.Hour,
		Issuer:    "busauth",
	})

	token, err := m.Sign("alice", "u1", "admin")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Username != "alice" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "u1" {
		t.Fatalf("expected subject u1, got %q", claims.Subject)
	}
	if claims.Issuer != "busauth" {
		t.Fatalf("expected issuer busauth, got %q", claims.Issuer)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Fatalf("expected expiry in the future, got %v", claims.ExpiresAt)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := newTestManager(t, Config{Secret: []byte("secret-a"), AccessTTL: time.Hour})
	verifier := newTestManager(t, Config{Secret: []byte("secret-b"), AccessTTL: time.Hour})

	token, err := signer.Sign("alice", "u1", "user")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected verification to fail under a different secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := newTestManager(t, Config{Secret: []byte("test-secret"), AccessTTL: time.Hour})

	claims := AccessClaims{
		Username: "alice",
		Role:     "user",
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	if _, err := m.Verify(token); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestVerifyLeewayToleratesFreshExpiry(t *testing.T) {
	m := newTestManager(t, Config{
		Secret:    []byte("test-secret"),
		AccessTTL: time.Hour,
		Leeway:    time.Minute,
	})

	claims := AccessClaims{
		Username: "alice",
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-10 * time.Second)),
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Verify(token); err != nil {
		t.Fatalf("expected leeway to tolerate a just-expired token: %v", err)
	}
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	m := newTestManager(t, Config{Secret: []byte("test-secret"), AccessTTL: time.Hour})

	claims := AccessClaims{
		Username: "alice",
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:  "u1",
			IssuedAt: gjwt.NewNumericDate(time.Now()),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Verify(token); err == nil {
		t.Fatal("expected token without exp to fail verification")
	}
}

func TestVerifyRejectsAlgNone(t *testing.T) {
	m := newTestManager(t, Config{Secret: []byte("test-secret"), AccessTTL: time.Hour})

	claims := AccessClaims{
		Username: "alice",
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	if _, err := m.Verify(token); err == nil {
		t.Fatal("expected alg=none token to fail verification")
	}
}

func TestVerifyEnforcesIssuer(t *testing.T) {
	signer := newTestManager(t, Config{Secret: []byte("test-secret"), AccessTTL: time.Hour, Issuer: "other"})
	verifier := newTestManager(t, Config{Secret: []byte("test-secret"), AccessTTL: time.Hour, Issuer: "busauth"})

	token, err := signer.Sign("alice", "u1", "user")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected issuer mismatch to fail verification")
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"empty secret", Config{AccessTTL: time.Hour}},
		{"zero ttl", Config{Secret: []byte("s")}},
		{"oversized leeway", Config{Secret: []byte("s"), AccessTTL: time.Hour, Leeway: 5 * time.Minute}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected construction to fail")
			}
		})
	}
}
