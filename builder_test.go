package busauth

import (
	"context"
	"testing"

	"github.com/ticketbus/busauth/mail"
)

func TestBuilderBuildsWorkingEngine(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	creds := newMockCredentialStore()
	mailer := &recorderMailer{}

	cfg := validTestConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(creds).
		WithPendingStore(newMockPendingStore()).
		WithMailer(mailer).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if _, err := engine.Register(ctx, RegisterRequest{
		Username: "alice",
		Password: "pw1",
		Email:    "alice@example.com",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := engine.VerifyOTP(ctx, mailer.lastCode(t)); err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice", "pw1", ""); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricRegisterSuccess] != 1 || snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("unexpected metrics: %+v", snap.Counters)
	}
}

func TestBuilderConstructsMailerFromConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := validTestConfig()
	cfg.Mail.SMTPAddr = "smtp.example.com:587"
	cfg.Mail.FromAddress = "no-reply@example.com"
	cfg.Mail.FromName = "Example Tickets"

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(newMockCredentialStore()).
		WithPendingStore(newMockPendingStore()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, ok := engine.mailer.(*mail.SMTPMailer); !ok {
		t.Fatalf("expected SMTP mailer from config, got %T", engine.mailer)
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := validTestConfig()

	cases := []struct {
		name  string
		build func() (*Engine, error)
	}{
		{"missing redis", func() (*Engine, error) {
			return New().WithConfig(cfg).
				WithCredentialStore(newMockCredentialStore()).
				WithPendingStore(newMockPendingStore()).
				WithMailer(&recorderMailer{}).
				Build()
		}},
		{"missing credential store", func() (*Engine, error) {
			return New().WithConfig(cfg).WithRedis(rdb).
				WithPendingStore(newMockPendingStore()).
				WithMailer(&recorderMailer{}).
				Build()
		}},
		{"missing pending store", func() (*Engine, error) {
			return New().WithConfig(cfg).WithRedis(rdb).
				WithCredentialStore(newMockCredentialStore()).
				WithMailer(&recorderMailer{}).
				Build()
		}},
		{"missing mailer", func() (*Engine, error) {
			return New().WithConfig(cfg).WithRedis(rdb).
				WithCredentialStore(newMockCredentialStore()).
				WithPendingStore(newMockPendingStore()).
				Build()
		}},
		{"invalid config", func() (*Engine, error) {
			bad := cfg
			bad.JWT.Secret = nil
			return New().WithConfig(bad).WithRedis(rdb).
				WithCredentialStore(newMockCredentialStore()).
				WithPendingStore(newMockPendingStore()).
				WithMailer(&recorderMailer{}).
				Build()
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.build(); err == nil {
				t.Fatal("expected Build to fail")
			}
		})
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := validTestConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(newMockCredentialStore()).
		WithPendingStore(newMockPendingStore()).
		WithMailer(&recorderMailer{})

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}
