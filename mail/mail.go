// Package mail delivers the transactional emails sent by the authentication
// engine: the verification code after registration and the reset code for
// forgotten passwords.
//
// The engine depends only on the Mailer interface. SMTPMailer delivers over
// plain SMTP with AUTH PLAIN; WriterMailer renders to an io.Writer and is
// meant for local development and examples.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/smtp"
	"strings"
	"sync"
	"time"
)

// Template names understood by the built-in mailers.
const (
	TemplateVerifyEmail   = "verify-email"
	TemplateResetPassword = "reset-password"
)

// Message is a single outbound email. Context carries the template
// variables, for the built-in templates: Username, Code, TTLMinutes.
type Message struct {
	To       string
	Subject  string
	Template string
	Context  map[string]any
}

// Mailer is implemented by anything able to deliver a Message. Send must be
// safe for concurrent use and should honor ctx cancellation where the
// transport allows it.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var bodyTemplates = template.Must(template.New("mail").Parse(`
{{define "verify-email"}}<html><body>
<p>Hi {{.Username}},</p>
<p>Your verification code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.TTLMinutes}} minutes. If you did not create an account, ignore this email.</p>
</body></html>{{end}}

{{define "reset-password"}}<html><body>
<p>Hi {{.Username}},</p>
<p>Your password reset code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.TTLMinutes}} minutes. If you did not request a reset, ignore this email.</p>
</body></html>{{end}}
`))

func renderBody(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplates.ExecuteTemplate(&buf, msg.Template, msg.Context); err != nil {
		return "", fmt.Errorf("render template %q: %w", msg.Template, err)
	}
	return buf.String(), nil
}

// SMTPConfig defines a public type used by busauth APIs.
//
// SMTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SMTPConfig struct {
	Addr        string // host:port
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// SMTPMailer delivers messages over SMTP using AUTH PLAIN.
type SMTPMailer struct {
	config SMTPConfig
}

// NewSMTPMailer describes the newsmtpmailer operation and its observable behavior.
//
// NewSMTPMailer may return an error when input validation, dependency calls, or security checks fail.
// NewSMTPMailer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("smtp addr is required")
	}
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return &SMTPMailer{config: cfg}, nil
}

// Send describes the send operation and its observable behavior.
//
// Send may return an error when input validation, dependency calls, or security checks fail.
// Send does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := renderBody(msg)
	if err != nil {
		return err
	}

	from := m.config.FromAddress
	if m.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.FromAddress)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	var auth smtp.Auth
	if m.config.Username != "" {
		host := m.config.Addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, host)
	}

	// net/smtp has no context support; the deadline applies per attempt
	// through the dialer default only.
	return smtp.SendMail(m.config.Addr, auth, m.config.FromAddress, []string{msg.To}, []byte(b.String()))
}

// WriterMailer renders each message to w instead of delivering it. Useful
// for examples and local runs without an SMTP server.
type WriterMailer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterMailer describes the newwritermailer operation and its observable behavior.
//
// NewWriterMailer may return an error when input validation, dependency calls, or security checks fail.
// NewWriterMailer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewWriterMailer(w io.Writer) *WriterMailer {
	return &WriterMailer{w: w}
}

// Send describes the send operation and its observable behavior.
//
// Send may return an error when input validation, dependency calls, or security checks fail.
// Send does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *WriterMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := renderBody(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, err = fmt.Fprintf(m.w, "--- mail to=%s subject=%q template=%s ---\n%s\n", msg.To, msg.Subject, msg.Template, body)
	return err
}
