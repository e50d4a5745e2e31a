package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
)

// Connection security modes
const (
	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

// Options configures the SMTP mailer
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Security string
	Helo     string
	Timeout  time.Duration
}

// SMTPMailer sends plain-text mail through an authenticated SMTP relay
type SMTPMailer struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(opts Options, logger *zap.Logger) (*SMTPMailer, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if opts.From == "" {
		return nil, fmt.Errorf("SMTP sender address is required")
	}
	switch opts.Security {
	case "":
		opts.Security = SecurityTLS
	case SecurityTLS, SecurityStartTLS, SecurityNone:
	default:
		return nil, fmt.Errorf("unsupported SMTP security mode: %s", opts.Security)
	}
	if opts.Helo == "" {
		opts.Helo = "localhost"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &SMTPMailer{opts: opts, logger: logger, now: time.Now}, nil
}

// Send composes and delivers one message
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrTransport, err)
	}

	msg, err := m.compose(to, subject, body)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrTransport, err)
	}

	if err := m.deliver(ctx, to, msg); err != nil {
		m.logger.Error("Failed to send email",
			zap.String("recipient", to),
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("%w: %w", core.ErrTransport, err)
	}

	m.logger.Info("Email sent",
		zap.String("recipient", to),
		zap.String("subject", subject))
	return nil
}

// compose renders an RFC 5322 message with a single text/plain part
func (m *SMTPMailer) compose(to, subject, body string) ([]byte, error) {
	from, err := mail.ParseAddress(m.opts.From)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sender address: %w", err)
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipient address: %w", err)
	}

	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{rcpt})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message writer: %w", err)
	}

	return buf.Bytes(), nil
}

// deliver opens a session to the relay and submits the message
func (m *SMTPMailer) deliver(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(m.opts.Host, fmt.Sprintf("%d", m.opts.Port))
	tlsConfig := &tls.Config{ServerName: m.opts.Host}

	deadline := time.Now().Add(m.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := &net.Dialer{Deadline: deadline}
	var conn net.Conn
	var err error
	if m.opts.Security == SecurityTLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(m.opts.Helo); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if m.opts.Security == SecurityStartTLS {
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if m.opts.Username != "" {
		auth := sasl.NewPlainClient("", m.opts.Username, m.opts.Password)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	sender, err := mail.ParseAddress(m.opts.From)
	if err != nil {
		return fmt.Errorf("failed to parse sender address: %w", err)
	}
	recipient, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("failed to parse recipient address: %w", err)
	}

	if err := c.Mail(sender.Address, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(recipient.Address, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		m.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// LogMailer records messages instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a mailer for dry runs
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message and reports success
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("Dry run: email not sent",
		zap.String("recipient", to),
		zap.String("subject", subject),
		zap.Int("body_length", len(body)))
	return nil
}
