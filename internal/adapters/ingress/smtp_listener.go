package ingress

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
)

// EmailHandler processes one parsed email
type EmailHandler interface {
	HandleEmail(ctx context.Context, email *core.EmailMessage) (*core.Outcome, error)
}

// ListenerOptions configures the SMTP listener
type ListenerOptions struct {
	Address         string
	Domain          string
	MaxMessageBytes int64
	MaxRecipients   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	HandleTimeout   time.Duration
	AuthUsername    string
	AuthPassword    string
}

// SMTPListener accepts mail over SMTP and hands each message to the assistant
type SMTPListener struct {
	handler EmailHandler
	opts    ListenerOptions
	logger  *zap.Logger
	server  *smtp.Server
}

// NewSMTPListener creates a new SMTP listener
func NewSMTPListener(handler EmailHandler, opts ListenerOptions, logger *zap.Logger) *SMTPListener {
	if opts.Domain == "" {
		opts.Domain = "localhost"
	}
	if opts.MaxRecipients <= 0 {
		opts.MaxRecipients = 50
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = opts.ReadTimeout
	}
	if opts.HandleTimeout <= 0 {
		opts.HandleTimeout = 2 * time.Minute
	}

	l := &SMTPListener{
		handler: handler,
		opts:    opts,
		logger:  logger,
	}

	l.server = smtp.NewServer(&smtpBackend{listener: l})
	l.server.Addr = opts.Address
	l.server.Domain = opts.Domain
	l.server.ReadTimeout = opts.ReadTimeout
	l.server.WriteTimeout = opts.WriteTimeout
	l.server.MaxMessageBytes = opts.MaxMessageBytes
	l.server.MaxRecipients = opts.MaxRecipients
	l.server.AllowInsecureAuth = true

	return l
}

// Start starts accepting connections in the background
func (l *SMTPListener) Start() error {
	l.logger.Info("SMTP listener starting",
		zap.String("address", l.opts.Address),
		zap.Bool("auth_enabled", l.authEnabled()))

	go func() {
		if err := l.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			l.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop closes the listener and all open sessions
func (l *SMTPListener) Stop() error {
	return l.server.Close()
}

func (l *SMTPListener) authEnabled() bool {
	return l.opts.AuthUsername != ""
}

// deliver parses a message and runs the assistant on it
func (l *SMTPListener) deliver(raw []byte, envelope Envelope) error {
	deliveryID := uuid.NewString()
	logger := l.logger.With(zap.String("delivery_id", deliveryID))

	email, err := ParseMessage(raw, envelope)
	if err != nil {
		// Triage whatever was parsed
		logger.Warn("Failed to fully parse message", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.opts.HandleTimeout)
	defer cancel()

	outcome, err := l.handler.HandleEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrCompletion) || errors.Is(err, context.DeadlineExceeded) {
			logger.Error("Temporary failure handling email", zap.Error(err))
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 3, 0},
				Message:      "Assistant temporarily unavailable, try again later",
			}
		}
		// Malformed output or a failed action is accepted without retry
		logger.Error("Failed to handle email", zap.Error(err))
		return nil
	}

	logger.Info("Email handled",
		zap.String("sender", email.SenderAddress()),
		zap.String("subject", email.Subject),
		zap.String("classification", string(outcome.Classification.Label)),
		zap.String("summary", outcome.Summary))

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	listener *SMTPListener
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{listener: b.listener}, nil
}

// smtpSession implements the go-smtp Session and AuthSession interfaces
type smtpSession struct {
	listener      *SMTPListener
	sender        string
	recipients    []string
	authenticated bool
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	return nil
}

// AuthMechanisms lists PLAIN when credentials are configured
func (s *smtpSession) AuthMechanisms() []string {
	if s.listener.authEnabled() {
		return []string{sasl.Plain}
	}
	return nil
}

// Auth returns the SASL server for a mechanism
func (s *smtpSession) Auth(mech string) (sasl.Server, error) {
	if !s.listener.authEnabled() || mech != sasl.Plain {
		return nil, smtp.ErrAuthUnsupported
	}
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != s.listener.opts.AuthUsername || password != s.listener.opts.AuthPassword {
			return errors.New("invalid credentials")
		}
		s.authenticated = true
		return nil
	}), nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	if s.listener.authEnabled() && !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.listener.authEnabled() && !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message and hands it to the assistant
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.listener.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	return s.listener.deliver(raw, Envelope{From: s.sender, To: s.recipients})
}
