package mailer

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSMTPMailer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "valid", opts: Options{Host: "smtp.example.com", Port: 465, From: "bot@example.com"}},
		{name: "missing host", opts: Options{From: "bot@example.com"}, wantErr: true},
		{name: "missing sender", opts: Options{Host: "smtp.example.com"}, wantErr: true},
		{name: "bad security", opts: Options{Host: "smtp.example.com", From: "bot@example.com", Security: "ssl3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewSMTPMailer(tt.opts, zap.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, SecurityTLS, m.opts.Security)
		})
	}
}

func TestSMTPMailer_Compose(t *testing.T) {
	m, err := NewSMTPMailer(Options{Host: "smtp.example.com", From: "Assistant <bot@example.com>"}, zap.NewNop())
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC) }

	raw, err := m.compose("manager@example.com", "Summary of customer question", "Café opening hours were asked.")
	require.NoError(t, err)

	reader, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := reader.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Summary of customer question", subject)

	from, err := reader.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "bot@example.com", from[0].Address)
	assert.Equal(t, "Assistant", from[0].Name)

	to, err := reader.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "manager@example.com", to[0].Address)

	date, err := reader.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(m.now()))

	messageID, err := reader.Header.MessageID()
	require.NoError(t, err)
	assert.NotEmpty(t, messageID)

	part, err := reader.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Equal(t, "Café opening hours were asked.", string(body))
}

func TestSMTPMailer_ComposeRejectsBadRecipient(t *testing.T) {
	m, err := NewSMTPMailer(Options{Host: "smtp.example.com", From: "bot@example.com"}, zap.NewNop())
	require.NoError(t, err)

	err = m.Send(context.Background(), "not an address", "subject", "body")
	assert.ErrorIs(t, err, core.ErrTransport)
}

type capturedMessage struct {
	from string
	to   []string
	data []byte
}

type captureBackend struct {
	mu       sync.Mutex
	messages []capturedMessage
}

func (b *captureBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &captureSession{backend: b}, nil
}

type captureSession struct {
	backend *captureBackend
	current capturedMessage
}

func (s *captureSession) Reset()        { s.current = capturedMessage{} }
func (s *captureSession) Logout() error { return nil }

func (s *captureSession) Mail(from string, _ *smtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = data
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.current)
	s.backend.mu.Unlock()
	return nil
}

func TestSMTPMailer_SendPlain(t *testing.T) {
	backend := &captureBackend{}
	server := smtp.NewServer(backend)
	server.Domain = "localhost"
	server.AllowInsecureAuth = true

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(ln)
	defer server.Close()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	m, err := NewSMTPMailer(Options{
		Host:     host,
		Port:     port,
		From:     "bot@example.com",
		Security: SecurityNone,
		Timeout:  5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	err = m.Send(context.Background(), "manager@example.com", "Heads up", "A customer asked about pricing.")
	require.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.messages, 1)
	msg := backend.messages[0]
	assert.Equal(t, "bot@example.com", msg.from)
	assert.Equal(t, []string{"manager@example.com"}, msg.to)
	assert.Contains(t, string(msg.data), "Subject: Heads up")
	assert.Contains(t, string(msg.data), "A customer asked about pricing.")
}

func TestSMTPMailer_SendUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	m, err := NewSMTPMailer(Options{
		Host:     "127.0.0.1",
		Port:     addr.Port,
		From:     "bot@example.com",
		Security: SecurityNone,
		Timeout:  time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	err = m.Send(context.Background(), "manager@example.com", "subject", "body")
	assert.ErrorIs(t, err, core.ErrTransport)
}
