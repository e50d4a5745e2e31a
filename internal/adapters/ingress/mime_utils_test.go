package ingress

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseMessage_PlainText(t *testing.T) {
	raw := crlf(`From: Alice Example <alice@example.com>
To: Bob <bob@example.com>
Subject: Quarterly review
Content-Type: text/plain; charset=utf-8

Can we meet next week?
`)

	email, err := ParseMessage(raw, Envelope{From: "bounce@example.com", To: []string{"bob@example.com"}})
	require.NoError(t, err)

	assert.Equal(t, "Alice Example <alice@example.com>", email.Author)
	assert.Equal(t, "Bob <bob@example.com>", email.Recipient)
	assert.Equal(t, "Quarterly review", email.Subject)
	assert.Equal(t, "Can we meet next week?", email.ThreadBody)
	assert.Equal(t, "alice@example.com", email.SenderAddress())
}

func TestParseMessage_MultipartPrefersPlain(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: bob@example.com
Subject: Both parts
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

plain body
--b1
Content-Type: text/html; charset=utf-8

<p>html body</p>
--b1--
`)

	email, err := ParseMessage(raw, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, "plain body", email.ThreadBody)
}

func TestParseMessage_HTMLFallback(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: bob@example.com
Subject: Html only
Content-Type: text/html; charset=utf-8

<html><body><p>Hello &amp; welcome</p><p>Second</p></body></html>
`)

	email, err := ParseMessage(raw, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, "Hello & welcome\n\nSecond", email.ThreadBody)
}

func TestParseMessage_HTMLSkipsStylesAndDecodesEntities(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: bob@example.com
Subject: Styled
Content-Type: text/html; charset=utf-8

<html><head><style>p { color: red; }</style></head>
<body><script>track("open");</script><p>It&rsquo;s on&#8217;s list&nbsp;today</p><br/><p>5 &lt; 6</p></body></html>
`)

	email, err := ParseMessage(raw, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, "It\u2019s on\u2019s list today\n\n5 < 6", email.ThreadBody)
	assert.NotContains(t, email.ThreadBody, "color")
	assert.NotContains(t, email.ThreadBody, "track")
}

func TestParseMessage_EncodedSubjectAndAttachment(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: bob@example.com
Subject: =?utf-8?q?Caf=C3=A9_plans?=
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b2"

--b2
Content-Type: text/plain; charset=utf-8

see attached
--b2
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"

attachment text
--b2--
`)

	email, err := ParseMessage(raw, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, "Café plans", email.Subject)
	assert.Equal(t, "see attached", email.ThreadBody)
}

func TestParseMessage_EnvelopeFallback(t *testing.T) {
	raw := crlf(`Subject: No addresses

body
`)

	email, err := ParseMessage(raw, Envelope{From: "sender@example.com", To: []string{"a@example.com", "b@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", email.Author)
	assert.Equal(t, "a@example.com, b@example.com", email.Recipient)
}

type fakeHandler struct {
	emails  []*core.EmailMessage
	outcome *core.Outcome
	err     error
}

func (h *fakeHandler) HandleEmail(_ context.Context, email *core.EmailMessage) (*core.Outcome, error) {
	h.emails = append(h.emails, email)
	return h.outcome, h.err
}

func notifyOutcome() *core.Outcome {
	return &core.Outcome{
		Classification: &core.Classification{Label: core.LabelNotify, Reasoning: "FYI", Source: core.SourceModel},
		Summary:        core.NotifySummary,
	}
}

func TestSMTPListener_Deliver(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: bob@example.com
Subject: Hello

body
`)

	tests := []struct {
		name      string
		err       error
		wantRetry bool
	}{
		{name: "handled", err: nil},
		{name: "completion failure is temporary", err: core.ErrCompletion, wantRetry: true},
		{name: "malformed output is accepted", err: core.ErrMalformedOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &fakeHandler{outcome: notifyOutcome(), err: tt.err}
			listener := NewSMTPListener(handler, ListenerOptions{Address: "127.0.0.1:0"}, zap.NewNop())

			err := listener.deliver(raw, Envelope{From: "alice@example.com", To: []string{"bob@example.com"}})
			require.Len(t, handler.emails, 1)
			assert.Equal(t, "Hello", handler.emails[0].Subject)

			if tt.wantRetry {
				var smtpErr *smtp.SMTPError
				require.True(t, errors.As(err, &smtpErr))
				assert.Equal(t, 451, smtpErr.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSMTPSession_AuthRequired(t *testing.T) {
	listener := NewSMTPListener(&fakeHandler{outcome: notifyOutcome()}, ListenerOptions{
		Address:      "127.0.0.1:0",
		AuthUsername: "user",
		AuthPassword: "secret",
	}, zap.NewNop())
	session := &smtpSession{listener: listener}

	assert.Equal(t, []string{"PLAIN"}, session.AuthMechanisms())
	assert.ErrorIs(t, session.Mail("alice@example.com", nil), smtp.ErrAuthRequired)

	server, err := session.Auth("PLAIN")
	require.NoError(t, err)
	_, done, err := server.Next([]byte("\x00user\x00secret"))
	require.NoError(t, err)
	assert.True(t, done)

	assert.NoError(t, session.Mail("alice@example.com", nil))
	assert.NoError(t, session.Rcpt("bob@example.com", nil))
}

func TestCLISource_Process(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: bob@example.com
Subject: Status

All systems nominal.
`)

	handler := &fakeHandler{outcome: notifyOutcome()}
	var out bytes.Buffer
	source := NewCLISource(handler, &out, false, zap.NewNop())

	outcome, err := source.Process(context.Background(), bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, core.LabelNotify, outcome.Classification.Label)

	report := out.String()
	assert.Contains(t, report, "Classification: notify")
	assert.Contains(t, report, "Reasoning: FYI")
	assert.Contains(t, report, core.NotifySummary)
}
