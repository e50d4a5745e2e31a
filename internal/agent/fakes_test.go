package agent

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/mikey/llm-mail-assistant/internal/availability"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const managerAddress = "manager@example.com"

type sentMail struct {
	To, Subject, Body string
}

type fakeTransport struct {
	err  error
	sent []sentMail
}

func (f *fakeTransport) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type busyQuery struct {
	CalendarID string
	Start, End time.Time
}

type fakeCalendar struct {
	busy      []core.BusyInterval
	err       error
	created   []core.EventRequest
	queries   []busyQuery
	eventLink string
}

func (f *fakeCalendar) CreateEvent(_ context.Context, req core.EventRequest) (*core.EventReference, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &core.EventReference{ID: "evt-1", Link: f.eventLink}, nil
}

func (f *fakeCalendar) ListBusyIntervals(_ context.Context, calendarID string, startUTC, endUTC time.Time) ([]core.BusyInterval, error) {
	f.queries = append(f.queries, busyQuery{CalendarID: calendarID, Start: startUTC, End: endUTC})
	if f.err != nil {
		return nil, f.err
	}
	return f.busy, nil
}

type scriptedCompleter struct {
	responses []string
	err       error
	prompts   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, _, userPrompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.prompts = append(s.prompts, userPrompt)
	i := len(s.prompts) - 1
	if i >= len(s.responses) {
		return s.responses[len(s.responses)-1], nil
	}
	return s.responses[i], nil
}

func (s *scriptedCompleter) Model() string { return "scripted" }

type recordingMetrics struct {
	mu       sync.Mutex
	sessions []core.LoopState
	tools    map[string]int
}

func (m *recordingMetrics) ObserveClassification(core.Label, core.ClassificationSource) {}

func (m *recordingMetrics) ObserveRoutingSession(state core.LoopState, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, state)
}

func (m *recordingMetrics) ObserveToolInvocation(action, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tools == nil {
		m.tools = make(map[string]int)
	}
	m.tools[action+"/"+outcome]++
}

func torontoCalculator(t *testing.T) *availability.Calculator {
	t.Helper()
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)
	calc, err := availability.NewCalculator(loc, "09:00", "17:00")
	require.NoError(t, err)
	return calc
}

func newTestCatalog(t *testing.T, transport core.MailTransport, calendar core.CalendarService, metrics core.MetricsRecorder) *Catalog {
	t.Helper()
	logger := zap.NewNop()
	calc := torontoCalculator(t)
	return NewCatalog(metrics, logger,
		NewNotifyAction(transport, managerAddress, logger),
		NewScheduleMeetingAction(calendar, calc.Location(), "primary", managerAddress, logger),
		NewCheckAvailabilityAction(calendar, calc, "primary", logger),
	)
}

func testEmail() *core.EmailMessage {
	return &core.EmailMessage{
		Author:     "Lisa Patel <lisa.patel@example.com>",
		Recipient:  "John Doe <john@example.com>",
		Subject:    "Free time on June 23?",
		ThreadBody: "Could you let me know when you're free on June 23, 2025?",
	}
}
