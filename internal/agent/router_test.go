package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(completer core.Completer, catalog *Catalog, metrics core.MetricsRecorder) *Router {
	return NewRouter(completer, catalog, "John Doe", 2, metrics, zap.NewNop())
}

func TestRouter_Done(t *testing.T) {
	calendar := &fakeCalendar{}
	completer := &scriptedCompleter{responses: []string{
		`{"action": "check_calendar_availability", "action_input": {"day": "2025-06-23"}}`,
		`{"action": "Final Answer", "action_input": "John is free 09:00–17:00 on June 23."}`,
	}}
	metrics := &recordingMetrics{}
	router := newTestRouter(completer, newTestCatalog(t, &fakeTransport{}, calendar, nil), metrics)

	result, err := router.Route(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, core.LoopDone, result.State)
	assert.Equal(t, "John is free 09:00–17:00 on June 23.", result.Output)
	assert.Equal(t, 2, result.Iterations)
	assert.NotEmpty(t, result.SessionID)
	require.Len(t, result.Steps, 1)
	assert.True(t, result.Steps[0].Executed)
	assert.Equal(t, "Free slots on 2025-06-23 (EDT): 09:00–17:00.", result.Steps[0].Observation)
	assert.Len(t, calendar.queries, 1)

	// The observation is fed back into the second prompt
	require.Len(t, completer.prompts, 2)
	assert.Contains(t, completer.prompts[1], "Observation: Free slots on 2025-06-23 (EDT): 09:00–17:00.")
	assert.Equal(t, []core.LoopState{core.LoopDone}, metrics.sessions)
}

func TestRouter_StoppedAtCeiling(t *testing.T) {
	transport := &fakeTransport{}
	completer := &scriptedCompleter{responses: []string{
		`{"action": "write_email", "action_input": {"subject": "FYI", "body": "summary"}}`,
	}}
	router := newTestRouter(completer, newTestCatalog(t, transport, &fakeCalendar{}, nil), nil)

	result, err := router.Route(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, core.LoopStopped, result.State)
	assert.Equal(t, 2, result.Iterations)
	assert.Len(t, completer.prompts, 2)
	assert.Len(t, transport.sent, 2)
	assert.Equal(t, "Email sent to manager@example.com with subject 'FYI'", result.Output)
}

func TestRouter_CeilingBoundsToolCalls(t *testing.T) {
	transport := &fakeTransport{}
	completer := &scriptedCompleter{responses: []string{
		`{"action": "write_email", "action_input": {"subject": "FYI", "body": "summary"}}`,
	}}
	router := NewRouter(completer, newTestCatalog(t, transport, &fakeCalendar{}, nil), "John Doe", 5, nil, zap.NewNop())

	result, err := router.Route(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, core.LoopStopped, result.State)
	assert.Equal(t, 5, result.Iterations)
	assert.Len(t, transport.sent, 5)
	for i, step := range result.Steps {
		assert.Equal(t, i+1, step.Iteration)
	}
}

func TestRouter_InvalidStepsAreObservations(t *testing.T) {
	calendar := &fakeCalendar{}
	completer := &scriptedCompleter{responses: []string{
		"I will check the calendar now.",
		`{"action": "schedule_meeting", "action_input": {"subject": "Sync", "duration_minutes": 30, "day": "not-a-date"}}`,
	}}
	router := newTestRouter(completer, newTestCatalog(t, &fakeTransport{}, calendar, nil), nil)

	result, err := router.Route(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, core.LoopStopped, result.State)
	require.Len(t, result.Steps, 2)
	assert.False(t, result.Steps[0].Executed)
	assert.Contains(t, result.Steps[0].Observation, "Invalid response format")
	assert.False(t, result.Steps[1].Executed)
	assert.Contains(t, result.Output, "Invalid input for schedule_meeting")
	assert.Empty(t, calendar.created)
	assert.Contains(t, completer.prompts[1], "Invalid response format")
}

func TestRouter_EmptyFinalAnswerIsObservation(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		`{"action": "Final Answer"}`,
		`{"action": "Final Answer", "action_input": "Nothing to schedule."}`,
	}}
	router := newTestRouter(completer, newTestCatalog(t, &fakeTransport{}, &fakeCalendar{}, nil), nil)

	result, err := router.Route(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Equal(t, core.LoopDone, result.State)
	assert.Equal(t, "Nothing to schedule.", result.Output)
	require.Len(t, result.Steps, 1)
	assert.Contains(t, result.Steps[0].Observation, "final answer has no")
	assert.Contains(t, completer.prompts[1], "Invalid response format")
}

func TestRouter_DefaultCeiling(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{"action": "Final Answer", "action_input": "ok"}`}}
	router := NewRouter(completer, newTestCatalog(t, &fakeTransport{}, &fakeCalendar{}, nil), "John Doe", 0, nil, zap.NewNop())
	assert.Equal(t, DefaultMaxIterations, router.maxIterations)

	result, err := router.Route(context.Background(), testEmail())
	require.NoError(t, err)
	assert.Equal(t, core.LoopDone, result.State)
	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, result.Steps)
}

func TestRouter_CompletionError(t *testing.T) {
	transportErr := errors.New("upstream timeout")
	router := newTestRouter(&scriptedCompleter{err: transportErr}, newTestCatalog(t, &fakeTransport{}, &fakeCalendar{}, nil), nil)

	_, err := router.Route(context.Background(), testEmail())
	assert.ErrorIs(t, err, core.ErrCompletion)
	assert.ErrorIs(t, err, transportErr)
}

func TestRouter_SessionsAreIndependent(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{"action": "Final Answer", "action_input": "ok"}`}}
	router := newTestRouter(completer, newTestCatalog(t, &fakeTransport{}, &fakeCalendar{}, nil), nil)

	first, err := router.Route(context.Background(), testEmail())
	require.NoError(t, err)
	second, err := router.Route(context.Background(), testEmail())
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.NotContains(t, completer.prompts[1], "Previous steps")
}

func TestSystemPrompt(t *testing.T) {
	catalog := newTestCatalog(t, &fakeTransport{}, &fakeCalendar{}, nil)
	prompt := SystemPrompt("John Doe", catalog.List())

	assert.Contains(t, prompt, "You are John Doe's executive assistant.")
	assert.Contains(t, prompt, "1. write_email:")
	assert.Contains(t, prompt, "2. schedule_meeting:")
	assert.Contains(t, prompt, "3. check_calendar_availability:")
	assert.Contains(t, prompt, `"action": "Final Answer"`)
}
