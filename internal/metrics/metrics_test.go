package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.ObserveClassification(core.LabelRespond, core.SourceModel)
	r.ObserveClassification(core.LabelRespond, core.SourceModel)
	r.ObserveClassification(core.LabelIgnore, core.SourceSenderRule)
	r.ObserveRoutingSession(core.LoopStopped, 2)
	r.ObserveToolInvocation(core.ActionCheckAvailability, "executed")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.classifications.WithLabelValues("respond", "model")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.classifications.WithLabelValues("ignore", "sender_rule")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessions.WithLabelValues("stopped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.toolInvocations.WithLabelValues(core.ActionCheckAvailability, "executed")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveRoutingSession(core.LoopDone, 1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mail_assistant_routing_sessions_total{state="done"} 1`)
	assert.Contains(t, string(body), "mail_assistant_routing_iterations_bucket")
}
