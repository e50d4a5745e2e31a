package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/llm-mail-assistant/internal/config"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_Complete(t *testing.T) {
	var received openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "llama3-70b-8192",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  {\"classification\": \"notify\"}  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("openai.api_key", "test-key")
	cfg.Set("openai.base_url", server.URL+"/v1")

	client, err := NewFactory(cfg, zap.NewNop()).CreateClient()
	require.NoError(t, err)
	assert.Equal(t, "llama3-70b-8192", client.Model())

	out, err := client.Complete(context.Background(), "system text", "user text")
	require.NoError(t, err)
	assert.Equal(t, `{"classification": "notify"}`, out)

	require.Len(t, received.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, received.Messages[0].Role)
	assert.Equal(t, "system text", received.Messages[0].Content)
	assert.Equal(t, "user text", received.Messages[1].Content)
	assert.Equal(t, "llama3-70b-8192", received.Model)
	assert.Less(t, received.Temperature, float32(0.001))
}

func TestClient_CompleteErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	clientCfg := openai.DefaultConfig("k")
	clientCfg.BaseURL = server.URL
	client := NewClient(openai.NewClientWithConfig(clientCfg), "m", 100, 0, 1, zap.NewNop())

	_, err := client.Complete(context.Background(), "s", "u")
	assert.Error(t, err)
}

func TestFactory_RequiresAPIKey(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("openai.api_key", "")

	_, err := NewFactory(cfg, zap.NewNop()).CreateClient()
	assert.Error(t, err)
}
