package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	input    *bedrockruntime.InvokeModelInput
	response string
	err      error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.response)}, nil
}

func TestClient_Complete(t *testing.T) {
	tests := []struct {
		name     string
		modelID  string
		response string
		want     string
		check    func(t *testing.T, payload map[string]interface{})
	}{
		{
			name:     "claude messages",
			modelID:  "anthropic.claude-3-haiku-20240307-v1:0",
			response: `{"content": [{"type": "text", "text": " {\"classification\": \"respond\"} "}]}`,
			want:     `{"classification": "respond"}`,
			check: func(t *testing.T, payload map[string]interface{}) {
				assert.Equal(t, anthropicVersion, payload["anthropic_version"])
				assert.Equal(t, "system", payload["system"])
				messages := payload["messages"].([]interface{})
				require.Len(t, messages, 1)
				assert.Equal(t, "user", messages[0].(map[string]interface{})["content"])
			},
		},
		{
			name:     "titan",
			modelID:  "amazon.titan-text-express-v1",
			response: `{"results": [{"outputText": "notify"}]}`,
			want:     "notify",
			check: func(t *testing.T, payload map[string]interface{}) {
				assert.Equal(t, "system\n\nuser", payload["inputText"])
			},
		},
		{
			name:     "generic",
			modelID:  "meta.llama3-70b-instruct-v1:0",
			response: `{"generation": "ignore"}`,
			want:     "ignore",
			check: func(t *testing.T, payload map[string]interface{}) {
				assert.Equal(t, "system\n\nuser", payload["prompt"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := &fakeInvoker{response: tt.response}
			client := NewClient(invoker, tt.modelID, 500, 0, 1, zap.NewNop())

			out, err := client.Complete(context.Background(), "system", "user")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.modelID, *invoker.input.ModelId)

			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal(invoker.input.Body, &payload))
			tt.check(t, payload)
		})
	}
}

func TestClient_CompleteErrors(t *testing.T) {
	client := NewClient(&fakeInvoker{err: errors.New("throttled")}, "anthropic.claude-v2", 500, 0, 1, zap.NewNop())
	_, err := client.Complete(context.Background(), "s", "u")
	assert.Error(t, err)

	client = NewClient(&fakeInvoker{response: `{"content": []}`}, "anthropic.claude-v2", 500, 0, 1, zap.NewNop())
	_, err = client.Complete(context.Background(), "s", "u")
	assert.Error(t, err)

	client = NewClient(&fakeInvoker{response: `{"results": []}`}, "amazon.titan-text-lite-v1", 500, 0, 1, zap.NewNop())
	_, err = client.Complete(context.Background(), "s", "u")
	assert.Error(t, err)
}
