package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/llm-mail-assistant/internal/core"
)

// FinalAnswerAction is the action name that ends a routing session
const FinalAnswerAction = "Final Answer"

// Step is one decision returned by the model
type Step struct {
	Action string
	Input  json.RawMessage
}

// IsFinal reports whether the step declares the final answer
func (s *Step) IsFinal() bool {
	return strings.EqualFold(strings.TrimSpace(s.Action), FinalAnswerAction)
}

// FinalText returns the final answer, unquoting a string input
func (s *Step) FinalText() string {
	var text string
	if err := json.Unmarshal(s.Input, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(string(s.Input))
}

type stepBlob struct {
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input"`
}

// ParseStep extracts the action blob from model output
func ParseStep(raw string) (*Step, error) {
	text := strings.TrimSpace(raw)

	jsonStart := strings.Index(text, "{")
	jsonEnd := strings.LastIndex(text, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON action blob in model output: %w", core.ErrToolValidation)
	}

	var blob stepBlob
	if err := json.Unmarshal([]byte(text[jsonStart:jsonEnd+1]), &blob); err != nil {
		return nil, fmt.Errorf("failed to parse action blob: %w", core.ErrToolValidation)
	}

	action := strings.TrimSpace(blob.Action)
	if action == "" {
		return nil, fmt.Errorf("action blob has no \"action\" field: %w", core.ErrToolValidation)
	}

	step := &Step{Action: action, Input: blob.ActionInput}
	if step.IsFinal() && step.FinalText() == "" {
		return nil, fmt.Errorf("final answer has no \"action_input\": %w", core.ErrToolValidation)
	}
	return step, nil
}
