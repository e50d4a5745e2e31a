package agent

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-mail-assistant/internal/core"
)

// SystemPrompt builds the routing instructions listing every catalog action
func SystemPrompt(profileName string, actions []Action) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s's executive assistant.\n\n", profileName)
	fmt.Fprintf(&b, "Your job is to help %s handle their emails by picking the right tool to take action.\n\n", profileName)
	b.WriteString("TOOLS:\n\n")
	for i, action := range actions {
		fmt.Fprintf(&b, "%d. %s:\n%s\nFormat:\n%s\n\n", i+1, action.Name(), action.Description(), action.Format())
	}
	b.WriteString("Respond with a single JSON blob naming exactly one action and its action_input.\n")
	fmt.Fprintf(&b, "When no further action is needed, respond with:\n{\"action\": %q, \"action_input\": \"your answer\"}\n", FinalAnswerAction)
	b.WriteString("Always return a single valid JSON with the correct fields.\n")
	return b.String()
}

// UserPrompt serializes the email and the steps taken so far
func UserPrompt(email *core.EmailMessage, steps []core.AgentStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\nTo: %s\nSubject: %s\n\n%s\n", email.Author, email.Recipient, email.Subject, email.ThreadBody)

	if len(steps) > 0 {
		b.WriteString("\nPrevious steps:\n")
		for _, step := range steps {
			fmt.Fprintf(&b, "Action: %s\nAction Input: %s\nObservation: %s\n", step.Action, step.Input, step.Observation)
		}
		b.WriteString("\nDecide the next action, or give the final answer.\n")
	}
	return b.String()
}
