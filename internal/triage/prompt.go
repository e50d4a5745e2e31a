package triage

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-mail-assistant/internal/core"
)

// Criteria holds the example criteria for each label
var Criteria = map[core.Label]string{
	core.LabelIgnore:  "Marketing newsletters, spam emails, mass announcements",
	core.LabelNotify:  "Team member out sick, notifications, project status",
	core.LabelRespond: "Direct questions, meeting requests, critical bugs, availability",
}

// SystemPrompt builds the triage instructions for the assistant of profileName
func SystemPrompt(profileName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s's executive assistant.\n", profileName)
	b.WriteString("Classify each email into exactly one: ignore, notify, respond.\n\n")
	b.WriteString("Rules:\n")
	for _, label := range core.Labels {
		fmt.Fprintf(&b, "- %s: %s\n", label, Criteria[label])
	}
	b.WriteString("\nReturn exactly JSON:\n")
	b.WriteString(`{"reasoning": string, "classification": "ignore"|"notify"|"respond"}`)
	b.WriteString("\n")
	return b.String()
}

// UserPrompt serializes an email for the model
func UserPrompt(email *core.EmailMessage, body string) string {
	return fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s\n",
		email.Author, email.Recipient, email.Subject, body)
}
