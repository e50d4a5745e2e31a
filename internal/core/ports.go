package core

import (
	"context"
	"time"
)

// Completer defines the interface for text-generation services
type Completer interface {
	// Complete sends a system and user prompt and returns the raw model text
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Model returns the identifier of the model used for completions
	Model() string
}

// Classifier decides the triage label of an email
type Classifier interface {
	Classify(ctx context.Context, email *EmailMessage) (*Classification, error)
}

// Router runs the bounded action loop for an email that needs a response
type Router interface {
	Route(ctx context.Context, email *EmailMessage) (*AgentResult, error)
}

// MailTransport delivers plain-text mail
type MailTransport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CalendarService creates events and reports busy time
type CalendarService interface {
	// CreateEvent creates an event and returns its reference
	CreateEvent(ctx context.Context, req EventRequest) (*EventReference, error)

	// ListBusyIntervals returns the busy intervals of a calendar between two instants
	ListBusyIntervals(ctx context.Context, calendarID string, startUTC, endUTC time.Time) ([]BusyInterval, error)
}

// ClassificationRepository stores classifications by email fingerprint
type ClassificationRepository interface {
	// Get retrieves a stored classification
	Get(ctx context.Context, fingerprint string) (*StoredClassification, error)

	// Set stores a classification
	Set(ctx context.Context, entry *StoredClassification) error

	// Delete removes a stored classification
	Delete(ctx context.Context, fingerprint string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// MetricsRecorder receives counters from the triage and routing paths
type MetricsRecorder interface {
	ObserveClassification(label Label, source ClassificationSource)
	ObserveRoutingSession(state LoopState, iterations int)
	ObserveToolInvocation(action, outcome string)
}

// NopMetrics discards all observations
type NopMetrics struct{}

func (NopMetrics) ObserveClassification(Label, ClassificationSource) {}
func (NopMetrics) ObserveRoutingSession(LoopState, int)              {}
func (NopMetrics) ObserveToolInvocation(string, string)              {}
