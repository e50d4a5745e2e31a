package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// EmailMessage represents an incoming email handed to the assistant
type EmailMessage struct {
	Author     string
	Recipient  string
	Subject    string
	ThreadBody string
}

// Fingerprint returns a stable digest identifying the message content
func (e *EmailMessage) Fingerprint() string {
	h := sha256.New()
	for _, field := range []string{e.Author, e.Recipient, e.Subject, e.ThreadBody} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SenderAddress returns the bare address of the author, without display name
func (e *EmailMessage) SenderAddress() string {
	author := strings.TrimSpace(e.Author)
	if start := strings.LastIndex(author, "<"); start >= 0 {
		if end := strings.LastIndex(author, ">"); end > start {
			return strings.TrimSpace(author[start+1 : end])
		}
	}
	return author
}

// Label is one of the three triage dispositions
type Label string

const (
	LabelIgnore  Label = "ignore"
	LabelNotify  Label = "notify"
	LabelRespond Label = "respond"
)

// Labels lists every triage label in prompt order
var Labels = []Label{LabelIgnore, LabelNotify, LabelRespond}

// ParseLabel converts a token into a Label, ignoring case and surrounding whitespace
func ParseLabel(s string) (Label, bool) {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case LabelIgnore:
		return LabelIgnore, true
	case LabelNotify:
		return LabelNotify, true
	case LabelRespond:
		return LabelRespond, true
	}
	return "", false
}

// ClassificationSource records how a classification was obtained
type ClassificationSource string

const (
	SourceModel      ClassificationSource = "model"
	SourceRecovered  ClassificationSource = "recovered"
	SourceSenderRule ClassificationSource = "sender_rule"
	SourceStore      ClassificationSource = "store"
)

// Classification is the triage outcome for one email
type Classification struct {
	Label        Label
	Reasoning    string
	Source       ClassificationSource
	ClassifiedAt time.Time
	ModelUsed    string
}

// StoredClassification is a classification persisted against an email fingerprint
type StoredClassification struct {
	Fingerprint  string
	Sender       string
	Label        Label
	Reasoning    string
	ClassifiedAt time.Time
	ExpiresAt    time.Time
}

// Date is a calendar date without time of day
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// String renders the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// At returns the instant at hour:minute on this date in loc
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// ActionRequest is a validated request for one catalog action
type ActionRequest interface {
	ActionName() string
}

// Catalog action names, as presented to the model
const (
	ActionNotify            = "write_email"
	ActionScheduleMeeting   = "schedule_meeting"
	ActionCheckAvailability = "check_calendar_availability"
)

// NotifyRequest asks for a summary email to the manager
type NotifyRequest struct {
	Subject string
	Body    string
}

func (NotifyRequest) ActionName() string { return ActionNotify }

// ScheduleMeetingRequest asks for a calendar event on a day
type ScheduleMeetingRequest struct {
	Subject         string
	DurationMinutes int
	Day             Date
}

func (ScheduleMeetingRequest) ActionName() string { return ActionScheduleMeeting }

// CheckAvailabilityRequest asks for the free slots of a day
type CheckAvailabilityRequest struct {
	Day Date
}

func (CheckAvailabilityRequest) ActionName() string { return ActionCheckAvailability }

// BusyInterval is an occupied range reported by the calendar
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// FreeInterval is an unoccupied range inside the working window
type FreeInterval struct {
	Start time.Time
	End   time.Time
}

// String renders the interval as HH:MM–HH:MM
func (f FreeInterval) String() string {
	return f.Start.Format("15:04") + "–" + f.End.Format("15:04")
}

// Duration returns the length of the interval
func (f FreeInterval) Duration() time.Duration {
	return f.End.Sub(f.Start)
}

// EventRequest describes a calendar event to create
type EventRequest struct {
	CalendarID string
	Subject    string
	Start      time.Time
	End        time.Time
	TimeZone   string
	Attendees  []string
}

// EventReference identifies a created calendar event
type EventReference struct {
	ID   string
	Link string
}

// LoopState is the state of a routing session
type LoopState string

const (
	LoopStart    LoopState = "start"
	LoopThinking LoopState = "thinking"
	LoopToolCall LoopState = "tool_call"
	LoopObserve  LoopState = "observing"
	LoopDone     LoopState = "done"
	LoopStopped  LoopState = "stopped"
)

// AgentLoopState is owned by a single routing session
type AgentLoopState struct {
	SessionID       string
	Iteration       int
	LastObservation string
	Done            bool
	State           LoopState
}

// AgentStep records one think/act/observe iteration
type AgentStep struct {
	Iteration   int
	Action      string
	Input       string
	Observation string
	Executed    bool
}

// AgentResult is the output of a routing session
type AgentResult struct {
	SessionID  string
	Output     string
	State      LoopState
	Iterations int
	Steps      []AgentStep
}

// Outcome is the result of handling one email end to end
type Outcome struct {
	Classification *Classification
	Agent          *AgentResult
	Summary        string
}
