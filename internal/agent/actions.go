package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/llm-mail-assistant/internal/availability"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"go.uber.org/zap"
)

var dayPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Meetings scheduled by the assistant start at this local time
const (
	meetingStartHour   = 10
	meetingStartMinute = 0
)

// NotifyAction sends a summary of the email to the manager
type NotifyAction struct {
	transport      core.MailTransport
	managerAddress string
	logger         *zap.Logger
}

// NewNotifyAction creates a new NotifyAction
func NewNotifyAction(transport core.MailTransport, managerAddress string, logger *zap.Logger) *NotifyAction {
	return &NotifyAction{
		transport:      transport,
		managerAddress: managerAddress,
		logger:         logger,
	}
}

func (a *NotifyAction) Name() string { return core.ActionNotify }

func (a *NotifyAction) Description() string {
	return "Use when the manager needs to be informed about the content of the email. " +
		"This sends a summary to the manager, NOT a reply to the sender."
}

func (a *NotifyAction) Format() string {
	return `{"action": "write_email", "action_input": {"subject": "A short subject", "body": "A summary of the email"}}`
}

func (a *NotifyAction) Decode(input json.RawMessage) (core.ActionRequest, error) {
	fields, err := decodeFields(input)
	if err != nil {
		return nil, err
	}
	subject, err := requiredString(fields, "subject")
	if err != nil {
		return nil, err
	}
	body, err := requiredString(fields, "body")
	if err != nil {
		return nil, err
	}
	return core.NotifyRequest{Subject: subject, Body: body}, nil
}

func (a *NotifyAction) Execute(ctx context.Context, req core.ActionRequest) string {
	notify, ok := req.(core.NotifyRequest)
	if !ok {
		return fmt.Sprintf("Invalid input for %s: unexpected request %T", a.Name(), req)
	}

	if err := a.transport.Send(ctx, a.managerAddress, notify.Subject, notify.Body); err != nil {
		a.logger.Error("Failed to send notification", zap.String("to", a.managerAddress), zap.Error(err))
		return fmt.Sprintf("Failed to send email: %v", err)
	}

	a.logger.Info("Notification sent",
		zap.String("to", a.managerAddress),
		zap.String("subject", notify.Subject))
	return fmt.Sprintf("Email sent to %s with subject '%s'", a.managerAddress, notify.Subject)
}

// ScheduleMeetingAction books a meeting with the manager on the calendar
type ScheduleMeetingAction struct {
	calendar       core.CalendarService
	location       *time.Location
	calendarID     string
	managerAddress string
	logger         *zap.Logger
}

// NewScheduleMeetingAction creates a new ScheduleMeetingAction
func NewScheduleMeetingAction(
	calendar core.CalendarService,
	location *time.Location,
	calendarID string,
	managerAddress string,
	logger *zap.Logger,
) *ScheduleMeetingAction {
	return &ScheduleMeetingAction{
		calendar:       calendar,
		location:       location,
		calendarID:     calendarID,
		managerAddress: managerAddress,
		logger:         logger,
	}
}

func (a *ScheduleMeetingAction) Name() string { return core.ActionScheduleMeeting }

func (a *ScheduleMeetingAction) Description() string {
	return "Use this when someone wants to book a time. " +
		"Expects 'subject', 'duration_minutes' and 'day' (YYYY-MM-DD)."
}

func (a *ScheduleMeetingAction) Format() string {
	return `{"action": "schedule_meeting", "action_input": {"subject": "Meeting title", "duration_minutes": 30, "day": "2025-06-24"}}`
}

func (a *ScheduleMeetingAction) Decode(input json.RawMessage) (core.ActionRequest, error) {
	fields, err := decodeFields(input)
	if err != nil {
		return nil, err
	}
	// The day is checked first so a bad date never reaches the calendar
	day, err := requiredDay(fields)
	if err != nil {
		return nil, err
	}
	subject, err := requiredString(fields, "subject")
	if err != nil {
		return nil, err
	}
	duration, err := requiredPositiveInt(fields, "duration_minutes", "duration")
	if err != nil {
		return nil, err
	}
	return core.ScheduleMeetingRequest{Subject: subject, DurationMinutes: duration, Day: day}, nil
}

func (a *ScheduleMeetingAction) Execute(ctx context.Context, req core.ActionRequest) string {
	meeting, ok := req.(core.ScheduleMeetingRequest)
	if !ok {
		return fmt.Sprintf("Invalid input for %s: unexpected request %T", a.Name(), req)
	}

	start := meeting.Day.At(meetingStartHour, meetingStartMinute, a.location)
	end := start.Add(time.Duration(meeting.DurationMinutes) * time.Minute)

	ref, err := a.calendar.CreateEvent(ctx, core.EventRequest{
		CalendarID: a.calendarID,
		Subject:    meeting.Subject,
		Start:      start,
		End:        end,
		TimeZone:   a.location.String(),
		Attendees:  []string{a.managerAddress},
	})
	if err != nil {
		a.logger.Error("Failed to create event", zap.String("day", meeting.Day.String()), zap.Error(err))
		return fmt.Sprintf("Failed to schedule meeting: %v", err)
	}

	a.logger.Info("Event created",
		zap.String("event_id", ref.ID),
		zap.String("day", meeting.Day.String()),
		zap.Int("duration_minutes", meeting.DurationMinutes))
	return fmt.Sprintf("Event created: %s", ref.Link)
}

// CheckAvailabilityAction reports the manager's free slots for a day
type CheckAvailabilityAction struct {
	calendar   core.CalendarService
	calculator *availability.Calculator
	calendarID string
	logger     *zap.Logger
}

// NewCheckAvailabilityAction creates a new CheckAvailabilityAction
func NewCheckAvailabilityAction(
	calendar core.CalendarService,
	calculator *availability.Calculator,
	calendarID string,
	logger *zap.Logger,
) *CheckAvailabilityAction {
	return &CheckAvailabilityAction{
		calendar:   calendar,
		calculator: calculator,
		calendarID: calendarID,
		logger:     logger,
	}
}

func (a *CheckAvailabilityAction) Name() string { return core.ActionCheckAvailability }

func (a *CheckAvailabilityAction) Description() string {
	return "Use when someone asks when the manager is free. Expects 'day' (YYYY-MM-DD)."
}

func (a *CheckAvailabilityAction) Format() string {
	return `{"action": "check_calendar_availability", "action_input": {"day": "2025-06-23"}}`
}

func (a *CheckAvailabilityAction) Decode(input json.RawMessage) (core.ActionRequest, error) {
	fields, err := decodeFields(input)
	if err != nil {
		return nil, err
	}
	day, err := requiredDay(fields)
	if err != nil {
		return nil, err
	}
	return core.CheckAvailabilityRequest{Day: day}, nil
}

func (a *CheckAvailabilityAction) Execute(ctx context.Context, req core.ActionRequest) string {
	check, ok := req.(core.CheckAvailabilityRequest)
	if !ok {
		return fmt.Sprintf("Invalid input for %s: unexpected request %T", a.Name(), req)
	}

	startUTC, endUTC := a.calculator.DayRange(check.Day)
	busy, err := a.calendar.ListBusyIntervals(ctx, a.calendarID, startUTC, endUTC)
	if err != nil {
		a.logger.Error("Failed to query free/busy", zap.String("day", check.Day.String()), zap.Error(err))
		return fmt.Sprintf("Failed to check calendar availability: %v", err)
	}

	free := a.calculator.FreeSlotsOn(check.Day, busy)
	a.logger.Debug("Computed free slots",
		zap.String("day", check.Day.String()),
		zap.Int("busy_count", len(busy)),
		zap.Int("free_count", len(free)))

	return a.calculator.FormatSlots(check.Day, free)
}

// decodeFields accepts an object, or a string holding an object
func decodeFields(input json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(input))
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("missing action_input: %w", core.ErrToolValidation)
	}

	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			return nil, fmt.Errorf("action_input is not valid JSON: %w", core.ErrToolValidation)
		}
		trimmed = strings.TrimSpace(inner)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, fmt.Errorf("action_input must be an object: %w", core.ErrToolValidation)
	}
	return fields, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("missing %q: %w", key, core.ErrToolValidation)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%q must be a string: %w", key, core.ErrToolValidation)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%q must not be empty: %w", key, core.ErrToolValidation)
	}
	return value, nil
}

// maxMeetingMinutes bounds a meeting to one day
const maxMeetingMinutes = 24 * 60

func requiredPositiveInt(fields map[string]json.RawMessage, keys ...string) (int, error) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}

		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return 0, fmt.Errorf("%q must be a number: %w", key, core.ErrToolValidation)
		}

		var n int
		switch v := value.(type) {
		case float64:
			if v != math.Trunc(v) || v > maxMeetingMinutes || v < -maxMeetingMinutes {
				return 0, fmt.Errorf("%q must be a whole number of minutes: %w", key, core.ErrToolValidation)
			}
			n = int(v)
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return 0, fmt.Errorf("%q must be a whole number of minutes: %w", key, core.ErrToolValidation)
			}
			n = parsed
		default:
			return 0, fmt.Errorf("%q must be a number: %w", key, core.ErrToolValidation)
		}

		if n <= 0 {
			return 0, fmt.Errorf("%q must be positive: %w", key, core.ErrToolValidation)
		}
		if n > maxMeetingMinutes {
			return 0, fmt.Errorf("%q must be at most %d minutes: %w", key, maxMeetingMinutes, core.ErrToolValidation)
		}
		return n, nil
	}
	return 0, fmt.Errorf("missing %q: %w", keys[0], core.ErrToolValidation)
}

func requiredDay(fields map[string]json.RawMessage) (core.Date, error) {
	raw, ok := fields["day"]
	if !ok {
		return core.Date{}, fmt.Errorf("missing \"day\": %w", core.ErrToolValidation)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return core.Date{}, fmt.Errorf("\"day\" must be a string: %w", core.ErrToolValidation)
	}

	match := dayPattern.FindString(value)
	if match == "" {
		return core.Date{}, fmt.Errorf("%q is not a YYYY-MM-DD date: %w", value, core.ErrInvalidDate)
	}
	return availability.ParseDay(match)
}
