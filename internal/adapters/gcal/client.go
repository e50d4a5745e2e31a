package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/llm-mail-assistant/internal/core"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ClientOptions configures the calendar client
type ClientOptions struct {
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
	// Endpoint overrides the API base URL
	Endpoint string
}

// Client implements core.CalendarService on top of the Google Calendar API
type Client struct {
	provider TokenProvider
	breaker  *gobreaker.CircuitBreaker
	endpoint string
	logger   *zap.Logger
}

// NewClient creates a new Google Calendar client
func NewClient(provider TokenProvider, opts ClientOptions, logger *zap.Logger) *Client {
	maxFailures := opts.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "google-calendar",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !tripsBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		endpoint: opts.Endpoint,
		logger:   logger,
	}
}

// CreateEvent inserts an event and returns its id and link
func (c *Client) CreateEvent(ctx context.Context, req core.EventRequest) (*core.EventReference, error) {
	event := &calendar.Event{
		Summary: req.Subject,
		Start: &calendar.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: req.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: req.End.Format(time.RFC3339),
			TimeZone: req.TimeZone,
		},
	}
	for _, attendee := range req.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: attendee})
	}

	var created *calendar.Event
	err := c.call(ctx, func(svc *calendar.Service) error {
		var err error
		created, err = svc.Events.Insert(req.CalendarID, event).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	c.logger.Info("Calendar event created",
		zap.String("calendar_id", req.CalendarID),
		zap.String("event_id", created.Id),
		zap.Time("start", req.Start))

	return &core.EventReference{ID: created.Id, Link: created.HtmlLink}, nil
}

// ListBusyIntervals queries free/busy information for one calendar
func (c *Client) ListBusyIntervals(ctx context.Context, calendarID string, startUTC, endUTC time.Time) ([]core.BusyInterval, error) {
	query := &calendar.FreeBusyRequest{
		TimeMin:  startUTC.UTC().Format(time.RFC3339),
		TimeMax:  endUTC.UTC().Format(time.RFC3339),
		TimeZone: "UTC",
		Items:    []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}

	var result *calendar.FreeBusyResponse
	err := c.call(ctx, func(svc *calendar.Service) error {
		var err error
		result, err = svc.Freebusy.Query(query).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	cal, ok := result.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("%w: calendar %s missing from freebusy response", core.ErrTransport, calendarID)
	}
	if len(cal.Errors) > 0 {
		reasons := make([]string, 0, len(cal.Errors))
		for _, e := range cal.Errors {
			reasons = append(reasons, e.Reason)
		}
		return nil, fmt.Errorf("%w: freebusy errors for %s: %s", core.ErrTransport, calendarID, strings.Join(reasons, ", "))
	}

	busy := make([]core.BusyInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid busy start %q: %w", core.ErrTransport, period.Start, err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid busy end %q: %w", core.ErrTransport, period.End, err)
		}
		busy = append(busy, core.BusyInterval{Start: start, End: end})
	}

	c.logger.Debug("Busy intervals fetched",
		zap.String("calendar_id", calendarID),
		zap.Int("count", len(busy)))

	return busy, nil
}

// call obtains a credential, builds a service and runs fn through the circuit breaker
func (c *Client) call(ctx context.Context, fn func(svc *calendar.Service) error) error {
	ts, err := c.provider.TokenSource(ctx)
	if err != nil {
		return err
	}

	svc, err := c.newService(ctx, ts)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrTransport, err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, fn(svc)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrTransport, err)
	}
	return nil
}

func (c *Client) newService(ctx context.Context, ts oauth2.TokenSource) (*calendar.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return svc, nil
}

// tripsBreaker reports whether an error indicates the remote side is unhealthy
func tripsBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return true
}

// LogCalendar records calendar writes instead of performing them and reports an empty calendar
type LogCalendar struct {
	logger *zap.Logger
}

// NewLogCalendar creates a calendar for dry runs
func NewLogCalendar(logger *zap.Logger) *LogCalendar {
	return &LogCalendar{logger: logger}
}

// CreateEvent logs the event and returns a placeholder reference
func (c *LogCalendar) CreateEvent(_ context.Context, req core.EventRequest) (*core.EventReference, error) {
	id := uuid.NewString()
	c.logger.Info("Dry run: event not created",
		zap.String("calendar_id", req.CalendarID),
		zap.String("subject", req.Subject),
		zap.Time("start", req.Start),
		zap.Time("end", req.End))
	return &core.EventReference{ID: id, Link: "dry-run://event/" + id}, nil
}

// ListBusyIntervals reports no busy time
func (c *LogCalendar) ListBusyIntervals(_ context.Context, calendarID string, startUTC, endUTC time.Time) ([]core.BusyInterval, error) {
	c.logger.Info("Dry run: reporting calendar as free",
		zap.String("calendar_id", calendarID),
		zap.Time("start", startUTC),
		zap.Time("end", endUTC))
	return nil, nil
}
