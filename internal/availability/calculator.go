package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mikey/llm-mail-assistant/internal/core"
)

const dayLayout = "2006-01-02"

// Calculator computes free intervals inside a daily working window
type Calculator struct {
	location  *time.Location
	startHour int
	startMin  int
	endHour   int
	endMin    int
}

// NewCalculator creates a Calculator for a working window given as HH:MM clock times
func NewCalculator(location *time.Location, workStart, workEnd string) (*Calculator, error) {
	if location == nil {
		return nil, fmt.Errorf("working timezone is required")
	}

	start, err := time.Parse("15:04", workStart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse working window start %q: %w", workStart, err)
	}
	end, err := time.Parse("15:04", workEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to parse working window end %q: %w", workEnd, err)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("working window end %s must be after start %s", workEnd, workStart)
	}

	return &Calculator{
		location:  location,
		startHour: start.Hour(),
		startMin:  start.Minute(),
		endHour:   end.Hour(),
		endMin:    end.Minute(),
	}, nil
}

// Location returns the working timezone
func (c *Calculator) Location() *time.Location {
	return c.location
}

// ParseDay parses a YYYY-MM-DD calendar date
func ParseDay(day string) (core.Date, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(day))
	if err != nil {
		return core.Date{}, fmt.Errorf("%q is not a YYYY-MM-DD date: %w", day, core.ErrInvalidDate)
	}
	return core.Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Window returns the working window of a day in the working timezone
func (c *Calculator) Window(day core.Date) (time.Time, time.Time) {
	return day.At(c.startHour, c.startMin, c.location), day.At(c.endHour, c.endMin, c.location)
}

// DayRange returns the UTC bounds of the full local day
func (c *Calculator) DayRange(day core.Date) (time.Time, time.Time) {
	start := day.At(0, 0, c.location)
	end := time.Date(day.Year, day.Month, day.Day+1, 0, 0, 0, 0, c.location)
	return start.UTC(), end.UTC()
}

// FreeSlots parses day and computes its free intervals
func (c *Calculator) FreeSlots(day string, busy []core.BusyInterval) ([]core.FreeInterval, error) {
	date, err := ParseDay(day)
	if err != nil {
		return nil, err
	}
	return c.FreeSlotsOn(date, busy), nil
}

// FreeSlotsOn returns the working window of day minus the busy intervals, in ascending order
func (c *Calculator) FreeSlotsOn(day core.Date, busy []core.BusyInterval) []core.FreeInterval {
	workStart, workEnd := c.Window(day)

	// Clip to the window in the working zone, dropping empty intervals
	clipped := make([]core.BusyInterval, 0, len(busy))
	for _, b := range busy {
		start := b.Start.In(c.location)
		end := b.End.In(c.location)
		if start.Before(workStart) {
			start = workStart
		}
		if end.After(workEnd) {
			end = workEnd
		}
		if !end.After(start) {
			continue
		}
		clipped = append(clipped, core.BusyInterval{Start: start, End: end})
	}

	sort.Slice(clipped, func(i, j int) bool {
		if clipped[i].Start.Equal(clipped[j].Start) {
			return clipped[i].End.Before(clipped[j].End)
		}
		return clipped[i].Start.Before(clipped[j].Start)
	})

	free := make([]core.FreeInterval, 0, len(clipped)+1)
	cursor := workStart
	for _, b := range clipped {
		if b.Start.After(cursor) {
			free = append(free, core.FreeInterval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(workEnd) {
		free = append(free, core.FreeInterval{Start: cursor, End: workEnd})
	}

	return free
}

// FormatSlots renders free intervals as a sentence in the working timezone
func (c *Calculator) FormatSlots(day core.Date, free []core.FreeInterval) string {
	zone, _ := day.At(12, 0, c.location).Zone()

	if len(free) == 0 {
		return fmt.Sprintf("Free slots on %s (%s): No free slots.", day, zone)
	}

	parts := make([]string, len(free))
	for i, f := range free {
		parts[i] = core.FreeInterval{Start: f.Start.In(c.location), End: f.End.In(c.location)}.String()
	}
	return fmt.Sprintf("Free slots on %s (%s): %s.", day, zone, strings.Join(parts, ", "))
}
