package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format stored on jobs.
	DateLayout = "2006-01-02"
	// TimeOfDayLayout is the time-of-day format stored on jobs.
	TimeOfDayLayout = "15:04"
)

var (
	ErrIntervalMissingField = errors.New("interval date and time are required")
	ErrIntervalInverted     = errors.New("interval start is after end")
)

// Interval is a scheduled commitment. Both boundaries are treated as inclusive.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Schedule holds the raw date and time-of-day fields a job is saved with.
type Schedule struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// NewInterval builds an interval, rejecting start > end.
func NewInterval(start, end time.Time) (Interval, error) {
	if start.IsZero() || end.IsZero() {
		return Interval{}, ErrIntervalMissingField
	}
	if start.After(end) {
		return Interval{}, ErrIntervalInverted
	}
	return Interval{Start: start, End: end}, nil
}

// Interval combines the calendar dates and times of day in loc.
func (s Schedule) Interval(loc *time.Location) (Interval, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := combine(s.StartDate, s.StartTime, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("start: %w", err)
	}
	end, err := combine(s.EndDate, s.EndTime, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("end: %w", err)
	}
	return NewInterval(start, end)
}

func combine(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, ErrIntervalMissingField
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeOfDayLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// Overlaps reports whether the two intervals share at least one instant.
// An interval ending exactly when the other starts overlaps.
func (i Interval) Overlaps(other Interval) bool {
	return !i.Start.After(other.End) && !other.Start.After(i.End)
}

// Equal compares instants regardless of location.
func (i Interval) Equal(other Interval) bool {
	return i.Start.Equal(other.Start) && i.End.Equal(other.End)
}

func (i Interval) String() string {
	return i.Start.Format(time.RFC3339) + "/" + i.End.Format(time.RFC3339)
}
