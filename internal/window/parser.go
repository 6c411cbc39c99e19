// This file wraps robfig/cron for expression checking and window previews.
// Nothing here schedules or runs jobs.

package window

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var defaultParser = NewCronParser()

// CronParser wraps robfig/cron for schedule-only usage
type CronParser struct {
	parser cron.Parser
}

// NewCronParser creates a parser supporting standard 5-field cron with descriptors
func NewCronParser() *CronParser {
	return &CronParser{
		parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
	}
}

// Check reports whether expression parses as a cron schedule.
func (p *CronParser) Check(expression string) error {
	_, err := p.parser.Parse(expression)
	return err
}

// NextRun calculates the next activation time of expression after the given time.
func (p *CronParser) NextRun(expression string, after time.Time) (time.Time, error) {
	schedule, err := p.parser.Parse(expression)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(after), nil
}

// Occurrence is the next opening of the window and the stop that follows it.
type Occurrence struct {
	Start time.Time
	Stop  time.Time
}

// Preview computes the next window opening after now for f, in now's location.
func (p *CronParser) Preview(f Fields, now time.Time) (Occurrence, error) {
	pair, err := Encode(f)
	if err != nil {
		return Occurrence{}, err
	}
	start, err := p.NextRun(pair.CronStart, now)
	if err != nil {
		return Occurrence{}, fmt.Errorf("preview start: %w", err)
	}
	stop, err := p.NextRun(pair.CronStop, start)
	if err != nil {
		return Occurrence{}, fmt.Errorf("preview stop: %w", err)
	}
	return Occurrence{Start: start, Stop: stop}, nil
}

// Preview is CronParser.Preview on the package parser.
func Preview(f Fields, now time.Time) (Occurrence, error) {
	return defaultParser.Preview(f, now)
}
