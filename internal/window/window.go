// Package window converts the daily active window between its wire form
// (a pair of cron expressions) and the form fields an operator edits.
//
// The wire form is the DailyClean timeranges payload:
//
//	{"cron_start":"0 7 * * 1-5","cron_stop":"0 17 * * *"}
//
// Only the hour and the day-of-week of the start expression carry meaning.
// The stop expression always runs every day: the start of the window is
// the only part that is gated by the day selection.
//
// Everything in this package is pure and safe for concurrent use.
package window

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Day-of-week tokens used in the fifth cron field.
const (
	dowEveryDay    = "*"
	dowWorkingDays = "1-5"
)

// Hour bounds accepted for StartHour and EndHour.
const (
	MinHour = 0
	MaxHour = 23
)

// DaySet selects on which days the window opens. The zero value is not a
// valid selection so that a missing value never falls through to a default.
type DaySet int

const (
	// AllDays opens the window every day of the week.
	AllDays DaySet = iota + 1
	// WorkingDays opens the window Monday to Friday.
	WorkingDays
)

// DaySets lists the selectable values in display order.
var DaySets = []DaySet{AllDays, WorkingDays}

// ErrUnknownDaySet is returned when a DaySet outside the enumeration is used.
var ErrUnknownDaySet = errors.New("unknown day selection")

// DayOfWeek returns the cron day-of-week token for d.
func (d DaySet) DayOfWeek() (string, error) {
	switch d {
	case AllDays:
		return dowEveryDay, nil
	case WorkingDays:
		return dowWorkingDays, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownDaySet, int(d))
	}
}

// Label returns the text shown next to the toggle for d.
func (d DaySet) Label() string {
	switch d {
	case AllDays:
		return "All days"
	case WorkingDays:
		return "Working days (Monday to Friday)"
	default:
		return "Unknown"
	}
}

func (d DaySet) String() string {
	switch d {
	case AllDays:
		return "all"
	case WorkingDays:
		return "working"
	default:
		return "unknown(" + strconv.Itoa(int(d)) + ")"
	}
}

// ParseDaySet maps a cron day-of-week token to a DaySet.
func ParseDaySet(token string) (DaySet, error) {
	switch token {
	case dowEveryDay:
		return AllDays, nil
	case dowWorkingDays:
		return WorkingDays, nil
	default:
		return 0, fmt.Errorf("%w: day-of-week %q", ErrUnknownDaySet, token)
	}
}

// ParseDaySetName accepts the command-line names "all" and "working".
func ParseDaySetName(name string) (DaySet, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "all", "all-days":
		return AllDays, nil
	case "working", "working-days", "weekdays":
		return WorkingDays, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDaySet, name)
	}
}

// CronPair is the wire representation exchanged with the backend.
// Field order is significant: it is the order of the encoded JSON.
type CronPair struct {
	CronStart string `json:"cron_start"`
	CronStop  string `json:"cron_stop"`
}

// Fields is the form representation of the window.
type Fields struct {
	StartHour int
	EndHour   int
	Days      DaySet
}

// DecodeError reports a cron expression received from the backend that
// cannot populate the form.
type DecodeError struct {
	Field      string // "cron_start" or "cron_stop"
	Expression string
	Reason     string
	Err        error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s %q: %s", e.Field, e.Expression, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a CronPair into form fields. The hour comes from the
// second field of each expression and the day selection from the start
// expression only.
func Decode(pair CronPair) (Fields, error) {
	start, err := splitExpression("cron_start", pair.CronStart)
	if err != nil {
		return Fields{}, err
	}
	stop, err := splitExpression("cron_stop", pair.CronStop)
	if err != nil {
		return Fields{}, err
	}

	startHour, err := ParseHour(start[1])
	if err != nil {
		return Fields{}, &DecodeError{Field: "cron_start", Expression: pair.CronStart, Reason: "invalid hour", Err: err}
	}
	endHour, err := ParseHour(stop[1])
	if err != nil {
		return Fields{}, &DecodeError{Field: "cron_stop", Expression: pair.CronStop, Reason: "invalid hour", Err: err}
	}
	days, err := ParseDaySet(start[4])
	if err != nil {
		return Fields{}, &DecodeError{Field: "cron_start", Expression: pair.CronStart, Reason: "unrecognized day-of-week", Err: err}
	}

	return Fields{StartHour: startHour, EndHour: endHour, Days: days}, nil
}

// splitExpression checks that expr is a well-formed 5-field cron
// expression of the form "0 <hour> * * <dow>" and returns its fields.
func splitExpression(field, expr string) ([]string, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, &DecodeError{Field: field, Expression: expr, Reason: "empty expression"}
	}
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, &DecodeError{Field: field, Expression: expr, Reason: fmt.Sprintf("expected 5 fields, got %d", len(parts))}
	}
	if err := defaultParser.Check(expr); err != nil {
		return nil, &DecodeError{Field: field, Expression: expr, Reason: "malformed cron expression", Err: err}
	}
	// Fields holds only the hour and day-of-week.
	if parts[0] != "0" {
		return nil, &DecodeError{Field: field, Expression: expr, Reason: "minute must be 0"}
	}
	if parts[2] != "*" || parts[3] != "*" {
		return nil, &DecodeError{Field: field, Expression: expr, Reason: "day-of-month and month must be *"}
	}
	return parts, nil
}

// Encode builds the CronPair for f. The stop expression never carries a
// day restriction.
func Encode(f Fields) (CronPair, error) {
	if err := checkHour(f.StartHour); err != nil {
		return CronPair{}, fmt.Errorf("encode start hour: %w", err)
	}
	if err := checkHour(f.EndHour); err != nil {
		return CronPair{}, fmt.Errorf("encode end hour: %w", err)
	}
	dow, err := f.Days.DayOfWeek()
	if err != nil {
		return CronPair{}, fmt.Errorf("encode days: %w", err)
	}
	return CronPair{
		CronStart: fmt.Sprintf("0 %d * * %s", f.StartHour, dow),
		CronStop:  fmt.Sprintf("0 %d * * %s", f.EndHour, dowEveryDay),
	}, nil
}
