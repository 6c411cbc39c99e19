package window

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Messages shown next to the failing field boundary.
const (
	MessageEndDateShouldBeAfterStartDate  = "End hour should be after start hour."
	MessageStartHourShouldBeBeforeEndHour = "Start hour should be before end hour."
	MessageHourOutOfRange                 = "Hour should be a number between 0 and 23."
)

// Hour parsing errors.
var (
	ErrHourNotNumber  = errors.New("hour is not a number")
	ErrHourOutOfRange = errors.New("hour is out of range")
)

// Boundary identifies which end of the window a validation message belongs to.
type Boundary int

const (
	BoundaryStart Boundary = iota + 1
	BoundaryEnd
)

func (b Boundary) String() string {
	switch b {
	case BoundaryStart:
		return "start"
	case BoundaryEnd:
		return "end"
	default:
		return "unknown"
	}
}

// ValidationError is a locally recovered validation failure. It is never
// sent to the backend.
type ValidationError struct {
	Boundary Boundary
	Message  string
}

func (e *ValidationError) Error() string {
	return e.Boundary.String() + " hour: " + e.Message
}

// ValidationResult is the outcome of Validate. An invalid result carries
// one message per boundary; callers pick the one for the field the
// operator is editing.
type ValidationResult struct {
	Valid bool
	Start string
	End   string
}

// Message returns the message for boundary b, or "" when valid.
func (r ValidationResult) Message(b Boundary) string {
	switch b {
	case BoundaryStart:
		return r.Start
	case BoundaryEnd:
		return r.End
	default:
		return ""
	}
}

// Err returns a *ValidationError for boundary b, or nil when valid.
func (r ValidationResult) Err(b Boundary) error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Boundary: b, Message: r.Message(b)}
}

// Validate checks that the window ends after it starts.
func Validate(f Fields) ValidationResult {
	if f.EndHour <= f.StartHour {
		return ValidationResult{
			Start: MessageStartHourShouldBeBeforeEndHour,
			End:   MessageEndDateShouldBeAfterStartDate,
		}
	}
	return ValidationResult{Valid: true}
}

// ParseHour converts raw operator input into an hour in [0,23].
func ParseHour(raw string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrHourNotNumber, raw)
	}
	if err := checkHour(h); err != nil {
		return 0, err
	}
	return h, nil
}

func checkHour(h int) error {
	if h < MinHour || h > MaxHour {
		return fmt.Errorf("%w: %d", ErrHourOutOfRange, h)
	}
	return nil
}
