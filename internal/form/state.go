// Package form implements the active-window configuration form: a pure
// state machine (State), the controller that sequences it against the
// backend (Controller), and the read-only projection used by renderers
// (View).
//
// State flow:
//
//	Loading --load ok--> Idle --edit--> Dirty | Invalid | Idle
//	Loading --load failed--> Error
//	Dirty --submit--> Submitting --ok--> Success
//	                             --failed--> Error
//
// Only one request is ever in flight. Edits received while Loading or
// Submitting are deferred and replayed once the request settles, so a
// response can never overwrite what the operator typed in the meantime.
package form

import (
	"slices"
	"strconv"

	"github.com/doughall/dailyclean/console/internal/window"
)

// Status is the position of the form in its state machine.
type Status int

const (
	StatusLoading Status = iota
	StatusIdle
	StatusInvalid
	StatusDirty
	StatusSubmitting
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusIdle:
		return "idle"
	case StatusInvalid:
		return "invalid"
	case StatusDirty:
		return "dirty"
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Field identifies an editable control.
type Field int

const (
	FieldStartHour Field = iota + 1
	FieldEndHour
	FieldDays
)

// Edit is a single change made by the operator.
type Edit struct {
	Field Field
	// Value is the raw text for FieldStartHour and FieldEndHour.
	Value string
	// Days is the selection for FieldDays.
	Days window.DaySet
}

// Alert texts.
const (
	SuccessTitle   = "Success"
	SuccessMessage = "Save done succesfully."
	ErrorTitle     = "Error"
)

// AlertKind classifies the transient notice.
type AlertKind int

const (
	AlertNone AlertKind = iota
	AlertSuccess
	AlertError
)

// Alert is the transient notice shown after a request settles.
type Alert struct {
	Kind    AlertKind
	Title   string
	Message string
}

// Text is the title and message as rendered, without separator.
func (a Alert) Text() string {
	return a.Title + a.Message
}

// FieldError is the inline message attached to one control.
type FieldError struct {
	Field   Field
	Message string
}

// State is the complete form state. It is a value: every transition
// returns a new State and leaves the receiver untouched.
type State struct {
	Status     Status
	Fields     window.Fields
	StartInput string
	EndInput   string
	FieldError FieldError
	Alert      Alert
	// Err is the failure behind the last Error status.
	Err error

	snapshot    window.Fields
	hasSnapshot bool
	submitted   window.Fields
	deferred    []Edit
}

// Initial returns the state of a freshly mounted form.
func Initial() State {
	return State{Status: StatusLoading}
}

// SubmitEnabled reports whether the submit control is active.
func (s State) SubmitEnabled() bool {
	return s.Status == StatusDirty
}

// Busy reports whether a request is in flight.
func (s State) Busy() bool {
	return s.Status == StatusLoading || s.Status == StatusSubmitting
}

// Snapshot returns the last loaded or saved fields.
func (s State) Snapshot() (window.Fields, bool) {
	return s.snapshot, s.hasSnapshot
}

// Deferred returns the number of edits waiting for the in-flight request.
func (s State) Deferred() int {
	return len(s.deferred)
}

// Loaded applies decoded backend fields.
func (s State) Loaded(f window.Fields) State {
	s.Status = StatusIdle
	s.Fields = f
	s.StartInput = strconv.Itoa(f.StartHour)
	s.EndInput = strconv.Itoa(f.EndHour)
	s.FieldError = FieldError{}
	s.Alert = Alert{}
	s.Err = nil
	s.snapshot = f
	s.hasSnapshot = true
	return s.replay()
}

// LoadFailed records a failed initial read.
func (s State) LoadFailed(err error) State {
	s.Status = StatusError
	s.Err = err
	s.Alert = Alert{Kind: AlertError, Title: ErrorTitle, Message: "Unable to load configuration: " + err.Error()}
	return s.replay()
}

// Edit applies an operator change, or defers it while a request is in flight.
func (s State) Edit(e Edit) State {
	if s.Busy() {
		s.deferred = append(slices.Clip(s.deferred), e)
		return s
	}
	s.Alert = Alert{}
	return s.apply(e)
}

// BeginSubmit moves a Dirty form to Submitting and returns the pair to send.
// ok is false, and s is returned unchanged, from any other status.
func (s State) BeginSubmit() (next State, pair window.CronPair, ok bool) {
	if s.Status != StatusDirty {
		return s, window.CronPair{}, false
	}
	pair, err := window.Encode(s.Fields)
	if err != nil {
		return s, window.CronPair{}, false
	}
	s.Status = StatusSubmitting
	s.Alert = Alert{}
	s.submitted = s.Fields
	return s, pair, true
}

// SubmitSucceeded records a successful write. The submitted fields become
// the new snapshot.
func (s State) SubmitSucceeded() State {
	s.Status = StatusSuccess
	s.Err = nil
	s.snapshot = s.submitted
	s.hasSnapshot = true
	s.Alert = Alert{Kind: AlertSuccess, Title: SuccessTitle, Message: SuccessMessage}
	return s.replay()
}

// SubmitFailed records a failed write. The snapshot is unchanged, so the
// next edit re-arms the submit control.
func (s State) SubmitFailed(err error) State {
	s.Status = StatusError
	s.Err = err
	s.Alert = Alert{Kind: AlertError, Title: ErrorTitle, Message: "Unable to save configuration: " + err.Error()}
	return s.replay()
}

// DismissAlert clears the transient notice.
func (s State) DismissAlert() State {
	s.Alert = Alert{}
	return s
}

// replay applies edits deferred during the request that just settled.
// The alert describing that request is kept.
func (s State) replay() State {
	deferred := s.deferred
	s.deferred = nil
	for _, e := range deferred {
		s = s.apply(e)
	}
	return s
}

func (s State) apply(e Edit) State {
	switch e.Field {
	case FieldStartHour:
		s.StartInput = e.Value
	case FieldEndHour:
		s.EndInput = e.Value
	case FieldDays:
		if _, err := e.Days.DayOfWeek(); err != nil {
			return s
		}
		s.Fields.Days = e.Days
	default:
		return s
	}
	return s.evaluate(e.Field)
}

// evaluate recomputes Status after an edit to field.
func (s State) evaluate(field Field) State {
	start, startErr := window.ParseHour(s.StartInput)
	end, endErr := window.ParseHour(s.EndInput)
	if startErr != nil || endErr != nil {
		bad := FieldStartHour
		if startErr == nil || (endErr != nil && field == FieldEndHour) {
			bad = FieldEndHour
		}
		s.Status = StatusInvalid
		s.FieldError = FieldError{Field: bad, Message: window.MessageHourOutOfRange}
		return s
	}
	s.Fields.StartHour = start
	s.Fields.EndHour = end

	if _, err := s.Fields.Days.DayOfWeek(); err != nil {
		// Nothing loaded yet and no day picked: nothing to save.
		s.Status = StatusInvalid
		s.FieldError = FieldError{Field: FieldDays, Message: "Select the days of the week."}
		return s
	}

	if r := window.Validate(s.Fields); !r.Valid {
		bad, boundary := FieldEndHour, window.BoundaryEnd
		if field == FieldStartHour {
			bad, boundary = FieldStartHour, window.BoundaryStart
		}
		s.Status = StatusInvalid
		s.FieldError = FieldError{Field: bad, Message: r.Message(boundary)}
		return s
	}

	s.FieldError = FieldError{}
	if s.hasSnapshot && s.Fields == s.snapshot {
		s.Status = StatusIdle
	} else {
		s.Status = StatusDirty
	}
	return s
}
