package form

import (
	"time"

	"github.com/doughall/dailyclean/console/internal/window"
)

// Title is the heading of the form.
const Title = "Configuration"

// DayOption is one side of the day toggle.
type DayOption struct {
	Days     window.DaySet
	Label    string
	Selected bool
}

// View is what a renderer needs to draw the form. It is derived from a
// State and never written back.
type View struct {
	Title         string
	Status        Status
	StartHour     string
	EndHour       string
	DayOptions    []DayOption
	StartError    string
	EndError      string
	DaysError     string
	SubmitEnabled bool
	Busy          bool
	Alert         Alert
	// Preview is the next opening of the window; nil when the fields do
	// not describe a valid window.
	Preview *window.Occurrence
}

// Project derives the View of s at time now.
func Project(s State, now time.Time) View {
	v := View{
		Title:         Title,
		Status:        s.Status,
		StartHour:     s.StartInput,
		EndHour:       s.EndInput,
		SubmitEnabled: s.SubmitEnabled(),
		Busy:          s.Busy(),
		Alert:         s.Alert,
	}

	for _, d := range window.DaySets {
		v.DayOptions = append(v.DayOptions, DayOption{
			Days:     d,
			Label:    d.Label(),
			Selected: s.Fields.Days == d,
		})
	}

	switch s.FieldError.Field {
	case FieldStartHour:
		v.StartError = s.FieldError.Message
	case FieldEndHour:
		v.EndError = s.FieldError.Message
	case FieldDays:
		v.DaysError = s.FieldError.Message
	}

	if s.Status != StatusLoading && s.FieldError.Field == 0 && window.Validate(s.Fields).Valid {
		if occ, err := window.Preview(s.Fields, now); err == nil {
			v.Preview = &occ
		}
	}
	return v
}
