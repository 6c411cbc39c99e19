package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/doughall/dailyclean/console/internal/form"
	"github.com/doughall/dailyclean/console/internal/window"
)

// Errors reported by apply.
var (
	ErrNothingToApply = errors.New("nothing to apply: pass -start, -end or -days")
	ErrUnchanged      = errors.New("configuration already matches")
)

// applyRequest is the non-interactive form input. Empty strings leave the
// loaded value untouched.
type applyRequest struct {
	Start string
	End   string
	Days  string
}

func (r applyRequest) empty() bool {
	return r.Start == "" && r.End == "" && r.Days == ""
}

// formController is the part of *form.Controller apply drives.
type formController interface {
	Mount(ctx context.Context) error
	Wait(ctx context.Context) error
	SetStartHour(value string)
	SetEndHour(value string)
	SelectDays(days window.DaySet)
	Submit(ctx context.Context) bool
	State() form.State
}

// apply loads the current window, applies req through the same state
// machine the interactive form uses, and saves it.
func apply(ctx context.Context, c formController, req applyRequest, out io.Writer) error {
	if req.empty() {
		return ErrNothingToApply
	}

	var days window.DaySet
	if req.Days != "" {
		var err error
		if days, err = window.ParseDaySetName(req.Days); err != nil {
			return err
		}
	}

	if err := c.Mount(ctx); err != nil {
		return err
	}
	if err := c.Wait(ctx); err != nil {
		return err
	}
	st := c.State()
	if st.Status == form.StatusError {
		return st.Err
	}
	fmt.Fprintf(out, "Current: %s\n", describe(st.Fields))

	if req.Start != "" {
		c.SetStartHour(req.Start)
	}
	if req.End != "" {
		c.SetEndHour(req.End)
	}
	if days != 0 {
		c.SelectDays(days)
	}

	st = c.State()
	switch st.Status {
	case form.StatusInvalid:
		return errors.New(st.FieldError.Message)
	case form.StatusIdle:
		return ErrUnchanged
	}

	if !c.Submit(ctx) {
		return fmt.Errorf("cannot submit from %s", st.Status)
	}
	if err := c.Wait(ctx); err != nil {
		return err
	}

	st = c.State()
	if st.Status != form.StatusSuccess {
		return st.Err
	}
	fmt.Fprintf(out, "%s: %s\n", st.Alert.Title, st.Alert.Message)
	fmt.Fprintf(out, "Saved:   %s\n", describe(st.Fields))
	return nil
}

func describe(f window.Fields) string {
	return strconv.Itoa(f.StartHour) + ":00 to " + strconv.Itoa(f.EndHour) + ":00, " + f.Days.Label()
}
