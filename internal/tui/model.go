// Package tui renders the DailyClean active-window form in the terminal.
//
// The model owns no form logic: every keystroke is forwarded to a form
// controller, and the screen is redrawn from the controller's projected
// View each time it publishes a new state.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/doughall/dailyclean/console/internal/form"
	"github.com/doughall/dailyclean/console/internal/window"
)

// DefaultAlertDelay is how long a success or error alert stays on screen.
const DefaultAlertDelay = 5 * time.Second

// Controller is the part of *form.Controller the model drives.
type Controller interface {
	Mount(ctx context.Context) error
	SetStartHour(value string)
	SetEndHour(value string)
	SelectDays(days window.DaySet)
	Submit(ctx context.Context) bool
	DismissAlert()
	View() form.View
	Updates() <-chan form.State
}

type focusTarget int

const (
	focusStart focusTarget = iota
	focusEnd
	focusDays
	focusSubmit
	focusCount
)

// stateMsg carries a state published by the controller.
type stateMsg struct {
	state form.State
}

// mountFailedMsg reports that the controller refused to mount.
type mountFailedMsg struct {
	err error
}

// alertExpiredMsg dismisses the alert it was scheduled for. Stale ticks
// (the alert has since changed) are ignored.
type alertExpiredMsg struct {
	seq int
}

// Option configures a Model.
type Option func(*Model)

// WithKeyMap overrides DefaultKeyMap.
func WithKeyMap(keys KeyMap) Option {
	return func(m *Model) { m.keys = keys }
}

// WithTheme overrides DefaultTheme.
func WithTheme(theme Theme) Option {
	return func(m *Model) { m.theme = theme }
}

// WithAlertDelay sets how long alerts stay on screen. Zero or negative
// keeps alerts until the next edit.
func WithAlertDelay(d time.Duration) Option {
	return func(m *Model) { m.alertDelay = d }
}

// Model is the bubbletea model of the configuration form.
type Model struct {
	ctx        context.Context
	controller Controller
	keys       KeyMap
	theme      Theme
	alertDelay time.Duration

	inputs [2]textinput.Model
	focus  focusTarget
	view   form.View

	// pendingDays is the day set chosen while a request is in flight. The
	// projection keeps the old selection until the deferred edits replay.
	pendingDays window.DaySet

	alert    form.Alert
	alertSeq int

	fatal    error
	quitting bool
}

// NewModel creates a model driving controller. ctx bounds the requests
// the controller issues on behalf of the model.
func NewModel(ctx context.Context, controller Controller, opts ...Option) Model {
	m := Model{
		ctx:        ctx,
		controller: controller,
		keys:       DefaultKeyMap,
		theme:      DefaultTheme,
		alertDelay: DefaultAlertDelay,
	}
	for _, opt := range opts {
		opt(&m)
	}

	for i, placeholder := range []string{"0-23", "0-23"} {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = 2
		ti.Prompt = "› "
		m.inputs[i] = ti
	}
	m.inputs[focusStart].Focus()
	m.view = controller.View()
	return m
}

// Init implements tea.Model. Mounts the controller and starts listening
// for its state updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.mount(),
		listenForUpdates(m.controller.Updates()),
		textinput.Blink,
	)
}

func (m Model) mount() tea.Cmd {
	controller, ctx := m.controller, m.ctx
	return func() tea.Msg {
		if err := controller.Mount(ctx); err != nil {
			return mountFailedMsg{err: err}
		}
		return nil
	}
}

// listenForUpdates returns a tea.Cmd that blocks until the controller
// publishes a state, then delivers it as a stateMsg.
func listenForUpdates(channel <-chan form.State) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-channel
		if !ok {
			return nil
		}
		return stateMsg{state: state}
	}
}

// Update implements tea.Model.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return m.handleKey(message)

	case stateMsg:
		m.refresh()
		return m, tea.Batch(
			listenForUpdates(m.controller.Updates()),
			m.scheduleAlertDismiss(),
		)

	case alertExpiredMsg:
		if message.seq == m.alertSeq && m.alert.Kind != form.AlertNone {
			m.controller.DismissAlert()
		}

	case mountFailedMsg:
		m.fatal = message.err
	}

	return m, nil
}

func (m Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(message, m.keys.Next):
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil

	case key.Matches(message, m.keys.Prev):
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil

	case key.Matches(message, m.keys.Submit):
		m.controller.Submit(m.ctx)
		m.refresh()
		return m, nil

	case m.focus == focusDays && key.Matches(message, m.keys.ToggleDays):
		days := toggled(m.selectedDays())
		m.controller.SelectDays(days)
		m.refresh()
		if m.view.Busy {
			m.pendingDays = days
		}
		return m, nil
	}

	if m.focus != focusStart && m.focus != focusEnd {
		return m, nil
	}

	input := &m.inputs[m.focus]
	before := input.Value()
	var cmd tea.Cmd
	*input, cmd = input.Update(message)
	if after := input.Value(); after != before {
		if m.focus == focusStart {
			m.controller.SetStartHour(after)
		} else {
			m.controller.SetEndHour(after)
		}
		m.refresh()
	}
	return m, cmd
}

// selectedDays returns the day set the operator currently sees selected.
func (m Model) selectedDays() window.DaySet {
	if m.pendingDays != 0 {
		return m.pendingDays
	}
	selected := m.selectedDays()
	for _, option := range m.view.DayOptions {
		if option.Days == selected {
			return option.Days
		}
	}
	return window.AllDays
}

// toggled returns the day set the toggle switches to.
func toggled(days window.DaySet) window.DaySet {
	if days == window.AllDays {
		return window.WorkingDays
	}
	return window.AllDays
}

func (m *Model) setFocus(target focusTarget) {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = target
	if target == focusStart || target == focusEnd {
		m.inputs[target].Focus()
	}
}

// refresh pulls the current projection from the controller. Inputs are
// overwritten only while the form is settled: edits typed during a request
// are deferred by the controller and would otherwise be erased.
func (m *Model) refresh() {
	m.view = m.controller.View()
	if m.view.Busy {
		return
	}
	m.pendingDays = 0
	if m.inputs[focusStart].Value() != m.view.StartHour {
		m.inputs[focusStart].SetValue(m.view.StartHour)
	}
	if m.inputs[focusEnd].Value() != m.view.EndHour {
		m.inputs[focusEnd].SetValue(m.view.EndHour)
	}
}

// scheduleAlertDismiss starts the dismiss timer when a new alert appears.
func (m *Model) scheduleAlertDismiss() tea.Cmd {
	if m.view.Alert == m.alert {
		return nil
	}
	m.alert = m.view.Alert
	m.alertSeq++
	if m.alert.Kind == form.AlertNone || m.alertDelay <= 0 {
		return nil
	}
	seq := m.alertSeq
	return tea.Tick(m.alertDelay, func(time.Time) tea.Msg {
		return alertExpiredMsg{seq: seq}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	theme := m.theme
	var b strings.Builder

	b.WriteString(theme.Title.Render(m.view.Title))
	b.WriteString("\n")

	if m.fatal != nil {
		b.WriteString(theme.Failure.Render(m.fatal.Error()))
		b.WriteString("\n")
		return b.String()
	}

	m.renderInput(&b, "Start hour", focusStart, m.view.StartError)
	m.renderInput(&b, "End hour", focusEnd, m.view.EndError)

	b.WriteString(m.label("Days", focusDays))
	b.WriteString("\n")
	for _, option := range m.view.DayOptions {
		if option.Selected {
			b.WriteString(theme.Selected.Render("● " + option.Label))
		} else {
			b.WriteString(theme.Option.Render("○ " + option.Label))
		}
		b.WriteString("\n")
	}
	if m.view.DaysError != "" {
		b.WriteString(theme.FieldError.Render(m.view.DaysError))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderButton())
	b.WriteString("\n\n")

	if preview := m.view.Preview; preview != nil {
		b.WriteString(theme.Muted.Render(fmt.Sprintf("Next window: %s → %s",
			preview.Start.Format("Mon 02 Jan 15:04"),
			preview.Stop.Format("Mon 02 Jan 15:04"),
		)))
		b.WriteString("\n")
	}

	if alert := m.view.Alert; alert.Kind != form.AlertNone {
		style := theme.Success
		if alert.Kind == form.AlertError {
			style = theme.Failure
		}
		b.WriteString(style.Render(lipgloss.JoinHorizontal(lipgloss.Top,
			style.Bold(true).Render(alert.Title), " ", alert.Message)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) label(text string, target focusTarget) string {
	if m.focus == target {
		return m.theme.FocusLabel.Render(text)
	}
	return m.theme.Label.Render(text)
}

func (m Model) renderInput(b *strings.Builder, label string, target focusTarget, errText string) {
	b.WriteString(m.label(label, target))
	b.WriteString("\n")
	b.WriteString(m.inputs[target].View())
	b.WriteString("\n")
	if errText != "" {
		b.WriteString(m.theme.FieldError.Render(errText))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m Model) renderButton() string {
	text := "Submit"
	if m.view.Status == form.StatusSubmitting {
		text = "Saving…"
	} else if m.view.Status == form.StatusLoading {
		text = "Loading…"
	}
	switch {
	case !m.view.SubmitEnabled:
		return m.theme.ButtonOff.Render(text)
	case m.focus == focusSubmit:
		return m.theme.ButtonFocus.Render(text)
	default:
		return m.theme.Button.Render(text)
	}
}

func (m Model) renderHelp() string {
	var parts []string
	for _, binding := range m.keys.helpBindings() {
		help := binding.Help()
		parts = append(parts, m.theme.HelpKey.Render(help.Key)+" "+m.theme.HelpText.Render(help.Desc))
	}
	return strings.Join(parts, "  ")
}
