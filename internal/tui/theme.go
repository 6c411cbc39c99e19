package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the styles used to render the form. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	Title       lipgloss.Style
	Label       lipgloss.Style
	FocusLabel  lipgloss.Style
	FieldError  lipgloss.Style
	Option      lipgloss.Style
	Selected    lipgloss.Style
	Button      lipgloss.Style
	ButtonFocus lipgloss.Style
	ButtonOff   lipgloss.Style
	Success     lipgloss.Style
	Failure     lipgloss.Style
	Muted       lipgloss.Style
	HelpKey     lipgloss.Style
	HelpText    lipgloss.Style
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).MarginBottom(1),
	Label:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	FocusLabel:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
	FieldError:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	Option:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	Selected:    lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true),
	Button:      lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("29")),
	ButtonFocus: lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("86")),
	ButtonOff:   lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("243")).Background(lipgloss.Color("236")),
	Success:     lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
	Failure:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	HelpKey:     lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	HelpText:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
}
