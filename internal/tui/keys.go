package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the configuration form.
type KeyMap struct {
	// Focus movement between start hour, end hour, days and submit.
	Next key.Binding
	Prev key.Binding

	// ToggleDays switches between all days and working days. Only active
	// while the day selector has focus, so arrows still move the cursor
	// inside the hour inputs.
	ToggleDays key.Binding

	Submit key.Binding
	Quit   key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "previous field"),
	),
	ToggleDays: key.NewBinding(
		key.WithKeys(" ", "left", "right"),
		key.WithHelp("space/←/→", "toggle days"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "save"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// helpBindings lists the bindings shown in the footer, in display order.
func (k KeyMap) helpBindings() []key.Binding {
	return []key.Binding{k.Next, k.ToggleDays, k.Submit, k.Quit}
}
