package notify

import "encoding/json"

// Message types carried in Envelope.Type.
const (
	TypeWindowUpdated = "window_updated"
)

// Envelope wraps every published message with type information.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

// WindowUpdatedMessage is published after the active window was saved.
type WindowUpdatedMessage struct {
	CronStart string `json:"cron_start"`
	CronStop  string `json:"cron_stop"`
	Source    string `json:"source,omitempty"`
}
