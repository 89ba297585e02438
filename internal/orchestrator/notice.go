package orchestrator

import "log"

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

const MessageDetectorFailed = "Speech detection is unavailable. You can still type your answers."

// Notice is a transient user-facing message. Redirect names the step the
// user should be sent to, if any.
type Notice struct {
	Level    Level  `json:"level"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

type Notifier interface {
	Notify(n Notice)
}

type NopNotifier struct{}

func (NopNotifier) Notify(Notice) {}

// LogNotifier writes notices to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	log.Printf("[notice] level=%s redirect=%q %s", n.Level, n.Redirect, n.Message)
}

// MultiNotifier fans a notice out to several notifiers.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n Notice) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}
