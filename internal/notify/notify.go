// Package notify carries short user-facing messages (toasts) from the
// dashboard components to whatever displays them.
package notify

import "sync"

// Notifier shows short user-facing messages.
type Notifier interface {
	Success(msg string)
	Warning(msg string)
	Error(msg string)
}

// Toast levels.
const (
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Toast is a recorded message.
type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Recorder is a Notifier that keeps every message. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Warning(msg string) { r.add(LevelWarning, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Level: level, Message: msg})
}

// Toasts returns a copy of the recorded messages in order.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Level returns the messages recorded at level.
func (r *Recorder) Level(level string) []string {
	var out []string
	for _, t := range r.Toasts() {
		if t.Level == level {
			out = append(out, t.Message)
		}
	}
	return out
}

// Discard drops every message.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Success(string) {}
func (discard) Warning(string) {}
func (discard) Error(string)   {}
