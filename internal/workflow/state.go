package workflow

import "sync"

// Submit button labels.
const (
	LabelIdle      = "Сохранить"
	LabelSaving    = "Создание проекта..."
	LabelUploading = "Загрузка файлов..."
)

// State is the busy state of a Creator. While Busy, the form is locked.
type State struct {
	Saving    bool
	Uploading bool
}

// Busy reports whether a submission is in progress.
func (s State) Busy() bool {
	return s.Saving || s.Uploading
}

// Label is the text of the submit control in this state.
func (s State) Label() string {
	switch {
	case s.Uploading:
		return LabelUploading
	case s.Saving:
		return LabelSaving
	default:
		return LabelIdle
	}
}

type stateGate struct {
	mu       sync.Mutex
	state    State
	observer func(State)
}

// begin takes the gate. It returns false if a run already holds it.
func (g *stateGate) begin() bool {
	g.mu.Lock()
	if g.state.Saving {
		g.mu.Unlock()
		return false
	}
	g.state.Saving = true
	s := g.state
	g.mu.Unlock()
	g.notify(s)
	return true
}

func (g *stateGate) end() {
	g.mu.Lock()
	g.state = State{}
	s := g.state
	g.mu.Unlock()
	g.notify(s)
}

func (g *stateGate) setUploading(v bool) {
	g.mu.Lock()
	g.state.Uploading = v
	s := g.state
	g.mu.Unlock()
	g.notify(s)
}

func (g *stateGate) current() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *stateGate) notify(s State) {
	if g.observer != nil {
		g.observer(s)
	}
}
