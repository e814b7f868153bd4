package harness

import "github.com/roach88/deskboard/internal/notify"

// TraceEvent is one request the fake backend received.
type TraceEvent struct {
	Seq       int    `json:"seq"`
	Phase     string `json:"phase"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id"`
	// File is the uploaded file name, for uploads.
	File string `json:"file,omitempty"`
	// Body is the decoded JSON body, for JSON requests.
	Body any `json:"body,omitempty"`

	started  int64
	finished int64
	raw      string
}

// Key returns "METHOD /path".
func (e TraceEvent) Key() string {
	return e.Method + " " + e.Path
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if the outcome matched and every assertion held.
	Pass bool `json:"pass"`

	// Outcome is created, invalid or create_failed.
	Outcome string `json:"outcome"`

	// ProjectID is set when the project was created.
	ProjectID int64 `json:"project_id,omitempty"`

	// Trace is every request in phase order.
	Trace []TraceEvent `json:"trace"`

	// Toasts are the user-facing messages in the order shown.
	Toasts []notify.Toast `json:"toasts"`

	// Errors describe failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing, empty result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Toasts: []notify.Toast{},
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
