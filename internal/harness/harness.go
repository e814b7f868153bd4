package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/roach88/deskboard/internal/api"
	"github.com/roach88/deskboard/internal/notify"
	"github.com/roach88/deskboard/internal/testutil"
	"github.com/roach88/deskboard/internal/workflow"
)

const defaultProjectID = 100

// Phase names in the order the workflow runs them.
var phaseOrder = map[string]int{
	workflow.PhaseProject: 0,
	workflow.PhaseMembers: 1,
	workflow.PhaseFiles:   2,
	workflow.PhaseLinks:   3,
	workflow.PhaseStages:  4,
	"other":               5,
}

// Run executes a scenario against a fresh fake backend.
//
// The returned error is reserved for runs that could not be carried out;
// unmet expectations are reported in Result.Errors.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	backend := testutil.StartBackend()
	defer backend.Close()

	backend.NextProjectID = s.ProjectID
	if backend.NextProjectID == 0 {
		backend.NextProjectID = defaultProjectID
	}
	for _, f := range s.Failures {
		backend.FailWhen(f.matches, f.Status, f.Detail)
	}

	toasts := &notify.Recorder{}
	creator := workflow.NewCreator(api.New(backend.URL()),
		workflow.WithNotifier(toasts),
		workflow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		workflow.WithTokenGenerator(testutil.NewFixedTokenGenerator(s.FlowToken)),
	)

	result := NewResult()
	out, err := creator.Create(ctx, s.Draft.build())
	var createErr *workflow.CreateError
	switch {
	case err == nil:
		result.Outcome = OutcomeCreated
		result.ProjectID = out.Project.ProjectID
	case errors.Is(err, workflow.ErrMissingRequired):
		result.Outcome = OutcomeInvalid
	case errors.As(err, &createErr):
		result.Outcome = OutcomeCreateFailed
	default:
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result.Trace = buildTrace(backend.Requests())
	result.Toasts = append(result.Toasts, toasts.Toasts()...)

	if result.Outcome != s.Expect.Outcome {
		result.AddError(fmt.Sprintf("outcome: expected %s, got %s", s.Expect.Outcome, result.Outcome))
	}
	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (f FailureSpec) matches(r testutil.Request) bool {
	if r.Method != f.Method || r.Path != f.Path {
		return false
	}
	return f.File == "" || r.FileName == f.File
}

// buildTrace orders requests by phase. Sequential phases keep arrival order;
// concurrent phases are ordered by stage order or employee id.
func buildTrace(reqs []testutil.Request) []TraceEvent {
	events := make([]TraceEvent, len(reqs))
	for i, r := range reqs {
		events[i] = TraceEvent{
			Phase:     phaseOf(r),
			Method:    r.Method,
			Path:      r.Path,
			Status:    r.Status,
			RequestID: r.RequestID,
			File:      r.FileName,
			started:   r.Started,
			finished:  r.Finished,
			raw:       string(r.Body),
		}
		if strings.HasPrefix(r.ContentType, "application/json") && len(r.Body) > 0 {
			var body any
			if err := r.DecodeBody(&body); err == nil {
				events[i].Body = body
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if phaseOrder[a.Phase] != phaseOrder[b.Phase] {
			return phaseOrder[a.Phase] < phaseOrder[b.Phase]
		}
		if concurrent(a.Phase) {
			ra, rb := rank(a.Body), rank(b.Body)
			if ra != rb {
				return ra < rb
			}
			return a.raw < b.raw
		}
		return a.started < b.started
	})
	for i := range events {
		events[i].Seq = i + 1
	}
	return events
}

// rank is the stage order or employee id of a concurrent request body.
func rank(body any) float64 {
	m, ok := body.(map[string]any)
	if !ok {
		return 0
	}
	for _, k := range []string{"order", "employee_id"} {
		if v, ok := m[k].(float64); ok {
			return v
		}
	}
	return 0
}

func concurrent(phase string) bool {
	return phase == workflow.PhaseMembers || phase == workflow.PhaseStages
}

func phaseOf(r testutil.Request) string {
	if r.Method != http.MethodPost {
		return "other"
	}
	switch {
	case r.Path == "/api/projects":
		return workflow.PhaseProject
	case strings.HasSuffix(r.Path, "/employees"):
		return workflow.PhaseMembers
	case strings.HasSuffix(r.Path, "/files"):
		return workflow.PhaseFiles
	case strings.HasSuffix(r.Path, "/materials"):
		return workflow.PhaseLinks
	case strings.HasSuffix(r.Path, "/stages"):
		return workflow.PhaseStages
	default:
		return "other"
	}
}
