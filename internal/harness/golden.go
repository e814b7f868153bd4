package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/deskboard/internal/notify"
)

// TraceSnapshot is what a golden file holds for one scenario.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	FlowToken    string         `json:"flow_token"`
	Outcome      string         `json:"outcome"`
	Trace        []TraceEvent   `json:"trace"`
	Toasts       []notify.Toast `json:"toasts"`
}

// MarshalSnapshot renders the snapshot of a run as indented JSON with sorted
// body keys and unescaped text.
func MarshalSnapshot(s *Scenario, result *Result) ([]byte, error) {
	token := s.FlowToken
	if token == "" {
		token = "test-flow-default"
	}
	snapshot := TraceSnapshot{
		ScenarioName: s.Name,
		FlowToken:    token,
		Outcome:      result.Outcome,
		Trace:        result.Trace,
		Toasts:       result.Toasts,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs the scenario, fails t on unmet expectations, and
// compares the trace with testdata/golden/{scenario.Name}.golden.
func RunWithGolden(t *testing.T, s *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), s)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, s, result)
}

// AssertGolden compares an existing result with the scenario's golden file.
func AssertGolden(t *testing.T, s *Scenario, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(s, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)
	return nil
}
