package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/deskboard/internal/dto"
	"github.com/roach88/deskboard/internal/workflow"
)

// Scenario is one project-creation run and what it must produce.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// FlowToken is sent as the request id of every call. Defaults to
	// "test-flow-default".
	FlowToken string `yaml:"flow_token,omitempty"`

	// ProjectID is the id the fake backend assigns to the created project.
	// Defaults to 100.
	ProjectID int64 `yaml:"project_id,omitempty"`

	// Draft is the form as submitted.
	Draft DraftSpec `yaml:"draft"`

	// Failures are injected into the fake backend before the run.
	Failures []FailureSpec `yaml:"failures,omitempty"`

	// Expect is the overall outcome.
	Expect ExpectClause `yaml:"expect"`

	// Assertions are checked against the recorded trace and messages.
	Assertions []Assertion `yaml:"assertions"`
}

// DraftSpec is the YAML form of a workflow.Draft.
type DraftSpec struct {
	ProjectName string      `yaml:"project_name"`
	Description string      `yaml:"description,omitempty"`
	ClientName  string      `yaml:"client_name"`
	ClientEmail string      `yaml:"client_email,omitempty"`
	ClientPhone string      `yaml:"client_phone,omitempty"`
	StartDate   string      `yaml:"start_date,omitempty"`
	EndDate     string      `yaml:"end_date,omitempty"`
	ManagerID   int64       `yaml:"manager_id"`
	Members     []int64     `yaml:"members,omitempty"`
	Files       []FileSpec  `yaml:"files,omitempty"`
	Links       []string    `yaml:"links,omitempty"`
	Stages      []StageSpec `yaml:"stages,omitempty"`
	// NoDefaultStage drops the stage every new draft starts with.
	NoDefaultStage bool `yaml:"no_default_stage,omitempty"`
}

// FileSpec is an in-memory upload.
type FileSpec struct {
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
}

// StageSpec is an extra stage added after the default one.
type StageSpec struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
}

// FailureSpec makes the fake backend reject matching requests.
type FailureSpec struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	// File restricts the failure to uploads of this file name.
	File   string `yaml:"file,omitempty"`
	Status int    `yaml:"status"`
	Detail string `yaml:"detail,omitempty"`
}

// ExpectClause is the expected result of the run.
type ExpectClause struct {
	// Outcome is one of created, invalid or create_failed.
	Outcome string `yaml:"outcome"`
}

// Outcomes.
const (
	OutcomeCreated      = "created"
	OutcomeInvalid      = "invalid"
	OutcomeCreateFailed = "create_failed"
)

// Assertion checks one property of the run.
type Assertion struct {
	// Type is one of request_count, request_order, after_create, toast or
	// toast_count.
	Type string `yaml:"type"`

	// Request is "METHOD /path" (request_count).
	Request string `yaml:"request,omitempty"`

	// Requests are "METHOD /path" keys in expected order (request_order).
	Requests []string `yaml:"requests,omitempty"`

	// Level and Message select messages (toast, toast_count).
	Level   string `yaml:"level,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Count is the expected number of matches (request_count, toast_count).
	Count int `yaml:"count"`
}

// Assertion types.
const (
	AssertRequestCount = "request_count"
	AssertRequestOrder = "request_order"
	AssertAfterCreate  = "after_create"
	AssertToast        = "toast"
	AssertToastCount   = "toast_count"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	defer f.Close()
	return ParseScenario(f)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(r io.Reader) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, ordered by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Expect.Outcome {
	case OutcomeCreated, OutcomeInvalid, OutcomeCreateFailed:
	case "":
		return fmt.Errorf("expect.outcome is required")
	default:
		return fmt.Errorf("expect.outcome: unknown outcome %q", s.Expect.Outcome)
	}

	for _, d := range []string{s.Draft.StartDate, s.Draft.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dto.DateLayout, d); err != nil {
			return fmt.Errorf("draft: date %q is not YYYY-MM-DD", d)
		}
	}
	for i, f := range s.Draft.Files {
		if f.Name == "" {
			return fmt.Errorf("draft.files[%d]: name is required", i)
		}
	}

	for i, f := range s.Failures {
		if f.Method == "" || f.Path == "" {
			return fmt.Errorf("failures[%d]: method and path are required", i)
		}
		if f.Status < 400 || f.Status > 599 {
			return fmt.Errorf("failures[%d]: status must be an HTTP error status", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRequestCount:
		if a.Request == "" {
			return fmt.Errorf("assertions[%d]: request is required for request_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertRequestOrder:
		if len(a.Requests) < 2 {
			return fmt.Errorf("assertions[%d]: request_order needs at least two requests", index)
		}
	case AssertAfterCreate:
	case AssertToast:
		if a.Level == "" || a.Message == "" {
			return fmt.Errorf("assertions[%d]: level and message are required for toast", index)
		}
	case AssertToastCount:
		if a.Level == "" {
			return fmt.Errorf("assertions[%d]: level is required for toast_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// build turns the spec into a draft the workflow accepts.
func (d DraftSpec) build() workflow.Draft {
	draft := workflow.NewDraft()
	if d.NoDefaultStage {
		draft.Stages = nil
	}
	draft.ProjectName = d.ProjectName
	draft.Description = d.Description
	draft.ClientName = d.ClientName
	draft.ClientEmail = d.ClientEmail
	draft.ClientPhone = d.ClientPhone
	draft.ManagerID = d.ManagerID

	for _, s := range []string{d.StartDate, d.EndDate} {
		if s == "" {
			continue
		}
		t, _ := time.Parse(dto.DateLayout, s)
		draft.DateRange = append(draft.DateRange, t)
	}
	for _, id := range d.Members {
		draft.ToggleMember(id)
	}
	for _, f := range d.Files {
		draft.Files = append(draft.Files, workflow.FileFromBytes(f.Name, []byte(f.Content)))
	}
	for _, l := range d.Links {
		draft.AddLink(l)
	}
	for _, s := range d.Stages {
		draft.AddStage(s.Title, s.Description)
	}
	return draft
}
