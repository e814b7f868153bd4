// Package harness runs project-creation scenarios against an in-process
// fake backend and records what the workflow sent.
//
// A scenario is a YAML file describing a draft, the backend failures to
// inject, the expected outcome and a list of assertions over the recorded
// requests and messages. Every run uses a fixed flow token, so the request
// trace is deterministic and can be compared against a golden file:
//
//	go test ./internal/harness -update
//
// regenerates testdata/golden after an intended change.
//
// Members and stages are submitted concurrently. Their arrival order is not
// stable, so the trace orders them by employee id and stage order.
package harness
