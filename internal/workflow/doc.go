// Package workflow creates a project together with its dependent resources.
//
// Creation runs in five phases against the backend:
//
//  1. create the project record (the only phase whose failure fails the run)
//  2. attach team members, in parallel
//  3. upload files, one at a time
//  4. attach links, one at a time
//  5. create stages, in parallel
//
// Phases 2–5 need the project id returned by phase 1 and never start before
// it. Their items are best-effort enrichments: a failing item is logged (and
// for files and links, surfaced as a warning), never retried, never rolled
// back, and never aborts the run. Each phase reports a BatchResult so callers
// see exactly which items failed.
//
// The context passed to Create is threaded through every request. Once it is
// done no further item is submitted and no notification or event is emitted.
package workflow
