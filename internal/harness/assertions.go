package harness

import (
	"fmt"
	"strings"
)

// AssertionError is a failed assertion with the trace for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s -> %d\n", ev.Seq, ev.Key(), ev.Status)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertRequestCount:
		return assertRequestCount(result.Trace, a)
	case AssertRequestOrder:
		return assertRequestOrder(result.Trace, a)
	case AssertAfterCreate:
		return assertAfterCreate(result.Trace)
	case AssertToast:
		return assertToast(result, a)
	case AssertToastCount:
		return assertToastCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertRequestCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Key() == a.Request {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertRequestCount,
			Expected: fmt.Sprintf("%s sent %d times", a.Request, a.Count),
			Actual:   fmt.Sprintf("sent %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertRequestOrder checks that the first occurrence of each key comes after
// the first occurrence of the previous one. Other requests may intervene.
func assertRequestOrder(trace []TraceEvent, a Assertion) error {
	first := make(map[string]int)
	for _, ev := range trace {
		if _, seen := first[ev.Key()]; !seen {
			first[ev.Key()] = ev.Seq
		}
	}
	for _, key := range a.Requests {
		if _, ok := first[key]; !ok {
			return &AssertionError{
				Type:     AssertRequestOrder,
				Expected: fmt.Sprintf("all requests present: %v", a.Requests),
				Actual:   fmt.Sprintf("missing request: %s", key),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Requests); i++ {
		prev, curr := a.Requests[i-1], a.Requests[i]
		if first[prev] >= first[curr] {
			return &AssertionError{
				Type:     AssertRequestOrder,
				Expected: fmt.Sprintf("requests in order: %v", a.Requests),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, first[prev], curr, first[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertAfterCreate checks that every dependent request was sent after the
// create response, to the created project.
func assertAfterCreate(trace []TraceEvent) error {
	var create *TraceEvent
	for i := range trace {
		if trace[i].Phase == "project" {
			create = &trace[i]
			break
		}
	}
	if create == nil {
		if len(trace) == 0 {
			return nil
		}
		return &AssertionError{
			Type:     AssertAfterCreate,
			Expected: "no dependent requests without a create",
			Actual:   fmt.Sprintf("%d requests", len(trace)),
			Trace:    trace,
		}
	}
	for _, ev := range trace {
		if ev.Seq == create.Seq {
			continue
		}
		if ev.started <= create.finished {
			return &AssertionError{
				Type:     AssertAfterCreate,
				Expected: "dependent requests start after the create response",
				Actual:   fmt.Sprintf("%s started before it", ev.Key()),
				Trace:    trace,
			}
		}
		if create.Status >= 400 {
			return &AssertionError{
				Type:     AssertAfterCreate,
				Expected: "no dependent requests after a failed create",
				Actual:   fmt.Sprintf("%s was sent", ev.Key()),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertToast(result *Result, a Assertion) error {
	for _, t := range result.Toasts {
		if t.Level == a.Level && t.Message == a.Message {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertToast,
		Expected: fmt.Sprintf("%s message %q", a.Level, a.Message),
		Actual:   fmt.Sprintf("messages %v", result.Toasts),
		Trace:    result.Trace,
	}
}

func assertToastCount(result *Result, a Assertion) error {
	count := 0
	for _, t := range result.Toasts {
		if t.Level == a.Level && (a.Message == "" || t.Message == a.Message) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertToastCount,
			Expected: fmt.Sprintf("%d %s messages", a.Count, a.Level),
			Actual:   fmt.Sprintf("%d in %v", count, result.Toasts),
			Trace:    result.Trace,
		}
	}
	return nil
}
