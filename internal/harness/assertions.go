package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/loadout/internal/selection"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		line := fmt.Sprintf("  [%d] %s", event.Seq, event.Action)
		if event.Target != "" {
			line += " " + event.Target
		}
		if event.Error != "" {
			line += " -> " + event.Error
		}
		fmt.Fprintln(&buf, line)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the final state and
// the trace, returning one message per failure.
func EvaluateAssertions(result *Result, state *selection.State, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, state, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, state *selection.State, a Assertion) error {
	switch a.Type {
	case AssertModels:
		return assertList(result, AssertModels, a.Expect, modelIDs(state))

	case AssertRules:
		return assertList(result, AssertRules+" "+a.Model, a.Expect, state.SelectedRuleNames(a.Model))

	case AssertRole:
		got := ""
		if role := state.Role(); role != nil {
			got = role.ID
		}
		if got != a.Value {
			return &AssertionError{Type: AssertRole, Expected: quoteOrNone(a.Value), Actual: quoteOrNone(got), Trace: result.Trace}
		}
		return nil

	case AssertCommands:
		commands := state.Commands()
		ids := make([]string, len(commands))
		for i, c := range commands {
			ids[i] = c.ID
		}
		return assertList(result, AssertCommands, a.Expect, ids)

	case AssertSnapshotCount:
		if result.Snapshots != a.Count {
			return &AssertionError{
				Type:     AssertSnapshotCount,
				Expected: fmt.Sprintf("%d snapshot(s)", a.Count),
				Actual:   fmt.Sprintf("%d snapshot(s)", result.Snapshots),
				Trace:    result.Trace,
			}
		}
		return nil

	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)

	case AssertTraceCount:
		count := 0
		for _, ev := range result.Trace {
			if ev.Action == a.Action {
				count++
			}
		}
		if count != a.Count {
			return &AssertionError{
				Type:     AssertTraceCount,
				Expected: fmt.Sprintf("%s %d time(s)", a.Action, a.Count),
				Actual:   fmt.Sprintf("%d time(s)", count),
				Trace:    result.Trace,
			}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertList compares id lists in order. A nil expectation matches an
// empty list.
func assertList(result *Result, typ string, want, got []string) error {
	if len(want) == 0 && len(got) == 0 {
		return nil
	}
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

// assertTraceOrder checks that the actions occur in the given order.
// Other steps may appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Actions) && ev.Action == a.Actions[next] {
			next++
		}
	}
	if next == len(a.Actions) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Actions, " -> "),
		Actual:   fmt.Sprintf("stopped before %s", a.Actions[next]),
		Trace:    trace,
	}
}

func quoteOrNone(id string) string {
	if id == "" {
		return "no role"
	}
	return fmt.Sprintf("%q", id)
}
