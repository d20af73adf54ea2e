package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/loadout/internal/ir"
)

// Snapshot captures a scenario run for golden comparison.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Document     ir.Document  `json:"document"`
}

// canonicalMap converts the snapshot to plain values for canonical JSON.
func (s *Snapshot) canonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		models := make([]any, len(ev.Models))
		for j, id := range ev.Models {
			models[j] = id
		}
		m := map[string]any{
			"seq":    ev.Seq,
			"action": ev.Action,
			"models": models,
		}
		if ev.Target != "" {
			m["target"] = ev.Target
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		trace[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"document":      s.Document.CanonicalValue(),
	}
}

// MarshalSnapshot returns the canonical JSON of a scenario run.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snap := Snapshot{ScenarioName: name, Trace: result.Trace, Document: result.Document}
	return ir.MarshalCanonical(snap.canonicalMap())
}

// RunWithGolden executes a scenario and compares its trace and final
// document against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	data, err := MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
