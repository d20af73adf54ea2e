package harness

import "github.com/roach88/loadout/internal/ir"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int64    `json:"seq"`
	Action string   `json:"action"`
	Target string   `json:"target,omitempty"`
	Error  string   `json:"error,omitempty"` // error code, empty on success
	Models []string `json:"models"`          // selected model ids after the step
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step met its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace lists the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Document is the composition of the final selection.
	Document ir.Document `json:"document"`

	// Snapshots is the number of stored snapshots at the end of the run.
	Snapshots int `json:"snapshots"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends a step record.
func (r *Result) addTrace(action, target, code string, models []string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    int64(len(r.Trace) + 1),
		Action: action,
		Target: target,
		Error:  code,
		Models: models,
	})
}
