package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/loadout/internal/catalog"
	"github.com/roach88/loadout/internal/selection"
	"github.com/roach88/loadout/internal/session"
	"github.com/roach88/loadout/internal/store"
	"github.com/roach88/loadout/internal/testutil"
)

// Error codes reported in traces for failures that carry no store code.
const (
	CodeUnknownEntry = "UNKNOWN_ENTRY"
	CodeError        = "ERROR"
)

var errUnknownEntry = errors.New("unknown catalog entry")

// Harness executes the steps of one scenario against a session.
type Harness struct {
	session *session.Session
	store   *store.Store
	ids     map[string]string // snapshot name -> id
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh in-memory store. An error is returned only when
// the run could not start (bad catalog, missing anchor); step and
// assertion failures are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithClock(testutil.NewStepClock()),
		store.WithIDGenerator(testutil.NewSequentialIDs("snap")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	opts := []session.Option{session.WithClock(testutil.NewStepClock())}
	if scenario.Anchor != "" {
		opts = append(opts, session.WithAnchorID(scenario.Anchor))
	}
	if scenario.PermissiveAnchor {
		opts = append(opts, session.WithAnchorPolicy(selection.AnchorPermissive))
	}
	s := session.New(catalog.NewCache(catalog.NewDirSource(scenario.Catalog)), st, opts...)
	if err := s.Init(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	defer s.Close()

	h := &Harness{
		session: s,
		store:   st,
		ids:     make(map[string]string),
		logger:  slog.Default().With("scenario", scenario.Name),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	doc, err := s.Compose()
	if err != nil {
		return nil, err
	}
	result.Document = doc
	result.Snapshots = st.Stats(ctx).TotalConfigs

	for _, msg := range EvaluateAssertions(result, s.State(), scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step, records it, and checks its expectation and
// the selection invariants.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	err := h.apply(ctx, step)
	code := errorCode(err)
	state := h.session.State()
	result.addTrace(step.Action, step.Target, code, modelIDs(state))

	h.logger.Debug("step executed", "index", index, "action", step.Action, "target", step.Target, "code", code)

	switch {
	case step.Expect == nil && err != nil:
		result.AddError(fmt.Sprintf("steps[%d] %s %q: unexpected error: %v", index, step.Action, step.Target, err))
	case step.Expect != nil && code != step.Expect.Error:
		got := code
		if got == "" {
			got = "success"
		}
		result.AddError(fmt.Sprintf("steps[%d] %s %q: expected error %s, got %s", index, step.Action, step.Target, step.Expect.Error, got))
	}

	if verr := state.Validate(); verr != nil {
		result.AddError(fmt.Sprintf("steps[%d] %s %q: invariant violated: %v", index, step.Action, step.Target, verr))
	}
}

// apply performs a step and waits for any rule fetch it issued.
func (h *Harness) apply(ctx context.Context, step Step) error {
	s := h.session
	state := s.State()

	switch step.Action {
	case ActionToggleModel:
		m, ok := s.Model(step.Target)
		if !ok {
			return fmt.Errorf("%w: model %q", errUnknownEntry, step.Target)
		}
		return state.ToggleModel(ctx, m).Wait(ctx)

	case ActionToggleRule:
		modelID, name, _ := splitRuleTarget(step.Target)
		rules, _ := state.Rules(modelID)
		if _, ok := rules[name]; !ok {
			return fmt.Errorf("%w: rule %q", errUnknownEntry, step.Target)
		}
		state.ToggleRule(modelID, name)
		return nil

	case ActionToggleAllRules:
		state.ToggleAllRulesForModel(step.Target)
		return nil

	case ActionSelectRole:
		role, ok := s.Role(step.Target)
		if !ok {
			return fmt.Errorf("%w: role %q", errUnknownEntry, step.Target)
		}
		state.SelectRole(role)
		return nil

	case ActionToggleCommand:
		cmd, ok := s.Command(step.Target)
		if !ok {
			return fmt.Errorf("%w: command %q", errUnknownEntry, step.Target)
		}
		state.ToggleCommand(cmd)
		return nil

	case ActionReset:
		return state.Reset(ctx).Wait(ctx)

	case ActionSave:
		rec, err := s.SaveCurrent(ctx, step.Target, "")
		if err != nil {
			return err
		}
		h.ids[step.Target] = rec.ID
		return nil

	case ActionResave:
		_, err := s.ResaveCurrent(ctx, h.snapshotID(step.Target))
		return err

	case ActionLoad:
		_, err := s.Load(ctx, h.snapshotID(step.Target))
		return err

	case ActionDelete:
		_, err := h.store.Delete(ctx, h.snapshotID(step.Target))
		return err

	case ActionRestore:
		_, err := h.store.RestoreBackup(ctx)
		return err
	}
	return fmt.Errorf("unknown action %q", step.Action)
}

// snapshotID maps a name saved earlier in the scenario to its id. Other
// targets are used as ids verbatim.
func (h *Harness) snapshotID(target string) string {
	if id, ok := h.ids[target]; ok {
		return id
	}
	return target
}

// errorCode maps a step error to the code recorded in the trace.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case store.CodeOf(err) != "":
		return string(store.CodeOf(err))
	case selection.IsFetchFailure(err):
		return selection.ErrCodeFetchFailure
	case errors.Is(err, errUnknownEntry):
		return CodeUnknownEntry
	}
	return CodeError
}

func modelIDs(state *selection.State) []string {
	models := state.Models()
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}
