package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted selection session with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the catalog directory. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Catalog string `yaml:"catalog"`

	// Anchor overrides the anchor model id.
	Anchor string `yaml:"anchor,omitempty"`

	// PermissiveAnchor lets anchor rules be deselected.
	PermissiveAnchor bool `yaml:"permissive_anchor,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated against the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one user action.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Target is the action's argument: a model, role, or command id, a
	// "model/rule" pair, or a snapshot name.
	Target string `yaml:"target,omitempty"`

	// Expect specifies the expected outcome. Nil means the step must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected step behavior.
type ExpectClause struct {
	// Error is the expected error code, e.g. "NOT_FOUND".
	Error string `yaml:"error"`
}

// Step actions.
const (
	ActionToggleModel    = "toggle_model"
	ActionToggleRule     = "toggle_rule"
	ActionToggleAllRules = "toggle_all_rules"
	ActionSelectRole     = "select_role"
	ActionToggleCommand  = "toggle_command"
	ActionReset          = "reset"
	ActionSave           = "save"
	ActionResave         = "resave"
	ActionLoad           = "load"
	ActionDelete         = "delete"
	ActionRestore        = "restore"
)

// targetless lists actions that take no target.
var targetless = map[string]bool{
	ActionReset:   true,
	ActionRestore: true,
}

var knownActions = map[string]bool{
	ActionToggleModel:    true,
	ActionToggleRule:     true,
	ActionToggleAllRules: true,
	ActionSelectRole:     true,
	ActionToggleCommand:  true,
	ActionReset:          true,
	ActionSave:           true,
	ActionResave:         true,
	ActionLoad:           true,
	ActionDelete:         true,
	ActionRestore:        true,
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Model is the model id (rules).
	Model string `yaml:"model,omitempty"`

	// Expect is the expected id list (models, rules, commands), in order.
	Expect []string `yaml:"expect,omitempty"`

	// Value is the expected role id; empty means no role (role).
	Value string `yaml:"value,omitempty"`

	// Count is the expected number (snapshot_count, trace_count).
	Count int `yaml:"count,omitempty"`

	// Action is the step action counted (trace_count).
	Action string `yaml:"action,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertModels        = "models"
	AssertRules         = "rules"
	AssertRole          = "role"
	AssertCommands      = "commands"
	AssertSnapshotCount = "snapshot_count"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected and the catalog path is resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}
	if _, err := os.Stat(scenario.Catalog); err != nil {
		return nil, fmt.Errorf("invalid scenario: catalog: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Paths are left as
// written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if !knownActions[step.Action] {
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
		if step.Target == "" && !targetless[step.Action] {
			return fmt.Errorf("steps[%d]: target is required for %s", i, step.Action)
		}
		if step.Action == ActionToggleRule {
			if _, _, ok := splitRuleTarget(step.Target); !ok {
				return fmt.Errorf("steps[%d]: target %q must be model/rule", i, step.Target)
			}
		}
		if step.Expect != nil && step.Expect.Error == "" {
			return fmt.Errorf("steps[%d].expect: error is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertModels, AssertCommands, AssertRole:
	case AssertRules:
		if a.Model == "" {
			return fmt.Errorf("assertions[%d]: model is required for rules", index)
		}
	case AssertSnapshotCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// splitRuleTarget splits "model/rule".
func splitRuleTarget(target string) (string, string, bool) {
	model, rule, ok := strings.Cut(target, "/")
	return model, rule, ok && model != "" && rule != ""
}
