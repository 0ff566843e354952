package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pulsegrid/internal/grid"
)

// Scenario is a scripted sequence of table interactions with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path of the CUE file declaring the table. Relative
	// paths are resolved against the scenario file.
	Schema string `yaml:"schema"`

	// Table selects the table in Schema.
	Table string `yaml:"table"`

	// Rows seed the backend.
	Rows []RowSpec `yaml:"rows"`

	// Failures inject backend errors before the first step.
	Failures []FailureSpec `yaml:"failures,omitempty"`

	// Steps run in order against one table.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// RowSpec is one seeded backend row.
type RowSpec struct {
	ID       string         `yaml:"id"`
	Position int64          `yaml:"position"`
	Values   map[string]any `yaml:"values"`
}

// FailureSpec makes backend requests fail.
type FailureSpec struct {
	// Op is a backend operation: fetch, insert, update_cell,
	// update_position or delete.
	Op string `yaml:"op"`

	// Record limits the failure to one row. Empty matches every row.
	Record string `yaml:"record,omitempty"`

	// Times is how many requests fail. Zero means all of them.
	Times int `yaml:"times,omitempty"`

	// Message is the error text.
	Message string `yaml:"message"`

	// Permanent errors are never retried.
	Permanent bool `yaml:"permanent,omitempty"`
}

// Step is one table interaction.
type Step struct {
	Do     string         `yaml:"do"`
	Args   map[string]any `yaml:"args,omitempty"`
	Expect *ExpectClause  `yaml:"expect,omitempty"`
}

// ExpectClause checks the outcome of a step.
type ExpectClause struct {
	// Error is the expected grid error code. Empty expects success.
	Error string `yaml:"error,omitempty"`

	// View is the expected view ids after the step. Nil skips the check.
	View []string `yaml:"view,omitempty"`
}

// Assertion validates the state after the last step.
type Assertion struct {
	Type string `yaml:"type"`

	// IDs is used by view and selected.
	IDs []string `yaml:"ids,omitempty"`

	// Op and Count are used by call_count.
	Op    string `yaml:"op,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Positions is used by positions.
	Positions map[string]int64 `yaml:"positions,omitempty"`

	// Record and Expect are used by row. Expect is a subset match.
	Record string         `yaml:"record,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertView      = "view"
	AssertSelected  = "selected"
	AssertCallCount = "call_count"
	AssertPositions = "positions"
	AssertRow       = "row"
)

// Step names.
const (
	StepLoad           = "load"
	StepAddFilter      = "add_filter"
	StepRemoveFilter   = "remove_filter"
	StepClearFilters   = "clear_filters"
	StepToggleSort     = "toggle_sort"
	StepBeginEdit      = "begin_edit"
	StepSetDraft       = "set_draft"
	StepStopEdit       = "stop_edit"
	StepEdit           = "edit"
	StepMove           = "move"
	StepDrop           = "drop"
	StepToggleSelect   = "toggle_select"
	StepClearSelection = "clear_selection"
	StepDeleteSelected = "delete_selected"
	StepInsert         = "insert"
)

// requiredArgs lists the args each step needs.
var requiredArgs = map[string][]string{
	StepLoad:           nil,
	StepAddFilter:      {"column", "value"},
	StepRemoveFilter:   {"index"},
	StepClearFilters:   nil,
	StepToggleSort:     {"column"},
	StepBeginEdit:      {"record", "column"},
	StepSetDraft:       {"value"},
	StepStopEdit:       {"reason"},
	StepEdit:           {"record", "column", "value", "reason"},
	StepMove:           {"from", "to"},
	StepDrop:           nil,
	StepToggleSelect:   {"id"},
	StepClearSelection: nil,
	StepDeleteSelected: nil,
	StepInsert:         {"values"},
}

var knownOps = map[string]bool{
	grid.OpFetch:    true,
	grid.OpInsert:   true,
	grid.OpCell:     true,
	grid.OpPosition: true,
	grid.OpDelete:   true,
}

// LoadScenario reads and parses a scenario YAML file. Returns an error if
// the file doesn't exist, is malformed, contains unknown fields (typos) or
// is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "step:" vs "steps:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
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
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); err != nil {
		return fmt.Errorf("schema file not found: %s", s.Schema)
	}
	if s.Table == "" {
		return fmt.Errorf("table is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Rows))
	for i, r := range s.Rows {
		if r.ID == "" {
			return fmt.Errorf("rows[%d]: id is required", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("rows[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
	}

	for i, f := range s.Failures {
		if !knownOps[f.Op] {
			return fmt.Errorf("failures[%d]: unknown op %q", i, f.Op)
		}
		if f.Message == "" {
			return fmt.Errorf("failures[%d]: message is required", i)
		}
		if f.Times < 0 {
			return fmt.Errorf("failures[%d]: times must be non-negative", i)
		}
	}

	for i, step := range s.Steps {
		required, ok := requiredArgs[step.Do]
		if !ok {
			return fmt.Errorf("steps[%d]: unknown step %q", i, step.Do)
		}
		for _, arg := range required {
			if _, ok := step.Args[arg]; !ok {
				return fmt.Errorf("steps[%d]: %s requires arg %q", i, step.Do, arg)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertView, AssertSelected:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for %s (use [] for none)", index, a.Type)
		}
	case AssertCallCount:
		if a.Op != "" && !knownOps[a.Op] {
			return fmt.Errorf("assertions[%d]: unknown op %q", index, a.Op)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertPositions:
		if len(a.Positions) == 0 {
			return fmt.Errorf("assertions[%d]: positions is required", index)
		}
	case AssertRow:
		if a.Record == "" {
			return fmt.Errorf("assertions[%d]: record is required for row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
