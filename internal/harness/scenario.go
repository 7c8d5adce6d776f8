package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bimbridge/internal/ir"
)

// Scenario is a scripted session against a scene: a list of tool calls
// with expected responses, followed by assertions on the trace, the
// request journal and the final document.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Scene is the path of the scene file the document is built from.
	// LoadScenario resolves it relative to the scenario file.
	Scene string `yaml:"scene"`

	// Steps are run in order, one request each.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one tool call.
type Step struct {
	// Tool is the tool name, e.g. "operate_element_modify".
	Tool string `yaml:"tool"`

	// Args is sent to the tool as its JSON arguments.
	Args map[string]any `yaml:"args"`

	// Expect is checked against the response. Nil means no check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the response a step should produce. Unset fields are
// not checked.
type Expect struct {
	Success         *bool          `yaml:"success,omitempty"`
	ProcessedCount  *int           `yaml:"processedCount,omitempty"`
	Succeeded       []int64        `yaml:"succeeded,omitempty"`
	Failed          []FailedExpect `yaml:"failed,omitempty"`
	MessageContains string         `yaml:"messageContains,omitempty"`

	// Details is a subset match on response.details.
	Details map[string]any `yaml:"details,omitempty"`

	// DecodeError expects the arguments to be rejected before dispatch.
	DecodeError bool `yaml:"decodeError,omitempty"`
}

// FailedExpect is one expected failure record.
type FailedExpect struct {
	ID     int64  `yaml:"id"`
	Reason string `yaml:"reason"`
}

// Assertion validates the trace, the journal or the document.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Tool and Args select trace events (trace_contains, trace_count).
	// Args is a subset match.
	Tool string         `yaml:"tool,omitempty"`
	Args map[string]any `yaml:"args,omitempty"`

	// Tools is the expected order (trace_order).
	Tools []string `yaml:"tools,omitempty"`

	// Count is the expected number of calls (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table, Where and Expect query the journal (final_state). Where must
	// match exactly one row; Expect is a subset match on its columns.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`

	// Element, Exists, Param and Value inspect the document (element).
	Element int64  `yaml:"element,omitempty"`
	Exists  *bool  `yaml:"exists,omitempty"`
	Param   string `yaml:"param,omitempty"`
	Value   any    `yaml:"value,omitempty"`
	// HiddenIn names a view the element must be hidden in.
	HiddenIn string `yaml:"hiddenIn,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertElement       = "element"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Scene != "" && !filepath.IsAbs(scenario.Scene) {
		scenario.Scene = filepath.Join(filepath.Dir(path), scenario.Scene)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, in name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Scene == "" {
		return fmt.Errorf("scene is required")
	}
	if _, err := os.Stat(s.Scene); os.IsNotExist(err) {
		return fmt.Errorf("scene file not found: %s", s.Scene)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Tool == "" {
			return fmt.Errorf("steps[%d]: tool is required", i)
		}
		if _, err := ir.ParseTool(step.Tool); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Args == nil {
			return fmt.Errorf("steps[%d]: args is required (use {} if no args)", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Tool == "" {
			return fmt.Errorf("assertions[%d]: tool is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Tools) == 0 {
			return fmt.Errorf("assertions[%d]: tools list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Tool == "" {
			return fmt.Errorf("assertions[%d]: tool is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertElement:
		if a.Element == 0 {
			return fmt.Errorf("assertions[%d]: element is required for element", index)
		}
		if a.Param != "" && a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required with param", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
