package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bimbridge/internal/ir"
)

// StepSnapshot is the part of a response a golden file pins down.
// Details are left out: they carry areas and view names that are
// covered by step expectations instead.
type StepSnapshot struct {
	Tool               string             `json:"tool"`
	Success            bool               `json:"success"`
	Message            string             `json:"message"`
	ProcessedCount     int                `json:"processedCount"`
	SuccessfulElements []ir.ElementID     `json:"successfulElements"`
	FailedElements     []ir.FailureRecord `json:"failedElements"`
}

// Snapshot captures a whole scenario run.
type Snapshot struct {
	Scenario string         `json:"scenario"`
	Steps    []StepSnapshot `json:"steps"`
}

// NewSnapshot builds the snapshot of result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{Scenario: name, Steps: make([]StepSnapshot, 0, len(result.Trace))}
	for _, ev := range result.Trace {
		r := ev.Response
		s.Steps = append(s.Steps, StepSnapshot{
			Tool:               ev.Tool,
			Success:            r.Success,
			Message:            r.Message,
			ProcessedCount:     r.Response.ProcessedCount,
			SuccessfulElements: r.Response.SuccessfulElements,
			FailedElements:     r.Response.FailedElements,
		})
	}
	return s
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
