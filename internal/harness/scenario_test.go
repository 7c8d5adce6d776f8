package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScene drops a minimal scene next to the scenario files.
func writeScene(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("levels: [{id: 1, name: L1}]\n"), 0644))
	return path
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir)
	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
scene: scene.yaml
steps:
  - tool: operate_element_modify
    args:
      data: {elementIds: [1], modifyAction: Delete}
    expect:
      success: true
      processedCount: 1
      failed: [{id: 1, reason: nope}]
assertions:
  - type: trace_contains
    tool: operate_element_modify
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(dir, "scene.yaml"), scenario.Scene)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, "operate_element_modify", scenario.Steps[0].Tool)
	require.NotNil(t, scenario.Steps[0].Expect)
	assert.True(t, *scenario.Steps[0].Expect.Success)
	assert.Equal(t, 1, *scenario.Steps[0].Expect.ProcessedCount)
	assert.Equal(t, []FailedExpect{{ID: 1, Reason: "nope"}}, scenario.Steps[0].Expect.Failed)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir)
	path := writeScenario(t, dir, `
name: typo
description: d
scene: scene.yaml
step: []
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\nscene: scene.yaml\nsteps: [{tool: tag_rooms, args: {}}]\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nscene: scene.yaml\nsteps: [{tool: tag_rooms, args: {}}]\n",
			want:    "description is required",
		},
		{
			name:    "missing scene",
			content: "name: n\ndescription: d\nsteps: [{tool: tag_rooms, args: {}}]\n",
			want:    "scene is required",
		},
		{
			name:    "scene not found",
			content: "name: n\ndescription: d\nscene: other.yaml\nsteps: [{tool: tag_rooms, args: {}}]\n",
			want:    "scene file not found",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\nscene: scene.yaml\nsteps: []\n",
			want:    "steps list is required",
		},
		{
			name:    "unknown tool",
			content: "name: n\ndescription: d\nscene: scene.yaml\nsteps: [{tool: explode, args: {}}]\n",
			want:    "steps[0]",
		},
		{
			name:    "missing args",
			content: "name: n\ndescription: d\nscene: scene.yaml\nsteps: [{tool: tag_rooms}]\n",
			want:    "args is required",
		},
		{
			name: "unknown assertion",
			content: "name: n\ndescription: d\nscene: scene.yaml\nsteps: [{tool: tag_rooms, args: {}}]\n" +
				"assertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "final_state without expect",
			content: "name: n\ndescription: d\nscene: scene.yaml\nsteps: [{tool: tag_rooms, args: {}}]\n" +
				"assertions: [{type: final_state, table: results}]\n",
			want: "expect is required for final_state",
		},
		{
			name: "element without id",
			content: "name: n\ndescription: d\nscene: scene.yaml\nsteps: [{tool: tag_rooms, args: {}}]\n" +
				"assertions: [{type: element, param: Mark}]\n",
			want: "element is required",
		},
		{
			name: "param without value",
			content: "name: n\ndescription: d\nscene: scene.yaml\nsteps: [{tool: tag_rooms, args: {}}]\n" +
				"assertions: [{type: element, element: 1, param: Mark}]\n",
			want: "value is required with param",
		},
		{
			name: "negative count",
			content: "name: n\ndescription: d\nscene: scene.yaml\nsteps: [{tool: tag_rooms, args: {}}]\n" +
				"assertions: [{type: trace_count, tool: tag_rooms, count: -1}]\n",
			want: "count must be non-negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeScene(t, dir)
			path := writeScenario(t, dir, tt.content)

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_Testdata(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"level_collision", "modify_partial", "room_numbering", "visibility"}, names)
}
