package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

var (
	officeScene  = filepath.Join("..", "scene", "testdata", "office.yaml")
	scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
