package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const doubled = `
schema_version: 1
id: doubled
nodes:
  - id: start
    type: trigger.manual
  - id: two
    type: constant.number
    defaults: {value: 2}
  - id: twice
    type: math.double
  - id: say
    type: action.log
edges:
  - {source: start, source_handle: out, target: say, target_handle: in, kind: execution}
  - {source: two, source_handle: value, target: twice, target_handle: value}
  - {source: twice, source_handle: result, target: say, target_handle: message}
`

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lattice version")
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", writeDoc(t, doubled))
	require.NoError(t, err)
	assert.Contains(t, out, "doubled is valid")

	_, err = execute(t, "validate", writeDoc(t, "schema_version: 1\nid: bad\nnodes:\n  - {id: x, type: no.such}\n"))
	assert.ErrorIs(t, err, errInvalid)
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph", writeDoc(t, doubled))
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "class twice folded")
	assert.NotContains(t, out, "class two folded")
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", writeDoc(t, doubled), "--trigger", "start")
	require.NoError(t, err)
	assert.Contains(t, out, "4")
}
