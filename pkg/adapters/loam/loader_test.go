package loam

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/pkg/ports"
)

func setupRepo(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	tmpDir := t.TempDir()
	repo, err := loam.Init(tmpDir, loam.WithVersioning(false))
	require.NoError(t, err)

	for filename, content := range files {
		err := os.WriteFile(filepath.Join(tmpDir, filename), []byte(content), 0644)
		require.NoError(t, err)
	}
	return New(loam.NewTypedRepository[ScriptMetadata](repo))
}

func expected(t *testing.T, meta ScriptMetadata) []byte {
	t.Helper()
	b, err := json.Marshal(meta)
	require.NoError(t, err)
	return b
}

func TestLoader_Contract(t *testing.T) {
	loader := setupRepo(t, map[string]string{
		"greeter.yaml": `schema_version: 1
id: greeter
name: Greeter
nodes:
  - id: start
    type: trigger.manual
  - id: log
    type: action.log
    defaults:
      message: hello
edges:
  - source: start
    source_handle: out
    target: log
    target_handle: in
    kind: execution
`,
		"counter.json": `{
  "schema_version": 1,
  "nodes": [{"id": "start", "type": "trigger.manual"}]
}`,
	})

	setupData := map[string][]byte{
		"greeter": expected(t, ScriptMetadata{
			SchemaVersion: 1,
			ID:            "greeter",
			Name:          "Greeter",
			Nodes: []NodeEntry{
				{ID: "start", Type: "trigger.manual"},
				{ID: "log", Type: "action.log", Defaults: map[string]any{"message": "hello"}},
			},
			Edges: []EdgeEntry{{Source: "start", SourceHandle: "out", Target: "log", TargetHandle: "in", Kind: "execution"}},
		}),
		"counter": expected(t, ScriptMetadata{
			SchemaVersion: 1,
			ID:            "counter",
			Nodes:         []NodeEntry{{ID: "start", Type: "trigger.manual"}},
		}),
	}

	ports.RunScriptLoaderContract(t, loader, setupData)
}

func TestLoader_LoadByMetadataID(t *testing.T) {
	loader := setupRepo(t, map[string]string{
		"file-name.json": `{"schema_version": 1, "id": "declared", "nodes": []}`,
	})

	ids, err := loader.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"declared"}, ids)

	data, err := loader.Load(context.Background(), "declared")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"declared"`)
}

func TestLoader_List_DetectsCollisions(t *testing.T) {
	loader := setupRepo(t, map[string]string{
		"foo.yaml": "schema_version: 1\nid: foo\nnodes: []\n",
		"foo.json": `{"schema_version": 1, "id": "foo", "nodes": []}`,
	})

	_, err := loader.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}
