package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/lattice/internal/validator"
	"github.com/aretw0/lattice/pkg/nodes"
)

func TestCatalogMarkdown(t *testing.T) {
	md := CatalogMarkdown(nodes.NewRegistry())

	assert.Contains(t, md, "# Node catalogue")
	assert.Contains(t, md, "## Math")
	assert.Contains(t, md, "### `math.double` Double")
	assert.Contains(t, md, "| in | value * | `NUMBER` |")
	assert.Contains(t, md, "| in | items (multi) |")
	assert.Contains(t, md, "Flags: trigger")
	assert.Contains(t, md, "`LIST<T>`")
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	RenderReport(&buf, "bad", validator.Result{
		Errors: []validator.ValidationError{
			{Kind: validator.InvalidNodeType, Message: "unknown node type x.y", NodeID: "n1"},
		},
		EdgesToRemove: []string{"a:out->b:in"},
		Warnings:      []validator.Diagnostic{{Kind: validator.GenericMismatch, Message: "T vs NUMBER", EdgeID: "e1"}},
	})

	out := buf.String()
	assert.Contains(t, out, "bad has 1 error(s)")
	assert.Contains(t, out, "INVALID_NODE_TYPE")
	assert.Contains(t, out, "(node n1)")
	assert.Contains(t, out, "a:out->b:in")
	assert.Contains(t, out, "(edge e1)")

	buf.Reset()
	RenderReport(&buf, "good", validator.Result{Valid: true})
	assert.Contains(t, buf.String(), "good is valid")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.OnNodeCompleted("a", nil, time.Millisecond)
	c.OnNodeError("b", "boom")
	c.OnLog("info", "hello")
	c.OnScriptCompleted(false)

	assert.Equal(t, []string{"a"}, c.Visited())
	assert.Equal(t, []string{"b"}, c.Failed())
	out := buf.String()
	assert.Contains(t, out, "b: boom")
	assert.Contains(t, out, "[info]")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "completed with failures")
}
