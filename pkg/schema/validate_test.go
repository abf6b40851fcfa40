package schema

import (
	"errors"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		value   domain.Value
		wantErr bool
	}{
		{"number ok", Of(Number), domain.Number(1), false},
		{"number fails on string", Of(Number), domain.Str("1"), true},
		{"null always fits", Of(Number), domain.Null(), false},
		{"string ok", Of(String), domain.Str("x"), false},
		{"boolean fails on number", Of(Boolean), domain.Number(0), true},
		{"vector ok", Of(Vector3), domain.Vector3(1, 2, 3), false},
		{"vector wrong length", Of(Vector3), domain.MustFromAny([]any{1, 2}), true},
		{"bot ok", Of(Bot), domain.Bot{Name: "b"}, false},
		{"bot fails on json", Of(Bot), domain.Str("b"), true},
		{"any", Of(Any), domain.Bot{}, false},
		{"type var", Var("T"), domain.Number(3), false},
		{"typed list ok", ListOf(Of(Number)), domain.MustFromAny([]any{1, 2}), false},
		{"typed list bad element", ListOf(Of(Number)), domain.MustFromAny([]any{1, "x"}), true},
		{"bot list", ListOf(Of(Bot)), domain.NewList(domain.Bot{Name: "a"}), false},
		{"list fails on scalar", ListOf(Of(Number)), domain.Number(1), true},
		{"typed map ok", MapOf(Of(String), Of(Number)), domain.MustFromAny(map[string]any{"a": 1}), false},
		{"typed map bad value", MapOf(Of(String), Of(Number)), domain.MustFromAny(map[string]any{"a": true}), true},
		{"empty params fall back to base", Parameterized{Base: List}, domain.MustFromAny([]any{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.desc, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckPorts_CollectsAllFailures(t *testing.T) {
	descs := map[string]Descriptor{
		"a": Of(Number),
		"b": Of(String),
		"c": Of(Boolean),
	}
	values := map[string]domain.Value{
		"a":     domain.Str("nope"),
		"b":     domain.Str("fine"),
		"c":     domain.Number(1),
		"extra": domain.Number(1),
	}

	err := CheckPorts(descs, values)
	require.Error(t, err)

	errs := ValidationErrors(err)
	require.Len(t, errs, 2)

	var first *ValidationError
	require.True(t, errors.As(errs[0], &first))
	assert.Equal(t, "a", first.Port)
	assert.Contains(t, err.Error(), "2 validation errors")
	assert.Contains(t, err.Error(), `port "c"`)
}

func TestCheckPorts_NoErrors(t *testing.T) {
	err := CheckPorts(map[string]Descriptor{"n": Of(Number)}, map[string]domain.Value{"n": domain.Number(2)})
	assert.NoError(t, err)
	assert.Nil(t, ValidationErrors(nil))
}
