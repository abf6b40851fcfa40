package schema

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor_StringAndParse(t *testing.T) {
	tests := []struct {
		in   string
		want Descriptor
		str  string
	}{
		{"NUMBER", Of(Number), "NUMBER"},
		{"number", Of(Number), "NUMBER"},
		{"T", Var("T"), "T"},
		{"LIST<T>", ListOf(Var("T")), "LIST<T>"},
		{"List<Bot>", ListOf(Of(Bot)), "LIST<BOT>"},
		{"MAP<STRING,LIST<V>>", MapOf(Of(String), ListOf(Var("V"))), "MAP<STRING, LIST<V>>"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDescriptor(tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, d), "got %s", d)
			assert.Equal(t, tt.str, d.String())
		})
	}
}

func TestParseDescriptor_Errors(t *testing.T) {
	for _, in := range []string{"", "LIST<", "LIST<NUMBER", "FOO<NUMBER>", "LIST<NUMBER>>", "<>"} {
		_, err := ParseDescriptor(in)
		assert.Error(t, err, in)
	}
}

func TestDescriptor_HasTypeVariablesAndBase(t *testing.T) {
	assert.False(t, Of(Number).HasTypeVariables())
	assert.True(t, Var("T").HasTypeVariables())
	assert.True(t, MapOf(Of(String), ListOf(Var("T"))).HasTypeVariables())
	assert.False(t, ListOf(Of(Number)).HasTypeVariables())

	assert.Equal(t, Any, Var("T").BaseType())
	assert.Equal(t, List, ListOf(Of(Number)).BaseType())
}

func TestDescriptor_Resolve(t *testing.T) {
	b := Bindings{"T": Var("U"), "U": Of(Number)}
	assert.Equal(t, "LIST<NUMBER>", ListOf(Var("T")).Resolve(b).String())
	assert.Equal(t, "V", Var("V").Resolve(b).String())

	// A self-referential binding reaches a fixed point.
	loop := Bindings{"T": ListOf(Var("T"))}
	assert.Equal(t, "LIST<T>", Var("T").Resolve(loop).String())
}

func TestDescriptor_JSON(t *testing.T) {
	b, err := json.Marshal(map[string]Descriptor{"in": ListOf(Var("T"))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"in":"LIST<T>"}`, string(b))

	d, err := UnmarshalDescriptor([]byte(`"MAP<STRING, NUMBER>"`))
	require.NoError(t, err)
	assert.Equal(t, "MAP<STRING, NUMBER>", d.String())

	_, err = UnmarshalDescriptor([]byte(`42`))
	assert.Error(t, err)
}

func TestUnify(t *testing.T) {
	tests := []struct {
		name string
		a, b Descriptor
		want bool
		bind map[string]string
	}{
		{"same simple", Of(Number), Of(Number), true, nil},
		{"compatible simple", Of(Boolean), Of(Number), true, nil},
		{"incompatible simple", Of(Bot), Of(Number), false, nil},
		{"any", Of(Any), ListOf(Of(Bot)), true, nil},
		{"var left", Var("T"), Of(String), true, map[string]string{"T": "STRING"}},
		{"var right", ListOf(Of(Bot)), Var("T"), true, map[string]string{"T": "LIST<BOT>"}},
		{"nested var", ListOf(Of(Number)), ListOf(Var("T")), true, map[string]string{"T": "NUMBER"}},
		{"param mismatch base", ListOf(Of(Number)), MapOf(Of(String), Of(Number)), false, nil},
		{"param mismatch arg", ListOf(Of(Bot)), ListOf(Of(Number)), false, nil},
		{"bare list vs param", Of(List), ListOf(Of(Number)), true, nil},
		{"param vs bare list", ListOf(Of(Number)), Of(List), true, nil},
		{"bare map vs param", Of(Map), MapOf(Of(String), Of(Number)), true, nil},
		{"bare map vs param list", Of(Map), ListOf(Of(Number)), false, nil},
		{"scalar vs param", Of(Number), ListOf(Of(Number)), false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Bindings{}
			assert.Equal(t, tt.want, Unify(tt.a, tt.b, b))
			for name, want := range tt.bind {
				require.Contains(t, b, name)
				assert.Equal(t, want, b[name].String())
			}
		})
	}
}

func TestUnify_UsesExistingBindings(t *testing.T) {
	b := Bindings{"T": Of(Bot)}
	assert.False(t, Unify(Of(Number), Var("T"), b), "T is already BOT")
	assert.True(t, Unify(Of(Bot), Var("T"), b))
}

func TestUnify_SymmetricForParameterizedLists(t *testing.T) {
	a := ListOf(Var("T"))
	c := ListOf(Of(Vector3))

	b1 := Bindings{}
	b2 := Bindings{}
	assert.True(t, Unify(a, c, b1))
	assert.True(t, Unify(c, a, b2))
	assert.Equal(t, b1["T"].String(), b2["T"].String())
}

func TestUnify_VarWithItself(t *testing.T) {
	b := Bindings{}
	assert.True(t, Unify(Var("T"), Var("T"), b))
	assert.Empty(t, b)
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		in     domain.Value
		source PortType
		target PortType
		want   any
	}{
		{"bool true to number", domain.Bool(true), Boolean, Number, 1.0},
		{"bool false to number", domain.Bool(false), Boolean, Number, 0.0},
		{"string to number", domain.Str("2.5"), String, Number, 2.5},
		{"number to bool zero", domain.Number(0), Number, Boolean, false},
		{"number to bool", domain.Number(-3), Number, Boolean, true},
		{"string to bool", domain.Str("TrUe"), String, Boolean, true},
		{"string yes to bool", domain.Str("yes"), String, Boolean, false},
		{"number to vector", domain.Number(2), Number, Vector3, []any{2.0, 2.0, 2.0}},
		{"list to vector", domain.MustFromAny([]any{1, 2, 3, 4}), List, Vector3, []any{1.0, 2.0, 3.0}},
		{"short list to vector", domain.MustFromAny([]any{7}), List, Vector3, []any{7.0, 0.0, 0.0}},
		{"vector to number", domain.Vector3(1, 2, 6), Vector3, Number, 3.0},
		{"number to string", domain.Number(10), Number, String, "10"},
		{"bool to string", domain.Bool(true), Boolean, String, "true"},
		{"scalar to list", domain.Number(1), Number, List, []any{1.0}},
		{"list stays list", domain.MustFromAny([]any{1}), List, List, []any{1.0}},
		{"array to list", domain.MustFromAny([]any{1}), Any, List, []any{1.0}},
		{"same type", domain.Str("x"), String, String, "x"},
		{"any source", domain.Str("x"), Any, Number, "x"},
		{"no conversion for bot", domain.Str("x"), String, Bot, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.in, tt.source, tt.target)
			assert.Equal(t, tt.want, domain.Raw(got))
		})
	}
}

func TestConvert_UnparseableStringIsNaN(t *testing.T) {
	got := Convert(domain.Str("abc"), String, Number)
	assert.True(t, math.IsNaN(domain.AsNumber(got, 0)))
}

func TestConvert_NullPassesThrough(t *testing.T) {
	assert.True(t, domain.IsNull(Convert(domain.Null(), String, Number)))
}

func TestConvert_BotToListWrapsInList(t *testing.T) {
	bot := domain.Bot{Name: "b"}
	got := Convert(bot, Bot, List)
	require.Equal(t, domain.KindList, got.Kind())
	assert.Len(t, domain.AsList(got), 1)
}

func TestConvert_NumberStringNumberRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := []float64{0, -0.5, 1, 1e-300, 123456.789, math.MaxFloat64, -math.SmallestNonzeroFloat64}
	for i := 0; i < 500; i++ {
		values = append(values, (rng.Float64()-0.5)*math.Pow(10, float64(rng.Intn(40)-20)))
	}
	for _, f := range values {
		s := Convert(domain.Number(f), Number, String)
		back := Convert(s, String, Number)
		assert.Equal(t, f, domain.AsNumber(back, math.NaN()), s.String())
	}
}
