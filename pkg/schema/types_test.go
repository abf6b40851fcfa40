package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCanAccept_ReflexiveAndAny(t *testing.T) {
	for _, x := range PortTypes() {
		assert.True(t, CanAccept(x, x), "%s accepts itself", x)
		assert.True(t, CanAccept(Any, x), "ANY accepts %s", x)
		assert.True(t, CanAccept(x, Any), "%s accepts ANY", x)
	}
}

func TestCanAccept_Table(t *testing.T) {
	tests := []struct {
		target, source PortType
		want           bool
	}{
		{Number, Boolean, true},
		{Number, String, true},
		{Number, Vector3, true},
		{Number, Bot, false},
		{String, Number, true},
		{String, Bot, true},
		{String, List, true},
		{String, Exec, false},
		{Boolean, Number, true},
		{Boolean, Vector3, false},
		{Vector3, Number, true},
		{Vector3, List, true},
		{Vector3, String, false},
		{List, Number, true},
		{List, Bot, true},
		{List, Map, false},
		{List, Exec, false},
		{Bot, String, false},
		{Exec, Number, false},
		{Map, List, false},
	}
	for _, tt := range tests {
		t.Run(tt.target.String()+"<-"+tt.source.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccept(tt.target, tt.source))
		})
	}
}

func TestParsePortType(t *testing.T) {
	pt, err := ParsePortType("vector3")
	require.NoError(t, err)
	assert.Equal(t, Vector3, pt)

	_, err = ParsePortType("QUATERNION")
	assert.Error(t, err)

	assert.Equal(t, "PortType(99)", PortType(99).String())
	assert.False(t, PortType(99).Valid())
}

func TestPortType_TextMarshaling(t *testing.T) {
	b, err := json.Marshal(struct{ T PortType }{Boolean})
	require.NoError(t, err)
	assert.JSONEq(t, `{"T":"BOOLEAN"}`, string(b))

	var out struct {
		T PortType `yaml:"t"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("t: item\n"), &out))
	assert.Equal(t, Item, out.T)
}
