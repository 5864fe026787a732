// ABOUTME: Tests for schema inference from declared parameters.
// ABOUTME: Validates kind mapping, required ordering, and wire rendering.

package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferSchema_Add(t *testing.T) {
	s := InferSchema([]Param{Arg[int]("a"), Arg[int]("b")})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"object","properties":{"a":{"type":"integer"},"b":{"type":"integer"}},"required":["a","b"]}`,
		string(data))
}

func TestInferSchema_PreservesDeclarationOrder(t *testing.T) {
	s := InferSchema([]Param{Arg[string]("zeta"), Arg[bool]("alpha"), Opt[float64]("mid", 1.5)})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t,
		`{"type":"object","properties":{"zeta":{"type":"string"},"alpha":{"type":"boolean"},"mid":{"type":"number"}},"required":["zeta","alpha"]}`,
		string(data))
}

func TestInferSchema_EmptyParams(t *testing.T) {
	data, err := json.Marshal(InferSchema(nil))
	require.NoError(t, err)
	assert.Equal(t, `{"type":"object","properties":{},"required":[]}`, string(data))
}

func TestInferSchema_ExcludesProgress(t *testing.T) {
	s := InferSchema([]Param{Arg[string]("namespace"), ProgressParam("progress")})

	require.Len(t, s.Properties, 1)
	assert.Equal(t, "namespace", s.Properties[0].Name)
	assert.Equal(t, []string{"namespace"}, s.Required)
}

func TestInferSchema_Idempotent(t *testing.T) {
	params := []Param{Arg[int64]("n"), Opt[string]("sep", ",")}
	first, err := json.Marshal(InferSchema(params))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(InferSchema(params))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

type point struct{ X, Y int }

func TestJSONType(t *testing.T) {
	tests := []struct {
		name  string
		param Param
		want  string
	}{
		{"string", Arg[string]("v"), TypeString},
		{"int", Arg[int]("v"), TypeInteger},
		{"int8", Arg[int8]("v"), TypeInteger},
		{"int16", Arg[int16]("v"), TypeInteger},
		{"int32", Arg[int32]("v"), TypeInteger},
		{"int64", Arg[int64]("v"), TypeInteger},
		{"uint", Arg[uint]("v"), TypeInteger},
		{"uint8", Arg[uint8]("v"), TypeInteger},
		{"uint16", Arg[uint16]("v"), TypeInteger},
		{"uint32", Arg[uint32]("v"), TypeInteger},
		{"uint64", Arg[uint64]("v"), TypeInteger},
		{"float32", Arg[float32]("v"), TypeNumber},
		{"float64", Arg[float64]("v"), TypeNumber},
		{"bool", Arg[bool]("v"), TypeBoolean},
		{"struct", Arg[point]("v"), TypeObject},
		{"map", Arg[map[string]any]("v"), TypeObject},
		{"slice", Arg[[]string]("v"), TypeObject},
		{"unknown kind", Param{Name: "v", Kind: Kind(99)}, TypeObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JSONType(tt.param.Kind))
		})
	}
}

func TestProperties_RoundTrip(t *testing.T) {
	in := Properties{{Name: "b", Type: TypeString}, {Name: "a", Type: TypeInteger}}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Properties
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	typ, ok := out.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, TypeInteger, typ)
}
