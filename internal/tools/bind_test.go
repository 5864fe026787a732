// ABOUTME: Tests for argument binding and kind conversion.
// ABOUTME: Covers defaults, missing arguments, range checks and progress params.

package tools

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawArgs(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestBind_Integers(t *testing.T) {
	args, err := Bind([]Param{Arg[int]("a"), Arg[int]("b")}, rawArgs(t, `{"a":5,"b":3}`), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), args.Int("a"))
	assert.Equal(t, int64(3), args.Int("b"))
}

func TestBind_LenientNumbers(t *testing.T) {
	params := []Param{Arg[int32]("n"), Arg[float64]("f"), Arg[uint8]("u")}

	args, err := Bind(params, rawArgs(t, `{"n":"42","f":"2.5","u":7.0}`), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), args.Int("n"))
	assert.Equal(t, 2.5, args.Float("f"))
	assert.Equal(t, uint64(7), args.Uint("u"))
}

func TestBind_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params []Param
		args   string
		msg    string
	}{
		{"missing required", []Param{Arg[int]("a")}, `{}`, "missing required argument 'a'"},
		{"null required", []Param{Arg[int]("a")}, `{"a":null}`, "missing required argument 'a'"},
		{"string for int", []Param{Arg[int]("a")}, `{"a":"five"}`, "argument 'a'"},
		{"fraction for int", []Param{Arg[int]("a")}, `{"a":1.5}`, "expected integer"},
		{"int8 overflow", []Param{Arg[int8]("a")}, `{"a":300}`, "out of range"},
		{"negative uint", []Param{Arg[uint]("a")}, `{"a":-1}`, "out of range"},
		{"object for string", []Param{Arg[string]("s")}, `{"s":{"x":1}}`, "expected string, got object"},
		{"array for bool", []Param{Arg[bool]("b")}, `{"b":[true]}`, "expected boolean, got array"},
		{"bad bool string", []Param{Arg[bool]("b")}, `{"b":"maybe"}`, "expected boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(tt.params, rawArgs(t, tt.args), nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "expected ErrInvalidArgument, got %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestBind_Defaults(t *testing.T) {
	params := []Param{
		Arg[string]("key"),
		Opt("namespace", "default"),
		Opt("limit", 20),
		Opt("ratio", float32(0.5)),
	}

	args, err := Bind(params, rawArgs(t, `{"key":"k"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "k", args.String("key"))
	assert.Equal(t, "default", args.String("namespace"))
	assert.Equal(t, int64(20), args.Get("limit"))
	assert.Equal(t, float64(0.5), args.Get("ratio"))
}

func TestBind_IgnoresUnknownArguments(t *testing.T) {
	args, err := Bind([]Param{Arg[string]("a")}, rawArgs(t, `{"a":"x","extra":1}`), nil)
	require.NoError(t, err)
	assert.Nil(t, args.Get("extra"))
}

func TestBind_StringsAndBools(t *testing.T) {
	args, err := Bind(
		[]Param{Arg[string]("s"), Arg[string]("n"), Arg[bool]("b"), Arg[bool]("bs")},
		rawArgs(t, `{"s":"hi","n":12,"b":true,"bs":"false"}`),
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "hi", args.String("s"))
	assert.Equal(t, "12", args.String("n"))
	assert.True(t, args.Bool("b"))
	assert.False(t, args.Bool("bs"))
}

func TestBind_ObjectDecode(t *testing.T) {
	args, err := Bind([]Param{Arg[point]("p")}, rawArgs(t, `{"p":{"X":1,"Y":2}}`), nil)
	require.NoError(t, err)

	var p point
	require.NoError(t, args.Decode("p", &p))
	assert.Equal(t, point{X: 1, Y: 2}, p)

	assert.ErrorIs(t, args.Decode("missing", &p), ErrInvalidArgument)
}

type recordingProgress struct {
	messages []string
}

func (r *recordingProgress) Report(_, _ float64, message string) {
	r.messages = append(r.messages, message)
}

func TestBind_ProgressParam(t *testing.T) {
	rec := &recordingProgress{}
	params := []Param{Arg[string]("ns"), ProgressParam("progress")}

	args, err := Bind(params, rawArgs(t, `{"ns":"default","progress":"ignored"}`), rec)
	require.NoError(t, err)

	assert.Equal(t, "default", args.String("ns"))
	assert.Nil(t, args.Get("progress"))
	assert.Same(t, rec, args.Progress())

	args.Progress().Report(1, 2, "half")
	assert.Equal(t, []string{"half"}, rec.messages)
}

func TestBind_NilProgressUsesNop(t *testing.T) {
	args, err := Bind([]Param{ProgressParam("p")}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, NopProgress, args.Progress())
}
