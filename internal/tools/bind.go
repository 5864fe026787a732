// ABOUTME: Binds caller-supplied JSON arguments to a tool's declared parameters.
// ABOUTME: Converts each value to its declared kind and applies defaults.

package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidArgument indicates the caller's arguments do not fit the tool's parameters.
var ErrInvalidArgument = errors.New("invalid argument")

// Progress receives out-of-band progress updates from a running tool.
type Progress interface {
	Report(progress, total float64, message string)
}

// NopProgress discards progress updates.
var NopProgress Progress = nopProgress{}

type nopProgress struct{}

func (nopProgress) Report(float64, float64, string) {}

// Args holds bound argument values for one invocation.
type Args struct {
	values   map[string]any
	progress Progress
}

// Get returns the bound value for name, or nil.
func (a Args) Get(name string) any {
	return a.values[name]
}

// String returns the named argument as a string.
func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// Int returns the named argument as an int64.
func (a Args) Int(name string) int64 {
	switch n := a.values[name].(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}

// Uint returns the named argument as a uint64.
func (a Args) Uint(name string) uint64 {
	switch n := a.values[name].(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	case int:
		return uint64(n)
	}
	return 0
}

// Float returns the named argument as a float64.
func (a Args) Float(name string) float64 {
	switch n := a.values[name].(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}

// Bool returns the named argument as a bool.
func (a Args) Bool(name string) bool {
	b, _ := a.values[name].(bool)
	return b
}

// Decode unmarshals an object argument into v.
func (a Args) Decode(name string, v any) error {
	switch raw := a.values[name].(type) {
	case nil:
		return fmt.Errorf("%w: argument '%s' not set", ErrInvalidArgument, name)
	case json.RawMessage:
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("%w: argument '%s': %v", ErrInvalidArgument, name, err)
		}
		return nil
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("%w: argument '%s': %v", ErrInvalidArgument, name, err)
		}
		return json.Unmarshal(data, v)
	}
}

// Progress returns the progress reporter for this invocation.
func (a Args) Progress() Progress {
	if a.progress == nil {
		return NopProgress
	}
	return a.progress
}

// Bind matches args to params by name. Missing optional params receive
// their default; missing required params and unconvertible values fail
// with ErrInvalidArgument. Unknown argument names are ignored.
func Bind(params []Param, args map[string]json.RawMessage, progress Progress) (Args, error) {
	if progress == nil {
		progress = NopProgress
	}
	bound := Args{
		values:   make(map[string]any, len(params)),
		progress: progress,
	}
	for _, p := range params {
		if p.Kind == KindProgress {
			continue
		}
		raw, ok := args[p.Name]
		if !ok || isNull(raw) {
			if p.HasDefault {
				bound.values[p.Name] = p.Default
				continue
			}
			return Args{}, fmt.Errorf("%w: missing required argument '%s'", ErrInvalidArgument, p.Name)
		}
		v, err := convert(p.Kind, raw)
		if err != nil {
			return Args{}, fmt.Errorf("%w: argument '%s': %v", ErrInvalidArgument, p.Name, err)
		}
		bound.values[p.Name] = v
	}
	return bound, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func convert(kind Kind, raw json.RawMessage) (any, error) {
	switch {
	case kind == KindString:
		return convertString(raw)
	case kind == KindBool:
		return convertBool(raw)
	case kind.IsUnsigned():
		return convertUint(kind, raw)
	case kind.IsInteger():
		return convertInt(kind, raw)
	case kind.IsFloat():
		return convertFloat(kind, raw)
	default:
		return json.RawMessage(bytes.TrimSpace(raw)), nil
	}
}

func decodeScalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func convertString(raw json.RawMessage) (any, error) {
	v, err := decodeScalar(raw)
	if err != nil {
		return nil, err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return nil, fmt.Errorf("expected string, got %s", describe(v))
	}
}

func convertBool(raw json.RawMessage) (any, error) {
	v, err := decodeScalar(raw)
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", b)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("expected boolean, got %s", describe(v))
	}
}

// numberText extracts the textual number from a JSON number or numeric string.
func numberText(raw json.RawMessage) (string, error) {
	v, err := decodeScalar(raw)
	if err != nil {
		return "", err
	}
	switch n := v.(type) {
	case json.Number:
		return n.String(), nil
	case string:
		return strings.TrimSpace(n), nil
	default:
		return "", fmt.Errorf("expected number, got %s", describe(v))
	}
}

var intBits = map[Kind]int{
	KindInt:    strconv.IntSize,
	KindInt8:   8,
	KindInt16:  16,
	KindInt32:  32,
	KindInt64:  64,
	KindUint:   strconv.IntSize,
	KindUint8:  8,
	KindUint16: 16,
	KindUint32: 32,
	KindUint64: 64,
}

func convertInt(kind Kind, raw json.RawMessage) (any, error) {
	text, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	bits := intBits[kind]
	n, err := strconv.ParseInt(text, 10, bits)
	if err == nil {
		return n, nil
	}
	// Accept integral floats such as 5.0 or 1e3.
	f, ferr := strconv.ParseFloat(text, 64)
	if ferr != nil || f != math.Trunc(f) {
		return nil, fmt.Errorf("expected integer, got %s", text)
	}
	limit := math.Ldexp(1, bits-1)
	if f < -limit || f >= limit {
		return nil, fmt.Errorf("value %s out of range for %s", text, kind)
	}
	return int64(f), nil
}

func convertUint(kind Kind, raw json.RawMessage) (any, error) {
	text, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	bits := intBits[kind]
	n, err := strconv.ParseUint(text, 10, bits)
	if err == nil {
		return n, nil
	}
	f, ferr := strconv.ParseFloat(text, 64)
	if ferr != nil || f != math.Trunc(f) {
		return nil, fmt.Errorf("expected unsigned integer, got %s", text)
	}
	if f < 0 || f >= math.Ldexp(1, bits) {
		return nil, fmt.Errorf("value %s out of range for %s", text, kind)
	}
	return uint64(f), nil
}

func convertFloat(kind Kind, raw json.RawMessage) (any, error) {
	text, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	bits := 64
	if kind == KindFloat32 {
		bits = 32
	}
	f, err := strconv.ParseFloat(text, bits)
	if err != nil {
		return nil, fmt.Errorf("expected number, got %s", text)
	}
	return f, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
