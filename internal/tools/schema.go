// ABOUTME: Infers the JSON Schema advertised for a tool from its declared parameters.
// ABOUTME: Pure and deterministic; computed once at registration and never mutated.

package tools

import (
	"bytes"
	"encoding/json"
)

// JSON Schema type names used in tool input schemas.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
)

// Property is one entry of a schema's properties object.
type Property struct {
	Name string
	Type string
}

// Properties keeps schema properties in declaration order.
type Properties []Property

// MarshalJSON renders the properties as a JSON object, preserving order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(`:{"type":`)
		typ, err := json.Marshal(prop.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(typ)
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a properties object. Key order follows the input.
func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	var props Properties
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var body struct {
			Type string `json:"type"`
		}
		if err := dec.Decode(&body); err != nil {
			return err
		}
		props = append(props, Property{Name: name, Type: body.Type})
	}
	*p = props
	return nil
}

// Lookup returns the type of the named property.
func (p Properties) Lookup(name string) (string, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Type, true
		}
	}
	return "", false
}

// Schema is the input schema of a tool.
type Schema struct {
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Required   []string   `json:"required"`
}

// InferSchema derives the input schema for a parameter list. Progress
// parameters are left out entirely.
func InferSchema(params []Param) *Schema {
	s := &Schema{
		Type:       TypeObject,
		Properties: make(Properties, 0, len(params)),
		Required:   make([]string, 0, len(params)),
	}
	for _, p := range params {
		if p.Kind == KindProgress {
			continue
		}
		s.Properties = append(s.Properties, Property{Name: p.Name, Type: JSONType(p.Kind)})
		if p.Required() {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// JSONType maps a parameter kind to its JSON Schema type.
func JSONType(k Kind) string {
	switch {
	case k == KindString:
		return TypeString
	case k.IsInteger():
		return TypeInteger
	case k.IsFloat():
		return TypeNumber
	case k == KindBool:
		return TypeBoolean
	default:
		return TypeObject
	}
}
