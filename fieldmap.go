package conform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FieldRules pairs a field with its rules.
// Spec is anything CompileRuleSet accepts.
type FieldRules struct {
	Field string
	Spec  any
}

// FieldMap is an ordered mapping of fields to rules. Fields
// are conformed in order, and later fields can see the output and errors of
// earlier ones.
//
// A field named "" never produces output; use it for rules that only check
// or mutate other fields.
type FieldMap []FieldRules

// Fields builds a FieldMap from alternating field names and rule specs.
//
//	conform.Fields("name", "f.trim v.filled", "age", "f.int v.min|18")
func Fields(pairs ...any) (FieldMap, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of arguments", ErrInvalidFieldMap)
	}
	fm := make(FieldMap, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		field, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: field name at %d must be a string, got %T", ErrInvalidFieldMap, i, pairs[i])
		}
		fm = append(fm, FieldRules{Field: field, Spec: pairs[i+1]})
	}
	return fm, nil
}

// MustFields is like Fields but panics on error.
func MustFields(pairs ...any) FieldMap {
	fm, err := Fields(pairs...)
	if err != nil {
		panic(err)
	}
	return fm
}

// FieldMapFrom builds a FieldMap from an unordered map. Go maps carry no
// order, so fields are sorted by name.
func FieldMapFrom(m map[string]any) FieldMap {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fm := make(FieldMap, 0, len(m))
	for _, name := range names {
		fm = append(fm, FieldRules{Field: name, Spec: m[name]})
	}
	return fm
}

// Add appends a field and returns the extended map.
func (fm FieldMap) Add(field string, spec any) FieldMap {
	return append(fm, FieldRules{Field: field, Spec: spec})
}

// Compile compiles every rule spec, failing on the first malformed one.
func (fm FieldMap) Compile() (map[string][]Rule, error) {
	compiled := make(map[string][]Rule, len(fm))
	for _, fr := range fm {
		rules, err := CompileRuleSet(fr.Spec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fr.Field, err)
		}
		compiled[fr.Field] = append(compiled[fr.Field], rules...)
	}
	return compiled, nil
}

///////////////////////////////////////////////////////////////////////////////
// YAML Loading
///////////////////////////////////////////////////////////////////////////////

// ParseFieldMapYAML decodes a YAML mapping of fields to rules, keeping the
// document's key order.
//
//	name: f.trim v.filled
//	age:
//	  - f.int
//	  - [v.range, 18, 130]
func ParseFieldMapYAML(data []byte) (FieldMap, error) {
	return ReadFieldMapYAML(bytes.NewReader(data))
}

// ReadFieldMapYAML is ParseFieldMapYAML over a reader.
func ReadFieldMapYAML(r io.Reader) (FieldMap, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return FieldMap{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidFieldMap, err)
	}

	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return FieldMap{}, nil
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping at %d:%d", ErrInvalidFieldMap, node.Line, node.Column)
	}

	fm := make(FieldMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: field name must be a scalar at %d:%d", ErrInvalidFieldMap, key.Line, key.Column)
		}
		spec, err := yamlSpec(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key.Value, err)
		}
		fm = append(fm, FieldRules{Field: key.Value, Spec: spec})
	}

	return fm, nil
}

// yamlSpec converts a YAML rule spec into the values CompileRuleSet accepts.
// Scalars become strings at the top level; inside rule arrays, typed
// scalars keep their YAML type so they can be passed as literal params.
func yamlSpec(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported rule spec at %d:%d", ErrInvalidFieldMap, n.Line, n.Column)
	}
}

func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := yamlValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return m, nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return nil, nil
		case "!!bool":
			if b, err := strconv.ParseBool(n.Value); err == nil {
				return b, nil
			}
			return n.Value, nil
		case "!!int":
			if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
				return i, nil
			}
			return n.Value, nil
		case "!!float":
			if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
				return f, nil
			}
			return n.Value, nil
		default:
			return n.Value, nil
		}
	case yaml.AliasNode:
		if n.Alias != nil {
			return yamlValue(n.Alias)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unsupported YAML node at %d:%d", ErrInvalidFieldMap, n.Line, n.Column)
	}
}
