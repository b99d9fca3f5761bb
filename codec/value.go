package codec

import (
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zavdimka/cstruct/errors"
)

// Value is a decoded field value. It is one of Int, Uint, Float, Sequence or
// Struct.
type Value interface {
	isValue()
}

// Int holds signed integer primitives.
type Int int64

// Uint holds unsigned integer primitives and every bit-field.
type Uint uint64

// Float holds float and double primitives.
type Float float64

// Sequence holds array elements in order.
type Sequence []Value

// Member is one named entry of a Struct.
type Member struct {
	Name  string
	Value Value
}

// Struct holds a structure's members in declaration order.
type Struct []Member

func (Int) isValue()      {}
func (Uint) isValue()     {}
func (Float) isValue()    {}
func (Sequence) isValue() {}
func (Struct) isValue()   {}

// TypeName returns a short name for the variant held by v.
func TypeName(v Value) string {
	switch v.(type) {
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	case Sequence:
		return "sequence"
	case Struct:
		return "struct"
	case nil:
		return "nil"
	default:
		return reflect.TypeOf(v).String()
	}
}

// Get returns the member with the given name.
func (s Struct) Get(name string) (Value, bool) {
	for _, m := range s {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Set replaces the member with the given name, or appends it.
func (s Struct) Set(name string, v Value) Struct {
	for i := range s {
		if s[i].Name == name {
			s[i].Value = v
			return s
		}
	}
	return append(s, Member{Name: name, Value: v})
}

// Names returns member names in order.
func (s Struct) Names() []string {
	names := make([]string, len(s))
	for i, m := range s {
		names[i] = m.Name
	}
	return names
}

// lookup is used by the encoder; small structs are scanned linearly.
func (s Struct) lookup() func(string) (Value, bool) {
	if len(s) <= 8 {
		return s.Get
	}
	idx := make(map[string]Value, len(s))
	for _, m := range s {
		idx[m.Name] = m.Value
	}
	return func(name string) (Value, bool) {
		v, ok := idx[name]
		return v, ok
	}
}

// ToAny converts v into plain Go values: int64, uint64, float64, []any and
// map[string]any. Member order is lost.
func ToAny(v Value) any {
	switch v := v.(type) {
	case Int:
		return int64(v)
	case Uint:
		return uint64(v)
	case Float:
		return float64(v)
	case Sequence:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = ToAny(e)
		}
		return out
	case Struct:
		out := make(map[string]any, len(v))
		for _, m := range v {
			out[m.Name] = ToAny(m.Value)
		}
		return out
	default:
		return nil
	}
}

// FromAny converts dynamic Go values, such as those produced by JSON or YAML
// decoding, into a Value. Map keys are sorted since Go maps carry no order.
func FromAny(in any) (Value, error) {
	return fromAny(in, nil)
}

func fromAny(in any, path []string) (Value, error) {
	switch v := in.(type) {
	case Value:
		return v, nil
	case int:
		return Int(v), nil
	case int8:
		return Int(v), nil
	case int16:
		return Int(v), nil
	case int32:
		return Int(v), nil
	case int64:
		return Int(v), nil
	case uint:
		return Uint(v), nil
	case uint8:
		return Uint(v), nil
	case uint16:
		return Uint(v), nil
	case uint32:
		return Uint(v), nil
	case uint64:
		return Uint(v), nil
	case float32:
		return Float(v), nil
	case float64:
		return Float(v), nil
	case bool:
		if v {
			return Uint(1), nil
		}
		return Uint(0), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Struct, 0, len(v))
		for _, k := range keys {
			e, err := fromAny(v[k], append(path, k))
			if err != nil {
				return nil, err
			}
			out = append(out, Member{Name: k, Value: e})
		}
		return out, nil
	case nil:
		return nil, errors.New(errors.PhasePack, errors.KindInvalidInput).
			Path(path...).
			Detail("nil value").
			Build()
	}

	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make(Sequence, rv.Len())
		for i := range out {
			e, err := fromAny(rv.Index(i).Interface(), indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return fromAny(m, path)
	}

	return nil, errors.New(errors.PhasePack, errors.KindTypeMismatch).
		Path(path...).
		Detail("unsupported Go type %T", in).
		Build()
}

// FromYAML converts a YAML node into a Value, keeping mapping order.
func FromYAML(node *yaml.Node) (Value, error) {
	return fromYAML(node, nil)
}

func fromYAML(node *yaml.Node, path []string) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Struct{}, nil
		}
		return fromYAML(node.Content[0], path)
	case yaml.AliasNode:
		return fromYAML(node.Alias, path)
	case yaml.MappingNode:
		out := make(Struct, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			v, err := fromYAML(node.Content[i+1], append(path, key))
			if err != nil {
				return nil, err
			}
			out = out.Set(key, v)
		}
		return out, nil
	case yaml.SequenceNode:
		out := make(Sequence, len(node.Content))
		for i, c := range node.Content {
			v, err := fromYAML(c, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case yaml.ScalarNode:
		return scalarFromYAML(node, path)
	}
	return nil, errors.New(errors.PhasePack, errors.KindInvalidInput).
		Path(path...).
		Detail("unsupported YAML node at line %d", node.Line).
		Build()
}

// scalarFromYAML converts a scalar node. Null yields a nil Value, which
// the encoder treats as a missing member.
func scalarFromYAML(node *yaml.Node, path []string) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!int":
		s := strings.ReplaceAll(node.Value, "_", "")
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return Int(i), nil
		}
		if u, err := strconv.ParseUint(s, 0, 64); err == nil {
			return Uint(u), nil
		}
	case "!!float":
		switch strings.ToLower(node.Value) {
		case ".inf", "+.inf":
			return Float(math.Inf(1)), nil
		case "-.inf":
			return Float(math.Inf(-1)), nil
		case ".nan":
			return Float(math.NaN()), nil
		}
		if f, err := strconv.ParseFloat(node.Value, 64); err == nil {
			return Float(f), nil
		}
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err == nil {
			if b {
				return Uint(1), nil
			}
			return Uint(0), nil
		}
	}
	return nil, errors.New(errors.PhasePack, errors.KindTypeMismatch).
		Path(path...).
		Detail("line %d: %q is not a number", node.Line, node.Value).
		Build()
}

// MarshalYAML implements yaml.Marshaler, emitting members in order.
func (s Struct) MarshalYAML() (any, error) {
	return toYAML(s), nil
}

func toYAML(v Value) *yaml.Node {
	switch v := v.(type) {
	case Int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(v), 10)}
	case Uint:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(uint64(v), 10)}
	case Float:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(float64(v))}
	case Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		flow := true
		for _, e := range v {
			c := toYAML(e)
			if c.Kind != yaml.ScalarNode {
				flow = false
			}
			n.Content = append(n.Content, c)
		}
		if flow {
			n.Style = yaml.FlowStyle
		}
		return n
	case Struct:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range v {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Name},
				toYAML(m.Value))
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func indexPath(path []string, i int) []string {
	if len(path) == 0 {
		return []string{"[" + strconv.Itoa(i) + "]"}
	}
	out := append([]string{}, path...)
	out[len(out)-1] += "[" + strconv.Itoa(i) + "]"
	return out
}
