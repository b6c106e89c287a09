// Package confignode provides the structured-document representation used for
// workflow and action configs. A Node is a tagged variant over the JSON data
// model (object/array/string/number/bool/null) with ordered object keys, so a
// config survives a parse/override/serialise round trip without type or key
// shuffling. Numbers are kept as json.Number to preserve the primitive type
// of the source document.
package confignode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies the variant held by a Node.
type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindArray
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// Node is one value in a structured config document.
type Node struct {
	kind Kind
	keys []string
	obj  map[string]*Node
	arr  []*Node
	str  string
	num  json.Number
	b    bool
}

// Object returns an empty object node.
func Object() *Node {
	return &Node{kind: KindObject, obj: make(map[string]*Node)}
}

// Array returns an array node holding the given elements.
func Array(elems ...*Node) *Node {
	return &Node{kind: KindArray, arr: elems}
}

// String returns a string node.
func String(s string) *Node {
	return &Node{kind: KindString, str: s}
}

// Number returns a number node from a json.Number literal.
func Number(n json.Number) *Node {
	return &Node{kind: KindNumber, num: n}
}

// Int returns a number node holding an integer.
func Int(v int64) *Node {
	return Number(json.Number(strconv.FormatInt(v, 10)))
}

// Float returns a number node holding a float.
func Float(v float64) *Node {
	return Number(json.Number(strconv.FormatFloat(v, 'g', -1, 64)))
}

// Bool returns a bool node.
func Bool(v bool) *Node {
	return &Node{kind: KindBool, b: v}
}

// Null returns a null node.
func Null() *Node {
	return &Node{kind: KindNull}
}

// Kind reports the variant of the node.
func (n *Node) Kind() Kind { return n.kind }

// IsObject reports whether the node is an object.
func (n *Node) IsObject() bool { return n != nil && n.kind == KindObject }

// IsArray reports whether the node is an array.
func (n *Node) IsArray() bool { return n != nil && n.kind == KindArray }

// IsString reports whether the node is a string.
func (n *Node) IsString() bool { return n != nil && n.kind == KindString }

// Get returns the value bound to key in an object node.
func (n *Node) Get(key string) (*Node, bool) {
	if !n.IsObject() {
		return nil, false
	}
	v, ok := n.obj[key]
	return v, ok
}

// Set binds key to v in an object node, preserving first-seen key order.
func (n *Node) Set(key string, v *Node) {
	if n.kind != KindObject {
		panic("confignode: Set on non-object node")
	}
	if _, exists := n.obj[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.obj[key] = v
}

// Keys returns the object keys in document order.
func (n *Node) Keys() []string {
	if !n.IsObject() {
		return nil
	}
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Len returns the element count of an array node, or the key count of an
// object node.
func (n *Node) Len() int {
	switch n.kind {
	case KindArray:
		return len(n.arr)
	case KindObject:
		return len(n.keys)
	}
	return 0
}

// Index returns the i-th element of an array node.
func (n *Node) Index(i int) *Node {
	if !n.IsArray() || i < 0 || i >= len(n.arr) {
		return nil
	}
	return n.arr[i]
}

// Elements returns the backing slice of an array node. Callers must not
// mutate the slice header.
func (n *Node) Elements() []*Node {
	if !n.IsArray() {
		return nil
	}
	return n.arr
}

// Append adds an element to an array node.
func (n *Node) Append(v *Node) {
	if n.kind != KindArray {
		panic("confignode: Append on non-array node")
	}
	n.arr = append(n.arr, v)
}

// SetIndex replaces the i-th element of an array node.
func (n *Node) SetIndex(i int, v *Node) {
	if n.kind != KindArray || i < 0 || i >= len(n.arr) {
		panic("confignode: SetIndex out of range")
	}
	n.arr[i] = v
}

// StringValue returns the string held by a string node ("" otherwise).
func (n *Node) StringValue() string {
	if n == nil || n.kind != KindString {
		return ""
	}
	return n.str
}

// NumberValue returns the literal held by a number node.
func (n *Node) NumberValue() json.Number {
	return n.num
}

// Int64 converts a number node, or a string node holding a decimal literal,
// to an int64. The string form is accepted because loop values such as
// randomSeed may arrive as numeric strings.
func (n *Node) Int64() (int64, error) {
	switch n.kind {
	case KindNumber:
		return n.num.Int64()
	case KindString:
		return strconv.ParseInt(n.str, 10, 64)
	}
	return 0, fmt.Errorf("node is %s, not a number", n.kind)
}

// Float64 converts a number node to a float64.
func (n *Node) Float64() (float64, error) {
	if n.kind != KindNumber {
		return 0, fmt.Errorf("node is %s, not a number", n.kind)
	}
	return n.num.Float64()
}

// BoolValue returns the value held by a bool node.
func (n *Node) BoolValue() bool {
	return n != nil && n.kind == KindBool && n.b
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{kind: n.kind, str: n.str, num: n.num, b: n.b}
	switch n.kind {
	case KindObject:
		out.obj = make(map[string]*Node, len(n.obj))
		out.keys = make([]string, len(n.keys))
		copy(out.keys, n.keys)
		for k, v := range n.obj {
			out.obj[k] = v.Clone()
		}
	case KindArray:
		out.arr = make([]*Node, len(n.arr))
		for i, v := range n.arr {
			out.arr[i] = v.Clone()
		}
	}
	return out
}

// ParseJSON parses a JSON document into a Node, preserving object key order
// and numeric literals.
func ParseJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err == nil {
		return nil, fmt.Errorf("trailing data after document")
	}
	return n, nil
}

func parseValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Object()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := Array()
			for dec.More() {
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Append(val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return nil, fmt.Errorf("unexpected token %T", tok)
}

// ParseYAML parses a YAML document into a Node. Mapping order is preserved;
// scalars map onto the JSON data model (integers and floats both become
// number nodes).
func ParseYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Null(), nil
	}
	return fromYAML(doc.Content[0])
}

func fromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.MappingNode:
		obj := Object()
		for i := 0; i+1 < len(y.Content); i += 2 {
			val, err := fromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(y.Content[i].Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := Array()
		for _, c := range y.Content {
			val, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			arr.Append(val)
		}
		return arr, nil
	case yaml.ScalarNode:
		switch y.Tag {
		case "!!int", "!!float":
			return Number(json.Number(y.Value)), nil
		case "!!bool":
			v, err := strconv.ParseBool(y.Value)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad bool %q", y.Line, y.Value)
			}
			return Bool(v), nil
		case "!!null":
			return Null(), nil
		default:
			return String(y.Value), nil
		}
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	}
	return nil, fmt.Errorf("unsupported YAML node kind %d at line %d", y.Kind, y.Line)
}

// ParseFile parses a JSON or YAML config file based on its extension.
// Anything that is not .yaml/.yml is treated as JSON.
func ParseFile(path string, data []byte) (*Node, error) {
	if hasYAMLExt(path) {
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

func hasYAMLExt(path string) bool {
	n := len(path)
	return (n > 5 && path[n-5:] == ".yaml") || (n > 4 && path[n-4:] == ".yml")
}

// MarshalJSON serialises the node, preserving object key order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON parses JSON into the node in place, so Node fields can be
// embedded in struct types decoded with encoding/json.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.b))
	case KindNumber:
		if n.num == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(string(n.num))
		}
	case KindString:
		enc, err := json.Marshal(n.str)
		if err != nil {
			return err
		}
		buf.Write(enc)
	case KindArray:
		buf.WriteByte('[')
		for i, v := range n.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := v.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(enc)
			buf.WriteByte(':')
			if err := n.obj[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// EncodeIndent serialises the node as indented JSON for human inspection of
// materialised configs.
func (n *Node) EncodeIndent() ([]byte, error) {
	raw, err := n.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Interface converts the node to the generic representation used by the
// schema validator (map[string]any / []any / string / number / bool / nil).
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindNull:
		return nil
	case KindBool:
		return n.b
	case KindNumber:
		return n.num
	case KindString:
		return n.str
	case KindArray:
		out := make([]any, len(n.arr))
		for i, v := range n.arr {
			out[i] = v.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			out[k] = n.obj[k].Interface()
		}
		return out
	}
	return nil
}
