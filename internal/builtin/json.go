package builtin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/oxhq/zenlang/internal/value"
	"gopkg.in/yaml.v3"
)

// maxDecodeBytes is the 64 MiB size cap shared by jsonParse/loadJsonFile/
// loadYamlFile.
const maxDecodeBytes = 64 * 1024 * 1024

// ParseJSON decodes a JSON string into a Value tree, token by token, so
// object keys keep their document order (Object values preserve insertion
// order; decoding through map[string]any would randomize it). Infinity/NaN
// are rejected: they have no JSON representation.
func ParseJSON(s string) (*value.Value, error) {
	if len(s) > maxDecodeBytes {
		return nil, fmt.Errorf("json payload exceeds %d byte limit", maxDecodeBytes)
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		value.Unref(v)
		return nil, fmt.Errorf("invalid json: trailing data after document")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (*value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			return decodeJSONArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %s", t)
	case string:
		return value.NewString(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return value.NewNumber(f), nil
	case bool:
		return value.NewBoolean(t), nil
	case nil:
		return value.NewNull(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func decodeJSONObject(dec *json.Decoder) (*value.Value, error) {
	obj := value.NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			value.Unref(obj)
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			value.Unref(obj)
			return nil, fmt.Errorf("object key is not a string: %v", keyTok)
		}
		val, err := decodeJSONValue(dec)
		if err != nil {
			value.Unref(obj)
			return nil, err
		}
		obj.ObjectSet(key, val)
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		value.Unref(obj)
		return nil, err
	}
	return obj, nil
}

func decodeJSONArray(dec *json.Decoder) (*value.Value, error) {
	arr := value.NewArray()
	for dec.More() {
		elem, err := decodeJSONValue(dec)
		if err != nil {
			value.Unref(arr)
			return nil, err
		}
		arr.ArrayPush(elem)
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		value.Unref(arr)
		return nil, err
	}
	return arr, nil
}

// ParseYAML decodes a restricted flat key:value YAML document, keeping the
// keys in document order. Nested maps and sequences are not supported; use
// JSON for anything richer.
func ParseYAML(s string) (*value.Value, error) {
	if len(s) > maxDecodeBytes {
		return nil, fmt.Errorf("yaml payload exceeds %d byte limit", maxDecodeBytes)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	obj := value.NewObject()
	if len(doc.Content) == 0 {
		return obj, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		value.Unref(obj)
		return nil, fmt.Errorf("yaml root must be a key: value mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		if valNode.Kind != yaml.ScalarNode {
			value.Unref(obj)
			return nil, fmt.Errorf("yaml key %q: nested structures are not supported", keyNode.Value)
		}
		var scalar any
		if err := valNode.Decode(&scalar); err != nil {
			value.Unref(obj)
			return nil, fmt.Errorf("yaml key %q: %w", keyNode.Value, err)
		}
		obj.ObjectSet(keyNode.Value, yamlScalar(scalar))
	}
	return obj, nil
}

func yamlScalar(v any) *value.Value {
	switch t := v.(type) {
	case nil:
		return value.NewNull()
	case bool:
		return value.NewBoolean(t)
	case int:
		return value.NewNumber(float64(t))
	case int64:
		return value.NewNumber(float64(t))
	case float64:
		return value.NewNumber(t)
	case string:
		return value.NewString(t)
	default:
		return value.NewString(fmt.Sprintf("%v", t))
	}
}

// StringifyJSON renders a Value as JSON text, walking the Value directly
// so object keys serialize in insertion order. indent == "" produces
// compact output; any other string is used as the per-level indent
// (jsonPretty). NaN and the infinities serialize as null.
func StringifyJSON(v *value.Value, indent string) string {
	var buf bytes.Buffer
	writeJSON(&buf, v, indent, 0)
	return buf.String()
}

func writeJSON(buf *bytes.Buffer, v *value.Value, indent string, depth int) {
	if v == nil {
		buf.WriteString("null")
		return
	}
	switch v.Kind() {
	case value.Null:
		buf.WriteString("null")
	case value.Boolean:
		if v.Bool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case value.Number:
		buf.WriteString(formatJSONNumber(v.Num()))
	case value.String:
		writeJSONString(buf, v.Str())
	case value.Array:
		elems := v.ArrayElements()
		if len(elems) == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteByte('[')
		for i, e := range elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			newlineIndent(buf, indent, depth+1)
			writeJSON(buf, e, indent, depth+1)
		}
		newlineIndent(buf, indent, depth)
		buf.WriteByte(']')
	case value.Object:
		if value.Len(v) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteByte('{')
		first := true
		v.ObjectEach(func(k string, e *value.Value) {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			newlineIndent(buf, indent, depth+1)
			writeJSONString(buf, k)
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			writeJSON(buf, e, indent, depth+1)
		})
		newlineIndent(buf, indent, depth)
		buf.WriteByte('}')
	default:
		// Function/Error/Class/Instance have no JSON form; fall back to
		// the canonical text rendering as a string
		writeJSONString(buf, value.ToString(v))
	}
}

func formatJSONNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "null"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func newlineIndent(buf *bytes.Buffer, indent string, depth int) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString(indent)
	}
}
