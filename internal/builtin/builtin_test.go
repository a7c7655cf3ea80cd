package builtin

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/zenlang/internal/value"
)

func newTestRegistry() (*Registry, *bytes.Buffer) {
	var out bytes.Buffer
	return New(&out, strings.NewReader("")), &out
}

func call(t *testing.T, r *Registry, name string, args ...*value.Value) *value.Value {
	t.Helper()
	v, err := r.Call(name, args)
	require.NoError(t, err)
	return v
}

func TestPrint_SpaceSeparatedNewlineTerminated(t *testing.T) {
	r, out := newTestRegistry()
	res := call(t, r, "print", value.NewNumber(1), value.NewString("two"), value.NewBoolean(true))
	assert.Equal(t, "1 two true\n", out.String())
	assert.Equal(t, value.Null, res.Kind())
}

func TestLen(t *testing.T) {
	r, _ := newTestRegistry()
	arr := value.NewArray()
	arr.ArrayPush(value.NewNumber(1))
	arr.ArrayPush(value.NewNumber(2))

	assert.Equal(t, float64(2), call(t, r, "len", arr).Num())
	assert.Equal(t, float64(3), call(t, r, "len", value.NewString("abc")).Num())
	assert.Equal(t, float64(0), call(t, r, "len", value.NewNumber(42)).Num())
}

func TestTypeAndIsType(t *testing.T) {
	r, _ := newTestRegistry()
	assert.Equal(t, "number", call(t, r, "type", value.NewNumber(1)).Str())
	assert.Equal(t, "error", call(t, r, "type", value.NewError("x", -1)).Str())
	assert.True(t, call(t, r, "isType", value.NewString("s"), value.NewString("string")).Bool())
	assert.False(t, call(t, r, "isType", value.NewString("s"), value.NewString("number")).Bool())
}

func TestConversions(t *testing.T) {
	r, _ := newTestRegistry()
	assert.Equal(t, "true", call(t, r, "toString", value.NewBoolean(true)).Str())
	assert.Equal(t, float64(42), call(t, r, "toNumber", value.NewString("42")).Num())
	assert.True(t, call(t, r, "toBoolean", value.NewNumber(1)).Bool())
	assert.False(t, call(t, r, "toBoolean", value.NewString("")).Bool())
}

func TestToNumber_ErrorCodeIsQueryable(t *testing.T) {
	r, _ := newTestRegistry()
	e := value.NewError("boom", 7)
	assert.Equal(t, float64(7), call(t, r, "toNumber", e).Num())
	unspecified := value.NewError("boom", -1)
	assert.Equal(t, float64(-1), call(t, r, "toNumber", unspecified).Num())
}

// parseInt covers explicit bases, unparseable input, and the 2..36 bound.
func TestParseInt(t *testing.T) {
	r, _ := newTestRegistry()

	assert.Equal(t, float64(255), call(t, r, "parseInt", value.NewString("ff"), value.NewNumber(16)).Num())
	assert.Equal(t, float64(2), call(t, r, "parseInt", value.NewString("10"), value.NewNumber(2)).Num())
	assert.Equal(t, float64(0), call(t, r, "parseInt", value.NewString("x")).Num())

	bad := call(t, r, "parseInt", value.NewString("1"), value.NewNumber(1))
	require.Equal(t, value.Error, bad.Kind())
	assert.Equal(t, "base must be between 2 and 36", bad.Message())
}

func TestParseFloat(t *testing.T) {
	r, _ := newTestRegistry()
	assert.Equal(t, 1.5, call(t, r, "parseFloat", value.NewString("1.5")).Num())
	assert.Equal(t, float64(0), call(t, r, "parseFloat", value.NewString("nope")).Num())
}

func TestErrorArgumentsPropagateThroughBuiltins(t *testing.T) {
	r, _ := newTestRegistry()
	e := value.NewError("boom", 4)

	// len does not accept errors: the error propagates as the result.
	res := call(t, r, "len", e)
	require.Equal(t, value.Error, res.Kind())
	assert.Equal(t, "boom", res.Message())

	// type explicitly accepts errors and reports the kind instead.
	assert.Equal(t, "error", call(t, r, "type", e).Str())
}

func TestInput_ReadsLineAndStripsNewline(t *testing.T) {
	var out bytes.Buffer
	r := New(&out, strings.NewReader("hello world\n"))
	res := call(t, r, "input", value.NewString("> "))
	assert.Equal(t, "> ", out.String())
	assert.Equal(t, "hello world", res.Str())
}

func TestJSONParse(t *testing.T) {
	v, err := ParseJSON(`{"a": 1, "b": [true, null, "x"]}`)
	require.NoError(t, err)
	require.Equal(t, value.Object, v.Kind())
	assert.Equal(t, float64(1), v.ObjectGet("a").Num())
	b := v.ObjectGet("b")
	require.Equal(t, value.Array, b.Kind())
	assert.Equal(t, 3, value.Len(b))
	assert.Equal(t, value.Null, b.ArrayGet(1).Kind())
}

func TestJSONParse_RejectsInvalid(t *testing.T) {
	_, err := ParseJSON("{not json")
	assert.Error(t, err)
}

// TestJSONRoundTrip: stringify then parse preserves JSON-subset values,
// including object key order, so the compact rendering is byte-stable.
func TestJSONRoundTrip(t *testing.T) {
	src := `{"a":[1,"x",true,null],"b":2.5}`
	v, err := ParseJSON(src)
	require.NoError(t, err)
	assert.Equal(t, src, StringifyJSON(v, ""))

	again, err := ParseJSON(StringifyJSON(v, ""))
	require.NoError(t, err)
	assert.Equal(t, float64(2.5), again.ObjectGet("b").Num())
	assert.Equal(t, "x", again.ObjectGet("a").ArrayGet(1).Str())
}

func TestJSONParse_PreservesKeyOrder(t *testing.T) {
	v, err := ParseJSON(`{"z": 1, "a": 2, "m": 3}`)
	require.NoError(t, err)
	keys := v.ObjectKeys()
	require.Equal(t, 3, value.Len(keys))
	assert.Equal(t, "z", keys.ArrayGet(0).Str())
	assert.Equal(t, "a", keys.ArrayGet(1).Str())
	assert.Equal(t, "m", keys.ArrayGet(2).Str())
}

func TestJSONParse_RejectsTrailingData(t *testing.T) {
	_, err := ParseJSON(`{"a": 1} extra`)
	assert.Error(t, err)
}

func TestJSONStringify_Pretty(t *testing.T) {
	obj := value.NewObject()
	obj.ObjectSet("a", value.NewNumber(1))
	pretty := StringifyJSON(obj, "  ")
	assert.Contains(t, pretty, "\n")
	assert.Contains(t, pretty, `"a": 1`)
}

func TestParseYAML_FlatKeyValue(t *testing.T) {
	v, err := ParseYAML("name: zen\ncount: 3\nok: true")
	require.NoError(t, err)
	require.Equal(t, value.Object, v.Kind())
	assert.Equal(t, "zen", v.ObjectGet("name").Str())
	assert.Equal(t, float64(3), v.ObjectGet("count").Num())
	assert.True(t, v.ObjectGet("ok").Bool())
}

func TestParseYAML_RejectsNestedStructures(t *testing.T) {
	_, err := ParseYAML("outer:\n  inner: 1")
	assert.Error(t, err)
}

func TestParseYAML_PreservesKeyOrder(t *testing.T) {
	v, err := ParseYAML("zeta: 1\nalpha: 2\nmid: 3")
	require.NoError(t, err)
	keys := v.ObjectKeys()
	require.Equal(t, 3, value.Len(keys))
	assert.Equal(t, "zeta", keys.ArrayGet(0).Str())
	assert.Equal(t, "alpha", keys.ArrayGet(1).Str())
	assert.Equal(t, "mid", keys.ArrayGet(2).Str())
}
