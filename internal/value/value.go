// Package value implements Zen's runtime value model: a tagged union with
// explicit reference counting.
//
// Values are never shared implicitly. A caller that stores a Value in a
// container, a scope binding, or any other structure owning it longer than
// the current expression must call Ref; whoever releases that ownership
// calls Unref. Unref recursively releases owned children once the count
// reaches zero.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant of the tagged union a Value holds.
type Kind int

const (
	Null Kind = iota
	Boolean
	Number
	String
	Array
	Object
	Function
	Error
	Class
	Instance
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Boolean:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	case Function:
		return "function"
	case Error:
		return "error"
	case Class:
		return "class"
	case Instance:
		return "instance"
	}
	return "unknown"
}

// entry is one (key, value) pair of an Object, in insertion order.
type entry struct {
	key string
	val *Value
}

// Closure is the payload of a Function value: the AST node (an *ast.Node
// of KindFunctionDefinition or KindLambda, kept as `any` here to avoid an
// import cycle with package ast) plus the scope captured at creation time
// (an *scope.Scope, also kept as `any` for the same reason).
type Closure struct {
	Node  any
	Scope any
	Name  string
}

// ClassInfo is the payload of a Class value.
type ClassInfo struct {
	Name        string
	Parent      *Value // Class value, or nil
	Methods     *Value // Object value: method name -> Function value
	Constructor *Value // Function value, or nil
}

// InstanceInfo is the payload of an Instance value.
type InstanceInfo struct {
	Class      *Value // Class value
	Properties *Value // Object value
}

// Value is the runtime tagged union. Exactly one payload field is
// meaningful per Kind; callers must not read fields outside the current
// Kind.
type Value struct {
	kind    Kind
	refs    int
	boolean bool
	number  float64
	str     string
	arr     []*Value
	obj     []entry
	closure *Closure
	errMsg  string
	errCode int
	class   *ClassInfo
	inst    *InstanceInfo
}

// NewNull returns a fresh Null value (refcount 1).
func NewNull() *Value { return &Value{kind: Null, refs: 1} }

// NewBoolean returns a fresh Boolean value.
func NewBoolean(b bool) *Value { return &Value{kind: Boolean, refs: 1, boolean: b} }

// NewNumber returns a fresh Number value. Any f64, including NaN and ±Inf,
// is accepted without validation.
func NewNumber(n float64) *Value { return &Value{kind: Number, refs: 1, number: n} }

// NewString returns a fresh String value; the payload is copied.
func NewString(s string) *Value { return &Value{kind: String, refs: 1, str: s} }

// NewArray returns a fresh, empty Array value.
func NewArray() *Value { return &Value{kind: Array, refs: 1, arr: make([]*Value, 0, 8)} }

// NewArrayFrom builds an Array value owning the given elements (each is
// expected to already carry a reference the caller is transferring).
func NewArrayFrom(elems []*Value) *Value {
	return &Value{kind: Array, refs: 1, arr: elems}
}

// NewObject returns a fresh, empty Object value.
func NewObject() *Value { return &Value{kind: Object, refs: 1} }

// NewFunction returns a fresh Function value wrapping a closure.
func NewFunction(node any, capturedScope any, name string) *Value {
	return &Value{kind: Function, refs: 1, closure: &Closure{Node: node, Scope: capturedScope, Name: name}}
}

// NewError returns a fresh Error value. code is the numeric error code;
// pass -1 when unspecified.
func NewError(message string, code int) *Value {
	return &Value{kind: Error, refs: 1, errMsg: message, errCode: code}
}

// NewClass returns a fresh Class value.
func NewClass(name string, parent *Value, methods *Value, ctor *Value) *Value {
	return &Value{kind: Class, refs: 1, class: &ClassInfo{Name: name, Parent: parent, Methods: methods, Constructor: ctor}}
}

// NewInstance returns a fresh Instance value.
func NewInstance(class *Value, props *Value) *Value {
	return &Value{kind: Instance, refs: 1, inst: &InstanceInfo{Class: class, Properties: props}}
}

// Kind returns the value's tag.
func (v *Value) Kind() Kind { return v.kind }

// Refs returns the current reference count. Exposed for tests verifying
// ref-count hygiene.
func (v *Value) Refs() int { return v.refs }

// Ref increments the reference count and returns the same handle, so call
// sites can write `bound := value.Ref(v)`.
func Ref(v *Value) *Value {
	if v == nil {
		return v
	}
	v.refs++
	return v
}

// Unref decrements the reference count. At zero it releases owned children
// (recursively) and the value's own payload. Calling Unref past zero is a
// caller bug; it is a no-op here rather than a panic since the evaluator
// treats ref-count hygiene as an internal invariant, not a user-facing
// fault.
func Unref(v *Value) {
	if v == nil || v.refs <= 0 {
		return
	}
	v.refs--
	if v.refs > 0 {
		return
	}
	switch v.kind {
	case Array:
		for _, e := range v.arr {
			Unref(e)
		}
		v.arr = nil
	case Object:
		for _, e := range v.obj {
			Unref(e.val)
		}
		v.obj = nil
	case Instance:
		if v.inst != nil {
			Unref(v.inst.Properties)
			Unref(v.inst.Class)
		}
		v.inst = nil
	case Class:
		if v.class != nil {
			Unref(v.class.Methods)
			Unref(v.class.Parent)
			Unref(v.class.Constructor)
		}
		v.class = nil
	}
}

// Copy performs a deep copy for Array/Object/Instance, produces a new
// handle sharing the AST node and scope for Function, and
// payload duplication for everything else. The result has refcount 1 and
// is owned by the caller.
func Copy(v *Value) *Value {
	if v == nil {
		return nil
	}
	switch v.kind {
	case Null:
		return NewNull()
	case Boolean:
		return NewBoolean(v.boolean)
	case Number:
		return NewNumber(v.number)
	case String:
		return NewString(v.str)
	case Array:
		out := make([]*Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = Copy(e)
		}
		return NewArrayFrom(out)
	case Object:
		o := NewObject()
		for _, e := range v.obj {
			o.ObjectSet(e.key, Copy(e.val))
		}
		return o
	case Function:
		return NewFunction(v.closure.Node, v.closure.Scope, v.closure.Name)
	case Error:
		return NewError(v.errMsg, v.errCode)
	case Class:
		return NewClass(v.class.Name, Ref(v.class.Parent), Ref(v.class.Methods), Ref(v.class.Constructor))
	case Instance:
		return NewInstance(Ref(v.inst.Class), Copy(v.inst.Properties))
	}
	return NewNull()
}

// Truthy: null/error are false, booleans are themselves, numbers are
// nonzero-and-not-NaN, and empty containers/strings are false.
func Truthy(v *Value) bool {
	if v == nil {
		return false
	}
	switch v.kind {
	case Null, Error:
		return false
	case Boolean:
		return v.boolean
	case Number:
		return v.number != 0 && !math.IsNaN(v.number)
	case String:
		return v.str != ""
	case Array:
		return len(v.arr) > 0
	case Object:
		return len(v.obj) > 0
	default:
		return true
	}
}

// TypeName returns the value's type tag string.
func TypeName(v *Value) string {
	if v == nil {
		return "null"
	}
	return v.kind.String()
}

// Equals is structural for Null/Boolean/Number/
// String, reference identity for Array/Object/Function/Error/Class/
// Instance. NaN is never equal to NaN.
func Equals(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Boolean:
		return a.boolean == b.boolean
	case Number:
		return a.number == b.number
	case String:
		return a.str == b.str
	default:
		return a == b
	}
}

// ToString renders the canonical text form. The returned
// string is a fresh allocation owned by the caller (Go strings are
// immutable, so "fresh allocation" here just means: never an alias into
// payload storage the caller might mutate via another handle).
func ToString(v *Value) string {
	if v == nil {
		return "null"
	}
	switch v.kind {
	case Null:
		return "null"
	case Boolean:
		if v.boolean {
			return "true"
		}
		return "false"
	case Number:
		return formatNumber(v.number)
	case String:
		return v.str
	case Array:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = ToString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Object:
		parts := make([]string, len(v.obj))
		for i, e := range v.obj {
			parts[i] = fmt.Sprintf("%s: %s", e.key, ToString(e.val))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Function:
		return "[function]"
	case Error:
		return fmt.Sprintf("[error: %s]", v.errMsg)
	case Class:
		return fmt.Sprintf("[class %s]", v.class.Name)
	case Instance:
		return fmt.Sprintf("[instance of %s]", v.inst.Class.class.Name)
	}
	return ""
}

func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// ToNumber coerces a value to f64 following the arithmetic coercion
// rules: Null -> 0, Boolean -> {0,1}, Number -> itself, String -> strict
// parse (ok=false on any parse failure), everything else fails.
func ToNumber(v *Value) (float64, bool) {
	if v == nil {
		return 0, true
	}
	switch v.kind {
	case Null:
		return 0, true
	case Boolean:
		if v.boolean {
			return 1, true
		}
		return 0, true
	case Number:
		return v.number, true
	case String:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Message returns an Error value's message, or "" for non-errors.
func (v *Value) Message() string {
	if v == nil || v.kind != Error {
		return ""
	}
	return v.errMsg
}

// Code returns an Error value's numeric code, or -1 for non-errors.
func (v *Value) Code() int {
	if v == nil || v.kind != Error {
		return -1
	}
	return v.errCode
}

// Bool returns a Boolean value's payload. Callers must check Kind first.
func (v *Value) Bool() bool { return v.boolean }

// Num returns a Number value's payload. Callers must check Kind first.
func (v *Value) Num() float64 { return v.number }

// Str returns a String value's payload. Callers must check Kind first.
func (v *Value) Str() string { return v.str }

// Closure returns a Function value's closure. Callers must check Kind
// first.
func (v *Value) Closure() *Closure { return v.closure }

// Class returns a Class value's info. Callers must check Kind first.
func (v *Value) Class() *ClassInfo { return v.class }

// Instance returns an Instance value's info. Callers must check Kind
// first.
func (v *Value) Instance() *InstanceInfo { return v.inst }

// --- Array operations ---

// Len returns the element count for Array/Object/String, else 0.
func Len(v *Value) int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	case String:
		return len(v.str)
	}
	return 0
}

// ArrayPush appends elem (the caller's reference is transferred in).
func (v *Value) ArrayPush(elem *Value) {
	v.arr = append(v.arr, elem)
}

// ArrayGet returns the element at i, or nil if out of bounds.
func (v *Value) ArrayGet(i int) *Value {
	if i < 0 || i >= len(v.arr) {
		return nil
	}
	return v.arr[i]
}

// ArraySet replaces the element at i (bounds-checked), releasing the old
// reference. Reports false if i is out of bounds.
func (v *Value) ArraySet(i int, elem *Value) bool {
	if i < 0 || i >= len(v.arr) {
		return false
	}
	Unref(v.arr[i])
	v.arr[i] = elem
	return true
}

// ArrayElements returns the live backing slice; callers must not retain it
// past the array's lifetime.
func (v *Value) ArrayElements() []*Value { return v.arr }

// --- Object operations ---

// ObjectSet replaces an existing entry in place (preserving position) or
// appends a new one. The caller's reference to val is transferred in.
func (v *Value) ObjectSet(key string, val *Value) {
	for i, e := range v.obj {
		if e.key == key {
			Unref(e.val)
			v.obj[i].val = val
			return
		}
	}
	v.obj = append(v.obj, entry{key: key, val: val})
}

// ObjectGet returns the value bound to key, or nil if absent.
func (v *Value) ObjectGet(key string) *Value {
	for _, e := range v.obj {
		if e.key == key {
			return e.val
		}
	}
	return nil
}

// ObjectHas reports whether key is present.
func (v *Value) ObjectHas(key string) bool {
	return v.ObjectGet(key) != nil
}

// ObjectDelete removes key using last-entry-swap, releasing its reference.
// Reports false if key was absent.
func (v *Value) ObjectDelete(key string) bool {
	for i, e := range v.obj {
		if e.key == key {
			Unref(e.val)
			last := len(v.obj) - 1
			v.obj[i] = v.obj[last]
			v.obj = v.obj[:last]
			return true
		}
	}
	return false
}

// ObjectKeys returns an Array of the object's keys in insertion order.
func (v *Value) ObjectKeys() *Value {
	out := make([]*Value, len(v.obj))
	for i, e := range v.obj {
		out[i] = NewString(e.key)
	}
	return NewArrayFrom(out)
}

// ObjectValues returns an Array of the object's values, Ref'd, in
// insertion order.
func (v *Value) ObjectValues() *Value {
	out := make([]*Value, len(v.obj))
	for i, e := range v.obj {
		out[i] = Ref(e.val)
	}
	return NewArrayFrom(out)
}

// ObjectEach calls fn for every (key, value) pair in insertion order. The
// values are borrowed; fn must Ref anything it retains.
func (v *Value) ObjectEach(fn func(key string, val *Value)) {
	for _, e := range v.obj {
		fn(e.key, e.val)
	}
}

// ObjectEntries returns an Array of [key, value] pair-Arrays.
func (v *Value) ObjectEntries() *Value {
	out := make([]*Value, len(v.obj))
	for i, e := range v.obj {
		out[i] = NewArrayFrom([]*Value{NewString(e.key), Ref(e.val)})
	}
	return NewArrayFrom(out)
}

// GetPath resolves a dotted property path (e.g. "b.c") against an Object,
// returning the leaf value or nil if any segment is missing or not an
// Object.
func GetPath(v *Value, path string) *Value {
	cur := v
	for _, seg := range strings.Split(path, ".") {
		if cur == nil || cur.kind != Object {
			return nil
		}
		cur = cur.ObjectGet(seg)
	}
	return cur
}

// SetPath resolves a dotted property path against an Object, creating
// intermediate Object values as needed, and sets the leaf. It fails (returns
// false) if an intermediate segment exists and is not an Object.
func SetPath(v *Value, path string, val *Value) bool {
	segs := strings.Split(path, ".")
	cur := v
	for _, seg := range segs[:len(segs)-1] {
		if cur.kind != Object {
			return false
		}
		next := cur.ObjectGet(seg)
		if next == nil {
			next = NewObject()
			cur.ObjectSet(seg, next)
		} else if next.kind != Object {
			return false
		}
		cur = next
	}
	if cur.kind != Object {
		return false
	}
	cur.ObjectSet(segs[len(segs)-1], val)
	return true
}
