package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A balanced sequence of Ref/Unref calls ending at refcount 0 leaves no
// live access.
func TestRefUnref_BalancedSequenceReachesZero(t *testing.T) {
	v := NewString("hello")
	require.Equal(t, 1, v.Refs())
	Ref(v)
	Ref(v)
	require.Equal(t, 3, v.Refs())
	Unref(v)
	Unref(v)
	require.Equal(t, 1, v.Refs())
	Unref(v)
	assert.Equal(t, 0, v.Refs())
}

// TestUnref_RecursivelyReleasesChildren exercises an Array holding an Object
// holding a Number, checking every child's refcount reaches zero once
// the parent is unreffed to zero.
func TestUnref_RecursivelyReleasesChildren(t *testing.T) {
	inner := NewNumber(42)
	obj := NewObject()
	obj.ObjectSet("x", inner)
	arr := NewArray()
	arr.ArrayPush(obj)

	Unref(arr)
	assert.Equal(t, 0, arr.Refs())
	assert.Equal(t, 0, obj.Refs())
	assert.Equal(t, 0, inner.Refs())
}

// Copy produces an independent subtree for Array/Object/Instance.
func TestCopy_ProducesIndependentSubtree(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		orig := NewArray()
		orig.ArrayPush(NewNumber(1))
		dup := Copy(orig)
		dup.ArraySet(0, NewNumber(99))
		assert.Equal(t, float64(1), orig.ArrayGet(0).Num())
		assert.Equal(t, float64(99), dup.ArrayGet(0).Num())
	})

	t.Run("object", func(t *testing.T) {
		orig := NewObject()
		orig.ObjectSet("a", NewNumber(1))
		dup := Copy(orig)
		dup.ObjectSet("a", NewNumber(99))
		assert.Equal(t, float64(1), orig.ObjectGet("a").Num())
		assert.Equal(t, float64(99), dup.ObjectGet("a").Num())
	})

	t.Run("instance", func(t *testing.T) {
		cls := NewClass("Point", nil, NewObject(), nil)
		props := NewObject()
		props.ObjectSet("x", NewNumber(1))
		orig := NewInstance(cls, props)
		dup := Copy(orig)
		dup.Instance().Properties.ObjectSet("x", NewNumber(99))
		assert.Equal(t, float64(1), orig.Instance().Properties.ObjectGet("x").Num())
		assert.Equal(t, float64(99), dup.Instance().Properties.ObjectGet("x").Num())
	})
}

func TestCopy_FunctionSharesClosure(t *testing.T) {
	fn := NewFunction("node", "scope", "f")
	dup := Copy(fn)
	assert.Equal(t, fn.Closure().Node, dup.Closure().Node)
	assert.Equal(t, fn.Closure().Scope, dup.Closure().Scope)
}

// Equals(v,v) holds for every kind except NaN, which is never equal to
// itself.
func TestEquals_Reflexive(t *testing.T) {
	values := []*Value{
		NewNull(), NewBoolean(true), NewBoolean(false),
		NewNumber(0), NewNumber(-1.5), NewString(""), NewString("x"),
	}
	for _, v := range values {
		assert.True(t, Equals(v, v), "expected %v to equal itself", ToString(v))
	}

	nan := NewNumber(math.NaN())
	assert.False(t, Equals(nan, nan), "NaN must never equal itself")
}

func TestEquals_DifferentKindsAreUnequal(t *testing.T) {
	assert.False(t, Equals(NewNumber(0), NewBoolean(false)))
	assert.False(t, Equals(NewString("1"), NewNumber(1)))
}

func TestEquals_ContainersAreReferenceEqual(t *testing.T) {
	a := NewArray()
	b := NewArray()
	assert.False(t, Equals(a, b), "distinct Array handles with identical content are not equal")
	assert.True(t, Equals(a, a))
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    *Value
		want bool
	}{
		{"null", NewNull(), false},
		{"error", NewError("boom", -1), false},
		{"true", NewBoolean(true), true},
		{"false", NewBoolean(false), false},
		{"zero", NewNumber(0), false},
		{"nan", NewNumber(math.NaN()), false},
		{"nonzero", NewNumber(1), true},
		{"empty string", NewString(""), false},
		{"nonempty string", NewString("x"), true},
		{"empty array", NewArray(), false},
		{"empty object", NewObject(), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Truthy(c.v))
		})
	}
}

func TestToString(t *testing.T) {
	arr := NewArray()
	arr.ArrayPush(NewNumber(1))
	arr.ArrayPush(NewNumber(2))
	obj := NewObject()
	obj.ObjectSet("a", NewNumber(1))

	cases := []struct {
		name string
		v    *Value
		want string
	}{
		{"null", NewNull(), "null"},
		{"true", NewBoolean(true), "true"},
		{"false", NewBoolean(false), "false"},
		{"int-valued number", NewNumber(10), "10"},
		{"fractional number", NewNumber(1.5), "1.5"},
		{"string", NewString("hi"), "hi"},
		{"array", arr, "[1, 2]"},
		{"object", obj, "{a: 1}"},
		{"function", NewFunction(nil, nil, "f"), "[function]"},
		{"error", NewError("bad", 4), "[error: bad]"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ToString(c.v))
		})
	}
}

func TestToNumber(t *testing.T) {
	cases := []struct {
		name    string
		v       *Value
		want    float64
		wantOK  bool
	}{
		{"null", NewNull(), 0, true},
		{"true", NewBoolean(true), 1, true},
		{"false", NewBoolean(false), 0, true},
		{"number", NewNumber(3.5), 3.5, true},
		{"numeric string", NewString("42"), 42, true},
		{"non-numeric string", NewString("abc"), 0, false},
		{"array fails", NewArray(), 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n, ok := ToNumber(c.v)
			assert.Equal(t, c.wantOK, ok)
			if ok {
				assert.Equal(t, c.want, n)
			}
		})
	}
}

func TestArrayGrowthAndBounds(t *testing.T) {
	arr := NewArray()
	for i := 0; i < 20; i++ {
		arr.ArrayPush(NewNumber(float64(i)))
	}
	assert.Equal(t, 20, Len(arr))
	assert.Nil(t, arr.ArrayGet(-1))
	assert.Nil(t, arr.ArrayGet(20))
	assert.False(t, arr.ArraySet(20, NewNumber(0)))
	assert.True(t, arr.ArraySet(0, NewNumber(100)))
	assert.Equal(t, float64(100), arr.ArrayGet(0).Num())
}

func TestObjectSetPreservesPositionOnOverwrite(t *testing.T) {
	obj := NewObject()
	obj.ObjectSet("a", NewNumber(1))
	obj.ObjectSet("b", NewNumber(2))
	obj.ObjectSet("a", NewNumber(99))
	keys := obj.ObjectKeys()
	assert.Equal(t, "a", keys.ArrayGet(0).Str())
	assert.Equal(t, "b", keys.ArrayGet(1).Str())
	assert.Equal(t, float64(99), obj.ObjectGet("a").Num())
}

func TestObjectDeleteLastEntrySwap(t *testing.T) {
	obj := NewObject()
	obj.ObjectSet("a", NewNumber(1))
	obj.ObjectSet("b", NewNumber(2))
	obj.ObjectSet("c", NewNumber(3))
	assert.True(t, obj.ObjectDelete("a"))
	assert.False(t, obj.ObjectHas("a"))
	assert.Equal(t, 2, Len(obj))
	assert.False(t, obj.ObjectDelete("nope"))
}

func TestGetSetPath(t *testing.T) {
	root := NewObject()
	inner := NewObject()
	inner.ObjectSet("c", NewNumber(2))
	root.ObjectSet("b", inner)

	assert.Equal(t, float64(2), GetPath(root, "b.c").Num())
	assert.Nil(t, GetPath(root, "b.missing"))

	ok := SetPath(root, "b.c", NewNumber(9))
	require.True(t, ok)
	assert.Equal(t, float64(9), GetPath(root, "b.c").Num())
}

func TestSetPath_CreatesIntermediateObjects(t *testing.T) {
	root := NewObject()
	ok := SetPath(root, "x.y.z", NewNumber(1))
	require.True(t, ok)
	assert.Equal(t, float64(1), GetPath(root, "x.y.z").Num())
}

func TestSetPath_FailsWhenIntermediateIsNonObject(t *testing.T) {
	root := NewObject()
	root.ObjectSet("x", NewNumber(5))
	assert.False(t, SetPath(root, "x.y", NewNumber(1)))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "number", TypeName(NewNumber(1)))
	assert.Equal(t, "array", TypeName(NewArray()))
}
