// Package operators implements Zen's operator set: arithmetic, comparison,
// logical short-circuit, three-valued (Lukasiewicz/Kleene), probabilistic,
// consensus, temporal, and fuzzy operators. Every function here takes
// already-evaluated *value.Value operands and returns an owned
// *value.Value, so callers can Unref their operands once the result is
// produced. Error operands propagate through as the result, carrying an
// extra reference the caller owns.
package operators

import (
	"math"

	"github.com/oxhq/zenlang/internal/value"
	"github.com/oxhq/zenlang/internal/zerrors"
)

// errVal builds an Error value for a failed operator application.
func errVal(code zerrors.Code, format string, args ...any) *value.Value {
	f := zerrors.New(code, format, args...)
	return value.NewError(f.Message, zerrors.NumericCode(code))
}

func isString(v *value.Value) bool { return v.Kind() == value.String }

// Add implements '+': string concatenation if either operand is a String,
// else numeric addition with overflow-to-error.
func Add(a, b *value.Value) *value.Value {
	if a.Kind() == value.Error {
		return value.Ref(a)
	}
	if b.Kind() == value.Error {
		return value.Ref(b)
	}
	if isString(a) || isString(b) {
		return value.NewString(value.ToString(a) + value.ToString(b))
	}
	na, ok := value.ToNumber(a)
	if !ok {
		return errVal(zerrors.CodeType, "cannot convert %s to number", value.TypeName(a))
	}
	nb, ok := value.ToNumber(b)
	if !ok {
		return errVal(zerrors.CodeType, "cannot convert %s to number", value.TypeName(b))
	}
	r := na + nb
	if math.IsInf(r, 0) && !math.IsInf(na, 0) && !math.IsInf(nb, 0) {
		return errVal(zerrors.CodeArithmetic, "arithmetic overflow")
	}
	return value.NewNumber(r)
}

func arith(a, b *value.Value, op func(float64, float64) (float64, error)) *value.Value {
	if a.Kind() == value.Error {
		return value.Ref(a)
	}
	if b.Kind() == value.Error {
		return value.Ref(b)
	}
	na, ok := value.ToNumber(a)
	if !ok {
		return errVal(zerrors.CodeType, "cannot convert %s to number", value.TypeName(a))
	}
	nb, ok := value.ToNumber(b)
	if !ok {
		return errVal(zerrors.CodeType, "cannot convert %s to number", value.TypeName(b))
	}
	r, err := op(na, nb)
	if err != nil {
		return errVal(zerrors.CodeArithmetic, "%s", err.Error())
	}
	if math.IsInf(r, 0) && !math.IsInf(na, 0) && !math.IsInf(nb, 0) && nb != 0 {
		return errVal(zerrors.CodeArithmetic, "arithmetic overflow")
	}
	return value.NewNumber(r)
}

// Sub implements '-'.
func Sub(a, b *value.Value) *value.Value {
	return arith(a, b, func(x, y float64) (float64, error) { return x - y, nil })
}

// Mul implements '*'.
func Mul(a, b *value.Value) *value.Value {
	return arith(a, b, func(x, y float64) (float64, error) { return x * y, nil })
}

// Div implements '/'. Division by zero yields ±Inf or NaN per IEEE 754,
// never an error.
func Div(a, b *value.Value) *value.Value {
	return arith(a, b, func(x, y float64) (float64, error) { return x / y, nil })
}

// Mod implements '%'. Modulo by zero is an error.
func Mod(a, b *value.Value) *value.Value {
	return arith(a, b, func(x, y float64) (float64, error) {
		if y == 0 {
			return 0, modByZero{}
		}
		return math.Mod(x, y), nil
	})
}

type modByZero struct{}

func (modByZero) Error() string { return "modulo by zero" }

// Neg implements unary '-'.
func Neg(a *value.Value) *value.Value {
	if a.Kind() == value.Error {
		return value.Ref(a)
	}
	n, ok := value.ToNumber(a)
	if !ok {
		return errVal(zerrors.CodeType, "cannot convert %s to number", value.TypeName(a))
	}
	return value.NewNumber(-n)
}

// EqualsOp implements '=='/'!=' as first-class operator results.
func EqualsOp(a, b *value.Value, negate bool) *value.Value {
	if a.Kind() == value.Error {
		return value.Ref(a)
	}
	if b.Kind() == value.Error {
		return value.Ref(b)
	}
	eq := value.Equals(a, b)
	if negate {
		eq = !eq
	}
	return value.NewBoolean(eq)
}

// Compare implements '<' '>' '<=' '>='. Like kinds compare directly (string
// lexicographic, number numeric); mixed kinds coerce to number if both
// convertible, else error.
func Compare(a, b *value.Value, op string) *value.Value {
	if a.Kind() == value.Error {
		return value.Ref(a)
	}
	if b.Kind() == value.Error {
		return value.Ref(b)
	}
	if a.Kind() == value.String && b.Kind() == value.String {
		return value.NewBoolean(compareStrings(a.Str(), b.Str(), op))
	}
	na, ok1 := value.ToNumber(a)
	nb, ok2 := value.ToNumber(b)
	if !ok1 || !ok2 {
		return errVal(zerrors.CodeType, "cannot compare %s and %s", value.TypeName(a), value.TypeName(b))
	}
	return value.NewBoolean(compareNumbers(na, nb, op))
}

func compareStrings(a, b, op string) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	}
	return false
}

func compareNumbers(a, b float64, op string) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	}
	return false
}

// And implements short-circuit 'and': returns the first falsy operand
// (preserving its value, not coerced); if either operand is Null, the
// result is Null (undecidable propagation) unless the other is already
// falsy non-null, which still short-circuits to that falsy value.
func And(evalLeft func() *value.Value, evalRight func() *value.Value) *value.Value {
	l := evalLeft()
	if l.Kind() == value.Error {
		return l
	}
	if !value.Truthy(l) && l.Kind() != value.Null {
		return l
	}
	if l.Kind() == value.Null {
		value.Unref(l)
		r := evalRight()
		if r.Kind() == value.Error {
			return r
		}
		if !value.Truthy(r) && r.Kind() != value.Null {
			return r
		}
		value.Unref(r)
		return value.NewNull()
	}
	value.Unref(l)
	r := evalRight()
	return r
}

// Or implements short-circuit 'or': returns the first truthy operand,
// Null if either operand is Null and neither is truthy.
func Or(evalLeft func() *value.Value, evalRight func() *value.Value) *value.Value {
	l := evalLeft()
	if l.Kind() == value.Error {
		return l
	}
	if value.Truthy(l) {
		return l
	}
	if l.Kind() == value.Null {
		value.Unref(l)
		r := evalRight()
		if r.Kind() == value.Error {
			return r
		}
		if value.Truthy(r) {
			return r
		}
		if r.Kind() == value.Null {
			value.Unref(r)
			return value.NewNull()
		}
		value.Unref(r)
		return value.NewNull()
	}
	value.Unref(l)
	r := evalRight()
	return r
}

// Not implements unary 'not'/'¬': true/false flip; Null stays Null
// (undecidable).
func Not(a *value.Value) *value.Value {
	if a.Kind() == value.Error {
		return value.Ref(a)
	}
	if a.Kind() == value.Null {
		return value.NewNull()
	}
	return value.NewBoolean(!value.Truthy(a))
}

// --- three-valued encoding: true=+1, null=0, false=-1 ---

func trit(v *value.Value) float64 {
	switch {
	case v.Kind() == value.Null:
		return 0
	case value.Truthy(v):
		return 1
	default:
		return -1
	}
}

func fromTrit(t float64) *value.Value {
	switch {
	case t > 0:
		return value.NewBoolean(true)
	case t < 0:
		return value.NewBoolean(false)
	default:
		return value.NewNull()
	}
}

// LukasiewiczAnd = min(a,b) under the trit encoding.
func LukasiewiczAnd(a, b *value.Value) *value.Value {
	return fromTrit(math.Min(trit(a), trit(b)))
}

// LukasiewiczOr = max(a,b) under the trit encoding.
func LukasiewiczOr(a, b *value.Value) *value.Value {
	return fromTrit(math.Max(trit(a), trit(b)))
}

// KleeneAnd: any false -> false; both true -> true; else null.
func KleeneAnd(a, b *value.Value) *value.Value {
	ta, tb := trit(a), trit(b)
	if ta < 0 || tb < 0 {
		return value.NewBoolean(false)
	}
	if ta > 0 && tb > 0 {
		return value.NewBoolean(true)
	}
	return value.NewNull()
}

// KleeneOr: any true -> true; both false -> false; else null.
func KleeneOr(a, b *value.Value) *value.Value {
	ta, tb := trit(a), trit(b)
	if ta > 0 || tb > 0 {
		return value.NewBoolean(true)
	}
	if ta < 0 && tb < 0 {
		return value.NewBoolean(false)
	}
	return value.NewNull()
}

// Implication = max(1-a, b), clamped to [-1,+1], under the trit encoding.
func Implication(a, b *value.Value) *value.Value {
	ta, tb := trit(a), trit(b)
	r := math.Max(1-ta, tb)
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return fromTrit(r)
}

// Iff (biconditional) is implication in both directions, ANDed under
// Lukasiewicz semantics, the natural extension of the implication
// formula to equivalence.
func Iff(a, b *value.Value) *value.Value {
	fwd := Implication(a, b)
	bwd := Implication(b, a)
	return LukasiewiczAnd(fwd, bwd)
}

// ProbabilisticAnd implements probabilistic_and(a,b,pa,pb): if either
// operand is Null, the result is a Boolean when pa*pb falls outside
// [0.1,0.9], else Null; otherwise ordinary boolean AND.
func ProbabilisticAnd(a, b *value.Value, pa, pb float64) *value.Value {
	if a.Kind() == value.Null || b.Kind() == value.Null {
		conf := pa * pb
		if conf < 0.1 {
			return value.NewBoolean(false)
		}
		if conf > 0.9 {
			return value.NewBoolean(true)
		}
		return value.NewNull()
	}
	return value.NewBoolean(value.Truthy(a) && value.Truthy(b))
}

// Consensus implements consensus(votes[], threshold): counts true/false/
// null votes and returns Null if the null fraction exceeds 0.3, true if
// the true fraction meets threshold, false if the false fraction meets
// threshold, else Null.
func Consensus(votes []*value.Value, threshold float64) *value.Value {
	if len(votes) == 0 {
		return value.NewNull()
	}
	var nTrue, nFalse, nNull int
	for _, v := range votes {
		switch {
		case v.Kind() == value.Null:
			nNull++
		case value.Truthy(v):
			nTrue++
		default:
			nFalse++
		}
	}
	total := float64(len(votes))
	if float64(nNull)/total > 0.3 {
		return value.NewNull()
	}
	if float64(nTrue)/total >= threshold {
		return value.NewBoolean(true)
	}
	if float64(nFalse)/total >= threshold {
		return value.NewBoolean(false)
	}
	return value.NewNull()
}

// Eventually implements eventually(cond, horizon): booleans pass through;
// a Null cond with horizon <= 0 stays Null, horizon > 100 becomes true,
// otherwise stays Null.
func Eventually(cond *value.Value, horizon float64) *value.Value {
	if cond.Kind() == value.Boolean {
		return value.NewBoolean(cond.Bool())
	}
	if cond.Kind() != value.Null {
		return value.NewBoolean(value.Truthy(cond))
	}
	if horizon <= 0 {
		return value.NewNull()
	}
	if horizon > 100 {
		return value.NewBoolean(true)
	}
	return value.NewNull()
}

// FuzzyMembership implements fuzzy_membership(_, _, degree): true if
// degree >= 0.8, false if <= 0.2, else Null.
func FuzzyMembership(degree float64) *value.Value {
	if degree >= 0.8 {
		return value.NewBoolean(true)
	}
	if degree <= 0.2 {
		return value.NewBoolean(false)
	}
	return value.NewNull()
}
