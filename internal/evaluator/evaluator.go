// Package evaluator implements Zen's tree-walking interpreter: it walks
// an AST node against a Scope and returns an owned Value, propagating
// control-flow interrupts (return/break/throw) as an out-of-band signal
// alongside the value so recursion unwinds cleanly.
package evaluator

import (
	"github.com/oxhq/zenlang/internal/ast"
	"github.com/oxhq/zenlang/internal/builtin"
	"github.com/oxhq/zenlang/internal/operators"
	"github.com/oxhq/zenlang/internal/scope"
	"github.com/oxhq/zenlang/internal/value"
	"github.com/oxhq/zenlang/internal/zerrors"
)

// Signal is the out-of-band control-flow interrupt carried alongside a
// Value: Normal | Return | Break | Throw.
type Signal int

const (
	Normal Signal = iota
	ReturnSig
	BreakSig
	ThrowSig
)

// Outcome is the result of evaluating one node: exactly one owned Value
// reference plus the signal it was produced under.
type Outcome struct {
	Val    *value.Value
	Signal Signal
}

func normal(v *value.Value) Outcome { return Outcome{Val: v, Signal: Normal} }

// Evaluator walks an AST against a Scope. It never mutates the AST.
type Evaluator struct {
	Builtins *builtin.Registry
	Importer Importer

	// BaseDir is the directory import paths resolve against: the running
	// script's directory, or "." in the REPL.
	BaseDir string
}

// Importer resolves `import "path"` statements, glob-expanded to
// multi-file imports. Kept as an
// interface here so internal/importer (which depends on this package to
// evaluate each matched file) does not create an import cycle.
type Importer interface {
	// Resolve returns, for each file matched by path (glob-expanded
	// relative to fromDir), its parsed Compound AST root.
	Resolve(fromDir, path string) ([]*ast.Node, error)
}

// New builds an Evaluator with the given builtin registry.
func New(builtins *builtin.Registry) *Evaluator {
	return &Evaluator{Builtins: builtins}
}

// Eval walks node against sc and returns exactly one owned reference.
func (e *Evaluator) Eval(node *ast.Node, sc *scope.Scope) Outcome {
	if node == nil {
		return normal(value.NewNull())
	}
	switch node.Kind {
	case ast.KindNumber:
		return normal(value.NewNumber(node.NumberVal))
	case ast.KindBoolean:
		return normal(value.NewBoolean(node.BoolVal))
	case ast.KindString:
		return normal(value.NewString(node.StringVal))
	case ast.KindNull, ast.KindUndecidable:
		return normal(value.NewNull())
	case ast.KindVariable:
		v, ok := sc.Get(node.Name)
		if !ok {
			return normal(errorf(zerrors.CodeName, "undefined variable %s", node.Name))
		}
		return normal(value.Ref(v))
	case ast.KindVariableDefinition:
		return e.evalVarDef(node, sc)
	case ast.KindAssignment:
		return e.evalAssignment(node, sc)
	case ast.KindBinaryOp:
		return e.evalBinaryOp(node, sc)
	case ast.KindUnaryOp:
		return e.evalUnaryOp(node, sc)
	case ast.KindArray:
		return e.evalArray(node, sc)
	case ast.KindObject:
		return e.evalObject(node, sc)
	case ast.KindSpread:
		return e.Eval(node.Left, sc)
	case ast.KindPropertyAccess:
		return e.evalPropertyAccess(node, sc)
	case ast.KindFunctionDefinition:
		sc.Pin()
		fn := value.NewFunction(node, sc, node.Name)
		if node.Name != "" {
			sc.Define(node.Name, value.Ref(fn))
		}
		return normal(fn)
	case ast.KindLambda:
		sc.Pin()
		return normal(value.NewFunction(node, sc, ""))
	case ast.KindFunctionCall:
		return e.evalFunctionCall(node, sc)
	case ast.KindIf:
		return e.evalIf(node, sc)
	case ast.KindWhile:
		return e.evalWhile(node, sc)
	case ast.KindFor:
		return e.evalFor(node, sc)
	case ast.KindReturn:
		var v *value.Value
		if node.Value != nil {
			out := e.Eval(node.Value, sc)
			if out.Signal != Normal {
				return out
			}
			v = out.Val
		} else {
			v = value.NewNull()
		}
		return Outcome{Val: v, Signal: ReturnSig}
	case ast.KindThrow:
		out := e.Eval(node.Value, sc)
		if out.Signal != Normal {
			return out
		}
		return Outcome{Val: out.Val, Signal: ThrowSig}
	case ast.KindTryCatch:
		return e.evalTryCatch(node, sc)
	case ast.KindClassDefinition:
		return e.evalClassDef(node, sc)
	case ast.KindCompound:
		return e.evalCompound(node, sc)
	case ast.KindImport:
		return e.evalImport(node, sc)
	case ast.KindExport:
		for _, name := range node.Bindings {
			sc.Has(name) // no-op lookup; export bindings are merged by the importer
		}
		return normal(value.NewNull())
	case ast.KindLogicalQuantifier:
		return e.evalQuantifier(node, sc)
	case ast.KindLogicalPredicate:
		return e.evalFunctionCallByName(node.PredName, node.PredArgs, sc)
	case ast.KindLogicalConnective:
		return e.evalConnective(node, sc)
	case ast.KindMathEquation:
		return e.evalCompareNode(node, sc, "==")
	case ast.KindMathInequality:
		return e.evalCompareNode(node, sc, node.Name)
	case ast.KindFileReference, ast.KindFileGet, ast.KindFilePut:
		return e.evalFileRef(node, sc)
	}
	return normal(errorf(zerrors.CodeType, "unsupported node kind %d", node.Kind))
}

func errorf(code zerrors.Code, format string, args ...any) *value.Value {
	f := zerrors.New(code, format, args...)
	return value.NewError(f.Message, zerrors.NumericCode(code))
}

func (e *Evaluator) evalCompound(node *ast.Node, sc *scope.Scope) Outcome {
	var last *value.Value = value.NewNull()
	for i := range node.Elements {
		value.Unref(last)
		out := e.Eval(&node.Elements[i], sc)
		if out.Signal != Normal {
			return out
		}
		last = out.Val
	}
	return normal(last)
}

func (e *Evaluator) evalVarDef(node *ast.Node, sc *scope.Scope) Outcome {
	out := e.Eval(node.Right, sc)
	if out.Signal != Normal {
		return out
	}
	sc.Define(node.Name, value.Ref(out.Val))
	return normal(out.Val)
}

func (e *Evaluator) evalAssignment(node *ast.Node, sc *scope.Scope) Outcome {
	rhs := e.Eval(node.Right, sc)
	if rhs.Signal != Normal {
		return rhs
	}
	switch node.Left.Kind {
	case ast.KindVariable:
		sc.Set(node.Left.Name, value.Ref(rhs.Val))
		return normal(rhs.Val)
	case ast.KindPropertyAccess:
		objOut := e.Eval(node.Left.Left, sc)
		if objOut.Signal != Normal {
			value.Unref(rhs.Val)
			return objOut
		}
		defer value.Unref(objOut.Val)
		if objOut.Val.Kind() == value.Object {
			objOut.Val.ObjectSet(node.Left.Name, value.Ref(rhs.Val))
			return normal(rhs.Val)
		}
		if objOut.Val.Kind() == value.Instance {
			objOut.Val.Instance().Properties.ObjectSet(node.Left.Name, value.Ref(rhs.Val))
			return normal(rhs.Val)
		}
		value.Unref(rhs.Val)
		return normal(errorf(zerrors.CodeType, "cannot set property on %s", value.TypeName(objOut.Val)))
	default:
		value.Unref(rhs.Val)
		return normal(errorf(zerrors.CodeType, "invalid assignment target"))
	}
}

func (e *Evaluator) evalUnaryOp(node *ast.Node, sc *scope.Scope) Outcome {
	out := e.Eval(node.Left, sc)
	if out.Signal != Normal {
		return out
	}
	defer value.Unref(out.Val)
	switch node.UnOp {
	case ast.OpNeg:
		return normal(operators.Neg(out.Val))
	case ast.OpNot:
		return normal(operators.Not(out.Val))
	}
	return normal(value.NewNull())
}

func (e *Evaluator) evalBinaryOp(node *ast.Node, sc *scope.Scope) Outcome {
	if node.Op == ast.OpAnd || node.Op == ast.OpOr {
		return e.evalShortCircuit(node, sc)
	}
	lOut := e.Eval(node.Left, sc)
	if lOut.Signal != Normal {
		return lOut
	}
	rOut := e.Eval(node.Right, sc)
	if rOut.Signal != Normal {
		value.Unref(lOut.Val)
		return rOut
	}
	defer value.Unref(lOut.Val)
	defer value.Unref(rOut.Val)

	switch node.Op {
	case ast.OpAdd:
		return normal(operators.Add(lOut.Val, rOut.Val))
	case ast.OpSub:
		return normal(operators.Sub(lOut.Val, rOut.Val))
	case ast.OpMul:
		return normal(operators.Mul(lOut.Val, rOut.Val))
	case ast.OpDiv:
		return normal(operators.Div(lOut.Val, rOut.Val))
	case ast.OpMod:
		return normal(operators.Mod(lOut.Val, rOut.Val))
	case ast.OpEq:
		return normal(operators.EqualsOp(lOut.Val, rOut.Val, false))
	case ast.OpNeq:
		return normal(operators.EqualsOp(lOut.Val, rOut.Val, true))
	case ast.OpLt:
		return normal(operators.Compare(lOut.Val, rOut.Val, "<"))
	case ast.OpGt:
		return normal(operators.Compare(lOut.Val, rOut.Val, ">"))
	case ast.OpLe:
		return normal(operators.Compare(lOut.Val, rOut.Val, "<="))
	case ast.OpGe:
		return normal(operators.Compare(lOut.Val, rOut.Val, ">="))
	}
	return normal(value.NewNull())
}

// evalShortCircuit evaluates the right operand only if the left operand's
// truth value does not already determine the result.
func (e *Evaluator) evalShortCircuit(node *ast.Node, sc *scope.Scope) Outcome {
	var sig Signal
	var sigVal *value.Value
	evalLeft := func() *value.Value {
		out := e.Eval(node.Left, sc)
		if out.Signal != Normal {
			sig, sigVal = out.Signal, out.Val
		}
		return out.Val
	}
	evalRight := func() *value.Value {
		if sig != Normal {
			return value.NewNull()
		}
		out := e.Eval(node.Right, sc)
		if out.Signal != Normal {
			sig, sigVal = out.Signal, out.Val
		}
		return out.Val
	}
	var result *value.Value
	if node.Op == ast.OpAnd {
		result = operators.And(evalLeft, evalRight)
	} else {
		result = operators.Or(evalLeft, evalRight)
	}
	if sig != Normal {
		value.Unref(result)
		return Outcome{Val: sigVal, Signal: sig}
	}
	return normal(result)
}

func (e *Evaluator) evalArray(node *ast.Node, sc *scope.Scope) Outcome {
	arr := value.NewArray()
	for i := range node.Elements {
		el := &node.Elements[i]
		if el.Kind == ast.KindSpread {
			out := e.Eval(el.Left, sc)
			if out.Signal != Normal {
				value.Unref(arr)
				return out
			}
			if out.Val.Kind() == value.Array {
				for _, item := range out.Val.ArrayElements() {
					arr.ArrayPush(value.Ref(item))
				}
			}
			value.Unref(out.Val)
			continue
		}
		out := e.Eval(el, sc)
		if out.Signal != Normal {
			value.Unref(arr)
			return out
		}
		arr.ArrayPush(out.Val)
	}
	return normal(arr)
}

func (e *Evaluator) evalObject(node *ast.Node, sc *scope.Scope) Outcome {
	obj := value.NewObject()
	for _, f := range node.Fields {
		out := e.Eval(&f.Value, sc)
		if out.Signal != Normal {
			value.Unref(obj)
			return out
		}
		obj.ObjectSet(f.Key, out.Val)
	}
	return normal(obj)
}

func (e *Evaluator) evalPropertyAccess(node *ast.Node, sc *scope.Scope) Outcome {
	objOut := e.Eval(node.Left, sc)
	if objOut.Signal != Normal {
		return objOut
	}
	defer value.Unref(objOut.Val)
	if objOut.Val.Kind() == value.Error {
		return normal(value.Ref(objOut.Val))
	}
	switch objOut.Val.Kind() {
	case value.Object:
		v := objOut.Val.ObjectGet(node.Name)
		if v == nil {
			return normal(errorf(zerrors.CodeName, "no such property %s", node.Name))
		}
		return normal(value.Ref(v))
	case value.Instance:
		props := objOut.Val.Instance().Properties
		if v := props.ObjectGet(node.Name); v != nil {
			return normal(value.Ref(v))
		}
		if m := findMethod(objOut.Val.Instance().Class, node.Name); m != nil {
			return normal(value.Ref(m))
		}
		return normal(errorf(zerrors.CodeName, "no such property %s", node.Name))
	case value.Class:
		cls := objOut.Val.Class()
		if m := findMethod(objOut.Val, node.Name); m != nil {
			return normal(value.Ref(m))
		}
		return normal(errorf(zerrors.CodeName, "no such static member %s on class %s", node.Name, cls.Name))
	case value.Array:
		if node.Name == "length" {
			return normal(value.NewNumber(float64(value.Len(objOut.Val))))
		}
		return normal(errorf(zerrors.CodeName, "no such property %s", node.Name))
	case value.String:
		if node.Name == "length" {
			return normal(value.NewNumber(float64(len(objOut.Val.Str()))))
		}
		return normal(errorf(zerrors.CodeName, "no such property %s", node.Name))
	default:
		return normal(errorf(zerrors.CodeType, "cannot access property %s on %s", node.Name, value.TypeName(objOut.Val)))
	}
}

// findMethod walks the class's parent chain looking up name in each
// method table in turn.
func findMethod(class *value.Value, name string) *value.Value {
	for c := class; c != nil; c = c.Class().Parent {
		if m := c.Class().Methods.ObjectGet(name); m != nil {
			return m
		}
	}
	return nil
}

func (e *Evaluator) evalIf(node *ast.Node, sc *scope.Scope) Outcome {
	condOut := e.Eval(node.Cond, sc)
	if condOut.Signal != Normal {
		return condOut
	}
	truthy := value.Truthy(condOut.Val)
	value.Unref(condOut.Val)
	var branch *ast.Node
	if truthy {
		branch = node.Then
	} else {
		branch = node.Else
	}
	if branch == nil {
		return normal(value.NewNull())
	}
	branchScope := scope.New(sc)
	out := e.Eval(branch, branchScope)
	branchScope.Release()
	return out
}

func (e *Evaluator) evalWhile(node *ast.Node, sc *scope.Scope) Outcome {
	for {
		condOut := e.Eval(node.Cond, sc)
		if condOut.Signal != Normal {
			return condOut
		}
		truthy := value.Truthy(condOut.Val)
		value.Unref(condOut.Val)
		if !truthy {
			return normal(value.NewNull())
		}
		bodyScope := scope.New(sc)
		out := e.Eval(node.Body, bodyScope)
		bodyScope.Release()
		switch out.Signal {
		case BreakSig:
			value.Unref(out.Val)
			return normal(value.NewNull())
		case ReturnSig, ThrowSig:
			return out
		}
		value.Unref(out.Val)
	}
}

func (e *Evaluator) evalFor(node *ast.Node, sc *scope.Scope) Outcome {
	iterOut := e.Eval(node.Iterable, sc)
	if iterOut.Signal != Normal {
		return iterOut
	}
	defer value.Unref(iterOut.Val)

	var items []*value.Value
	switch iterOut.Val.Kind() {
	case value.Array:
		items = iterOut.Val.ArrayElements()
	case value.Object:
		entries := iterOut.Val.ObjectEntries()
		defer value.Unref(entries)
		items = entries.ArrayElements()
	default:
		return normal(errorf(zerrors.CodeType, "cannot iterate over %s", value.TypeName(iterOut.Val)))
	}

	for _, item := range items {
		bodyScope := scope.New(sc)
		bodyScope.Define(node.IterVar, value.Ref(item))
		out := e.Eval(node.Body, bodyScope)
		bodyScope.Release()
		switch out.Signal {
		case BreakSig:
			value.Unref(out.Val)
			return normal(value.NewNull())
		case ReturnSig, ThrowSig:
			return out
		}
		value.Unref(out.Val)
	}
	return normal(value.NewNull())
}

func (e *Evaluator) evalTryCatch(node *ast.Node, sc *scope.Scope) Outcome {
	tryScope := scope.New(sc)
	out := e.Eval(node.TryBody, tryScope)
	tryScope.Release()
	if out.Signal != ThrowSig {
		return out
	}
	catchScope := scope.New(sc)
	catchScope.Define(node.ExcVar, out.Val)
	result := e.Eval(node.CatchBody, catchScope)
	catchScope.Release()
	return result
}

func (e *Evaluator) evalClassDef(node *ast.Node, sc *scope.Scope) Outcome {
	var parent *value.Value
	if node.ParentName != "" {
		p, ok := sc.Get(node.ParentName)
		if !ok {
			return normal(errorf(zerrors.CodeName, "undefined parent class %s", node.ParentName))
		}
		if p.Kind() != value.Class {
			return normal(errorf(zerrors.CodeType, "%s is not a class", node.ParentName))
		}
		parent = value.Ref(p)
	}
	methods := value.NewObject()
	var ctor *value.Value
	if len(node.Methods) > 0 {
		sc.Pin()
	}
	for _, m := range node.Methods {
		fn := value.NewFunction(m.Fn, sc, m.Name)
		methods.ObjectSet(m.Name, value.Ref(fn))
		if m.Name == "init" {
			ctor = fn
		} else {
			value.Unref(fn)
		}
	}
	cls := value.NewClass(node.ClassName, parent, methods, ctor)
	sc.Define(node.ClassName, value.Ref(cls))
	return normal(cls)
}

func (e *Evaluator) evalImport(node *ast.Node, sc *scope.Scope) Outcome {
	if e.Importer == nil {
		return normal(errorf(zerrors.CodeIO, "imports are not supported in this context"))
	}
	fromDir := e.BaseDir
	if fromDir == "" {
		fromDir = "."
	}
	roots, err := e.Importer.Resolve(fromDir, node.Path)
	if err != nil {
		return normal(errorf(zerrors.CodeIO, "import %s: %s", node.Path, err.Error()))
	}
	for _, root := range roots {
		childScope := scope.New(sc)
		out := e.Eval(root, childScope)
		if out.Signal == ThrowSig {
			childScope.Release()
			return out
		}
		value.Unref(out.Val)
		e.mergeExports(root, childScope, sc)
		childScope.Release()
	}
	return normal(value.NewNull())
}

// mergeExports copies every binding named by an Export statement at the
// top level of root from childScope into parent, insertion-ordered.
func (e *Evaluator) mergeExports(root *ast.Node, childScope, parent *scope.Scope) {
	for i := range root.Elements {
		el := &root.Elements[i]
		if el.Kind != ast.KindExport {
			continue
		}
		for _, name := range el.Bindings {
			if v, ok := childScope.Get(name); ok {
				parent.Define(name, value.Ref(v))
			}
		}
	}
}

func (e *Evaluator) evalQuantifier(node *ast.Node, sc *scope.Scope) Outcome {
	var domainItems []*value.Value
	if node.Domain != nil {
		dOut := e.Eval(node.Domain, sc)
		if dOut.Signal != Normal {
			return dOut
		}
		defer value.Unref(dOut.Val)
		if dOut.Val.Kind() != value.Array {
			return normal(errorf(zerrors.CodeType, "quantifier domain must be an array"))
		}
		domainItems = dOut.Val.ArrayElements()
	}

	evalBody := func(item *value.Value) (truthy bool, interrupted bool, out Outcome) {
		qScope := scope.New(sc)
		if item != nil {
			qScope.Define(node.QVar, value.Ref(item))
		}
		res := e.Eval(node.Value, qScope)
		qScope.Release()
		if res.Signal != Normal {
			return false, true, res
		}
		truthy = value.Truthy(res.Val)
		value.Unref(res.Val)
		return truthy, false, Outcome{}
	}

	if node.Quant == ast.Universal {
		for _, item := range domainItems {
			ok, interrupted, out := evalBody(item)
			if interrupted {
				return out
			}
			if !ok {
				return normal(value.NewBoolean(false))
			}
		}
		return normal(value.NewBoolean(true))
	}

	for _, item := range domainItems {
		ok, interrupted, out := evalBody(item)
		if interrupted {
			return out
		}
		if ok {
			return normal(value.NewBoolean(true))
		}
	}
	return normal(value.NewBoolean(false))
}

func (e *Evaluator) evalConnective(node *ast.Node, sc *scope.Scope) Outcome {
	if node.Conn == ast.ConnNot {
		out := e.Eval(&node.Operands[0], sc)
		if out.Signal != Normal {
			return out
		}
		defer value.Unref(out.Val)
		return normal(operators.Not(out.Val))
	}
	lOut := e.Eval(&node.Operands[0], sc)
	if lOut.Signal != Normal {
		return lOut
	}
	rOut := e.Eval(&node.Operands[1], sc)
	if rOut.Signal != Normal {
		value.Unref(lOut.Val)
		return rOut
	}
	defer value.Unref(lOut.Val)
	defer value.Unref(rOut.Val)
	switch node.Conn {
	case ast.ConnAnd:
		return normal(operators.KleeneAnd(lOut.Val, rOut.Val))
	case ast.ConnOr:
		return normal(operators.KleeneOr(lOut.Val, rOut.Val))
	case ast.ConnImplies:
		return normal(operators.Implication(lOut.Val, rOut.Val))
	case ast.ConnIff:
		return normal(operators.Iff(lOut.Val, rOut.Val))
	}
	return normal(value.NewNull())
}

func (e *Evaluator) evalCompareNode(node *ast.Node, sc *scope.Scope, relation string) Outcome {
	lOut := e.Eval(node.Left, sc)
	if lOut.Signal != Normal {
		return lOut
	}
	rOut := e.Eval(node.Right, sc)
	if rOut.Signal != Normal {
		value.Unref(lOut.Val)
		return rOut
	}
	defer value.Unref(lOut.Val)
	defer value.Unref(rOut.Val)
	switch relation {
	case "==":
		return normal(operators.EqualsOp(lOut.Val, rOut.Val, false))
	case "!=":
		return normal(operators.EqualsOp(lOut.Val, rOut.Val, true))
	default:
		return normal(operators.Compare(lOut.Val, rOut.Val, relation))
	}
}

func (e *Evaluator) evalFileRef(node *ast.Node, sc *scope.Scope) Outcome {
	if e.Builtins == nil || e.Builtins.FileRef == nil {
		return normal(errorf(zerrors.CodeIO, "file references are not supported in this context"))
	}
	pathOut := e.Eval(node.TargetExpr, sc)
	if pathOut.Signal != Normal {
		return pathOut
	}
	defer value.Unref(pathOut.Val)
	v, err := e.Builtins.FileRef(pathOut.Val.Str(), node.PropertyPath)
	if err != nil {
		return normal(errorf(zerrors.CodeIO, "%s", err.Error()))
	}
	return normal(v)
}

func (e *Evaluator) evalFunctionCall(node *ast.Node, sc *scope.Scope) Outcome {
	if node.CalleeExpr != nil {
		return e.evalMethodCall(node, sc)
	}
	return e.evalFunctionCallByName(node.CalleeName, node.Args, sc)
}

// evalMethodCall handles `obj.method(args)` and `callee()()` forms, where
// the callee is itself an expression rather than a bare name.
func (e *Evaluator) evalMethodCall(node *ast.Node, sc *scope.Scope) Outcome {
	recvOut := e.Eval(node.CalleeExpr, sc)
	if recvOut.Signal != Normal {
		return recvOut
	}
	defer value.Unref(recvOut.Val)

	if node.CalleeName != "" {
		var fn *value.Value
		switch recvOut.Val.Kind() {
		case value.Instance:
			if m := recvOut.Val.Instance().Properties.ObjectGet(node.CalleeName); m != nil {
				fn = m
			} else if m := findMethod(recvOut.Val.Instance().Class, node.CalleeName); m != nil {
				fn = m
			}
		case value.Object:
			fn = recvOut.Val.ObjectGet(node.CalleeName)
		case value.Class:
			fn = findMethod(recvOut.Val, node.CalleeName)
		}
		if fn == nil || fn.Kind() != value.Function {
			return normal(errorf(zerrors.CodeType, "%s is not callable", node.CalleeName))
		}
		args, sig, sigVal := e.evalArgs(node.Args, sc)
		if sig != Normal {
			return Outcome{Val: sigVal, Signal: sig}
		}
		var this *value.Value
		if recvOut.Val.Kind() == value.Instance {
			this = recvOut.Val
		}
		return e.invoke(fn, args, this)
	}

	if recvOut.Val.Kind() != value.Function {
		return normal(errorf(zerrors.CodeType, "value is not callable"))
	}
	args, sig, sigVal := e.evalArgs(node.Args, sc)
	if sig != Normal {
		return Outcome{Val: sigVal, Signal: sig}
	}
	return e.invoke(recvOut.Val, args, nil)
}

func (e *Evaluator) evalFunctionCallByName(name string, argNodes []ast.Node, sc *scope.Scope) Outcome {
	if len(name) > 4 && name[:4] == "new " {
		return e.evalNew(name[4:], argNodes, sc)
	}

	// builtins dispatch before user-scope lookup
	if e.Builtins != nil && e.Builtins.Has(name) {
		args, sig, sigVal := e.evalArgs(argNodes, sc)
		if sig != Normal {
			return Outcome{Val: sigVal, Signal: sig}
		}
		defer releaseAll(args)
		v, err := e.Builtins.Call(name, args)
		if err != nil {
			return normal(errorf(zerrors.CodeArity, "%s", err.Error()))
		}
		return normal(v)
	}

	fnVal, ok := sc.Get(name)
	if !ok {
		return normal(errorf(zerrors.CodeName, "undefined function %s", name))
	}
	if fnVal.Kind() != value.Function {
		return normal(errorf(zerrors.CodeType, "%s is not callable", name))
	}
	args, sig, sigVal := e.evalArgs(argNodes, sc)
	if sig != Normal {
		return Outcome{Val: sigVal, Signal: sig}
	}
	return e.invoke(fnVal, args, nil)
}

func (e *Evaluator) evalNew(className string, argNodes []ast.Node, sc *scope.Scope) Outcome {
	clsVal, ok := sc.Get(className)
	if !ok {
		return normal(errorf(zerrors.CodeName, "undefined class %s", className))
	}
	if clsVal.Kind() != value.Class {
		return normal(errorf(zerrors.CodeType, "%s is not a class", className))
	}
	inst := value.NewInstance(value.Ref(clsVal), value.NewObject())
	if ctor := findMethod(clsVal, "init"); ctor != nil {
		args, sig, sigVal := e.evalArgs(argNodes, sc)
		if sig != Normal {
			value.Unref(inst)
			return Outcome{Val: sigVal, Signal: sig}
		}
		out := e.invoke(ctor, args, inst)
		if out.Signal == ThrowSig {
			value.Unref(inst)
			return out
		}
		value.Unref(out.Val)
	}
	return normal(inst)
}

// evalArgs evaluates a call's argument list left-to-right, expanding
// Spread nodes inline.
func (e *Evaluator) evalArgs(nodes []ast.Node, sc *scope.Scope) ([]*value.Value, Signal, *value.Value) {
	var args []*value.Value
	for i := range nodes {
		n := &nodes[i]
		if n.Kind == ast.KindSpread {
			out := e.Eval(n.Left, sc)
			if out.Signal != Normal {
				releaseAll(args)
				return nil, out.Signal, out.Val
			}
			if out.Val.Kind() == value.Array {
				for _, item := range out.Val.ArrayElements() {
					args = append(args, value.Ref(item))
				}
			}
			value.Unref(out.Val)
			continue
		}
		out := e.Eval(n, sc)
		if out.Signal != Normal {
			releaseAll(args)
			return nil, out.Signal, out.Val
		}
		args = append(args, out.Val)
	}
	return args, Normal, nil
}

func releaseAll(vs []*value.Value) {
	for _, v := range vs {
		value.Unref(v)
	}
}

// invoke calls a user-defined Function value, binding parameters
// (spread tail parameter collects the remainder; missing
// positional arguments bind null; extras beyond a non-spread tail are
// discarded), and pushes a frame parented on the closure's captured scope,
// not the caller's frame (lexical capture). args transfer in; this is
// borrowed from the caller.
func (e *Evaluator) invoke(fn *value.Value, args []*value.Value, this *value.Value) Outcome {
	closure := fn.Closure()
	node, ok := closure.Node.(*ast.Node)
	if !ok {
		releaseAll(args)
		return normal(errorf(zerrors.CodeType, "value is not callable"))
	}
	capturedScope, _ := closure.Scope.(*scope.Scope)
	frame := scope.New(capturedScope)
	if this != nil {
		frame.Define("this", value.Ref(this))
	}

	for i, p := range node.Params {
		if p.Spread {
			rest := value.NewArray()
			for j := i; j < len(args); j++ {
				rest.ArrayPush(args[j])
			}
			frame.Define(p.Name, rest)
			break
		}
		if i < len(args) {
			frame.Define(p.Name, args[i])
		} else {
			frame.Define(p.Name, value.NewNull())
		}
	}
	// release any extra args discarded beyond the param list / spread
	lastNonSpread := len(node.Params)
	for i, p := range node.Params {
		if p.Spread {
			lastNonSpread = i
			break
		}
	}
	if lastNonSpread == len(node.Params) {
		for i := lastNonSpread; i < len(args); i++ {
			value.Unref(args[i])
		}
	}

	out := e.Eval(node.Body, frame)
	frame.Release()

	switch out.Signal {
	case ReturnSig:
		return normal(out.Val)
	case ThrowSig:
		return out
	case BreakSig:
		value.Unref(out.Val)
		return normal(errorf(zerrors.CodeType, "break outside loop"))
	default:
		value.Unref(out.Val)
		return normal(value.NewNull())
	}
}

// EvalProgram evaluates a root Compound node against the global scope. An
// uncaught Throw becomes the program's result. A thrown non-Error value is
// wrapped as a UserError so the CLI still reports a failure.
func (e *Evaluator) EvalProgram(root *ast.Node, global *scope.Scope) *value.Value {
	out := e.Eval(root, global)
	if out.Signal == ThrowSig && out.Val.Kind() != value.Error {
		msg := value.ToString(out.Val)
		value.Unref(out.Val)
		return value.NewError(msg, zerrors.NumericCode(zerrors.CodeUser))
	}
	return out.Val
}
