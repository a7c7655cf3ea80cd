// Package builtin implements the name -> native-function registry the
// evaluator dispatches to before falling back to user-defined scope
// lookup.
package builtin

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/oxhq/zenlang/internal/logging"
	"github.com/oxhq/zenlang/internal/value"
	"github.com/oxhq/zenlang/internal/zerrors"
)

// Fn is a native function: it receives already-evaluated argument values
// (the caller of Registry.Call releases them after the call returns) and
// produces one owned result value.
type Fn func(args []*value.Value) (*value.Value, error)

// FileResolver resolves an `@path.prop` reference or a loadJsonFile/
// loadYamlFile call to a Value, used by evalFileRef and the json/yaml
// builtins. Backed by internal/filecache in production; nil in contexts
// that don't support file I/O (embedding without a filesystem).
type FileResolver func(path, propertyPath string) (*value.Value, error)

// Registry is the name -> native-function map plus the side-table of
// collaborators (file resolution, stdout/stdin) builtins need.
type Registry struct {
	fns     map[string]Fn
	Out     io.Writer
	In      *bufio.Reader
	FileRef FileResolver
}

// New builds a Registry with every built-in function registered
// against the given stdout writer and stdin reader.
func New(out io.Writer, in io.Reader) *Registry {
	r := &Registry{fns: make(map[string]Fn), Out: out, In: bufio.NewReader(in)}
	r.registerCore()
	r.registerConversions()
	r.registerLogging()
	r.registerJSON()
	r.registerLogic()
	return r
}

// Has reports whether name is a registered built-in.
func (r *Registry) Has(name string) bool {
	_, ok := r.fns[name]
	return ok
}

// acceptsErrors lists the builtins that operate on Error values instead
// of propagating them.
var acceptsErrors = map[string]bool{
	"type":     true,
	"typeOf":   true,
	"isType":   true,
	"toString": true,
	"toNumber": true,
	"print":    true,
}

// Call invokes name with args. Argument references stay owned by the
// caller; Call never consumes them. An Error argument short-circuits the
// call and propagates, except for the builtins that explicitly accept
// errors.
func (r *Registry) Call(name string, args []*value.Value) (*value.Value, error) {
	fn, ok := r.fns[name]
	if !ok {
		return nil, fmt.Errorf("unknown builtin function %s", name)
	}
	if !acceptsErrors[name] {
		for _, a := range args {
			if a != nil && a.Kind() == value.Error {
				return value.Ref(a), nil
			}
		}
	}
	return fn(args)
}

func (r *Registry) register(name string, fn Fn) {
	r.fns[name] = fn
}

func arg(args []*value.Value, i int) *value.Value {
	if i < 0 || i >= len(args) {
		return value.NewNull()
	}
	return args[i]
}

func (r *Registry) registerCore() {
	r.register("print", func(args []*value.Value) (*value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = value.ToString(a)
		}
		fmt.Fprintln(r.Out, strings.Join(parts, " "))
		return value.NewNull(), nil
	})

	r.register("input", func(args []*value.Value) (*value.Value, error) {
		if len(args) > 0 {
			fmt.Fprint(r.Out, value.ToString(args[0]))
		}
		line, err := r.In.ReadString('\n')
		if err != nil && line == "" {
			return value.NewString(""), nil
		}
		return value.NewString(strings.TrimRight(line, "\r\n")), nil
	})

	r.register("len", func(args []*value.Value) (*value.Value, error) {
		return value.NewNumber(float64(value.Len(arg(args, 0)))), nil
	})

	r.register("type", func(args []*value.Value) (*value.Value, error) {
		return value.NewString(value.TypeName(arg(args, 0))), nil
	})
	r.register("typeOf", func(args []*value.Value) (*value.Value, error) {
		return value.NewString(value.TypeName(arg(args, 0))), nil
	})

	r.register("isType", func(args []*value.Value) (*value.Value, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("isType expects 2 arguments")
		}
		return value.NewBoolean(value.TypeName(args[0]) == args[1].Str()), nil
	})
}

func (r *Registry) registerConversions() {
	r.register("toString", func(args []*value.Value) (*value.Value, error) {
		return value.NewString(value.ToString(arg(args, 0))), nil
	})

	r.register("toNumber", func(args []*value.Value) (*value.Value, error) {
		a := arg(args, 0)
		if a.Kind() == value.Error {
			return value.NewNumber(float64(a.Code())), nil
		}
		n, ok := value.ToNumber(a)
		if !ok {
			return value.NewNumber(0), nil
		}
		return value.NewNumber(n), nil
	})

	r.register("toBoolean", func(args []*value.Value) (*value.Value, error) {
		return value.NewBoolean(value.Truthy(arg(args, 0))), nil
	})

	r.register("parseInt", func(args []*value.Value) (*value.Value, error) {
		if len(args) == 0 || args[0].Kind() != value.String {
			return value.NewNumber(0), nil
		}
		base := 10
		if len(args) > 1 {
			b, _ := value.ToNumber(args[1])
			base = int(b)
		}
		if base < 2 || base > 36 {
			f := zerrors.New(zerrors.CodeRange, "base must be between 2 and 36")
			return value.NewError(f.Message, zerrors.NumericCode(zerrors.CodeRange)), nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(args[0].Str()), base, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				f := zerrors.New(zerrors.CodeRange, "integer out of range: %s", args[0].Str())
				return value.NewError(f.Message, zerrors.NumericCode(zerrors.CodeRange)), nil
			}
			return value.NewNumber(0), nil
		}
		return value.NewNumber(float64(n)), nil
	})

	r.register("parseFloat", func(args []*value.Value) (*value.Value, error) {
		if len(args) == 0 || args[0].Kind() != value.String {
			return value.NewNumber(0), nil
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(args[0].Str()), 64)
		if err != nil {
			return value.NewNumber(0), nil
		}
		return value.NewNumber(n), nil
	})
}

func (r *Registry) registerLogging() {
	r.register("logDebug", func(args []*value.Value) (*value.Value, error) {
		logging.Debug(joinArgs(args))
		return value.NewNull(), nil
	})
	r.register("logInfo", func(args []*value.Value) (*value.Value, error) {
		logging.Info(joinArgs(args))
		return value.NewNull(), nil
	})
	r.register("logWarn", func(args []*value.Value) (*value.Value, error) {
		logging.Warn(joinArgs(args))
		return value.NewNull(), nil
	})
	r.register("logError", func(args []*value.Value) (*value.Value, error) {
		logging.Error(joinArgs(args))
		return value.NewNull(), nil
	})
	r.register("logSetLevel", func(args []*value.Value) (*value.Value, error) {
		n, _ := value.ToNumber(arg(args, 0))
		logging.SetLevel(int(n))
		return value.NewNull(), nil
	})
}

func joinArgs(args []*value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.ToString(a)
	}
	return strings.Join(parts, " ")
}

func (r *Registry) registerJSON() {
	r.register("jsonParse", func(args []*value.Value) (*value.Value, error) {
		if len(args) == 0 || args[0].Kind() != value.String {
			return nil, fmt.Errorf("jsonParse expects a string argument")
		}
		v, err := ParseJSON(args[0].Str())
		if err != nil {
			f := zerrors.New(zerrors.CodeIO, "%s", err.Error())
			return value.NewError(f.Message, zerrors.NumericCode(zerrors.CodeIO)), nil
		}
		return v, nil
	})

	r.register("jsonStringify", func(args []*value.Value) (*value.Value, error) {
		return value.NewString(StringifyJSON(arg(args, 0), "")), nil
	})

	r.register("jsonPretty", func(args []*value.Value) (*value.Value, error) {
		indent := "  "
		if len(args) > 1 {
			if n, ok := value.ToNumber(args[1]); ok {
				indent = strings.Repeat(" ", int(n))
			}
		}
		return value.NewString(StringifyJSON(arg(args, 0), indent)), nil
	})

	r.register("loadJsonFile", func(args []*value.Value) (*value.Value, error) {
		return r.loadFile(args, "json")
	})
	r.register("loadYamlFile", func(args []*value.Value) (*value.Value, error) {
		return r.loadFile(args, "yaml")
	})
}

func (r *Registry) loadFile(args []*value.Value, kind string) (*value.Value, error) {
	if len(args) == 0 || args[0].Kind() != value.String {
		return nil, fmt.Errorf("%s loader expects a path string", kind)
	}
	if r.FileRef == nil {
		f := zerrors.New(zerrors.CodeIO, "file loading is not supported in this context")
		return value.NewError(f.Message, zerrors.NumericCode(zerrors.CodeIO)), nil
	}
	v, err := r.FileRef(args[0].Str(), "")
	if err != nil {
		f := zerrors.New(zerrors.CodeIO, "%s", err.Error())
		return value.NewError(f.Message, zerrors.NumericCode(zerrors.CodeIO)), nil
	}
	return v, nil
}

// Names returns every registered builtin name, sorted, for introspection
// (help text, tests).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for n := range r.fns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
