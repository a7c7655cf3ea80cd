// Command zen is the Zen interpreter's entrypoint: it parses CLI flags
// with pflag (matching the starting codebase's own cmd/morfx/main.go),
// loads configuration, and either runs a source file or drops into a
// REPL reading statements from stdin.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/oxhq/zenlang/internal/builtin"
	"github.com/oxhq/zenlang/internal/config"
	"github.com/oxhq/zenlang/internal/evaluator"
	"github.com/oxhq/zenlang/internal/filecache"
	"github.com/oxhq/zenlang/internal/importer"
	"github.com/oxhq/zenlang/internal/logging"
	"github.com/oxhq/zenlang/internal/parser"
	"github.com/oxhq/zenlang/internal/scope"
	"github.com/oxhq/zenlang/internal/value"
)

// process exit codes.
const (
	exitOK         = 0
	exitRuntime    = 1
	exitParseError = 2
	exitUsage      = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("zen", pflag.ContinueOnError)
	fs.Usage = func() { printUsage(fs) }

	logLevel := fs.String("log-level", "", "Minimum log level: DEBUG, INFO, WARN, ERROR.")
	noCache := fs.Bool("no-cache", false, "Disable the file-reference parse cache.")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: at most one source file argument is accepted")
		fs.Usage()
		return exitUsage
	}

	config.LoadDotEnv()
	cfg := config.Load()
	if *logLevel != "" {
		cfg.LogLevel = strings.ToUpper(*logLevel)
	}
	if *noCache {
		cfg.NoCache = true
	}
	logging.SetLevel(config.LogLevelNumber(cfg.LogLevel))

	cache := openCache(cfg)
	builtins := builtin.New(os.Stdout, os.Stdin)
	builtins.FileRef = cache.Resolver()
	ev := evaluator.New(builtins)
	ev.Importer = importer.New()

	if fs.NArg() == 1 {
		return runFile(ev, fs.Arg(0))
	}
	return runREPL(ev)
}

func openCache(cfg *config.Config) *filecache.Cache {
	if cfg.NoCache {
		return filecache.Disabled()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.CacheDir), 0o755); err != nil {
		logging.Warn(fmt.Sprintf("file cache: could not create cache directory: %v", err))
		return filecache.Disabled()
	}
	cache, err := filecache.Open(cfg.CacheDir)
	if err != nil {
		logging.Warn(fmt.Sprintf("file cache: %v, continuing without a persistent cache", err))
		return filecache.Disabled()
	}
	return cache
}

func runFile(ev *evaluator.Evaluator, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	ev.BaseDir = filepath.Dir(path)
	root, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		return exitParseError
	}
	global := scope.New(nil)
	result := ev.EvalProgram(root, global)
	defer value.Unref(result)
	if result.Kind() == value.Error {
		fmt.Fprintf(os.Stderr, "%s\n", value.ToString(result))
		return exitRuntime
	}
	return exitOK
}

// runREPL reads statements from stdin until EOF, maintaining a single
// global scope across inputs.
func runREPL(ev *evaluator.Evaluator) int {
	global := scope.New(nil)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var src strings.Builder
	for scanner.Scan() {
		src.WriteString(scanner.Text())
		src.WriteByte('\n')
	}
	if src.Len() == 0 {
		return exitOK
	}

	root, err := parser.Parse([]byte(src.String()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		return exitParseError
	}
	result := ev.EvalProgram(root, global)
	defer value.Unref(result)
	if result.Kind() == value.Error {
		fmt.Fprintf(os.Stderr, "%s\n", value.ToString(result))
		return exitRuntime
	}
	return exitOK
}

func printUsage(fs *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage: zen [flags] [script.zn]")
	fmt.Fprintln(os.Stderr, "Runs a Zen script, or starts a REPL reading statements from stdin when no script is given.")
	fmt.Fprintln(os.Stderr, "\nFlags:")
	fs.PrintDefaults()
}
