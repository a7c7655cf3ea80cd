// Package importer implements Zen's glob-expanding multi-file import:
// `import "./lib/*.zn"` matches every file
// under the importing script's directory with doublestar, parsing each
// into its own AST root for the evaluator to run in a child scope.
package importer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oxhq/zenlang/internal/ast"
	"github.com/oxhq/zenlang/internal/parser"
)

// Importer resolves import paths against a base directory, parsing every
// matched file. It implements evaluator.Importer.
type Importer struct {
	// seen guards against importing the same resolved file twice within
	// one program run.
	seen map[string]bool
}

// New returns a fresh Importer.
func New() *Importer {
	return &Importer{seen: make(map[string]bool)}
}

// Resolve glob-expands path relative to fromDir (using doublestar, which
// supports ** recursive matching that filepath.Glob lacks) and parses
// every newly-seen match.
func (im *Importer) Resolve(fromDir, path string) ([]*ast.Node, error) {
	pattern := path
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(fromDir, pattern)
	}
	pattern = filepath.ToSlash(pattern)

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid import pattern %s: %w", path, err)
	}
	if len(matches) == 0 {
		// no glob metacharacters: treat as a literal, possibly-missing file
		if _, statErr := os.Stat(pattern); statErr == nil {
			matches = []string{pattern}
		} else {
			return nil, fmt.Errorf("no files matched import %s", path)
		}
	}

	var roots []*ast.Node
	for _, m := range matches {
		abs, err := filepath.Abs(m)
		if err != nil {
			abs = m
		}
		if im.seen[abs] {
			continue
		}
		im.seen[abs] = true

		src, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read import %s: %w", m, err)
		}
		root, err := parser.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse import %s: %w", m, err)
		}
		roots = append(roots, root)
	}
	return roots, nil
}
