// Package importer resolves RT-Micro-C's `import "path";` declarations
// recursively, grounded on original_source/RTMC-Compiler/main.py's
// parse_with_imports: depth-first, left-to-right, imported declarations
// hoisted ahead of the importing file's own. Strengthened over the
// original's per-branch imported_files.copy() (which could re-tokenize a
// diamond-imported file once per import path) with a single
// compilation-wide visited set, satisfying spec's "must not re-tokenize a
// file already processed" invariant exactly rather than approximately.
package importer

import (
	"os"
	"path/filepath"

	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/diag"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/parser"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/token"
)

// Driver resolves imports starting from a root file.
type Driver struct {
	visited map[string]bool
	Errors  diag.Bag
}

func NewDriver() *Driver {
	return &Driver{visited: make(map[string]bool)}
}

// Load parses rootPath and every file it (transitively) imports, returning
// one merged Program with imported declarations ordered before the root
// file's own, depth-first and left-to-right.
func (d *Driver) Load(rootPath string) *ast.Program {
	return d.load(rootPath)
}

func (d *Driver) load(path string) *ast.Program {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if d.visited[abs] {
		// Already processed on this (or an earlier) import path: return an
		// empty program rather than re-tokenizing, breaking both diamond
		// re-reads and import cycles.
		return &ast.Program{}
	}
	d.visited[abs] = true

	src, err := os.ReadFile(abs)
	if err != nil {
		d.Errors.Add(diag.Import, diag.Loc{File: path}, "cannot read import %q: %v", path, err)
		return &ast.Program{}
	}

	lex := token.NewLexer(src, abs)
	toks := lex.Tokenize()
	d.Errors.Merge(&lex.Errors)

	p := parser.New(toks)
	prog := p.Parse()
	d.Errors.Merge(&p.Errors)

	var imported []ast.Decl
	var own []ast.Decl
	dir := filepath.Dir(abs)

	for _, decl := range prog.Decls {
		imp, ok := decl.(*ast.ImportDecl)
		if !ok {
			own = append(own, decl)
			continue
		}
		childPath := imp.Path
		if !filepath.IsAbs(childPath) {
			childPath = filepath.Join(dir, childPath)
		}
		childProg := d.load(childPath)
		imported = append(imported, childProg.Decls...)
	}

	return &ast.Program{Decls: append(imported, own...)}
}
