// Package optimizer runs pluggable AST->AST passes to a fixed point,
// grounded on ypeep/ypeep.go's optimize() loop shape
// (`for { changed := false; ...; if !changed { break } }`), but operating
// on the AST instead of assembly text lines since RT-Micro-C has no
// separate assembly stage. Iteration is capped (spec suggests 3) rather
// than left unbounded, since AST rewrites can in principle cycle where the
// teacher's text patterns could not.
package optimizer

import "github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"

const maxIterations = 3

// Pass is one idempotent AST rewrite.
type Pass func(*ast.Program) bool // returns true if it changed anything

// Optimizer owns the pass pipeline. New fixes the pass list; there is no
// switch for an individual pass, and the CLI's --no-optimize skips the
// whole stage.
type Optimizer struct {
	passes []Pass
}

func New() *Optimizer {
	return &Optimizer{
		passes: []Pass{
			ConstantFold,
			ShortCircuit,
			DeadBranch,
			DeadStore,
		},
	}
}

// Optimize runs every pass in sequence, repeating the whole sequence until
// none of them report a change or maxIterations is reached.
func (o *Optimizer) Optimize(prog *ast.Program) {
	for i := 0; i < maxIterations; i++ {
		changed := false
		for _, pass := range o.passes {
			if pass(prog) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}
