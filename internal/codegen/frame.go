package codegen

import (
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/types"
)

// Frame is one function's local storage layout: a flat name->offset map
// covering both parameters and locals, grounded on ysem/ir.go's per-function
// `locals map[string]*VarDef` (IRGen.locals) with each VarDef carrying a
// resolved Offset and the enclosing IRFunction carrying FrameSize. Like the
// teacher, this is a flat map rather than a scope stack: a shadowed name's
// slot is simply overwritten by the inner declaration's, which is safe
// because internal/sema already rejects same-scope redeclaration and warns
// on shadowing before codegen ever runs.
type Frame struct {
	Slots map[string]int32
	Size  int32
}

// buildFrame walks a function's parameters and every local var/const
// declaration reachable in its body, assigning each a sequential byte
// offset sized by its resolved type (struct-aware via layout).
func buildFrame(fn *ast.FuncDecl, layout *types.LayoutTable) *Frame {
	f := &Frame{Slots: make(map[string]int32)}
	for _, p := range fn.Params {
		f.place(p.Name, p.ParamType, 0, layout)
	}
	if fn.Body != nil {
		f.walkBlock(fn.Body, layout)
	}
	return f
}

func (f *Frame) place(name string, t *types.Type, arrayLen int, layout *types.LayoutTable) {
	size := t.Size(layout.Structs)
	if arrayLen > 0 {
		size *= arrayLen
	}
	if size < types.WordSize {
		size = types.WordSize // every slot occupies at least one stack word
	}
	f.Slots[name] = f.Size
	f.Size += int32(size)
}

func (f *Frame) walkBlock(b *ast.Block, layout *types.LayoutTable) {
	for _, s := range b.Stmts {
		f.walkStmt(s, layout)
	}
}

func (f *Frame) walkStmt(s ast.Stmt, layout *types.LayoutTable) {
	switch st := s.(type) {
	case *ast.DeclStmt:
		switch d := st.Decl.(type) {
		case *ast.VarDecl:
			f.place(d.Name, d.DeclType, d.ArrayLen, layout)
		case *ast.ConstDecl:
			f.place(d.Name, d.DeclType, d.ArrayLen, layout)
		}
	case *ast.Block:
		f.walkBlock(st, layout)
	case *ast.IfStmt:
		f.walkStmt(st.Then, layout)
		if st.Else != nil {
			f.walkStmt(st.Else, layout)
		}
	case *ast.WhileStmt:
		f.walkStmt(st.Body, layout)
	case *ast.ForStmt:
		if st.Init != nil {
			f.walkStmt(st.Init, layout)
		}
		f.walkStmt(st.Body, layout)
	}
}
