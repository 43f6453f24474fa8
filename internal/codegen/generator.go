// Package codegen lowers a type-checked *ast.Program into a *bytecode.Program,
// grounded on ygen/emit.go's one-helper-per-instruction idiom (Ldw/Ldb/
// Instr2/Instr3) and ysem/ir.go's per-function flat locals map with resolved
// offsets, adapted from text-assembly emission to direct Instruction struct
// emission since RT-Micro-C has no separate assembler stage.
package codegen

import (
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/bytecode"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/sema"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/types"
)

type Opcode = bytecode.Opcode

// CompileMode selects whether debug-line information is emitted, mirroring
// original_source/RTMC-Compiler/main.py's CompileMode.DEBUG/RELEASE.
type CompileMode int

const (
	ModeDebug CompileMode = iota
	ModeRelease
)

// Generator walks a type-checked program once, in declaration order, and
// produces a fully-resolved bytecode.Program (no pending fixups survive
// Generate's return).
type Generator struct {
	prog     *ast.Program
	analyzer *sema.Analyzer
	layout   *types.LayoutTable
	mode     CompileMode

	intConsts   []int64
	intIndex    map[int64]int32
	floatConsts []float64
	floatIndex  map[float64]int32
	strings     []string
	stringIndex map[string]int32

	globals      []bytecode.Global
	globalOffset map[string]int32
	globalSize   map[string]int32
	nextGlobal   int32

	messages map[string]*types.Type

	funcs     []bytecode.Function
	funcIndex map[string]int32

	instrs     []bytecode.Instruction
	debugLines []bytecode.DebugLine

	fixups   []Fixup
	labelPos map[int]int32
	nextLabel int

	frame      *Frame
	breakLbl   []int
	continueLbl []int
	labelByName map[string]int
}

// New creates a Generator over an already-analyzed program; analyzer must
// have had Analyze() called (and returned true) beforehand.
func New(prog *ast.Program, analyzer *sema.Analyzer, mode CompileMode) *Generator {
	return &Generator{
		prog:         prog,
		analyzer:     analyzer,
		layout:       analyzer.Layout(),
		mode:         mode,
		intIndex:     make(map[int64]int32),
		floatIndex:   make(map[float64]int32),
		stringIndex:  make(map[string]int32),
		globalOffset: make(map[string]int32),
		globalSize:   make(map[string]int32),
		messages:     analyzer.Messages(),
		funcIndex:    make(map[string]int32),
		labelPos:     make(map[int]int32),
	}
}

// Generate runs the full lowering and returns the finished bytecode.Program.
func (g *Generator) Generate() (*bytecode.Program, error) {
	g.layoutGlobals()
	g.declareFunctionSignatures()

	for _, d := range g.prog.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			if err := g.genFunction(decl.Name, decl.Params, decl.Body, false); err != nil {
				return nil, err
			}
		case *ast.TaskDecl:
			if err := g.genFunction(decl.Name, nil, decl.Body, true); err != nil {
				return nil, err
			}
		}
	}

	if err := g.resolveFixups(); err != nil {
		return nil, err
	}

	prog := &bytecode.Program{
		IntConsts:    g.intConsts,
		FloatConsts:  g.floatConsts,
		Strings:      g.strings,
		Globals:      g.globals,
		Functions:    g.funcs,
		Instructions: g.instrs,
	}
	if g.mode == ModeDebug {
		prog.DebugLines = g.debugLines
	}
	return prog, nil
}

// layoutGlobals assigns every top-level var/const/message a sequential
// global offset, in declaration order, the global-storage analog of
// buildFrame's per-function local layout.
func (g *Generator) layoutGlobals() {
	for _, d := range g.prog.Decls {
		switch decl := d.(type) {
		case *ast.VarDecl:
			g.placeGlobal(decl.Name, decl.DeclType, decl.ArrayLen)
		case *ast.ConstDecl:
			g.placeGlobal(decl.Name, decl.DeclType, decl.ArrayLen)
		case *ast.MessageDecl:
			g.placeGlobal(decl.Name, types.Pointer(decl.PayloadType), 0)
		}
	}
}

func (g *Generator) placeGlobal(name string, t *types.Type, arrayLen int) {
	size := t.Size(g.layout.Structs)
	if arrayLen > 0 {
		size *= arrayLen
	}
	if size < types.WordSize {
		size = types.WordSize
	}
	g.globalOffset[name] = g.nextGlobal
	g.globalSize[name] = int32(size)
	g.globals = append(g.globals, bytecode.Global{Name: name, Offset: g.nextGlobal, Size: int32(size)})
	g.nextGlobal += int32(size)
}

// declareFunctionSignatures reserves a Function table slot (with entry
// point filled in once the body is generated) for every function/task, so
// forward calls resolve to a stable index during the single emission pass.
func (g *Generator) declareFunctionSignatures() {
	for _, d := range g.prog.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			g.funcIndex[decl.Name] = int32(len(g.funcs))
			g.funcs = append(g.funcs, bytecode.Function{Name: decl.Name, NumParams: int32(len(decl.Params))})
		case *ast.TaskDecl:
			g.funcIndex[decl.Name] = int32(len(g.funcs))
			g.funcs = append(g.funcs, bytecode.Function{Name: decl.Name, IsTask: true})
		}
	}
}

func (g *Generator) genFunction(name string, params []*ast.Param, body *ast.Block, isTask bool) error {
	fn := &ast.FuncDecl{Name: name, Params: params, Body: body}
	g.frame = buildFrame(fn, g.layout)
	g.labelByName = make(map[string]int)
	g.breakLbl = nil
	g.continueLbl = nil

	idx := g.funcIndex[name]
	g.funcs[idx].EntryPC = int32(len(g.instrs))
	g.funcs[idx].FrameSize = g.frame.Size

	if body != nil {
		g.genBlock(body)
	}
	// Every function implicitly falls off the end with a void return.
	// Semantic analysis only rejects a bare `return;` in a value-returning
	// function; it does not check that every path returns, so a
	// value-returning function that reaches here returns with no value.
	g.emit(bytecode.OpReturnVoid, 0, 0, 0, 0)
	return nil
}

func (g *Generator) emit(op Opcode, a, b, c int32, imm int64) int {
	g.instrs = append(g.instrs, bytecode.Instruction{Op: op, A: a, B: b, C: c, Imm: imm})
	return len(g.instrs) - 1
}

func (g *Generator) internInt(v int64) int32 {
	if idx, ok := g.intIndex[v]; ok {
		return idx
	}
	idx := int32(len(g.intConsts))
	g.intConsts = append(g.intConsts, v)
	g.intIndex[v] = idx
	return idx
}

func (g *Generator) internFloat(v float64) int32 {
	if idx, ok := g.floatIndex[v]; ok {
		return idx
	}
	idx := int32(len(g.floatConsts))
	g.floatConsts = append(g.floatConsts, v)
	g.floatIndex[v] = idx
	return idx
}

func (g *Generator) internString(s string) int32 {
	if idx, ok := g.stringIndex[s]; ok {
		return idx
	}
	idx := int32(len(g.strings))
	g.strings = append(g.strings, s)
	g.stringIndex[s] = idx
	return idx
}

// ---- Statements ----

func (g *Generator) genBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		g.genStmt(s)
	}
}

func (g *Generator) genStmt(s ast.Stmt) {
	if g.mode == ModeDebug {
		loc := s.Location()
		g.debugLines = append(g.debugLines, bytecode.DebugLine{
			InstrIndex: int32(len(g.instrs)),
			File:       loc.File,
			Line:       int32(loc.Line),
		})
	}
	switch st := s.(type) {
	case *ast.ExprStmt:
		if st.X != nil {
			g.genExpr(st.X)
			if exprPushesValue(st.X) {
				g.emit(bytecode.OpPop, 0, 0, 0, 0)
			}
		}
	case *ast.Block:
		g.genBlock(st)
	case *ast.DeclStmt:
		g.genDeclStmt(st)
	case *ast.IfStmt:
		g.genIf(st)
	case *ast.WhileStmt:
		g.genWhile(st)
	case *ast.ForStmt:
		g.genFor(st)
	case *ast.ReturnStmt:
		if st.Value != nil {
			g.genExpr(st.Value)
			g.emit(bytecode.OpReturn, 0, 0, 0, 0)
		} else {
			g.emit(bytecode.OpReturnVoid, 0, 0, 0, 0)
		}
	case *ast.BreakStmt:
		if len(g.breakLbl) > 0 {
			g.emitJump(bytecode.OpJump, g.breakLbl[len(g.breakLbl)-1])
		}
	case *ast.ContinueStmt:
		if len(g.continueLbl) > 0 {
			g.emitJump(bytecode.OpJump, g.continueLbl[len(g.continueLbl)-1])
		}
	case *ast.GotoStmt:
		g.emitJump(bytecode.OpJump, g.labelFor(st.Label))
	case *ast.LabelStmt:
		g.placeLabel(g.labelFor(st.Label))
	}
}

// labelFor returns the stable label ID for a named goto/label target,
// allocating one on first reference (a goto may precede its label).
func (g *Generator) labelFor(name string) int {
	if id, ok := g.labelByName[name]; ok {
		return id
	}
	id := g.newLabel()
	g.labelByName[name] = id
	return id
}

func (g *Generator) genDeclStmt(st *ast.DeclStmt) {
	switch d := st.Decl.(type) {
	case *ast.VarDecl:
		g.genVarInit(d.Name, d.DeclType, d.ArrayLen, d.Init)
	case *ast.ConstDecl:
		g.genVarInit(d.Name, d.DeclType, d.ArrayLen, d.Init)
	}
}

// genVarInit lowers a local declaration's initializer. A brace initializer
// list stores each element individually into the aggregate's storage;
// anything else is a single value stored into the whole slot.
func (g *Generator) genVarInit(name string, t *types.Type, arrayLen int, init ast.Expr) {
	if init == nil {
		return
	}
	if initList, ok := init.(*ast.InitExpr); ok {
		g.genAggregateInit(name, t, arrayLen, initList)
		return
	}
	g.genExpr(init)
	g.storeLocal(name)
}

// genAggregateInit stores each {a, b, c} element into an array's sequential
// slots or a struct's field offsets, in source order. Nested aggregate
// elements (an array of structs, say) are not recursed into: a braced
// sub-initializer element is lowered by the generic genExpr InitExpr case,
// which only evaluates its elements without placing them, so initializers
// deeper than one level are a known limitation rather than a silent bug.
func (g *Generator) genAggregateInit(name string, t *types.Type, arrayLen int, init *ast.InitExpr) {
	if arrayLen > 0 {
		elemSize := int32(types.WordSize)
		if t != nil {
			elemSize = int32(t.Size(g.layout.Structs))
		}
		for i, el := range init.Elems {
			g.genExpr(el)
			g.loadAddr(name)
			g.emit(bytecode.OpPushConst, g.internInt(int64(i)), 0, 0, 0)
			g.emit(bytecode.OpStoreIndex, 0, 0, elemSize, 0)
		}
		return
	}
	if t != nil && t.IsStructOrUnion() {
		def, ok := g.layout.Lookup(t.StructName)
		if !ok {
			return
		}
		for i, el := range init.Elems {
			if i >= len(def.Fields) {
				break
			}
			f := def.Fields[i]
			g.genExpr(el)
			g.loadAddr(name)
			g.emit(bytecode.OpStoreField, int32(f.Offset), 0, int32(f.Type.Size(g.layout.Structs)), 0)
		}
	}
}

// loadAddr pushes the address of a named local or global slot.
func (g *Generator) loadAddr(name string) {
	if off, ok := g.frame.Slots[name]; ok {
		g.emit(bytecode.OpLoadAddrLocal, off, 0, 0, 0)
		return
	}
	off := g.globalOffset[name]
	g.emit(bytecode.OpLoadAddrGlobal, off, 0, 0, 0)
}

func (g *Generator) genIf(st *ast.IfStmt) {
	elseLbl := g.newLabel()
	endLbl := g.newLabel()
	g.genExpr(st.Cond)
	g.emitJump(bytecode.OpJumpIfFalse, elseLbl)
	g.genStmt(st.Then)
	g.emitJump(bytecode.OpJump, endLbl)
	g.placeLabel(elseLbl)
	if st.Else != nil {
		g.genStmt(st.Else)
	}
	g.placeLabel(endLbl)
}

func (g *Generator) genWhile(st *ast.WhileStmt) {
	startLbl := g.newLabel()
	endLbl := g.newLabel()
	g.placeLabel(startLbl)
	g.genExpr(st.Cond)
	g.emitJump(bytecode.OpJumpIfFalse, endLbl)
	g.breakLbl = append(g.breakLbl, endLbl)
	g.continueLbl = append(g.continueLbl, startLbl)
	g.genStmt(st.Body)
	g.breakLbl = g.breakLbl[:len(g.breakLbl)-1]
	g.continueLbl = g.continueLbl[:len(g.continueLbl)-1]
	g.emitJump(bytecode.OpJump, startLbl)
	g.placeLabel(endLbl)
}

func (g *Generator) genFor(st *ast.ForStmt) {
	if st.Init != nil {
		g.genStmt(st.Init)
	}
	startLbl := g.newLabel()
	postLbl := g.newLabel()
	endLbl := g.newLabel()
	g.placeLabel(startLbl)
	if st.Cond != nil {
		g.genExpr(st.Cond)
		g.emitJump(bytecode.OpJumpIfFalse, endLbl)
	}
	g.breakLbl = append(g.breakLbl, endLbl)
	g.continueLbl = append(g.continueLbl, postLbl)
	g.genStmt(st.Body)
	g.breakLbl = g.breakLbl[:len(g.breakLbl)-1]
	g.continueLbl = g.continueLbl[:len(g.continueLbl)-1]
	g.placeLabel(postLbl)
	if st.Post != nil {
		g.genExpr(st.Post)
		if exprPushesValue(st.Post) {
			g.emit(bytecode.OpPop, 0, 0, 0, 0)
		}
	}
	g.emitJump(bytecode.OpJump, startLbl)
	g.placeLabel(endLbl)
}

// exprPushesValue reports whether an expression used as a standalone
// statement leaves a value on the stack that must be discarded; every
// RTMC expression does except calls to void-returning functions/intrinsics,
// which the VM is defined to leave the stack unchanged for.
func exprPushesValue(e ast.Expr) bool {
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return true
	}
	t := call.GetType()
	return t != nil && t.Kind != types.KVoid
}

func (g *Generator) storeLocal(name string) {
	if off, ok := g.frame.Slots[name]; ok {
		g.emit(bytecode.OpStoreLocal, off, 0, 0, 0)
		return
	}
	off := g.globalOffset[name]
	g.emit(bytecode.OpStoreGlobal, off, 0, 0, 0)
}
