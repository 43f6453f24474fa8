// Package sema implements RT-Micro-C's semantic analyzer: symbol table
// construction, type resolution/interning, struct/union layout (including
// bitfield packing via internal/types.LayoutTable), scope checking, and
// type checking. Grounded on ysem/analyzer.go's three-phase structure
// (buildSymbolTables -> typeCheck -> generateIR-equivalent) and its
// literal-adaptation helpers (valueFitsInType, adaptLiteralToType),
// generalized from YAPL's flat global+per-function scoping to full nested
// block scoping with shadowing-as-warning, and extended with struct/union
// field lookup, pointer arithmetic, array decay, and the intrinsic/message
// signature-table call checking the teacher has no analog for.
package sema

import (
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/diag"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/symtab"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/types"
)

type Analyzer struct {
	prog      *ast.Program
	Errors    diag.Bag
	syms      *symtab.Table
	layout    *types.LayoutTable
	functions map[string]*ast.FuncDecl
	messages  map[string]*types.Type
	currentFn *ast.FuncDecl
}

func New(prog *ast.Program) *Analyzer {
	return &Analyzer{
		prog:      prog,
		syms:      symtab.NewTable(),
		layout:    types.NewLayoutTable(),
		functions: make(map[string]*ast.FuncDecl),
		messages:  make(map[string]*types.Type),
	}
}

// Layout exposes the resolved struct/union layouts for the bytecode
// generator's field-offset and bitfield-insert/extract lowering.
func (a *Analyzer) Layout() *types.LayoutTable { return a.layout }

// Functions exposes every resolved function signature (each Task is
// registered as a synthetic void FuncDecl with no parameters). The bytecode
// generator does not call it; it builds its own function table from the AST.
func (a *Analyzer) Functions() map[string]*ast.FuncDecl { return a.functions }

// Messages exposes each message<T> queue's payload type. The bytecode
// generator keeps this map, but its MSG_* lowering does not use payload sizes.
func (a *Analyzer) Messages() map[string]*types.Type { return a.messages }

// Analyze runs all phases, stopping (and returning false) before
// generating anything further if buildSymbolTables already produced
// errors, matching spec §7's "non-empty diagnostic set aborts before the
// next stage" rule applied within the analyzer's own sub-phases too.
func (a *Analyzer) Analyze() bool {
	a.buildSymbolTables()
	if a.Errors.HasErrors() {
		return false
	}
	a.typeCheck()
	return !a.Errors.HasErrors()
}

// buildSymbolTables registers every top-level struct/union, const, global
// var, message queue, and function signature before any body is checked,
// so forward references between functions (and from a function to a struct
// declared later in the file) resolve correctly — mirroring
// ysem/analyzer.go's up-front registration pass.
func (a *Analyzer) buildSymbolTables() {
	for _, d := range a.prog.Decls {
		switch decl := d.(type) {
		case *ast.StructDecl:
			a.registerStruct(decl)
		}
	}
	for _, d := range a.prog.Decls {
		switch decl := d.(type) {
		case *ast.ConstDecl:
			a.registerConst(decl)
		case *ast.VarDecl:
			a.registerGlobalVar(decl)
		case *ast.MessageDecl:
			a.registerMessage(decl)
		case *ast.FuncDecl:
			a.registerFunc(decl)
		case *ast.TaskDecl:
			a.registerTask(decl)
		}
	}
}

func (a *Analyzer) registerStruct(decl *ast.StructDecl) {
	if _, exists := a.layout.Lookup(decl.Name); exists {
		a.Errors.Add(diag.Scope, decl.Loc, "redefinition of struct/union '%s'", decl.Name)
		return
	}
	var specs []types.FieldSpec
	for _, f := range decl.Fields {
		specs = append(specs, types.FieldSpec{
			Name: f.Name, Type: f.FieldType, ArrayLen: f.ArrayLen, BitWidth: f.BitWidth,
		})
		if f.BitWidth > 0 && (f.FieldType.Kind != types.KBase || !f.FieldType.IsIntegral()) {
			a.Errors.Add(diag.Layout, f.Loc, "bitfield '%s' must have an integral base type", f.Name)
		}
	}
	def, _ := a.layout.DefineStruct(decl.Name, decl.IsUnion, specs)
	a.verifyLayoutInvariants(decl, def)
	a.syms.Define(&symtab.Symbol{Name: decl.Name, Kind: symtab.SymStruct, IsGlobal: true})
}

// verifyLayoutInvariants checks spec invariant I3 (offsets never overlap
// outside unions, alignment respected) and I4 (a bitfield never spans two
// storage units) against the computed layout.
func (a *Analyzer) verifyLayoutInvariants(decl *ast.StructDecl, def *types.StructDef) {
	for _, f := range def.Fields {
		if f.IsBitfield && f.BitOffset+f.BitWidth > types.WordSize*8 {
			a.Errors.Add(diag.Layout, decl.Loc, "bitfield '%s' would span storage units", f.Name)
		}
		if f.Offset%f.Type.Alignment(a.layout.Structs) != 0 && !f.IsBitfield {
			a.Errors.Add(diag.Layout, decl.Loc, "field '%s' misaligned at offset %d", f.Name, f.Offset)
		}
	}
}

func (a *Analyzer) registerConst(decl *ast.ConstDecl) {
	if a.syms.DeclaredInCurrentScope(decl.Name) {
		a.Errors.Add(diag.Scope, decl.Loc, "redefinition of '%s'", decl.Name)
		return
	}
	val := int64(0)
	if lit, ok := decl.Init.(*ast.LiteralExpr); ok && lit.Kind == ast.LitInt {
		val = lit.IntVal
	}
	a.syms.Define(&symtab.Symbol{Name: decl.Name, Kind: symtab.SymConst, Type: decl.DeclType, ConstVal: val, IsGlobal: true})
}

func (a *Analyzer) registerGlobalVar(decl *ast.VarDecl) {
	if a.syms.DeclaredInCurrentScope(decl.Name) {
		a.Errors.Add(diag.Scope, decl.Loc, "redefinition of '%s'", decl.Name)
		return
	}
	t := decl.DeclType
	if decl.ArrayLen > 0 {
		t = types.Array(t, decl.ArrayLen)
	}
	a.syms.Define(&symtab.Symbol{Name: decl.Name, Kind: symtab.SymVar, Type: t, IsGlobal: true})
}

func (a *Analyzer) registerMessage(decl *ast.MessageDecl) {
	if a.syms.DeclaredInCurrentScope(decl.Name) {
		a.Errors.Add(diag.Scope, decl.Loc, "redefinition of '%s'", decl.Name)
		return
	}
	mt := types.Message(decl.PayloadType)
	a.messages[decl.Name] = decl.PayloadType
	a.syms.Define(&symtab.Symbol{Name: decl.Name, Kind: symtab.SymMessage, Type: mt, IsGlobal: true})
}

func (a *Analyzer) registerFunc(decl *ast.FuncDecl) {
	if a.syms.DeclaredInCurrentScope(decl.Name) {
		a.Errors.Add(diag.Scope, decl.Loc, "redefinition of '%s'", decl.Name)
		return
	}
	a.functions[decl.Name] = decl
	a.syms.Define(&symtab.Symbol{Name: decl.Name, Kind: symtab.SymFunc, Type: decl.ReturnType, FuncDecl: decl, IsGlobal: true})
}

func (a *Analyzer) registerTask(decl *ast.TaskDecl) {
	fd := &ast.FuncDecl{Name: decl.Name, ReturnType: types.Void(), Body: decl.Body, Loc: decl.Loc}
	a.registerFunc(fd)
}

// ---- Type checking ----

func (a *Analyzer) typeCheck() {
	for _, d := range a.prog.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			a.typeCheckFunc(decl)
		case *ast.TaskDecl:
			a.typeCheckFunc(&ast.FuncDecl{Name: decl.Name, ReturnType: types.Void(), Body: decl.Body, Loc: decl.Loc})
		case *ast.VarDecl:
			if decl.Init != nil {
				a.typeCheckExpr(decl.Init)
			}
		}
	}
}

func (a *Analyzer) typeCheckFunc(fn *ast.FuncDecl) {
	a.currentFn = fn
	a.syms.PushScope()
	for _, p := range fn.Params {
		a.defineLocal(p.Name, p.ParamType, p.Loc)
	}
	a.typeCheckBlock(fn.Body)
	a.syms.PopScope()
	a.currentFn = nil
}

func (a *Analyzer) defineLocal(name string, t *types.Type, loc diag.Loc) {
	if a.syms.DeclaredInCurrentScope(name) {
		a.Errors.Add(diag.Scope, loc, "redefinition of '%s'", name)
		return
	}
	if a.syms.ShadowsOuter(name) {
		a.Errors.Warn(diag.Scope, loc, "declaration of '%s' shadows an outer declaration", name)
	}
	a.syms.Define(&symtab.Symbol{Name: name, Kind: symtab.SymVar, Type: t})
}

func (a *Analyzer) typeCheckBlock(b *ast.Block) {
	a.syms.PushScope()
	for _, s := range b.Stmts {
		a.typeCheckStmt(s)
	}
	a.syms.PopScope()
}

func (a *Analyzer) typeCheckStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.ExprStmt:
		if st.X != nil {
			a.typeCheckExpr(st.X)
		}
	case *ast.DeclStmt:
		switch d := st.Decl.(type) {
		case *ast.VarDecl:
			t := d.DeclType
			if d.ArrayLen > 0 {
				t = types.Array(t, d.ArrayLen)
			}
			a.defineLocal(d.Name, t, d.Loc)
			if d.Init != nil {
				a.typeCheckExpr(d.Init)
			}
		case *ast.ConstDecl:
			a.defineLocal(d.Name, d.DeclType, d.Loc)
		}
	case *ast.Block:
		a.typeCheckBlock(st)
	case *ast.IfStmt:
		a.typeCheckExpr(st.Cond)
		a.typeCheckStmt(st.Then)
		if st.Else != nil {
			a.typeCheckStmt(st.Else)
		}
	case *ast.WhileStmt:
		a.typeCheckExpr(st.Cond)
		a.typeCheckStmt(st.Body)
	case *ast.ForStmt:
		a.syms.PushScope()
		if st.Init != nil {
			a.typeCheckStmt(st.Init)
		}
		if st.Cond != nil {
			a.typeCheckExpr(st.Cond)
		}
		if st.Post != nil {
			a.typeCheckExpr(st.Post)
		}
		a.typeCheckStmt(st.Body)
		a.syms.PopScope()
	case *ast.ReturnStmt:
		if st.Value != nil {
			t := a.typeCheckExpr(st.Value)
			if a.currentFn != nil && a.currentFn.ReturnType.Kind == types.KVoid {
				a.Errors.Add(diag.Type, st.Loc, "returning a value from void function '%s'", a.currentFn.Name)
			}
			_ = t
		} else if a.currentFn != nil && a.currentFn.ReturnType.Kind != types.KVoid {
			a.Errors.Add(diag.Type, st.Loc, "missing return value in function '%s'", a.currentFn.Name)
		}
	case *ast.BreakStmt, *ast.ContinueStmt, *ast.GotoStmt, *ast.LabelStmt:
		// no type obligations
	}
}

func (a *Analyzer) valueFitsInType(val int64, t *types.Type) bool {
	if t.Kind != types.KBase {
		return true
	}
	switch t.Base {
	case types.BChar:
		return val >= -128 && val <= 255
	case types.BBool:
		return val == 0 || val == 1
	case types.BInt:
		return val >= -2147483648 && val <= 4294967295
	default:
		return true
	}
}

// adaptLiteralToType mirrors ysem/analyzer.go's in-place literal coercion:
// if a literal's value fits the target type, retype it rather than
// flagging a mismatch.
func (a *Analyzer) adaptLiteralToType(e ast.Expr, target *types.Type) bool {
	lit, ok := e.(*ast.LiteralExpr)
	if !ok || lit.Kind != ast.LitInt {
		return false
	}
	if !a.valueFitsInType(lit.IntVal, target) {
		return false
	}
	lit.SetType(target)
	return true
}

func (a *Analyzer) typesCompatible(t1, t2 *types.Type) bool {
	if t1 == nil || t2 == nil {
		return false
	}
	if t1.Kind == types.KBase && t2.Kind == types.KBase {
		return true // widening between int/char/bool/float handled at codegen
	}
	if t1.Kind == types.KVoid || t2.Kind == types.KVoid {
		return true
	}
	if t1.Kind == types.KPointer && t2.Kind == types.KPointer {
		return true
	}
	if (t1.Kind == types.KPointer && t2.Kind == types.KArray) ||
		(t1.Kind == types.KArray && t2.Kind == types.KPointer) {
		return true
	}
	return types.Equal(t1, t2)
}

func (a *Analyzer) typeCheckExpr(e ast.Expr) *types.Type {
	switch ex := e.(type) {
	case *ast.LiteralExpr:
		var t *types.Type
		switch ex.Kind {
		case ast.LitInt:
			t = types.Base(types.BInt)
		case ast.LitFloat:
			t = types.Base(types.BFloat)
		case ast.LitChar:
			t = types.Base(types.BChar)
		case ast.LitBool:
			t = types.Base(types.BBool)
		case ast.LitString:
			t = types.Array(types.Base(types.BChar), len(ex.StrVal)+1)
		}
		ex.SetType(t)
		return t
	case *ast.IdentExpr:
		sym, ok := a.syms.Lookup(ex.Name)
		if !ok {
			a.Errors.Add(diag.Scope, ex.Loc, "undefined identifier '%s'", ex.Name)
			ex.SetType(types.Void())
			return ex.GetType()
		}
		ex.SetType(sym.Type)
		return sym.Type
	case *ast.BinaryExpr:
		return a.typeCheckBinary(ex)
	case *ast.UnaryExpr:
		return a.typeCheckUnary(ex)
	case *ast.IncDecExpr:
		t := a.typeCheckExpr(ex.Operand)
		ex.SetType(t)
		return t
	case *ast.AssignExpr:
		lt := a.typeCheckExpr(ex.LHS)
		if a.adaptLiteralToType(ex.RHS, lt) {
			ex.SetType(lt)
			return lt
		}
		rt := a.typeCheckExpr(ex.RHS)
		if !a.typesCompatible(lt, rt) {
			a.Errors.Add(diag.Type, ex.Loc, "cannot assign %s to %s", rt, lt)
		}
		ex.SetType(lt)
		return lt
	case *ast.CallExpr:
		return a.typeCheckCall(ex)
	case *ast.IndexExpr:
		at := a.typeCheckExpr(ex.Array)
		it := a.typeCheckExpr(ex.Index)
		if !it.IsIntegral() {
			a.Errors.Add(diag.Type, ex.Loc, "array index must be integral")
		}
		var elem *types.Type
		switch at.Kind {
		case types.KArray:
			elem = at.ElemType
		case types.KPointer:
			elem = at.Pointee
		default:
			a.Errors.Add(diag.Type, ex.Loc, "cannot index non-array/pointer type %s", at)
			elem = types.Void()
		}
		ex.SetType(elem)
		return elem
	case *ast.FieldExpr:
		return a.typeCheckField(ex)
	case *ast.CastExpr:
		a.typeCheckExpr(ex.Operand)
		ex.SetType(ex.TargetType)
		return ex.TargetType
	case *ast.SizeofTypeExpr:
		ex.SetType(types.Base(types.BInt))
		return ex.GetType()
	case *ast.InitExpr:
		for _, el := range ex.Elems {
			a.typeCheckExpr(el)
		}
		ex.SetType(types.Void())
		return ex.GetType()
	case *ast.RecvExpr:
		a.typeCheckExpr(ex.Queue)
		if ex.HasTimeout {
			a.typeCheckExpr(ex.TimeoutMs)
		}
		payload := a.messagePayload(ex.Queue)
		ex.SetType(payload)
		return payload
	}
	return types.Void()
}

func (a *Analyzer) messagePayload(q ast.Expr) *types.Type {
	if id, ok := q.(*ast.IdentExpr); ok {
		if p, ok := a.messages[id.Name]; ok {
			return p
		}
	}
	return types.Void()
}

func (a *Analyzer) typeCheckBinary(ex *ast.BinaryExpr) *types.Type {
	lt := a.typeCheckExpr(ex.Left)
	if a.adaptLiteralToType(ex.Right, lt) {
		ex.Right.SetType(lt)
	}
	rt := a.typeCheckExpr(ex.Right)

	switch ex.Op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe, ast.OpLAnd, ast.OpLOr:
		ex.SetType(types.Base(types.BBool))
		return ex.GetType()
	}

	if lt.Kind == types.KPointer && rt.IsIntegral() && (ex.Op == ast.OpAdd || ex.Op == ast.OpSub) {
		ex.SetType(lt)
		return lt
	}
	if !a.typesCompatible(lt, rt) {
		a.Errors.Add(diag.Type, ex.Loc, "incompatible operand types %s and %s", lt, rt)
	}
	ex.SetType(lt)
	return lt
}

func (a *Analyzer) typeCheckUnary(ex *ast.UnaryExpr) *types.Type {
	t := a.typeCheckExpr(ex.Operand)
	switch ex.Op {
	case ast.UOpAddr:
		pt := types.Pointer(t)
		ex.SetType(pt)
		return pt
	case ast.UOpDeref:
		if t.Kind != types.KPointer {
			a.Errors.Add(diag.Type, ex.Loc, "cannot dereference non-pointer type %s", t)
			ex.SetType(types.Void())
			return ex.GetType()
		}
		ex.SetType(t.Pointee)
		return t.Pointee
	case ast.UOpSizeof:
		ex.SetType(types.Base(types.BInt))
		return ex.GetType()
	default:
		ex.SetType(t)
		return t
	}
}

func (a *Analyzer) typeCheckField(ex *ast.FieldExpr) *types.Type {
	ot := a.typeCheckExpr(ex.Object)
	target := ot
	if ex.IsArrow {
		if ot.Kind != types.KPointer {
			a.Errors.Add(diag.Type, ex.Loc, "'->' requires a pointer operand")
			ex.SetType(types.Void())
			return ex.GetType()
		}
		target = ot.Pointee
	}
	if !target.IsStructOrUnion() {
		a.Errors.Add(diag.Type, ex.Loc, "field access on non-struct/union type %s", target)
		ex.SetType(types.Void())
		return ex.GetType()
	}
	def, ok := a.layout.Lookup(target.StructName)
	if !ok {
		ex.SetType(types.Void())
		return ex.GetType()
	}
	for _, f := range def.Fields {
		if f.Name == ex.Field {
			ex.SetType(f.Type)
			return f.Type
		}
	}
	a.Errors.Add(diag.Type, ex.Loc, "no field '%s' on '%s'", ex.Field, target.StructName)
	ex.SetType(types.Void())
	return ex.GetType()
}

func (a *Analyzer) typeCheckCall(ex *ast.CallExpr) *types.Type {
	for _, arg := range ex.Args {
		a.typeCheckExpr(arg)
	}
	if sig, ok := Intrinsics[ex.FuncName]; ok {
		if len(ex.Args) != len(sig.Params) {
			a.Errors.Add(diag.Type, ex.Loc, "%s expects %d arguments, got %d", ex.FuncName, len(sig.Params), len(ex.Args))
		}
		ex.SetType(sig.ReturnType)
		return sig.ReturnType
	}
	if ex.FuncName == "__msg_send" {
		ex.SetType(types.Void())
		return ex.GetType()
	}
	fn, ok := a.functions[ex.FuncName]
	if !ok {
		a.Errors.Add(diag.Scope, ex.Loc, "call to undeclared function '%s'", ex.FuncName)
		ex.SetType(types.Void())
		return ex.GetType()
	}
	if len(ex.Args) != len(fn.Params) {
		a.Errors.Add(diag.Type, ex.Loc, "%s expects %d arguments, got %d", ex.FuncName, len(fn.Params), len(ex.Args))
	} else {
		for i, arg := range ex.Args {
			want := fn.Params[i].ParamType
			if a.adaptLiteralToType(arg, want) {
				continue
			}
			got := arg.GetType()
			if !a.typesCompatible(got, want) {
				a.Errors.Add(diag.Type, ex.Loc, "argument %d of %s: cannot use %s as %s", i+1, ex.FuncName, got, want)
			}
		}
	}
	ex.SetType(fn.ReturnType)
	return fn.ReturnType
}
