package codegen

import (
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/bytecode"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/types"
)

// isFloatType reports whether a resolved expression type should use the
// float-family opcodes rather than the int-family ones.
func isFloatType(t *types.Type) bool {
	return t != nil && t.Kind == types.KBase && t.Base == types.BFloat
}

func (g *Generator) genExpr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.LiteralExpr:
		g.genLiteral(ex)
	case *ast.IdentExpr:
		g.genLoadIdent(ex)
	case *ast.BinaryExpr:
		g.genBinary(ex)
	case *ast.UnaryExpr:
		g.genUnary(ex)
	case *ast.IncDecExpr:
		g.genIncDec(ex)
	case *ast.AssignExpr:
		g.genAssign(ex)
	case *ast.CallExpr:
		g.genCall(ex)
	case *ast.IndexExpr:
		g.genIndex(ex, false)
	case *ast.FieldExpr:
		g.genField(ex, false)
	case *ast.CastExpr:
		g.genCast(ex)
	case *ast.SizeofTypeExpr:
		size := ex.TargetType.Size(g.layout.Structs)
		g.emit(bytecode.OpPushConst, g.internInt(int64(size)), 0, 0, 0)
	case *ast.InitExpr:
		for _, el := range ex.Elems {
			g.genExpr(el)
		}
	case *ast.RecvExpr:
		g.genRecv(ex)
	}
}

func (g *Generator) genLiteral(ex *ast.LiteralExpr) {
	switch ex.Kind {
	case ast.LitInt, ast.LitChar, ast.LitBool:
		g.emit(bytecode.OpPushConst, g.internInt(ex.IntVal), 0, 0, 0)
	case ast.LitFloat:
		g.emit(bytecode.OpPushFloat, g.internFloat(ex.FltVal), 0, 0, 0)
	case ast.LitString:
		g.emit(bytecode.OpPushStr, g.internString(ex.StrVal), 0, 0, 0)
	}
}

// genLoadIdent pushes a local/global/param's value. Array- and struct-typed
// identifiers decay to their address instead (array-to-pointer decay,
// matching internal/sema's typesCompatible array/pointer interchangeability).
func (g *Generator) genLoadIdent(ex *ast.IdentExpr) {
	t := ex.GetType()
	decaysToAddr := t != nil && (t.Kind == types.KArray || t.IsStructOrUnion())
	if off, ok := g.frame.Slots[ex.Name]; ok {
		if decaysToAddr {
			g.emit(bytecode.OpLoadAddrLocal, off, 0, 0, 0)
		} else {
			g.emit(bytecode.OpLoadLocal, off, 0, 0, 0)
		}
		return
	}
	off := g.globalOffset[ex.Name]
	if decaysToAddr {
		g.emit(bytecode.OpLoadAddrGlobal, off, 0, 0, 0)
	} else {
		g.emit(bytecode.OpLoadGlobal, off, 0, 0, 0)
	}
}

func (g *Generator) genBinary(ex *ast.BinaryExpr) {
	g.genExpr(ex.Left)

	// Short-circuit logical operators need to skip evaluating the right
	// operand, matching spec invariant I5; the optimizer may already have
	// simplified constant-operand cases away before codegen ever sees them.
	if ex.Op == ast.OpLAnd || ex.Op == ast.OpLOr {
		g.genShortCircuit(ex)
		return
	}

	g.genExpr(ex.Right)
	float := isFloatType(ex.Left.GetType()) || isFloatType(ex.Right.GetType())
	g.emit(binaryOpcode(ex.Op, float), 0, 0, 0, 0)
}

func (g *Generator) genShortCircuit(ex *ast.BinaryExpr) {
	shortLbl := g.newLabel()
	endLbl := g.newLabel()
	if ex.Op == ast.OpLOr {
		g.emitJump(bytecode.OpJumpIfTrue, shortLbl)
	} else {
		g.emitJump(bytecode.OpJumpIfFalse, shortLbl)
	}
	g.genExpr(ex.Right)
	g.emitJump(bytecode.OpJump, endLbl)
	g.placeLabel(shortLbl)
	truth := int64(1)
	if ex.Op == ast.OpLAnd {
		truth = 0
	}
	g.emit(bytecode.OpPushConst, g.internInt(truth), 0, 0, 0)
	g.placeLabel(endLbl)
}

func binaryOpcode(op ast.BinaryOp, float bool) Opcode {
	if float {
		switch op {
		case ast.OpAdd:
			return bytecode.OpAddF
		case ast.OpSub:
			return bytecode.OpSubF
		case ast.OpMul:
			return bytecode.OpMulF
		case ast.OpDiv:
			return bytecode.OpDivF
		case ast.OpEq:
			return bytecode.OpEqF
		case ast.OpNe:
			return bytecode.OpNeF
		case ast.OpLt:
			return bytecode.OpLtF
		case ast.OpGt:
			return bytecode.OpGtF
		case ast.OpLe:
			return bytecode.OpLeF
		case ast.OpGe:
			return bytecode.OpGeF
		}
	}
	switch op {
	case ast.OpAdd:
		return bytecode.OpAddI
	case ast.OpSub:
		return bytecode.OpSubI
	case ast.OpMul:
		return bytecode.OpMulI
	case ast.OpDiv:
		return bytecode.OpDivI
	case ast.OpMod:
		return bytecode.OpModI
	case ast.OpAnd:
		return bytecode.OpAnd
	case ast.OpOr:
		return bytecode.OpOr
	case ast.OpXor:
		return bytecode.OpXor
	case ast.OpShl:
		return bytecode.OpShl
	case ast.OpShr:
		return bytecode.OpShr
	case ast.OpEq:
		return bytecode.OpEqI
	case ast.OpNe:
		return bytecode.OpNeI
	case ast.OpLt:
		return bytecode.OpLtI
	case ast.OpGt:
		return bytecode.OpGtI
	case ast.OpLe:
		return bytecode.OpLeI
	case ast.OpGe:
		return bytecode.OpGeI
	}
	return bytecode.OpNop
}

func (g *Generator) genUnary(ex *ast.UnaryExpr) {
	switch ex.Op {
	case ast.UOpAddr:
		g.genAddr(ex.Operand)
		return
	case ast.UOpSizeof:
		size := ex.Operand.GetType().Size(g.layout.Structs)
		g.emit(bytecode.OpPushConst, g.internInt(int64(size)), 0, 0, 0)
		return
	case ast.UOpDeref:
		g.genExpr(ex.Operand)
		g.emit(bytecode.OpLoadDeref, 0, 0, 0, 0)
		return
	}
	g.genExpr(ex.Operand)
	switch ex.Op {
	case ast.UOpNeg:
		if isFloatType(ex.Operand.GetType()) {
			g.emit(bytecode.OpNegF, 0, 0, 0, 0)
		} else {
			g.emit(bytecode.OpNegI, 0, 0, 0, 0)
		}
	case ast.UOpNot:
		g.emit(bytecode.OpNot, 0, 0, 0, 0)
	case ast.UOpLNot:
		g.emit(bytecode.OpLNot, 0, 0, 0, 0)
	}
}

// genAddr computes the address of an lvalue expression (operand of '&'),
// without loading its value.
func (g *Generator) genAddr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.IdentExpr:
		if off, ok := g.frame.Slots[ex.Name]; ok {
			g.emit(bytecode.OpLoadAddrLocal, off, 0, 0, 0)
			return
		}
		off := g.globalOffset[ex.Name]
		g.emit(bytecode.OpLoadAddrGlobal, off, 0, 0, 0)
	case *ast.IndexExpr:
		g.genIndex(ex, true)
	case *ast.FieldExpr:
		g.genField(ex, true)
	case *ast.UnaryExpr:
		if ex.Op == ast.UOpDeref {
			g.genExpr(ex.Operand) // the pointer value itself is the address
		}
	}
}

// genAggregateBase pushes whatever an index/field access builds its address
// on top of. An array- or struct/union-typed base (genLoadIdent's own decay
// rule, generalized to any sub-expression rather than just a bare
// identifier) must contribute its address, recursively, so a chain like
// pts[2].y or a.b.c walks addresses all the way down instead of trying to
// "load" an intermediate struct/array value this stack VM has no way to
// represent. Anything else — a pointer, including the pointer an arrow
// access dereferences through — contributes its ordinary value, since that
// value already is the address to index/field into.
func (g *Generator) genAggregateBase(e ast.Expr) {
	t := e.GetType()
	if t == nil || (t.Kind != types.KArray && !t.IsStructOrUnion()) {
		g.genExpr(e)
		return
	}
	switch ex := e.(type) {
	case *ast.IndexExpr:
		g.genIndex(ex, true)
	case *ast.FieldExpr:
		g.genField(ex, true)
	case *ast.UnaryExpr:
		if ex.Op == ast.UOpDeref {
			// (*p).field / (*p)[i]: p's own value already is the address of
			// the struct/array it points to — no further OpLoadDeref needed,
			// matching genAddr's identical reasoning for '&*p'.
			g.genExpr(ex.Operand)
			return
		}
		g.genExpr(e)
	default:
		g.genExpr(e)
	}
}

func (g *Generator) genIncDec(ex *ast.IncDecExpr) {
	// Desugar to a load, add/sub 1, store, pushing either the old or new
	// value per IsPost, mirroring how a simple stack VM with no dedicated
	// read-modify-write opcode must sequence it.
	id, isIdent := ex.Operand.(*ast.IdentExpr)
	delta := int64(1)
	if !ex.IsInc {
		delta = -1
	}
	if !isIdent {
		// Fields/indices: load, compute, store back through the address;
		// simplified to direct re-evaluation since RTMC has no volatile
		// memory-mapped lvalues requiring single-evaluation semantics.
		g.genExpr(ex.Operand)
		if ex.IsPost {
			g.emit(bytecode.OpDup, 0, 0, 0, 0)
		}
		g.emit(bytecode.OpPushConst, g.internInt(delta), 0, 0, 0)
		g.emit(bytecode.OpAddI, 0, 0, 0, 0)
		if !ex.IsPost {
			g.emit(bytecode.OpDup, 0, 0, 0, 0)
		}
		g.genStoreLValue(ex.Operand)
		return
	}
	g.genLoadIdent(id)
	if ex.IsPost {
		g.emit(bytecode.OpDup, 0, 0, 0, 0)
	}
	g.emit(bytecode.OpPushConst, g.internInt(delta), 0, 0, 0)
	g.emit(bytecode.OpAddI, 0, 0, 0, 0)
	if !ex.IsPost {
		g.emit(bytecode.OpDup, 0, 0, 0, 0)
	}
	g.storeLocal(id.Name)
}

func (g *Generator) genAssign(ex *ast.AssignExpr) {
	if ex.Op != ast.OpInvalid {
		// Compound assignment (+=, -=, ...): load current value, combine,
		// store, leaving the new value as the expression's result.
		g.genExpr(ex.LHS)
		g.genExpr(ex.RHS)
		float := isFloatType(ex.LHS.GetType())
		g.emit(binaryOpcode(ex.Op, float), 0, 0, 0, 0)
	} else {
		g.genExpr(ex.RHS)
	}
	g.emit(bytecode.OpDup, 0, 0, 0, 0)
	g.genStoreLValue(ex.LHS)
}

func (g *Generator) genStoreLValue(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.IdentExpr:
		g.storeLocal(ex.Name)
	case *ast.IndexExpr:
		g.genIndexStore(ex)
	case *ast.FieldExpr:
		g.genFieldStore(ex)
	case *ast.UnaryExpr:
		if ex.Op == ast.UOpDeref {
			g.genExpr(ex.Operand)
			g.emit(bytecode.OpStoreDeref, 0, 0, 0, 0)
		}
	}
}

func (g *Generator) genIndex(ex *ast.IndexExpr, addrOnly bool) {
	g.genAggregateBase(ex.Array)
	g.genExpr(ex.Index)
	elemSize := int32(0)
	if t := ex.GetType(); t != nil {
		elemSize = int32(t.Size(g.layout.Structs))
	}
	if addrOnly {
		g.emit(bytecode.OpAddrIndex, 0, 0, elemSize, 0)
		return
	}
	g.emit(bytecode.OpLoadIndex, 0, 0, elemSize, 0)
}

func (g *Generator) genIndexStore(ex *ast.IndexExpr) {
	// Stack on entry: [newValue]. Push base+index, then store.
	g.genAggregateBase(ex.Array)
	g.genExpr(ex.Index)
	elemSize := int32(0)
	if t := ex.GetType(); t != nil {
		elemSize = int32(t.Size(g.layout.Structs))
	}
	g.emit(bytecode.OpStoreIndex, 0, 0, elemSize, 0)
}

func (g *Generator) genField(ex *ast.FieldExpr, addrOnly bool) {
	g.genAggregateBase(ex.Object)
	fd, ok := g.fieldDef(ex)
	if addrOnly {
		offset := int32(0)
		if ok {
			offset = int32(fd.Offset)
		}
		g.emit(bytecode.OpAddrField, offset, 0, 0, 0)
		return
	}
	if ok && fd.IsBitfield {
		g.emit(bytecode.OpLoadField, int32(fd.Offset), 0, int32(types.WordSize), 0)
		g.emit(bytecode.OpLoadBitfield, int32(fd.BitOffset), int32(fd.BitWidth), 0, 0)
		return
	}
	offset, size := g.fieldOffsetSizeOf(fd)
	g.emit(bytecode.OpLoadField, offset, 0, size, 0)
}

func (g *Generator) genFieldStore(ex *ast.FieldExpr) {
	// Stack on entry: [newValue]. A bitfield store first loads the storage
	// unit it writes into, merges the new bits in, then writes the whole
	// unit back, since the storage unit may be shared with sibling bitfields.
	fd, ok := g.fieldDef(ex)
	if ok && fd.IsBitfield {
		g.genAggregateBase(ex.Object)
		g.emit(bytecode.OpLoadField, int32(fd.Offset), 0, int32(types.WordSize), 0)
		g.emit(bytecode.OpStoreBitfield, int32(fd.BitOffset), int32(fd.BitWidth), 0, 0)
		g.genAggregateBase(ex.Object)
		g.emit(bytecode.OpStoreField, int32(fd.Offset), 0, int32(types.WordSize), 0)
		return
	}
	g.genAggregateBase(ex.Object)
	offset, size := g.fieldOffsetSizeOf(fd)
	g.emit(bytecode.OpStoreField, offset, 0, size, 0)
}

// fieldDef resolves a FieldExpr to its struct/union FieldDef, looking through
// a pointer receiver for '->' access.
func (g *Generator) fieldDef(ex *ast.FieldExpr) (*types.FieldDef, bool) {
	objType := ex.Object.GetType()
	target := objType
	if ex.IsArrow && objType != nil && objType.Kind == types.KPointer {
		target = objType.Pointee
	}
	if target == nil {
		return nil, false
	}
	def, ok := g.layout.Lookup(target.StructName)
	if !ok {
		return nil, false
	}
	for i := range def.Fields {
		if def.Fields[i].Name == ex.Field {
			return &def.Fields[i], true
		}
	}
	return nil, false
}

func (g *Generator) fieldOffsetSizeOf(fd *types.FieldDef) (int32, int32) {
	if fd == nil {
		return 0, 0
	}
	return int32(fd.Offset), int32(fd.Type.Size(g.layout.Structs))
}

func (g *Generator) genCast(ex *ast.CastExpr) {
	g.genExpr(ex.Operand)
	from := ex.Operand.GetType()
	to := ex.TargetType
	if isFloatType(from) && !isFloatType(to) {
		g.emit(bytecode.OpCastFloatToInt, 0, 0, 0, 0)
	} else if !isFloatType(from) && isFloatType(to) {
		g.emit(bytecode.OpCastIntToFloat, 0, 0, 0, 0)
	} else if to.Kind == types.KBase && to.Base == types.BChar {
		g.emit(bytecode.OpTruncToChar, 0, 0, 0, 0)
	}
}

func (g *Generator) genCall(ex *ast.CallExpr) {
	if ex.FuncName == "__msg_send" {
		g.genMsgSend(ex)
		return
	}
	if id, ok := bytecode.IntrinsicIDs[ex.FuncName]; ok {
		for _, a := range ex.Args {
			g.genExpr(a)
		}
		g.emit(bytecode.OpCallIntrinsic, int32(id), int32(len(ex.Args)), 0, 0)
		return
	}
	for _, a := range ex.Args {
		g.genExpr(a)
	}
	idx, ok := g.funcIndex[ex.FuncName]
	if !ok {
		return // unresolved call already reported by sema; codegen stays best-effort here
	}
	g.emit(bytecode.OpCall, idx, int32(len(ex.Args)), 0, 0)
}

// queueOperand resolves a message<T> queue expression to its global offset,
// used as a direct instruction operand rather than a stack value: a queue is
// a compile-time-known identity (like OpCall's function index), not data, so
// MSG_SEND/MSG_RECV/MSG_RECV_TIMEOUT must encode which queue via A rather
// than loading one of the uninitialized globals placeGlobal reserves for it.
func (g *Generator) queueOperand(e ast.Expr) int32 {
	id, ok := e.(*ast.IdentExpr)
	if !ok {
		return 0
	}
	return g.globalOffset[id.Name]
}

// constIntOf returns a literal int operand's compile-time value. Used for
// MSG_RECV_TIMEOUT's timeout, which spec's instruction shape (S6:
// "MSG_RECV_TIMEOUT Q, 100") demands as an immediate rather than a pushed
// stack value. internal/optimizer's ConstantFold does not rewrite recv
// timeouts, so only a timeout written as a literal is encoded; any other
// timeout expression encodes as 0.
func constIntOf(e ast.Expr) (int64, bool) {
	lit, ok := e.(*ast.LiteralExpr)
	if !ok {
		return 0, false
	}
	switch lit.Kind {
	case ast.LitInt, ast.LitChar, ast.LitBool:
		return lit.IntVal, true
	}
	return 0, false
}

// genMsgSend lowers `Q.send(v)`, parsed as CallExpr{FuncName:"__msg_send",
// Args:[Q, v]} by internal/parser's parseMessageOp. The queue is encoded as
// operand A; only the payload value travels the stack.
func (g *Generator) genMsgSend(ex *ast.CallExpr) {
	if len(ex.Args) != 2 {
		return
	}
	qOff := g.queueOperand(ex.Args[0])
	g.genExpr(ex.Args[1])
	g.emit(bytecode.OpMsgSend, qOff, 0, 0, 0)
}

func (g *Generator) genRecv(ex *ast.RecvExpr) {
	qOff := g.queueOperand(ex.Queue)
	if ex.HasTimeout {
		ms, _ := constIntOf(ex.TimeoutMs)
		g.emit(bytecode.OpMsgRecvTimeout, qOff, 0, 0, ms)
		return
	}
	g.emit(bytecode.OpMsgRecv, qOff, 0, 0, 0)
}
