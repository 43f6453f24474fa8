package optimizer

import "github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"

// walkFuncs hands every function and Task body to visit, letting each pass
// rewrite statement slices in place (needed for dead-branch and
// dead-store elimination, which replace or drop whole statements).
func walkFuncs(prog *ast.Program, visit func(*ast.FuncDecl)) {
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			visit(decl)
		case *ast.TaskDecl:
			visit(&ast.FuncDecl{Name: decl.Name, Body: decl.Body})
		}
	}
}

// ConstantFold evaluates binary/unary expressions with literal operands at
// compile time, replacing the expression node with a LiteralExpr.
func ConstantFold(prog *ast.Program) bool {
	changed := false
	walkFuncs(prog, func(fn *ast.FuncDecl) {
		if fn.Body == nil {
			return
		}
		foldBlock(fn.Body, &changed)
	})
	return changed
}

func foldBlock(b *ast.Block, changed *bool) {
	for i, s := range b.Stmts {
		b.Stmts[i] = foldStmt(s, changed)
	}
}

func foldStmt(s ast.Stmt, changed *bool) ast.Stmt {
	switch st := s.(type) {
	case *ast.ExprStmt:
		if st.X != nil {
			st.X = foldExpr(st.X, changed)
		}
	case *ast.Block:
		foldBlock(st, changed)
	case *ast.IfStmt:
		st.Cond = foldExpr(st.Cond, changed)
		st.Then = foldStmt(st.Then, changed)
		if st.Else != nil {
			st.Else = foldStmt(st.Else, changed)
		}
	case *ast.WhileStmt:
		st.Cond = foldExpr(st.Cond, changed)
		st.Body = foldStmt(st.Body, changed)
	case *ast.ForStmt:
		if st.Cond != nil {
			st.Cond = foldExpr(st.Cond, changed)
		}
		st.Body = foldStmt(st.Body, changed)
	case *ast.ReturnStmt:
		if st.Value != nil {
			st.Value = foldExpr(st.Value, changed)
		}
	}
	return s
}

func foldExpr(e ast.Expr, changed *bool) ast.Expr {
	switch ex := e.(type) {
	case *ast.BinaryExpr:
		ex.Left = foldExpr(ex.Left, changed)
		ex.Right = foldExpr(ex.Right, changed)
		if folded := tryFoldBinary(ex); folded != nil {
			*changed = true
			return folded
		}
	case *ast.UnaryExpr:
		ex.Operand = foldExpr(ex.Operand, changed)
		if folded := tryFoldUnary(ex); folded != nil {
			*changed = true
			return folded
		}
	}
	return e
}

func asIntLit(e ast.Expr) (int64, bool) {
	lit, ok := e.(*ast.LiteralExpr)
	if !ok {
		return 0, false
	}
	switch lit.Kind {
	case ast.LitInt, ast.LitChar:
		return lit.IntVal, true
	case ast.LitBool:
		return lit.IntVal, true
	}
	return 0, false
}

func tryFoldBinary(ex *ast.BinaryExpr) ast.Expr {
	lv, lok := asIntLit(ex.Left)
	rv, rok := asIntLit(ex.Right)
	if !lok || !rok {
		return nil
	}
	var result int64
	isBool := false
	switch ex.Op {
	case ast.OpAdd:
		result = lv + rv
	case ast.OpSub:
		result = lv - rv
	case ast.OpMul:
		result = lv * rv
	case ast.OpDiv:
		if rv == 0 {
			return nil
		}
		result = lv / rv
	case ast.OpMod:
		if rv == 0 {
			return nil
		}
		result = lv % rv
	case ast.OpAnd:
		result = lv & rv
	case ast.OpOr:
		result = lv | rv
	case ast.OpXor:
		result = lv ^ rv
	case ast.OpShl:
		result = lv << uint(rv)
	case ast.OpShr:
		result = lv >> uint(rv)
	case ast.OpEq:
		result, isBool = b2i(lv == rv), true
	case ast.OpNe:
		result, isBool = b2i(lv != rv), true
	case ast.OpLt:
		result, isBool = b2i(lv < rv), true
	case ast.OpGt:
		result, isBool = b2i(lv > rv), true
	case ast.OpLe:
		result, isBool = b2i(lv <= rv), true
	case ast.OpGe:
		result, isBool = b2i(lv >= rv), true
	case ast.OpLAnd:
		result, isBool = b2i(lv != 0 && rv != 0), true
	case ast.OpLOr:
		result, isBool = b2i(lv != 0 || rv != 0), true
	default:
		return nil
	}
	kind := ast.LitInt
	if isBool {
		kind = ast.LitBool
	}
	return &ast.LiteralExpr{ExprBase: ast.ExprBase{Loc: ex.Loc}, Kind: kind, IntVal: result}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func tryFoldUnary(ex *ast.UnaryExpr) ast.Expr {
	v, ok := asIntLit(ex.Operand)
	if !ok {
		return nil
	}
	switch ex.Op {
	case ast.UOpNeg:
		return &ast.LiteralExpr{ExprBase: ast.ExprBase{Loc: ex.Loc}, Kind: ast.LitInt, IntVal: -v}
	case ast.UOpNot:
		return &ast.LiteralExpr{ExprBase: ast.ExprBase{Loc: ex.Loc}, Kind: ast.LitInt, IntVal: ^v}
	case ast.UOpLNot:
		return &ast.LiteralExpr{ExprBase: ast.ExprBase{Loc: ex.Loc}, Kind: ast.LitBool, IntVal: b2i(v == 0)}
	}
	return nil
}

// ShortCircuit simplifies `true || x` -> true and `false && x` -> false
// (any nonzero / zero literal left operand), without evaluating x (spec
// invariant I5: short-circuit evaluation never evaluates the unreached
// operand). Forms with the literal on the right are not rewritten.
func ShortCircuit(prog *ast.Program) bool {
	changed := false
	walkFuncs(prog, func(fn *ast.FuncDecl) {
		if fn.Body == nil {
			return
		}
		shortCircuitBlock(fn.Body, &changed)
	})
	return changed
}

func shortCircuitBlock(b *ast.Block, changed *bool) {
	for i, s := range b.Stmts {
		b.Stmts[i] = shortCircuitStmt(s, changed)
	}
}

func shortCircuitStmt(s ast.Stmt, changed *bool) ast.Stmt {
	switch st := s.(type) {
	case *ast.ExprStmt:
		if st.X != nil {
			st.X = shortCircuitExpr(st.X, changed)
		}
	case *ast.Block:
		shortCircuitBlock(st, changed)
	case *ast.IfStmt:
		st.Cond = shortCircuitExpr(st.Cond, changed)
		st.Then = shortCircuitStmt(st.Then, changed)
		if st.Else != nil {
			st.Else = shortCircuitStmt(st.Else, changed)
		}
	case *ast.WhileStmt:
		st.Cond = shortCircuitExpr(st.Cond, changed)
		st.Body = shortCircuitStmt(st.Body, changed)
	case *ast.ForStmt:
		st.Body = shortCircuitStmt(st.Body, changed)
	case *ast.ReturnStmt:
		if st.Value != nil {
			st.Value = shortCircuitExpr(st.Value, changed)
		}
	}
	return s
}

func shortCircuitExpr(e ast.Expr, changed *bool) ast.Expr {
	bin, ok := e.(*ast.BinaryExpr)
	if !ok {
		return e
	}
	bin.Left = shortCircuitExpr(bin.Left, changed)
	bin.Right = shortCircuitExpr(bin.Right, changed)

	if lv, ok := asIntLit(bin.Left); ok {
		if bin.Op == ast.OpLOr && lv != 0 {
			*changed = true
			return bin.Left
		}
		if bin.Op == ast.OpLAnd && lv == 0 {
			*changed = true
			return bin.Left
		}
	}
	return e
}

// DeadBranch collapses `if (true) A else B` -> A and `if (false) A else B`
// -> B (or an empty statement if there is no else), grounded on the same
// constant-condition idea ypeep's invertCond/branch-folding expresses at
// the assembly level, lifted to the AST.
func DeadBranch(prog *ast.Program) bool {
	changed := false
	walkFuncs(prog, func(fn *ast.FuncDecl) {
		if fn.Body == nil {
			return
		}
		deadBranchBlock(fn.Body, &changed)
	})
	return changed
}

func deadBranchBlock(b *ast.Block, changed *bool) {
	for i, s := range b.Stmts {
		b.Stmts[i] = deadBranchStmt(s, changed)
	}
}

func deadBranchStmt(s ast.Stmt, changed *bool) ast.Stmt {
	switch st := s.(type) {
	case *ast.Block:
		deadBranchBlock(st, changed)
		return st
	case *ast.IfStmt:
		st.Then = deadBranchStmt(st.Then, changed)
		if st.Else != nil {
			st.Else = deadBranchStmt(st.Else, changed)
		}
		if v, ok := asIntLit(st.Cond); ok {
			*changed = true
			if v != 0 {
				return st.Then
			}
			if st.Else != nil {
				return st.Else
			}
			return &ast.ExprStmt{Loc: st.Loc}
		}
		return st
	case *ast.WhileStmt:
		st.Body = deadBranchStmt(st.Body, changed)
		return st
	case *ast.ForStmt:
		st.Body = deadBranchStmt(st.Body, changed)
		return st
	}
	return s
}

// DeadStore removes an assignment to a local that is immediately
// overwritten by another assignment to the same name later in the same
// block with no intervening read, the block-local analog of
// ypeep.go's "stw then matching ldw -> delete or convert" redundant-store
// pattern.
func DeadStore(prog *ast.Program) bool {
	changed := false
	walkFuncs(prog, func(fn *ast.FuncDecl) {
		if fn.Body == nil {
			return
		}
		deadStoreBlock(fn.Body, &changed)
	})
	return changed
}

func deadStoreBlock(b *ast.Block, changed *bool) {
	for i := 0; i < len(b.Stmts); i++ {
		deadStoreStmtRecurse(b.Stmts[i], changed)
	}
	var kept []ast.Stmt
	for i := 0; i < len(b.Stmts); i++ {
		cur, curOk := asSimpleAssignTarget(b.Stmts[i])
		if curOk && i+1 < len(b.Stmts) {
			next, nextOk := asSimpleAssignTarget(b.Stmts[i+1])
			if nextOk && next == cur && !exprReadsName(assignRHS(b.Stmts[i+1]), cur) {
				*changed = true
				continue // drop the earlier dead store
			}
		}
		kept = append(kept, b.Stmts[i])
	}
	b.Stmts = kept
}

func deadStoreStmtRecurse(s ast.Stmt, changed *bool) {
	switch st := s.(type) {
	case *ast.Block:
		deadStoreBlock(st, changed)
	case *ast.IfStmt:
		deadStoreStmtRecurse(st.Then, changed)
		if st.Else != nil {
			deadStoreStmtRecurse(st.Else, changed)
		}
	case *ast.WhileStmt:
		deadStoreStmtRecurse(st.Body, changed)
	case *ast.ForStmt:
		deadStoreStmtRecurse(st.Body, changed)
	}
}

func asSimpleAssignTarget(s ast.Stmt) (string, bool) {
	es, ok := s.(*ast.ExprStmt)
	if !ok || es.X == nil {
		return "", false
	}
	asg, ok := es.X.(*ast.AssignExpr)
	if !ok || asg.Op != ast.OpInvalid {
		return "", false
	}
	id, ok := asg.LHS.(*ast.IdentExpr)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func assignRHS(s ast.Stmt) ast.Expr {
	es := s.(*ast.ExprStmt)
	asg := es.X.(*ast.AssignExpr)
	return asg.RHS
}

func exprReadsName(e ast.Expr, name string) bool {
	switch ex := e.(type) {
	case *ast.IdentExpr:
		return ex.Name == name
	case *ast.BinaryExpr:
		return exprReadsName(ex.Left, name) || exprReadsName(ex.Right, name)
	case *ast.UnaryExpr:
		return exprReadsName(ex.Operand, name)
	case *ast.CallExpr:
		for _, a := range ex.Args {
			if exprReadsName(a, name) {
				return true
			}
		}
	case *ast.IndexExpr:
		return exprReadsName(ex.Array, name) || exprReadsName(ex.Index, name)
	case *ast.FieldExpr:
		return exprReadsName(ex.Object, name)
	case *ast.CastExpr:
		return exprReadsName(ex.Operand, name)
	case *ast.IncDecExpr:
		return exprReadsName(ex.Operand, name)
	case *ast.AssignExpr:
		return exprReadsName(ex.LHS, name) || exprReadsName(ex.RHS, name)
	case *ast.InitExpr:
		for _, el := range ex.Elems {
			if exprReadsName(el, name) {
				return true
			}
		}
	case *ast.RecvExpr:
		return exprReadsName(ex.Queue, name) || (ex.TimeoutMs != nil && exprReadsName(ex.TimeoutMs, name))
	}
	return false
}
