// Package simplify rewrites internal/ast function bodies into the
// shape internal/program assumes: CAS desugared into a two-branch
// choice, do-while(true) collapsed into while(true), and boolean
// conditions pushed into negation-normal form. It models the
// interface of an external simplifier: a caller runs these passes on
// a parsed function before handing it to the verifier (spec.md §1).
package simplify

import "github.com/nyu-acsys/flowcert/internal/ast"

// DesugarCAS rewrites every CasStmt in fn's body into a ChooseStmt
// between a successful swap and a failed one, grounded on
// original_source/src/cola/transform/rmCAS.cpp's desugar_cas_expr:
// the successful branch assumes `dst == cmp`, writes `dst = src`
// (skipped when cmp and src print identically, same syntactic-equality
// check the original uses) and records the result; the failed branch
// assumes `dst != cmp` and records failure. The successful branch is
// wrapped in an AtomicStmt unless the CAS already sits inside one —
// the failed branch is a pure read and never needs that wrapping.
func DesugarCAS(fn *ast.Function) *ast.Function {
	if fn.Body != nil {
		fn.Body = desugarBlock(fn.Body, false)
	}
	return fn
}

func desugarBlock(b *ast.Block, inAtomic bool) *ast.Block {
	if b == nil {
		return nil
	}
	out := make([]ast.Stmt, len(b.Statements))
	for i, s := range b.Statements {
		out[i] = desugarStmt(s, inAtomic)
	}
	b.Statements = out
	return b
}

func desugarStmt(s ast.Stmt, inAtomic bool) ast.Stmt {
	switch st := s.(type) {
	case *ast.CasStmt:
		return desugarCasStmt(st, inAtomic)
	case *ast.IfStmt:
		st.Then = desugarBlock(st.Then, inAtomic)
		if st.Else != nil {
			st.Else = desugarBlock(st.Else, inAtomic)
		}
		return st
	case *ast.WhileStmt:
		st.Body = desugarBlock(st.Body, inAtomic)
		return st
	case *ast.DoWhileStmt:
		st.Body = desugarBlock(st.Body, inAtomic)
		return st
	case *ast.AtomicStmt:
		st.Body = desugarBlock(st.Body, true)
		return st
	case *ast.ChooseStmt:
		st.Left = desugarBlock(st.Left, inAtomic)
		st.Right = desugarBlock(st.Right, inAtomic)
		return st
	default:
		return s
	}
}

func desugarCasStmt(cas *ast.CasStmt, inAtomic bool) ast.Stmt {
	matched := &ast.BinaryExpr{Operator: "==", Left: cas.Dst, Right: cas.Cmp}
	mismatched := &ast.BinaryExpr{Operator: "!=", Left: cas.Dst, Right: cas.Cmp}

	swapStmts := []ast.Stmt{&ast.AssumeStmt{Cond: matched}}
	if cas.Cmp.String() != cas.Src.String() {
		swapStmts = append(swapStmts, &ast.DerefAssignStmt{Target: cas.Dst, Value: cas.Src})
	}
	if cas.Result != nil {
		swapStmts = append(swapStmts, &ast.AssignStmt{Target: *cas.Result, Value: &ast.BoolLiteral{Value: true}})
	}
	swapBlock := &ast.Block{Statements: swapStmts}

	var left *ast.Block
	if inAtomic {
		left = swapBlock
	} else {
		left = &ast.Block{Statements: []ast.Stmt{&ast.AtomicStmt{Body: swapBlock}}}
	}

	failStmts := []ast.Stmt{&ast.AssumeStmt{Cond: mismatched}}
	if cas.Result != nil {
		failStmts = append(failStmts, &ast.AssignStmt{Target: *cas.Result, Value: &ast.BoolLiteral{Value: false}})
	}
	right := &ast.Block{Statements: failStmts}

	return &ast.ChooseStmt{Pos: cas.Pos, EndPos: cas.EndPos, Left: left, Right: right}
}
