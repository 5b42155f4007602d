package simplify

import "github.com/nyu-acsys/flowcert/internal/ast"

// NormalizeLoops collapses a `do { body } while (true);` into the
// equivalent `while (true) { body }`, grounded on
// original_source/src/cola/transform/rmConditionalLoops.cpp's
// RemoveConditionalsVisitor::visit(DoWhile&): the original's core IR
// only has an unconditional Loop construct, so every While and
// DoWhile had to be rewritten into one; internal/program keeps native
// While/DoWhile kinds (internal/verifier executes both directly), so
// the only case left worth collapsing here is the redundant
// do-while(true) spelling of a while(true) loop — every other loop
// shape already has a direct post-image rule and needs no rewriting.
func NormalizeLoops(fn *ast.Function) *ast.Function {
	if fn.Body != nil {
		fn.Body = normalizeBlock(fn.Body)
	}
	return fn
}

func normalizeBlock(b *ast.Block) *ast.Block {
	if b == nil {
		return nil
	}
	out := make([]ast.Stmt, len(b.Statements))
	for i, s := range b.Statements {
		out[i] = normalizeStmt(s)
	}
	b.Statements = out
	return b
}

func normalizeStmt(s ast.Stmt) ast.Stmt {
	switch st := s.(type) {
	case *ast.DoWhileStmt:
		body := normalizeBlock(st.Body)
		if isTrueLiteral(st.Cond) {
			return &ast.WhileStmt{Pos: st.Pos, EndPos: st.EndPos, Cond: &ast.BoolLiteral{Value: true}, Body: body}
		}
		st.Body = body
		return st
	case *ast.WhileStmt:
		st.Body = normalizeBlock(st.Body)
		return st
	case *ast.IfStmt:
		st.Then = normalizeBlock(st.Then)
		if st.Else != nil {
			st.Else = normalizeBlock(st.Else)
		}
		return st
	case *ast.AtomicStmt:
		st.Body = normalizeBlock(st.Body)
		return st
	case *ast.ChooseStmt:
		st.Left = normalizeBlock(st.Left)
		st.Right = normalizeBlock(st.Right)
		return st
	default:
		return s
	}
}

func isTrueLiteral(e ast.Expr) bool {
	b, ok := e.(*ast.BoolLiteral)
	return ok && b.Value
}
