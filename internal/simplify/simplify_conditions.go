package simplify

import "github.com/nyu-acsys/flowcert/internal/ast"

// SimplifyConditions pushes every `!` in a condition down to its
// comparison leaves, turning e.g. `!(a < b && c == d)` into
// `a >= b || c != d`, grounded on
// original_source/src/cola/transform/simplifyconditions.cpp's
// ExpressionSimplifier: negating a comparison flips its operator,
// negating `&&`/`||` applies De Morgan and recurses, and a double
// negation cancels. The original also normalizes a standalone boolean
// variable into `v == true`; internal/program's sorts are checked
// before a condition ever reaches a solver, so that half of the
// original pass has no work to do here and is not reproduced.
func SimplifyConditions(fn *ast.Function) *ast.Function {
	if fn.Body != nil {
		fn.Body = simplifyBlock(fn.Body)
	}
	return fn
}

func simplifyBlock(b *ast.Block) *ast.Block {
	if b == nil {
		return nil
	}
	for _, s := range b.Statements {
		simplifyStmt(s)
	}
	return b
}

func simplifyStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.AssumeStmt:
		st.Cond = simplifyExpr(st.Cond)
	case *ast.AssertStmt:
		st.Cond = simplifyExpr(st.Cond)
	case *ast.WhileStmt:
		st.Cond = simplifyExpr(st.Cond)
		simplifyBlock(st.Body)
	case *ast.DoWhileStmt:
		st.Cond = simplifyExpr(st.Cond)
		simplifyBlock(st.Body)
	case *ast.IfStmt:
		st.Cond = simplifyExpr(st.Cond)
		simplifyBlock(st.Then)
		if st.Else != nil {
			simplifyBlock(st.Else)
		}
	case *ast.AtomicStmt:
		simplifyBlock(st.Body)
	case *ast.ChooseStmt:
		simplifyBlock(st.Left)
		simplifyBlock(st.Right)
	}
}

// simplifyExpr recurses through an expression normalizing any nested
// negations without changing its truth value.
func simplifyExpr(e ast.Expr) ast.Expr {
	switch expr := e.(type) {
	case *ast.UnaryExpr:
		if expr.Operator == "!" {
			return negate(simplifyExpr(expr.Value))
		}
		return &ast.UnaryExpr{Operator: expr.Operator, Value: simplifyExpr(expr.Value)}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Operator: expr.Operator, Left: simplifyExpr(expr.Left), Right: simplifyExpr(expr.Right)}
	case *ast.ParenExpr:
		return simplifyExpr(expr.Value)
	default:
		return e
	}
}

// negate returns the negation-normal-form of !e.
func negate(e ast.Expr) ast.Expr {
	switch expr := e.(type) {
	case *ast.UnaryExpr:
		if expr.Operator == "!" {
			return expr.Value
		}
		return &ast.UnaryExpr{Operator: "!", Value: expr}
	case *ast.BinaryExpr:
		if op, ok := negateOperator(expr.Operator); ok {
			if expr.Operator == "&&" || expr.Operator == "||" {
				return &ast.BinaryExpr{Operator: op, Left: negate(expr.Left), Right: negate(expr.Right)}
			}
			return &ast.BinaryExpr{Operator: op, Left: expr.Left, Right: expr.Right}
		}
		return &ast.UnaryExpr{Operator: "!", Value: expr}
	case *ast.BoolLiteral:
		return &ast.BoolLiteral{Value: !expr.Value}
	case *ast.ParenExpr:
		return negate(simplifyExpr(expr.Value))
	default:
		return &ast.UnaryExpr{Operator: "!", Value: e}
	}
}

func negateOperator(op string) (string, bool) {
	switch op {
	case "==":
		return "!=", true
	case "!=":
		return "==", true
	case "<=":
		return ">", true
	case "<":
		return ">=", true
	case ">=":
		return "<", true
	case ">":
		return "<=", true
	case "&&":
		return "||", true
	case "||":
		return "&&", true
	default:
		return "", false
	}
}
