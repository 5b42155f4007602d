package program

import "github.com/nyu-acsys/flowcert/internal/types"

// ExprKind tags a program-level expression (distinct from
// logic.Expr, which is the symbolic operand type the post-image
// engine produces after evaluating one of these against an
// annotation).
type ExprKind int

const (
	ExprVar ExprKind = iota
	ExprField   // p.f, a field dereference
	ExprTrue
	ExprFalse
	ExprNull
	ExprMin
	ExprMax
	ExprNot
	ExprBinary
)

// BinOp is a binary operator appearing in program expressions:
// relational comparisons plus boolean and/or.
type BinOp int

const (
	OpEq BinOp = iota
	OpNeq
	OpLe
	OpLt
	OpGe
	OpGt
	OpAnd
	OpOr
)

// Expr is a program-level expression, evaluated against an annotation
// by the post-image engine's eval (spec.md §4.5 "eval(e)").
type Expr struct {
	Kind      ExprKind
	Var       *Variable  // ExprVar
	Base      *Expr      // ExprField: the dereferenced pointer expression
	Field     string     // ExprField
	FieldSort types.Sort // ExprField: resolved sort of Field, set by the builder
	Op        BinOp      // ExprBinary
	Lhs       *Expr      // ExprBinary
	Rhs       *Expr      // ExprBinary
	Inner     *Expr      // ExprNot
}

func Var(v *Variable) *Expr { return &Expr{Kind: ExprVar, Var: v} }

// FieldOf builds a field dereference `base.field`; fieldSort is the
// declared sort of field on base's record type, resolved by the
// caller (internal/parser's builder, which has the type registry in
// scope) rather than looked up here.
func FieldOf(base *Expr, field string, fieldSort types.Sort) *Expr {
	return &Expr{Kind: ExprField, Base: base, Field: field, FieldSort: fieldSort}
}
func True() *Expr  { return &Expr{Kind: ExprTrue} }
func False() *Expr { return &Expr{Kind: ExprFalse} }
func Null() *Expr  { return &Expr{Kind: ExprNull} }
func Min() *Expr   { return &Expr{Kind: ExprMin} }
func Max() *Expr   { return &Expr{Kind: ExprMax} }
func Not(e *Expr) *Expr { return &Expr{Kind: ExprNot, Inner: e} }
func Binary(op BinOp, lhs, rhs *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Op: op, Lhs: lhs, Rhs: rhs}
}

// Sort reports the sort a program expression evaluates to; Lower uses
// it to give a variable introduced by assignment the sort of its
// right-hand side.
func (e *Expr) Sort() types.Sort {
	switch e.Kind {
	case ExprVar:
		return e.Var.SortOf()
	case ExprField:
		return e.FieldSort
	case ExprTrue, ExprFalse, ExprNot, ExprBinary:
		return types.Bool
	case ExprNull:
		return types.Ptr
	case ExprMin, ExprMax:
		return types.Data
	}
	return types.Void
}
