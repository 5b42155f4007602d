// Package logic implements the separation logic with per-field inflow
// described in spec.md §3–4: symbolic expressions, axioms, compound
// formulas, and per-program-point annotations. Constructors validate
// their arguments eagerly — a malformed term (e.g. comparing a Bool
// symbol with a Ptr symbol) fails at construction time with a
// PreconditionError, matching spec.md §4.1 ("All total; malformed
// construction ... fails at construction time").
package logic

import (
	"fmt"

	"github.com/nyu-acsys/flowcert/internal/symbols"
	"github.com/nyu-acsys/flowcert/internal/types"
)

// PreconditionError reports a malformed construction of a logic term.
type PreconditionError struct {
	Op      string
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("logic: precondition violated in %s: %s", e.Op, e.Message)
}

// ExprKind tags the variant of a symbolic expression.
type ExprKind int

const (
	ExprSymbol ExprKind = iota
	ExprTrue
	ExprFalse
	ExprNull
	ExprMin
	ExprMax
	// ExprPlaceholder is a numbered hole. Configuration predicates are
	// Go closures (internal/config) that build concrete Exprs, so no
	// code here substitutes holes; the encoder rejects one that reaches
	// it with an EncodingError.
	ExprPlaceholder
)

// Expr is a symbolic expression: one of {symbolic variable, true,
// false, null, MIN, MAX} per spec.md §3, plus the template-only
// placeholder hole. It is the operand type of every axiom.
type Expr struct {
	Kind   ExprKind
	Sym    symbols.Symbol // only meaningful when Kind == ExprSymbol
	PHSort types.Sort     // only meaningful when Kind == ExprPlaceholder
	PHIdx  int            // only meaningful when Kind == ExprPlaceholder
}

func Sym(s symbols.Symbol) Expr { return Expr{Kind: ExprSymbol, Sym: s} }
func True() Expr                { return Expr{Kind: ExprTrue} }
func False() Expr               { return Expr{Kind: ExprFalse} }
func Null() Expr                { return Expr{Kind: ExprNull} }
func Min() Expr                 { return Expr{Kind: ExprMin} }
func Max() Expr                 { return Expr{Kind: ExprMax} }

// Hole constructs the numbered placeholder expression with the given
// index and sort.
func Hole(index int, sort types.Sort) Expr {
	return Expr{Kind: ExprPlaceholder, PHIdx: index, PHSort: sort}
}

// Sort reports the sort an expression evaluates to.
func (e Expr) Sort() types.Sort {
	switch e.Kind {
	case ExprSymbol:
		return e.Sym.Sort()
	case ExprTrue, ExprFalse:
		return types.Bool
	case ExprNull:
		return types.Ptr
	case ExprMin, ExprMax:
		return types.Data
	case ExprPlaceholder:
		return e.PHSort
	}
	return types.Void
}

func (e Expr) Equal(o Expr) bool {
	if e.Kind != o.Kind {
		return false
	}
	switch e.Kind {
	case ExprSymbol:
		return e.Sym.Equal(o.Sym)
	case ExprPlaceholder:
		return e.PHIdx == o.PHIdx
	}
	return true
}

func (e Expr) String() string {
	switch e.Kind {
	case ExprSymbol:
		return e.Sym.String()
	case ExprTrue:
		return "true"
	case ExprFalse:
		return "false"
	case ExprNull:
		return "null"
	case ExprMin:
		return "MIN"
	case ExprMax:
		return "MAX"
	case ExprPlaceholder:
		return "#" + itoa(e.PHIdx)
	}
	return "?"
}

// FreeSymbols appends the symbol free in this expression (if any) to
// acc and returns the extended slice.
func (e Expr) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	if e.Kind == ExprSymbol {
		return append(acc, e.Sym)
	}
	return acc
}

// comparableSorts reports whether two sorts may appear on either side
// of a binary comparison. Ptr and Data are never comparable to each
// other; Bool compares only with Bool.
func comparableSorts(a, b types.Sort) bool {
	if a == b {
		return true
	}
	// Void never compares with anything; every other heterogeneous
	// pairing is rejected.
	return false
}

func requireComparable(op string, a, b Expr) error {
	if !comparableSorts(a.Sort(), b.Sort()) {
		return &PreconditionError{Op: op, Message: fmt.Sprintf("incompatible sorts %s and %s", a.Sort(), b.Sort())}
	}
	return nil
}
