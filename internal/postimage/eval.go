package postimage

import (
	perrors "github.com/nyu-acsys/flowcert/internal/errors"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/program"
)

// evalValue resolves a program-level value expression to the symbolic
// expression it currently denotes against now (spec.md §4.5 "eval(e)").
func evalValue(now logic.Formula, e *program.Expr) (logic.Expr, error) {
	switch e.Kind {
	case program.ExprVar:
		sym, ok := lookupVar(now, e.Var.Name)
		if !ok {
			return logic.Expr{}, perrors.New(perrors.UnsupportedConstructKind, e.Var.Name, "variable has no bound value in the current annotation")
		}
		return logic.Sym(sym), nil
	case program.ExprField:
		base, err := evalValue(now, e.Base)
		if err != nil {
			return logic.Expr{}, err
		}
		if base.Kind != logic.ExprSymbol {
			return logic.Expr{}, perrors.New(perrors.UnsupportedConstructKind, e.Field, "dereference of a non-symbolic pointer expression")
		}
		mem, ok := lookupMemory(now, base.Sym)
		if !ok {
			return logic.Expr{}, perrors.New(perrors.UnsupportedConstructKind, e.Field, "no known memory cell at the dereferenced address")
		}
		fieldSym, ok := mem.Fields[e.Field]
		if !ok {
			return logic.Expr{}, perrors.New(perrors.ConfigurationErrorKind, e.Field, "field missing from the memory axiom at this address")
		}
		return logic.Sym(fieldSym), nil
	case program.ExprTrue:
		return logic.True(), nil
	case program.ExprFalse:
		return logic.False(), nil
	case program.ExprNull:
		return logic.Null(), nil
	case program.ExprMin:
		return logic.Min(), nil
	case program.ExprMax:
		return logic.Max(), nil
	}
	return logic.Expr{}, perrors.New(perrors.UnsupportedConstructKind, "", "expression is not a value-producing expression")
}

// evalFormula resolves a program-level boolean expression to a
// logic.Formula (spec.md §4.5 "symbolic translation of φ"). Relational
// comparisons bottom out at evalValue; conjunction, disjunction and
// negation recurse structurally. Disjunction has no direct logic-layer
// constructor (separating conjunction only ever models ∧), so it is
// expressed as ¬(¬a ∧ ¬b), matching how simplify() already collapses
// double negation and negated comparisons back down (internal/logic/
// util/simplify.go).
func evalFormula(now logic.Formula, e *program.Expr) (logic.Formula, error) {
	switch e.Kind {
	case program.ExprNot:
		inner, err := evalFormula(now, e.Inner)
		if err != nil {
			return nil, err
		}
		return logic.Not{Inner: inner}, nil
	case program.ExprBinary:
		switch e.Op {
		case program.OpAnd:
			lhs, err := evalFormula(now, e.Lhs)
			if err != nil {
				return nil, err
			}
			rhs, err := evalFormula(now, e.Rhs)
			if err != nil {
				return nil, err
			}
			return logic.And(lhs, rhs), nil
		case program.OpOr:
			lhs, err := evalFormula(now, e.Lhs)
			if err != nil {
				return nil, err
			}
			rhs, err := evalFormula(now, e.Rhs)
			if err != nil {
				return nil, err
			}
			return logic.Not{Inner: logic.And(logic.Not{Inner: lhs}, logic.Not{Inner: rhs})}, nil
		default:
			lhs, err := evalValue(now, e.Lhs)
			if err != nil {
				return nil, err
			}
			rhs, err := evalValue(now, e.Rhs)
			if err != nil {
				return nil, err
			}
			op, err := programOpToCmp(e.Op)
			if err != nil {
				return nil, err
			}
			ax, err := logic.NewStackAxiom(op, lhs, rhs)
			if err != nil {
				return nil, perrors.Wrap(err, "assume/assert condition")
			}
			return logic.NewAtom(ax), nil
		}
	default:
		val, err := evalValue(now, e)
		if err != nil {
			return nil, err
		}
		ax, err := logic.NewStackAxiom(logic.Eq, val, logic.True())
		if err != nil {
			return nil, perrors.Wrap(err, "boolean value expression")
		}
		return logic.NewAtom(ax), nil
	}
}

func programOpToCmp(op program.BinOp) (logic.CmpOp, error) {
	switch op {
	case program.OpEq:
		return logic.Eq, nil
	case program.OpNeq:
		return logic.Neq, nil
	case program.OpLe:
		return logic.Le, nil
	case program.OpLt:
		return logic.Lt, nil
	case program.OpGe:
		return logic.Ge, nil
	case program.OpGt:
		return logic.Gt, nil
	}
	return 0, perrors.New(perrors.UnsupportedConstructKind, "", "operator is not a relational comparison")
}
