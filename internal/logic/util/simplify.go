package util

import "github.com/nyu-acsys/flowcert/internal/logic"

// Simplify applies the rewrite rules of spec.md §4.1: collapses
// conjunctions containing false, drops true-valued conjuncts,
// eliminates double negation, rewrites ¬(a≤b) into a>b and so on,
// removes duplicate conjuncts, and resolves implications whose
// premise is trivially true/false. It is grounded on
// original_source's src/heal/util/simplify.cpp and also folds a
// comparison of an expression with itself to true or false. It does
// no interval-tightening of InflowContainsRangeAxiom and no
// absorption of memory axioms into EqualsTo chains.
func Simplify(f logic.Formula) logic.Formula {
	switch v := f.(type) {
	case logic.Not:
		inner := Simplify(v.Inner)
		return simplifyNot(inner)
	case logic.SepConj:
		return simplifyConj(v)
	case logic.SepImplies:
		premise := Simplify(v.Premise)
		conclusion := Simplify(v.Conclusion)
		if isTriviallyFalse(premise) {
			return boolFormula(true) // vacuously true implication
		}
		if isTriviallyTrue(premise) {
			return conclusion
		}
		return logic.SepImplies{Premise: premise, Conclusion: conclusion}
	case logic.Atom:
		return simplifyAtom(v)
	}
	return f
}

func boolFormula(b bool) logic.Formula {
	var ax logic.Axiom
	if b {
		ax = mustStackAxiom(logic.Eq, logic.True(), logic.True())
	} else {
		ax = mustStackAxiom(logic.Eq, logic.True(), logic.False())
	}
	return logic.Atom{Axiom: ax}
}

func mustStackAxiom(op logic.CmpOp, l, r logic.Expr) logic.Axiom {
	ax, err := logic.NewStackAxiom(op, l, r)
	if err != nil {
		// true==true / true==false are always well-sorted; a
		// construction failure here is an engine bug, not user input.
		panic(err)
	}
	return ax
}

// isTriviallyTrue/isTriviallyFalse recognize the canonical true/false
// atoms produced by boolFormula and by simplifyNot's negation of them.
func isTriviallyTrue(f logic.Formula) bool {
	a, ok := f.(logic.Atom)
	if !ok {
		return false
	}
	sa, ok := a.Axiom.(logic.StackAxiom)
	return ok && sa.Op == logic.Eq && sa.Lhs.Kind == logic.ExprTrue && sa.Rhs.Kind == logic.ExprTrue
}

func isTriviallyFalse(f logic.Formula) bool {
	a, ok := f.(logic.Atom)
	if !ok {
		return false
	}
	sa, ok := a.Axiom.(logic.StackAxiom)
	return ok && sa.Op == logic.Eq && sa.Lhs.Kind == logic.ExprTrue && sa.Rhs.Kind == logic.ExprFalse
}

func simplifyNot(inner logic.Formula) logic.Formula {
	switch v := inner.(type) {
	case logic.Not:
		// double negation elimination
		return v.Inner
	case logic.Atom:
		if sa, ok := v.Axiom.(logic.StackAxiom); ok {
			negated, err := logic.NewStackAxiom(sa.Op.Negate(), sa.Lhs, sa.Rhs)
			if err == nil {
				return logic.Atom{Axiom: negated}
			}
		}
		if ie, ok := v.Axiom.(logic.InflowEmptinessAxiom); ok {
			return logic.Atom{Axiom: logic.InflowEmptinessAxiom{Flow: ie.Flow, IsEmpty: !ie.IsEmpty}}
		}
	}
	return logic.Not{Inner: inner}
}

func simplifyConj(v logic.SepConj) logic.Formula {
	var flat []logic.Formula
	var flatten func(logic.Formula)
	flatten = func(f logic.Formula) {
		s := Simplify(f)
		if sc, ok := s.(logic.SepConj); ok {
			for _, c := range sc.Conjuncts {
				flatten(c)
			}
			return
		}
		flat = append(flat, s)
	}
	for _, c := range v.Conjuncts {
		flatten(c)
	}

	out := make([]logic.Formula, 0, len(flat))
	for _, c := range flat {
		if isTriviallyFalse(c) {
			return boolFormula(false)
		}
		if isTriviallyTrue(c) {
			continue // true-valued conjuncts drop out
		}
		dup := false
		for _, existing := range out {
			if SyntacticalEqual(existing, c) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return boolFormula(true)
	}
	if len(out) == 1 {
		return out[0]
	}
	return logic.SepConj{Conjuncts: out}
}

func simplifyAtom(v logic.Atom) logic.Formula {
	if sa, ok := v.Axiom.(logic.StackAxiom); ok {
		// a rel a is trivially true for reflexive operators, trivially
		// false for irreflexive ones, when both sides are syntactically
		// the same expression.
		if sa.Lhs.Equal(sa.Rhs) {
			switch sa.Op {
			case logic.Eq, logic.Le, logic.Ge:
				return boolFormula(true)
			case logic.Neq, logic.Lt, logic.Gt:
				return boolFormula(false)
			}
		}
	}
	if ir, ok := v.Axiom.(logic.InflowContainsRangeAxiom); ok {
		// a range whose bounds are both MIN..MAX degenerates to nothing
		// tighter than "no constraint"; leave narrower ranges untouched.
		if ir.Lo.Kind == logic.ExprMin && ir.Hi.Kind == logic.ExprMax {
			return v
		}
	}
	return v
}
