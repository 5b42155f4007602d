// Package util provides the total, deep-copy/equality/normalization/
// simplification/printing operations over logic.Formula and
// logic.Annotation described in spec.md §4.1. It is grounded on the
// original implementation's src/heal/util/copy.cpp, src/heal/util/
// equal.cpp, src/logics/util/normalize.cpp and src/heal/util/
// simplify.cpp (original_source/), reworked as pure functions over
// Go's algebraic data types rather than a visitor hierarchy
// (spec.md §9 "Deeply nested visitor hierarchies").
package util

import (
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// Copy returns a structurally equal, symbol-identical, freshly
// allocated copy of a formula: mutating the result (e.g. replacing a
// slice element) never affects the input (spec.md §4.1 "copy(x)").
// Symbols themselves are immutable values and are shared by value —
// only the containing structure is reallocated.
func Copy(f logic.Formula) logic.Formula {
	switch v := f.(type) {
	case logic.Atom:
		return logic.Atom{Axiom: copyAxiom(v.Axiom)}
	case logic.SepConj:
		out := make([]logic.Formula, len(v.Conjuncts))
		for i, c := range v.Conjuncts {
			out[i] = Copy(c)
		}
		return logic.SepConj{Conjuncts: out}
	case logic.SepImplies:
		return logic.SepImplies{Premise: Copy(v.Premise), Conclusion: Copy(v.Conclusion)}
	case logic.Not:
		return logic.Not{Inner: Copy(v.Inner)}
	case nil:
		return nil
	default:
		return f
	}
}

func copyAxiom(a logic.Axiom) logic.Axiom {
	switch v := a.(type) {
	case logic.EqualsTo:
		return logic.EqualsTo{Var: v.Var, Sym: v.Sym}
	case logic.MemoryAxiom:
		out := make(map[string]symbols.Symbol, len(v.Fields))
		for k, s := range v.Fields {
			out[k] = s
		}
		return logic.MemoryAxiom{Kind: v.Kind, Addr: v.Addr, Flow: v.Flow, Fields: out}
	case logic.StackAxiom:
		return logic.StackAxiom{Op: v.Op, Lhs: v.Lhs, Rhs: v.Rhs}
	case logic.InflowEmptinessAxiom:
		return v
	case logic.InflowContainsValueAxiom:
		return v
	case logic.InflowContainsRangeAxiom:
		return v
	case logic.ObligationAxiom:
		return v
	case logic.FulfillmentAxiom:
		return v
	}
	return a
}

// CopyAnnotation deep-copies an entire (now, past, future) triple.
func CopyAnnotation(a logic.Annotation) logic.Annotation {
	out := logic.Annotation{Now: Copy(a.Now)}
	if len(a.Past) > 0 {
		out.Past = make([]logic.PastPredicate, len(a.Past))
		for i, p := range a.Past {
			out.Past[i] = logic.PastPredicate{Formula: Copy(p.Formula)}
		}
	}
	if len(a.Future) > 0 {
		out.Future = make([]logic.FuturePredicate, len(a.Future))
		for i, fu := range a.Future {
			out.Future[i] = logic.FuturePredicate{Pre: Copy(fu.Pre), CommandLabel: fu.CommandLabel, Post: Copy(fu.Post)}
		}
	}
	return out
}
