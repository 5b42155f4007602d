package util

import (
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// Renaming is a partial function on symbols with an identity default
// (spec.md §4.1 "Symbol renaming is specified as a partial function on
// symbols with an identity default"). Since fresh symbols are never
// re-bound — they are effectively free in every formula that mentions
// them — applying a Renaming bottom-up is automatically capture-
// avoiding: there is no binder to accidentally capture a substituted
// symbol under.
type Renaming map[uint64]symbols.Symbol

func (r Renaming) apply(s symbols.Symbol) symbols.Symbol {
	if to, ok := r[s.ID()]; ok {
		return to
	}
	return s
}

func (r Renaming) applyExpr(e logic.Expr) logic.Expr {
	if e.Kind == logic.ExprSymbol {
		return logic.Sym(r.apply(e.Sym))
	}
	return e
}

// Rename applies a Renaming to every symbol mentioned in a formula,
// returning a freshly allocated result (it does not mutate f).
func Rename(f logic.Formula, r Renaming) logic.Formula {
	switch v := f.(type) {
	case logic.Atom:
		return logic.Atom{Axiom: renameAxiom(v.Axiom, r)}
	case logic.SepConj:
		out := make([]logic.Formula, len(v.Conjuncts))
		for i, c := range v.Conjuncts {
			out[i] = Rename(c, r)
		}
		return logic.SepConj{Conjuncts: out}
	case logic.SepImplies:
		return logic.SepImplies{Premise: Rename(v.Premise, r), Conclusion: Rename(v.Conclusion, r)}
	case logic.Not:
		return logic.Not{Inner: Rename(v.Inner, r)}
	case nil:
		return nil
	}
	return f
}

func renameAxiom(a logic.Axiom, r Renaming) logic.Axiom {
	switch v := a.(type) {
	case logic.EqualsTo:
		return logic.EqualsTo{Var: v.Var, Sym: r.apply(v.Sym)}
	case logic.MemoryAxiom:
		fields := make(map[string]symbols.Symbol, len(v.Fields))
		for k, s := range v.Fields {
			fields[k] = r.apply(s)
		}
		return logic.MemoryAxiom{Kind: v.Kind, Addr: r.apply(v.Addr), Flow: r.apply(v.Flow), Fields: fields}
	case logic.StackAxiom:
		return logic.StackAxiom{Op: v.Op, Lhs: r.applyExpr(v.Lhs), Rhs: r.applyExpr(v.Rhs)}
	case logic.InflowEmptinessAxiom:
		return logic.InflowEmptinessAxiom{Flow: r.apply(v.Flow), IsEmpty: v.IsEmpty}
	case logic.InflowContainsValueAxiom:
		return logic.InflowContainsValueAxiom{Flow: r.apply(v.Flow), Value: r.applyExpr(v.Value)}
	case logic.InflowContainsRangeAxiom:
		return logic.InflowContainsRangeAxiom{Flow: r.apply(v.Flow), Lo: r.applyExpr(v.Lo), Hi: r.applyExpr(v.Hi)}
	case logic.ObligationAxiom:
		return logic.ObligationAxiom{Spec: v.Spec, Key: r.applyExpr(v.Key)}
	case logic.FulfillmentAxiom:
		return logic.FulfillmentAxiom{Spec: v.Spec, Key: r.applyExpr(v.Key), ReturnValue: r.applyExpr(v.ReturnValue)}
	}
	return a
}

// RenameAnnotation applies r to now, past, and future alike.
func RenameAnnotation(a logic.Annotation, r Renaming) logic.Annotation {
	out := logic.Annotation{Now: Rename(a.Now, r)}
	for _, p := range a.Past {
		out.Past = append(out.Past, logic.PastPredicate{Formula: Rename(p.Formula, r)})
	}
	for _, fu := range a.Future {
		out.Future = append(out.Future, logic.FuturePredicate{
			Pre: Rename(fu.Pre, r), CommandLabel: fu.CommandLabel, Post: Rename(fu.Post, r),
		})
	}
	return out
}

// RenameToAvoid returns a formula alpha-equivalent to f with no free
// symbol in avoid, by reallocating fresh symbols (from factory) for
// every symbol of f that collides with avoid (spec.md §4.2). It is
// idempotent: calling it again with the same avoid set on its own
// result is a no-op, since the result's free symbols are disjoint from
// avoid by construction.
func RenameToAvoid(f logic.Formula, avoid *symbols.Set, factory *symbols.Factory) logic.Formula {
	free := Collect(f)
	ren := make(Renaming)
	for _, s := range free.Slice() {
		if avoid.Contains(s) {
			var fresh symbols.Symbol
			if s.IsSecondOrder() {
				fresh = factory.FreshSO(avoid)
			} else {
				fresh = factory.FreshFO(s.Sort(), avoid)
			}
			ren[s.ID()] = fresh
		}
	}
	if len(ren) == 0 {
		return Copy(f)
	}
	return Rename(f, ren)
}
