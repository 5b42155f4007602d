package util

import (
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// SyntacticalEqual is the equivalence relation of spec.md §4.1: equal
// up to commutativity of symmetric comparison operators (=, !=),
// reordering of conjuncts in a separating conjunction, and a canonical
// pairing of field entries in memory axioms. It does NOT consult the
// SMT backend — it is a cheap structural check used to dedupe
// conjuncts during join and to implement the copy/equality law of
// spec.md §8.
func SyntacticalEqual(a, b logic.Formula) bool {
	switch av := a.(type) {
	case logic.Atom:
		bv, ok := b.(logic.Atom)
		return ok && axiomEqual(av.Axiom, bv.Axiom)
	case logic.SepConj:
		bv, ok := b.(logic.SepConj)
		if !ok {
			return false
		}
		return conjunctsEqualUpToReorder(av.Conjuncts, bv.Conjuncts)
	case logic.SepImplies:
		bv, ok := b.(logic.SepImplies)
		return ok && SyntacticalEqual(av.Premise, bv.Premise) && SyntacticalEqual(av.Conclusion, bv.Conclusion)
	case logic.Not:
		bv, ok := b.(logic.Not)
		return ok && SyntacticalEqual(av.Inner, bv.Inner)
	case nil:
		return b == nil
	}
	return false
}

// conjunctsEqualUpToReorder checks whether two conjunct lists contain
// the same multiset of formulas under SyntacticalEqual, independent of
// order (spec.md §4.1 "reordering of conjuncts").
func conjunctsEqualUpToReorder(as, bs []logic.Formula) bool {
	if len(as) != len(bs) {
		return false
	}
	used := make([]bool, len(bs))
	for _, a := range as {
		found := false
		for j, b := range bs {
			if used[j] {
				continue
			}
			if SyntacticalEqual(a, b) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func axiomEqual(a, b logic.Axiom) bool {
	switch av := a.(type) {
	case logic.EqualsTo:
		bv, ok := b.(logic.EqualsTo)
		return ok && av.Var == bv.Var && av.Sym.Equal(bv.Sym)
	case logic.MemoryAxiom:
		bv, ok := b.(logic.MemoryAxiom)
		if !ok || av.Kind != bv.Kind || !av.Addr.Equal(bv.Addr) || !av.Flow.Equal(bv.Flow) {
			return false
		}
		return fieldsEqual(av.Fields, bv.Fields)
	case nil:
		return b == nil
	case logic.StackAxiom:
		bv, ok := b.(logic.StackAxiom)
		if !ok {
			return false
		}
		if av.Op == bv.Op && av.Lhs.Equal(bv.Lhs) && av.Rhs.Equal(bv.Rhs) {
			return true
		}
		// symmetric operators permit operand swap: a=b is the same axiom as b=a
		if av.Symmetric() && av.Op == bv.Op && av.Lhs.Equal(bv.Rhs) && av.Rhs.Equal(bv.Lhs) {
			return true
		}
		return false
	case logic.InflowEmptinessAxiom:
		bv, ok := b.(logic.InflowEmptinessAxiom)
		return ok && av.Flow.Equal(bv.Flow) && av.IsEmpty == bv.IsEmpty
	case logic.InflowContainsValueAxiom:
		bv, ok := b.(logic.InflowContainsValueAxiom)
		return ok && av.Flow.Equal(bv.Flow) && av.Value.Equal(bv.Value)
	case logic.InflowContainsRangeAxiom:
		bv, ok := b.(logic.InflowContainsRangeAxiom)
		return ok && av.Flow.Equal(bv.Flow) && av.Lo.Equal(bv.Lo) && av.Hi.Equal(bv.Hi)
	case logic.ObligationAxiom:
		bv, ok := b.(logic.ObligationAxiom)
		return ok && av.Spec == bv.Spec && av.Key.Equal(bv.Key)
	case logic.FulfillmentAxiom:
		bv, ok := b.(logic.FulfillmentAxiom)
		return ok && av.Spec == bv.Spec && av.Key.Equal(bv.Key) && av.ReturnValue.Equal(bv.ReturnValue)
	}
	return false
}

// AnnotationSyntacticalEqual extends SyntacticalEqual to a full
// (now, past, future) triple. Past and future are compared
// positionally rather than as a multiset: WithPast and solver.Join
// only ever append to these slices in lockstep across the branches
// being joined, so position already carries their identity.
func AnnotationSyntacticalEqual(a, b logic.Annotation) bool {
	if !SyntacticalEqual(a.Now, b.Now) {
		return false
	}
	if len(a.Past) != len(b.Past) || len(a.Future) != len(b.Future) {
		return false
	}
	for i := range a.Past {
		if !SyntacticalEqual(a.Past[i].Formula, b.Past[i].Formula) {
			return false
		}
	}
	for i := range a.Future {
		fa, fb := a.Future[i], b.Future[i]
		if fa.CommandLabel != fb.CommandLabel || !SyntacticalEqual(fa.Pre, fb.Pre) || !SyntacticalEqual(fa.Post, fb.Post) {
			return false
		}
	}
	return true
}

// fieldsEqual pairs field entries canonically by name (spec.md §4.1
// "a canonical pairing of field entries in memory axioms").
func fieldsEqual(a, b map[string]symbols.Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for name, sa := range a {
		sb, ok := b[name]
		if !ok || !sa.Equal(sb) {
			return false
		}
	}
	return true
}
