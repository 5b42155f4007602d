package util

import (
	"sort"

	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// maxNormalizePasses bounds the renaming/sorting fixpoint iteration
// per spec.md §4.1 ("idempotent up to a fixed bound of
// renaming/sorting passes (constant ≤ 12)").
const maxNormalizePasses = 12

// Normalize returns a canonical representative of a formula: simplify,
// then a stable total ordering of conjuncts (bucket by sort tag, then
// lexicographic by sub-ordering), then a greedy renaming of symbols to
// a fresh sequence in traversal order. It is idempotent up to alpha
// (spec.md §8 "Normalization idempotence"): if a fixpoint is not
// reached within maxNormalizePasses, the last iterate is returned.
func Normalize(f logic.Formula) logic.Formula {
	norm, _ := normalizeTracked(f)
	return norm
}

// normalizeTracked runs the same fixpoint as Normalize but also
// returns the composed Renaming from f's original free symbols to
// their names in the returned formula, so a caller holding other
// formulas that share symbols with f (an annotation's past and future
// predicates) can rename them with the exact same mapping.
func normalizeTracked(f logic.Formula) (logic.Formula, Renaming) {
	base := Collect(f).Slice()
	composed := make(Renaming, len(base))
	cur := f
	for i := 0; i < maxNormalizePasses; i++ {
		next, ren := normalizePass(cur)
		for _, s := range base {
			composed[s.ID()] = ren.apply(composed.apply(s))
		}
		if SyntacticalEqual(next, cur) {
			return next, composed
		}
		cur = next
	}
	return cur, composed
}

func normalizePass(f logic.Formula) (logic.Formula, Renaming) {
	simplified := Simplify(f)
	pruned := PruneDangling(simplified)
	ordered := orderConjuncts(pruned)
	return canonicalRename(ordered)
}

// PruneDangling drops top-level conjuncts that mention a symbol with
// no stack- or heap-reachable binding anywhere else in the formula,
// enforcing spec.md §3's "no dangling symbols" annotation invariant.
// EqualsTo and MemoryAxiom conjuncts are never pruned — they are the
// only axiom kinds that ever anchor a symbol.
func PruneDangling(f logic.Formula) logic.Formula {
	sc, ok := f.(logic.SepConj)
	if !ok {
		return f
	}
	anchors := symbols.NewSet()
	for _, c := range sc.Conjuncts {
		a, ok := c.(logic.Atom)
		if !ok {
			continue
		}
		switch ax := a.Axiom.(type) {
		case logic.EqualsTo:
			anchors.Add(ax.Sym)
		case logic.MemoryAxiom:
			anchors.Add(ax.Addr)
			anchors.Add(ax.Flow)
			for _, s := range ax.Fields {
				anchors.Add(s)
			}
		}
	}
	out := make([]logic.Formula, 0, len(sc.Conjuncts))
	for _, c := range sc.Conjuncts {
		a, ok := c.(logic.Atom)
		if !ok {
			out = append(out, c)
			continue
		}
		switch a.Axiom.(type) {
		case logic.EqualsTo, logic.MemoryAxiom:
			out = append(out, c)
			continue
		}
		dangling := false
		for _, s := range c.FreeSymbols(nil) {
			if !anchors.Contains(s) {
				dangling = true
				break
			}
		}
		if !dangling {
			out = append(out, c)
		}
	}
	if len(out) == len(sc.Conjuncts) {
		return sc
	}
	return logic.SepConj{Conjuncts: out}
}

// orderConjuncts imposes the stable total order of spec.md §4.1 on
// every SepConj it finds, recursively.
func orderConjuncts(f logic.Formula) logic.Formula {
	switch v := f.(type) {
	case logic.SepConj:
		out := make([]logic.Formula, len(v.Conjuncts))
		for i, c := range v.Conjuncts {
			out[i] = orderConjuncts(c)
		}
		sort.SliceStable(out, func(i, j int) bool {
			bi, bj := bucket(out[i]), bucket(out[j])
			if bi != bj {
				return bi < bj
			}
			return out[i].String() < out[j].String()
		})
		return logic.SepConj{Conjuncts: out}
	case logic.SepImplies:
		return logic.SepImplies{Premise: orderConjuncts(v.Premise), Conclusion: orderConjuncts(v.Conclusion)}
	case logic.Not:
		return logic.Not{Inner: orderConjuncts(v.Inner)}
	}
	return f
}

// bucket assigns a stable sort-tag bucket per spec.md §4.1 ("bucket by
// sort tag, then lexicographic by sub-ordering"): stack-reachable
// facts first, then heap facts, then flow facts, then ghost state.
func bucket(f logic.Formula) int {
	a, ok := f.(logic.Atom)
	if !ok {
		return 100
	}
	switch a.Axiom.(type) {
	case logic.EqualsTo:
		return 0
	case logic.StackAxiom:
		return 1
	case logic.MemoryAxiom:
		return 2
	case logic.InflowEmptinessAxiom, logic.InflowContainsValueAxiom, logic.InflowContainsRangeAxiom:
		return 3
	case logic.ObligationAxiom, logic.FulfillmentAxiom:
		return 4
	}
	return 99
}

// canonicalRename performs the greedy renaming pass: symbols are
// visited in conjunct traversal order (the order orderConjuncts just
// fixed) and mapped to a fresh sequence 1,2,3,... via symbols.Relabel.
// Two structurally-identical-up-to-renaming formulas therefore
// normalize to literally the same result.
func canonicalRename(f logic.Formula) (logic.Formula, Renaming) {
	next := uint64(1)
	ren := make(Renaming)
	var visit func(logic.Formula)
	visit = func(g logic.Formula) {
		for _, s := range g.FreeSymbols(nil) {
			if _, done := ren[s.ID()]; !done {
				ren[s.ID()] = symbols.Relabel(s, next)
				next++
			}
		}
	}
	visit(f)
	return Rename(f, ren), ren
}

// NormalizeAnnotation normalizes now, then renames past and future
// formulas with the exact same symbol mapping that normalizing now
// derived, so that shared symbols across the triple stay identified
// (spec.md §4.1: renaming is "applied consistently across an
// annotation's now, past and future components").
func NormalizeAnnotation(a logic.Annotation) logic.Annotation {
	now, ren := normalizeTracked(a.Now)
	renamed := RenameAnnotation(logic.Annotation{Past: a.Past, Future: a.Future}, ren)
	return logic.Annotation{Now: now, Past: renamed.Past, Future: renamed.Future}
}
