package verifier

import (
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/logic/util"
	"github.com/nyu-acsys/flowcert/internal/postimage"
	"github.com/nyu-acsys/flowcert/internal/solver"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// consolidate merges a round's freshly emitted effects into the
// running interference set, dropping any effect subsumed by another
// (spec.md §4.7's "if consolidate(...) did not grow interference:
// return linearizable"). Symbols in the incoming effects are first
// renamed to avoid every symbol already free in existing, since two
// effects emitted by unrelated statements otherwise share no
// particular symbol identity and a stale collision would make
// subsumption checks meaningless.
func (v *Verifier) consolidate(existing, incoming []postimage.Effect) (bool, []postimage.Effect, error) {
	if len(incoming) == 0 {
		return false, existing, nil
	}

	avoid := symbols.NewSet()
	for _, eff := range existing {
		avoid.AddAll(effectSymbols(eff))
	}
	factory := symbols.NewFactory(v.Pool)

	renamed := make([]postimage.Effect, len(incoming))
	for i, eff := range incoming {
		renamed[i] = renameEffectToAvoid(eff, avoid, factory)
		avoid.AddAll(effectSymbols(renamed[i]))
	}

	merged := append(append([]postimage.Effect{}, existing...), renamed...)
	n := len(merged)

	pairs := make([]solver.EffectPair, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			pairs = append(pairs, solver.EffectPair{A: i, B: j})
		}
	}
	subsumes, err := v.Solver.ComputeEffectImplications(merged, pairs)
	if err != nil {
		return false, nil, err
	}
	grid := make([][]bool, n)
	for i := range grid {
		grid[i] = make([]bool, n)
	}
	for idx, p := range pairs {
		grid[p.A][p.B] = subsumes[idx]
	}

	// Drop every effect subsumed by a still-kept one. Mutual
	// subsumption (grid[i][j] and grid[j][i] both true, i.e. the pair
	// is equivalent) is broken deterministically by index so exactly
	// one side survives rather than both eliminating each other.
	kept := make([]bool, n)
	for i := range kept {
		kept[i] = true
	}
	for i := 0; i < n; i++ {
		if !kept[i] {
			continue
		}
		for j := 0; j < n; j++ {
			if i == j || !kept[j] || !grid[i][j] {
				continue
			}
			if grid[j][i] && j < i {
				kept[i] = false
				break
			}
			kept[j] = false
		}
	}

	var out []postimage.Effect
	for i, k := range kept {
		if k {
			out = append(out, merged[i])
		}
	}

	// A round that leaves the kept set exactly as it was (in content,
	// not merely in count) contributed nothing new. The existing
	// effects are already free of mutual subsumption, so the kept set
	// changes exactly when some incoming effect survives.
	grown := false
	for i := len(existing); i < n; i++ {
		if kept[i] {
			grown = true
		}
	}
	return grown, out, nil
}

func effectSymbols(eff postimage.Effect) *symbols.Set {
	s := symbols.NewSet()
	s.AddAll(util.Collect(logic.NewAtom(eff.Pre)))
	s.AddAll(util.Collect(logic.NewAtom(eff.Post)))
	s.AddAll(util.Collect(eff.Context))
	return s
}

// renameEffectToAvoid renames every symbol of eff that collides with
// avoid, using one consistent substitution across its pre-cell,
// post-cell, and context so that shared symbols (the cell's address
// and flow, most importantly) stay identified with each other after
// the rename (spec.md §4.2).
func renameEffectToAvoid(eff postimage.Effect, avoid *symbols.Set, factory *symbols.Factory) postimage.Effect {
	free := effectSymbols(eff)
	ren := make(util.Renaming)
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
		return eff
	}
	preAtom := util.Rename(logic.NewAtom(eff.Pre), ren).(logic.Atom)
	postAtom := util.Rename(logic.NewAtom(eff.Post), ren).(logic.Atom)
	return postimage.Effect{
		Pre:     preAtom.Axiom.(logic.MemoryAxiom),
		Post:    postAtom.Axiom.(logic.MemoryAxiom),
		Context: util.Rename(eff.Context, ren),
	}
}
