package encoding

import (
	"github.com/nyu-acsys/flowcert/internal/smt"
	"github.com/nyu-acsys/flowcert/internal/types"
)

// This file builds the quantified background rules the post-image
// engine (internal/postimage) and solver (internal/solver) assert
// once per step, grounded on the shape of original_source's
// src/plankton/solver/mk_rules.cpp ("one rule-builder per axiom
// family") but expressed as a handful of Go functions returning
// smt.Term rather than a C++ visitor over a rule AST — there is no
// analogous "rule" value type in this encoding, only the terms
// themselves.

// DataDomainAxioms asserts the background facts that make MIN and MAX
// behave as true sentinels: every Int value encountered in a query
// lies within [DATA_MIN, DATA_MAX], and the two are distinct.
func (e *Encoder) DataDomainAxioms() []smt.Term {
	e.ensureSentinels()
	lo := smt.Atom(dataMinConst)
	hi := smt.Atom(dataMaxConst)
	bound := smt.ForAll("x", "Int", smt.And(
		smt.App("<=", lo, smt.Atom("x")),
		smt.App("<=", smt.Atom("x"), hi),
	))
	return []smt.Term{bound, smt.App("<", lo, hi)}
}

// TransitionMaintainsHeap is spec.md §4.5/§6
// `encodeTransitionMaintains*` for a single field: outside the update
// footprint, the field's value is unchanged between NOW and NEXT.
func (e *Encoder) TransitionMaintainsHeap(field string, fieldSort types.Sort, footprint []smt.Term) smt.Term {
	nowSel := e.EncodeHeap(smt.Atom("a"), field, fieldSort, NOW)
	nextSel := e.EncodeHeap(smt.Atom("a"), field, fieldSort, NEXT)
	antecedent := outsideFootprint(footprint)
	return smt.ForAll("a", "Ptr", smt.Implies(antecedent, smt.Eq(nowSel, nextSel)))
}

// TransitionMaintainsFlow is the flow-relation analogue: outside the
// footprint, membership in the per-address flow relation does not
// change between NOW and NEXT.
func (e *Encoder) TransitionMaintainsFlow(footprint []smt.Term) smt.Term {
	antecedent := outsideFootprint(footprint)
	now := e.EncodeFlowAt(smt.Atom("a"), smt.Atom("k"), NOW)
	next := e.EncodeFlowAt(smt.Atom("a"), smt.Atom("k"), NEXT)
	iff := smt.And(smt.Implies(now, next), smt.Implies(next, now))
	return smt.ForAll("a", "Ptr", smt.ForAll("k", "Int", smt.Implies(antecedent, iff)))
}

// TransitionMaintainsOwnership is the shared/local ownership analogue.
func (e *Encoder) TransitionMaintainsOwnership(footprint []smt.Term) smt.Term {
	antecedent := outsideFootprint(footprint)
	name := ownershipRelationName(NOW)
	nextName := ownershipRelationName(NEXT)
	e.Declarations.Relations[name] = []string{"Ptr"}
	e.Declarations.Relations[nextName] = []string{"Ptr"}
	now := smt.App(name, smt.Atom("a"))
	next := smt.App(nextName, smt.Atom("a"))
	iff := smt.And(smt.Implies(now, next), smt.Implies(next, now))
	return smt.ForAll("a", "Ptr", smt.Implies(antecedent, iff))
}

func outsideFootprint(footprint []smt.Term) smt.Term {
	if len(footprint) == 0 {
		return smt.Atom("true")
	}
	neqs := make([]smt.Term, len(footprint))
	for i, addr := range footprint {
		neqs[i] = smt.Not(smt.Eq(smt.Atom("a"), addr))
	}
	return smt.And(neqs...)
}

// PrimaryRootInflowStable is spec.md §4.5 step 1 of the
// dereference-assignment post-image: the primary root's inflow is
// unchanged by the step (only its outflow along the updated field may
// change, which is what can move keys to a different node).
func (e *Encoder) PrimaryRootInflowStable(root smt.Term) smt.Term {
	now := e.EncodeFlowAt(root, smt.Atom("k"), NOW)
	next := e.EncodeFlowAt(root, smt.Atom("k"), NEXT)
	iff := smt.And(smt.Implies(now, next), smt.Implies(next, now))
	return smt.ForAll("k", "Int", iff)
}

// KeysetDisjointness asserts pairwise disjointness of the logical
// keysets of a set of explored footprint nodes in a given epoch
// (spec.md §4.4 "keysets are pairwise disjoint", §4.5 step 4 "check
// keyset disjointness across explored nodes in NEXT"). keyset(addr,
// key) is the caller-supplied per-node membership term; binder is the
// exact SMT identifier that term uses for its free key variable (the
// caller picks it — typically the encoded name of a fresh key symbol —
// so this function's universal closure binds the same name the
// per-node terms already reference).
func (e *Encoder) KeysetDisjointness(binder string, keyset func(addr smt.Term, key smt.Term) smt.Term, nodes []smt.Term) []smt.Term {
	var rules []smt.Term
	keyAtom := smt.Atom(binder)
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			disjoint := smt.ForAll(binder, "Int", smt.Not(smt.And(keyset(a, keyAtom), keyset(b, keyAtom))))
			rules = append(rules, disjoint)
		}
	}
	return rules
}
