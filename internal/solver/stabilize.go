package solver

import (
	"github.com/nyu-acsys/flowcert/internal/encoding"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/logic/util"
	"github.com/nyu-acsys/flowcert/internal/postimage"
	"github.com/nyu-acsys/flowcert/internal/smt"
)

// MakeStable removes from pre.Now every conjunct that is not invariant
// under every effect in effects (spec.md §4.6 makeStable). A conjunct
// survives only when, for each effect, the effect's transition (its
// pre-cell true in NOW, its post-cell true in NEXT, heap/flow/
// ownership unchanged everywhere outside its single-address footprint)
// together with pre.Now and the effect's context still entails the
// conjunct re-encoded at NEXT. Past predicates are preserved as-is;
// future predicates are left untouched — re-checking a future
// predicate against the stabilized now means re-running post along
// its recorded command, which is internal/verifier's job, not the
// solver's.
func (s *Solver) MakeStable(pre logic.Annotation, effects []postimage.Effect) (logic.Annotation, error) {
	if len(effects) == 0 {
		return pre, nil
	}

	var kept []logic.Formula
	for _, c := range logic.Conjuncts(pre.Now) {
		stable := true
		for _, eff := range effects {
			ok, err := s.stableUnder(pre, c, eff)
			if err != nil {
				return logic.Annotation{}, err
			}
			if !ok {
				stable = false
				break
			}
		}
		if stable {
			kept = append(kept, c)
		}
	}

	next := pre
	next.Now = logic.And(kept...)
	return next, nil
}

// stableUnder is the per-conjunct-per-effect check of spec.md §4.6:
// does asserting the effect's transition over pre.Now still entail c
// in the post-state.
func (s *Solver) stableUnder(pre logic.Annotation, c logic.Formula, eff postimage.Effect) (bool, error) {
	nowTerm, err := s.Encoder.EncodeFormula(pre.Now, encoding.NOW)
	if err != nil {
		return false, err
	}
	ctxTerm, err := s.Encoder.EncodeFormula(eff.Context, encoding.NOW)
	if err != nil {
		return false, err
	}
	preCellTerm, err := s.Encoder.EncodeFormula(logic.NewAtom(eff.Pre), encoding.NOW)
	if err != nil {
		return false, err
	}
	postCellTerm, err := s.Encoder.EncodeFormula(logic.NewAtom(eff.Post), encoding.NEXT)
	if err != nil {
		return false, err
	}

	footprint := []smt.Term{s.Encoder.Symbol(eff.Pre.Addr)}
	frame := s.frameConditions(eff, footprint)
	bg := s.Encoder.DataDomainAxioms()

	premiseTerms := append([]smt.Term{nowTerm, ctxTerm, preCellTerm, postCellTerm}, frame...)
	premiseTerms = append(premiseTerms, bg...)
	premise := smt.And(premiseTerms...)

	checker := encoding.NewImplicationChecker(s.Backend, premise, s.Config.StrictUnknown)
	defer checker.Close()

	candidate, err := s.Encoder.EncodeFormula(c, encoding.NEXT)
	if err != nil {
		return false, err
	}
	return checker.Implies(candidate)
}

// frameConditions asserts that, outside the effect's single-address
// footprint, heap, flow, and ownership are NEXT-equal to NOW — the
// same frame rule the post-image engine applies when computing its
// own step (spec.md §4.5), here applied from the perspective of a
// thread stabilizing against someone else's step.
func (s *Solver) frameConditions(eff postimage.Effect, footprint []smt.Term) []smt.Term {
	var terms []smt.Term
	seen := make(map[string]bool)
	for _, field := range eff.Pre.FieldNames() {
		if seen[field] {
			continue
		}
		seen[field] = true
		terms = append(terms, s.Encoder.TransitionMaintainsHeap(field, eff.Pre.Fields[field].Sort(), footprint))
	}
	for _, field := range eff.Post.FieldNames() {
		if seen[field] {
			continue
		}
		seen[field] = true
		terms = append(terms, s.Encoder.TransitionMaintainsHeap(field, eff.Post.Fields[field].Sort(), footprint))
	}
	terms = append(terms, s.Encoder.TransitionMaintainsFlow(footprint))
	terms = append(terms, s.Encoder.TransitionMaintainsOwnership(footprint))
	return terms
}

// EffectPair names two effects by index into a shared slice, the unit
// ComputeEffectImplications batches over (spec.md §4.6).
type EffectPair struct {
	A, B int
}

// ComputeEffectImplications batch-checks, for each pair, whether
// effects[pair.A] subsumes effects[pair.B]: A's precondition implies
// B's, A's postcondition implies B's, and A's context implies B's
// (spec.md §4.6, used by the verifier's consolidation step to
// deduplicate the interference set).
func (s *Solver) ComputeEffectImplications(effects []postimage.Effect, pairs []EffectPair) ([]bool, error) {
	out := make([]bool, len(pairs))
	for i, p := range pairs {
		ok, err := s.effectSubsumes(effects[p.A], effects[p.B])
		if err != nil {
			return nil, err
		}
		out[i] = ok
	}
	return out, nil
}

// effectSubsumes is the per-pair check, carrying original_source's
// fast path (src/prover/verifyimpl/effects.cpp): when b's context is a
// pure stack formula (no memory/flow axioms), subsumption is first
// attempted as a syntactic containment of b's conjuncts within a's —
// a conjunct-by-conjunct comparison that never touches the backend —
// and only falls back to a full SMT query if that cheap check fails.
func (s *Solver) effectSubsumes(a, b postimage.Effect) (bool, error) {
	preOk, err := s.implies(logic.NewAtom(a.Pre), logic.NewAtom(b.Pre), encoding.NOW)
	if err != nil || !preOk {
		return false, err
	}
	postOk, err := s.implies(logic.NewAtom(a.Post), logic.NewAtom(b.Post), encoding.NEXT)
	if err != nil || !postOk {
		return false, err
	}
	return s.contextImplies(a.Context, b.Context)
}

func (s *Solver) contextImplies(a, b logic.Formula) (bool, error) {
	if isPureStack(b) && syntacticallyContains(a, b) {
		return true, nil
	}
	return s.implies(a, b, encoding.NOW)
}

// isPureStack reports whether f's top-level conjuncts are all
// stack-only axioms (EqualsTo or StackAxiom): no memory, flow, or
// obligation content.
func isPureStack(f logic.Formula) bool {
	for _, c := range logic.Conjuncts(f) {
		a, ok := c.(logic.Atom)
		if !ok {
			return false
		}
		switch a.Axiom.(type) {
		case logic.EqualsTo, logic.StackAxiom:
		default:
			return false
		}
	}
	return true
}

// syntacticallyContains reports whether every conjunct of b has a
// syntactically-equal counterpart among a's conjuncts.
func syntacticallyContains(a, b logic.Formula) bool {
	aConj := logic.Conjuncts(a)
	for _, bc := range logic.Conjuncts(b) {
		found := false
		for _, ac := range aConj {
			if util.SyntacticalEqual(ac, bc) {
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
