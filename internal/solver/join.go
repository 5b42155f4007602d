package solver

import (
	"github.com/nyu-acsys/flowcert/internal/encoding"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/logic/util"
)

// Join computes an over-approximation implied by every input
// annotation (spec.md §4.6 join): start from the conjuncts common to
// every input under syntactic equality, then iteratively re-add any
// conjunct a single input carries that every input's now (including
// its own) entails via the implication checker. The result is implied
// by every input by construction: a common conjunct is trivially
// implied by its own source, and a re-added conjunct was only kept
// once every input was individually shown to entail it.
//
// Past predicates are unioned (deduplicated syntactically) across
// inputs; future predicates likewise, matched on precondition,
// command label, and postcondition.
func (s *Solver) Join(annotations []logic.Annotation) (logic.Annotation, error) {
	if len(annotations) == 0 {
		return logic.NewAnnotation(logic.And()), nil
	}
	if len(annotations) == 1 {
		return annotations[0], nil
	}

	result := intersectConjuncts(annotations)

	for _, a := range annotations {
		for _, c := range logic.Conjuncts(a.Now) {
			if containsConjunct(result, c) {
				continue
			}
			impliedByAll := true
			for _, other := range annotations {
				ok, err := s.implies(other.Now, c, encoding.NOW)
				if err != nil {
					return logic.Annotation{}, err
				}
				if !ok {
					impliedByAll = false
					break
				}
			}
			if impliedByAll {
				result = append(result, c)
			}
		}
	}

	joined := logic.Annotation{Now: logic.And(result...)}
	joined.Past = unionPast(annotations)
	joined.Future = unionFuture(annotations)
	return joined, nil
}

// intersectConjuncts returns the conjuncts of annotations[0].Now that
// have a syntactically-equal counterpart in every other input's now.
func intersectConjuncts(annotations []logic.Annotation) []logic.Formula {
	base := logic.Conjuncts(annotations[0].Now)
	var kept []logic.Formula
	for _, c := range base {
		inAll := true
		for _, a := range annotations[1:] {
			if !containsConjunct(logic.Conjuncts(a.Now), c) {
				inAll = false
				break
			}
		}
		if inAll {
			kept = append(kept, c)
		}
	}
	return kept
}

func containsConjunct(conjuncts []logic.Formula, c logic.Formula) bool {
	for _, existing := range conjuncts {
		if util.SyntacticalEqual(existing, c) {
			return true
		}
	}
	return false
}

func unionPast(annotations []logic.Annotation) []logic.PastPredicate {
	var out []logic.PastPredicate
	for _, a := range annotations {
		for _, p := range a.Past {
			dup := false
			for _, existing := range out {
				if util.SyntacticalEqual(existing.Formula, p.Formula) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, p)
			}
		}
	}
	return out
}

func unionFuture(annotations []logic.Annotation) []logic.FuturePredicate {
	var out []logic.FuturePredicate
	for _, a := range annotations {
		for _, f := range a.Future {
			dup := false
			for _, existing := range out {
				if existing.CommandLabel == f.CommandLabel &&
					util.SyntacticalEqual(existing.Pre, f.Pre) &&
					util.SyntacticalEqual(existing.Post, f.Post) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, f)
			}
		}
	}
	return out
}
