package logic

import "github.com/nyu-acsys/flowcert/internal/symbols"

// PastPredicate records that some formula held at an earlier point on
// the same control-flow line (spec.md §3 "past").
type PastPredicate struct {
	Formula Formula
}

// FuturePredicate guarantees that, from a given precondition, running
// a given command reaches a state satisfying a given postcondition
// (spec.md §3 "future"). CommandLabel is a human-readable identifier
// of the command (its source statement), not an executable reference —
// the verifier loop (internal/verifier) is the only thing that ever
// re-runs a command.
type FuturePredicate struct {
	Pre          Formula
	CommandLabel string
	Post         Formula
}

// Annotation is the triple (now, past, future) of spec.md §3: the
// strongest currently-known symbolic state, plus temporal bookkeeping
// carried across program points.
type Annotation struct {
	Now    Formula
	Past   []PastPredicate
	Future []FuturePredicate
}

// NewAnnotation builds an annotation with no temporal history.
func NewAnnotation(now Formula) Annotation {
	return Annotation{Now: now}
}

// FreeSymbols collects every symbol mentioned anywhere in the
// annotation — now, past, and future alike — used by normalization's
// dangling-symbol check (spec.md §3 invariant: "no dangling symbols").
func (a Annotation) FreeSymbols() *symbols.Set {
	var acc []symbols.Symbol
	if a.Now != nil {
		acc = a.Now.FreeSymbols(acc)
	}
	for _, p := range a.Past {
		acc = p.Formula.FreeSymbols(acc)
	}
	for _, f := range a.Future {
		acc = f.Pre.FreeSymbols(acc)
		acc = f.Post.FreeSymbols(acc)
	}
	return symbols.NewSet(acc...)
}

// WithPast returns a copy of a with one more past predicate recording
// that `now` currently holds.
func (a Annotation) WithPast(now Formula) Annotation {
	past := make([]PastPredicate, len(a.Past), len(a.Past)+1)
	copy(past, a.Past)
	past = append(past, PastPredicate{Formula: now})
	return Annotation{Now: a.Now, Past: past, Future: a.Future}
}

func (a Annotation) String() string {
	s := "now: "
	if a.Now != nil {
		s += a.Now.String()
	} else {
		s += "⊤"
	}
	for _, p := range a.Past {
		s += "\n  past: " + p.Formula.String()
	}
	for _, f := range a.Future {
		s += "\n  future: [" + f.Pre.String() + "] " + f.CommandLabel + " [" + f.Post.String() + "]"
	}
	return s
}

// Conjuncts flattens Now into its top-level separating conjuncts; a
// non-SepConj Now is treated as a single conjunct. This is the
// canonical "list of conjuncts" view logic/util and solver operate on.
func Conjuncts(f Formula) []Formula {
	if sc, ok := f.(SepConj); ok {
		return sc.Conjuncts
	}
	if f == nil {
		return nil
	}
	return []Formula{f}
}
