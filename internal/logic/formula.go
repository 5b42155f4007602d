package logic

import (
	"strings"

	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// Formula is a compound formula: an atomic axiom, a separating
// conjunction of atomics and memory axioms, a separating implication,
// or a negation (spec.md §3 "Compound formulas").
type Formula interface {
	isFormula()
	FreeSymbols(acc []symbols.Symbol) []symbols.Symbol
	String() string
}

// Atom lifts a single Axiom into a Formula.
type Atom struct {
	Axiom Axiom
}

func (Atom) isFormula() {}
func (a Atom) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	return a.Axiom.FreeSymbols(acc)
}
func (a Atom) String() string { return a.Axiom.String() }

func NewAtom(ax Axiom) Formula { return Atom{Axiom: ax} }

// SepConj is a separating conjunction ("*") of an ordered list of
// conjuncts. Conjunct order is not semantically meaningful —
// syntacticalEqual (logic/util) treats two SepConj formulas as equal
// up to reordering — but normalize() fixes a canonical order.
type SepConj struct {
	Conjuncts []Formula
}

func And(conjuncts ...Formula) Formula {
	return SepConj{Conjuncts: conjuncts}
}

func (SepConj) isFormula() {}
func (s SepConj) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	for _, c := range s.Conjuncts {
		acc = c.FreeSymbols(acc)
	}
	return acc
}
func (s SepConj) String() string {
	parts := make([]string, len(s.Conjuncts))
	for i, c := range s.Conjuncts {
		parts[i] = c.String()
	}
	return strings.Join(parts, " * ")
}

// SepImplies is a separating implication Premise -* Conclusion.
type SepImplies struct {
	Premise    Formula
	Conclusion Formula
}

func (SepImplies) isFormula() {}
func (s SepImplies) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	acc = s.Premise.FreeSymbols(acc)
	return s.Conclusion.FreeSymbols(acc)
}
func (s SepImplies) String() string {
	return "(" + s.Premise.String() + " -* " + s.Conclusion.String() + ")"
}

// Not is boolean negation of a formula. It appears only transiently —
// produced while translating a negated assume/if condition — and
// simplify() eliminates it: double negation cancels, and a negated
// StackAxiom is rewritten into the axiom with its operator flipped
// (spec.md §4.1 "rewrites ¬(a≤b) into a>b and so on").
type Not struct {
	Inner Formula
}

func (Not) isFormula() {}
func (n Not) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	return n.Inner.FreeSymbols(acc)
}
func (n Not) String() string { return "¬" + n.Inner.String() }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
