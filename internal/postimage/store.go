package postimage

import (
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// lookupVar finds the symbol currently bound to a program variable
// name by scanning now's top-level EqualsTo conjuncts.
func lookupVar(now logic.Formula, name string) (symbols.Symbol, bool) {
	for _, c := range logic.Conjuncts(now) {
		a, ok := c.(logic.Atom)
		if !ok {
			continue
		}
		eq, ok := a.Axiom.(logic.EqualsTo)
		if ok && eq.Var.Name == name {
			return eq.Sym, true
		}
	}
	return symbols.Symbol{}, false
}

// lookupMemory finds the memory axiom anchored at addr.
func lookupMemory(now logic.Formula, addr symbols.Symbol) (logic.MemoryAxiom, bool) {
	for _, c := range logic.Conjuncts(now) {
		a, ok := c.(logic.Atom)
		if !ok {
			continue
		}
		mem, ok := a.Axiom.(logic.MemoryAxiom)
		if ok && mem.Addr.Equal(addr) {
			return mem, true
		}
	}
	return logic.MemoryAxiom{}, false
}

// memoryAxioms collects every MemoryAxiom conjunct of now, for handing
// to flowgraph.NewEnvironment.
func memoryAxioms(now logic.Formula) []logic.MemoryAxiom {
	var out []logic.MemoryAxiom
	for _, c := range logic.Conjuncts(now) {
		a, ok := c.(logic.Atom)
		if !ok {
			continue
		}
		if mem, ok := a.Axiom.(logic.MemoryAxiom); ok {
			out = append(out, mem)
		}
	}
	return out
}

// obligations collects every outstanding ObligationAxiom conjunct.
func obligations(now logic.Formula) []logic.ObligationAxiom {
	var out []logic.ObligationAxiom
	for _, c := range logic.Conjuncts(now) {
		a, ok := c.(logic.Atom)
		if !ok {
			continue
		}
		if ob, ok := a.Axiom.(logic.ObligationAxiom); ok {
			out = append(out, ob)
		}
	}
	return out
}

// removeVarBinding drops any existing EqualsTo conjunct for name,
// making room for the fresh one a malloc or assignment step installs.
func removeVarBinding(now logic.Formula, name string) logic.Formula {
	conj := logic.Conjuncts(now)
	out := make([]logic.Formula, 0, len(conj))
	for _, c := range conj {
		if a, ok := c.(logic.Atom); ok {
			if eq, ok := a.Axiom.(logic.EqualsTo); ok && eq.Var.Name == name {
				continue
			}
		}
		out = append(out, c)
	}
	return logic.And(out...)
}

// replaceMemoryAxiom swaps the memory axiom anchored at addr for
// replacement, appending it if no such axiom was present.
func replaceMemoryAxiom(now logic.Formula, addr symbols.Symbol, replacement logic.MemoryAxiom) logic.Formula {
	conj := logic.Conjuncts(now)
	out := make([]logic.Formula, 0, len(conj)+1)
	found := false
	for _, c := range conj {
		if a, ok := c.(logic.Atom); ok {
			if mem, ok := a.Axiom.(logic.MemoryAxiom); ok && mem.Addr.Equal(addr) {
				out = append(out, logic.NewAtom(replacement))
				found = true
				continue
			}
		}
		out = append(out, c)
	}
	if !found {
		out = append(out, logic.NewAtom(replacement))
	}
	return logic.And(out...)
}

// replaceObligationWithFulfillment discharges ob into a Fulfillment
// carrying the step's linearization return value (spec.md §4.5 "the
// obligation is discharged into a fulfillment").
func replaceObligationWithFulfillment(now logic.Formula, ob logic.ObligationAxiom, ret logic.Expr) logic.Formula {
	conj := logic.Conjuncts(now)
	out := make([]logic.Formula, 0, len(conj)+1)
	for _, c := range conj {
		if a, ok := c.(logic.Atom); ok {
			if o, ok := a.Axiom.(logic.ObligationAxiom); ok && o.Spec == ob.Spec && o.Key.Equal(ob.Key) {
				continue
			}
		}
		out = append(out, c)
	}
	out = append(out, logic.NewAtom(logic.FulfillmentAxiom{Spec: ob.Spec, Key: ob.Key, ReturnValue: ret}))
	return logic.And(out...)
}
