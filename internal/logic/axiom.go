package logic

import (
	"fmt"

	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// ProgramVar names a program variable as it appears in an EqualsTo
// axiom. Program variables themselves carry no storage; the logic
// only ever refers to them through this binding (spec.md §3).
type ProgramVar struct {
	Name   string
	Shared bool
}

// Axiom is any atomic formula: EqualsTo, a MemoryAxiom variant,
// StackAxiom, the three inflow axioms, or an Obligation/Fulfillment
// ghost (spec.md §3 "Axioms").
type Axiom interface {
	isAxiom()
	// FreeSymbols appends every symbol this axiom mentions to acc.
	FreeSymbols(acc []symbols.Symbol) []symbols.Symbol
	String() string
}

// EqualsTo records that program variable Var currently evaluates to
// symbol Sym.
type EqualsTo struct {
	Var ProgramVar
	Sym symbols.Symbol
}

func (EqualsTo) isAxiom() {}
func (a EqualsTo) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	return append(acc, a.Sym)
}
func (a EqualsTo) String() string { return fmt.Sprintf("%s == %s", a.Var.Name, a.Sym) }

// MemoryKind distinguishes shared (multi-thread visible) from local
// (single-thread owned) heap cells.
type MemoryKind int

const (
	Shared MemoryKind = iota
	Local
)

func (k MemoryKind) String() string {
	if k == Shared {
		return "shared"
	}
	return "local"
}

// MemoryAxiom is SharedMemory(addr, flow, fields) or LocalMemory(addr,
// flow, fields) (spec.md §3). Local memory always carries an empty
// flow — it is owned by exactly one thread.
type MemoryAxiom struct {
	Kind   MemoryKind
	Addr   symbols.Symbol
	Flow   symbols.Symbol // second-order; EmptyFlow() for Local
	Fields map[string]symbols.Symbol
}

func (MemoryAxiom) isAxiom() {}

func (a MemoryAxiom) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	acc = append(acc, a.Addr, a.Flow)
	for _, fieldNames := range sortedKeys(a.Fields) {
		acc = append(acc, a.Fields[fieldNames])
	}
	return acc
}

func (a MemoryAxiom) String() string {
	return fmt.Sprintf("%sMemory(%s, flow=%s, fields=%v)", capitalize(a.Kind.String()), a.Addr, a.Flow, a.Fields)
}

// FieldNames returns the field names of this memory axiom in a stable
// (sorted) order, used by printing and normalization.
func (a MemoryAxiom) FieldNames() []string { return sortedKeys(a.Fields) }

// CmpOp is one of the six relational operators a StackAxiom may carry.
type CmpOp int

const (
	Eq CmpOp = iota
	Neq
	Le
	Lt
	Ge
	Gt
)

func (op CmpOp) String() string {
	return [...]string{"=", "!=", "<=", "<", ">=", ">"}[op]
}

// Negate returns the operator for the logical negation of `lhs op rhs`
// when the sort is totally ordered (spec.md §4.1 simplification rule
// "rewrites ¬(a≤b) into a>b and so on").
func (op CmpOp) Negate() CmpOp {
	switch op {
	case Eq:
		return Neq
	case Neq:
		return Eq
	case Le:
		return Gt
	case Lt:
		return Ge
	case Ge:
		return Lt
	case Gt:
		return Le
	}
	return op
}

// StackAxiom is a relational comparison between two expressions
// (spec.md §3).
type StackAxiom struct {
	Op  CmpOp
	Lhs Expr
	Rhs Expr
}

// NewStackAxiom validates sort-comparability and that ordered
// operators (<,<=,>,>=) are only used on the ordered Data sort.
func NewStackAxiom(op CmpOp, lhs, rhs Expr) (StackAxiom, error) {
	if err := requireComparable("StackAxiom", lhs, rhs); err != nil {
		return StackAxiom{}, err
	}
	if op != Eq && op != Neq && !lhs.Sort().IsOrdered() {
		return StackAxiom{}, &PreconditionError{Op: "StackAxiom", Message: fmt.Sprintf("ordering operator %s requires Data sort, got %s", op, lhs.Sort())}
	}
	return StackAxiom{Op: op, Lhs: lhs, Rhs: rhs}, nil
}

func (StackAxiom) isAxiom() {}

func (a StackAxiom) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	acc = a.Lhs.FreeSymbols(acc)
	acc = a.Rhs.FreeSymbols(acc)
	return acc
}

func (a StackAxiom) String() string { return fmt.Sprintf("%s %s %s", a.Lhs, a.Op, a.Rhs) }

// Symmetric reports whether this axiom's operator is symmetric
// (=, !=) — used by syntacticalEqual to permit operand swaps.
func (a StackAxiom) Symmetric() bool { return a.Op == Eq || a.Op == Neq }

// InflowEmptinessAxiom asserts or denies that a flow is the empty set.
type InflowEmptinessAxiom struct {
	Flow    symbols.Symbol
	IsEmpty bool
}

func (InflowEmptinessAxiom) isAxiom() {}
func (a InflowEmptinessAxiom) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	return append(acc, a.Flow)
}
func (a InflowEmptinessAxiom) String() string {
	if a.IsEmpty {
		return fmt.Sprintf("empty(%s)", a.Flow)
	}
	return fmt.Sprintf("¬empty(%s)", a.Flow)
}

// InflowContainsValueAxiom asserts a single Data value is a member of
// a flow.
type InflowContainsValueAxiom struct {
	Flow  symbols.Symbol
	Value Expr
}

func (InflowContainsValueAxiom) isAxiom() {}
func (a InflowContainsValueAxiom) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	acc = append(acc, a.Flow)
	return a.Value.FreeSymbols(acc)
}
func (a InflowContainsValueAxiom) String() string {
	return fmt.Sprintf("%s ∈ %s", a.Value, a.Flow)
}

// InflowContainsRangeAxiom asserts every Data value in [Lo, Hi] is a
// member of a flow.
type InflowContainsRangeAxiom struct {
	Flow   symbols.Symbol
	Lo, Hi Expr
}

func (InflowContainsRangeAxiom) isAxiom() {}
func (a InflowContainsRangeAxiom) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	acc = append(acc, a.Flow)
	acc = a.Lo.FreeSymbols(acc)
	return a.Hi.FreeSymbols(acc)
}
func (a InflowContainsRangeAxiom) String() string {
	return fmt.Sprintf("[%s,%s] ⊆ %s", a.Lo, a.Hi, a.Flow)
}

// ObligationSpec names the three sequential set operations.
type ObligationSpec int

const (
	SpecContains ObligationSpec = iota
	SpecInsert
	SpecDelete
)

func (s ObligationSpec) String() string {
	return [...]string{"contains", "insert", "delete"}[s]
}

// ObligationAxiom is an outstanding linearization requirement: some
// thread has called a public operation and not yet linearized it.
type ObligationAxiom struct {
	Spec ObligationSpec
	Key  Expr
}

func (ObligationAxiom) isAxiom() {}
func (a ObligationAxiom) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	return a.Key.FreeSymbols(acc)
}
func (a ObligationAxiom) String() string { return fmt.Sprintf("Obligation(%s, %s)", a.Spec, a.Key) }

// FulfillmentAxiom is a completed linearization with its return value.
type FulfillmentAxiom struct {
	Spec        ObligationSpec
	Key         Expr
	ReturnValue Expr
}

func (FulfillmentAxiom) isAxiom() {}
func (a FulfillmentAxiom) FreeSymbols(acc []symbols.Symbol) []symbols.Symbol {
	acc = a.Key.FreeSymbols(acc)
	return a.ReturnValue.FreeSymbols(acc)
}
func (a FulfillmentAxiom) String() string {
	return fmt.Sprintf("Fulfillment(%s, %s) = %s", a.Spec, a.Key, a.ReturnValue)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func sortedKeys(m map[string]symbols.Symbol) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// simple insertion sort: field maps are small (a handful of fields)
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
