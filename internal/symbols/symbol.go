// Package symbols implements the fresh-symbol discipline of spec.md §3
// and §4.2: an infinite pool of first-order and second-order symbols,
// a factory that hands out symbols fresh with respect to a caller-
// supplied "avoid" set, and a process-wide pool that never reclaims.
package symbols

import (
	"fmt"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/nyu-acsys/flowcert/internal/types"
)

// Order distinguishes a first-order symbol (a single value) from a
// second-order symbol (a set of Data values — a flow).
type Order int

const (
	FirstOrder Order = iota
	SecondOrder
)

// Symbol is an opaque, fresh, process-unique identifier carrying a
// sort. First-order symbols range over a single value of Sort;
// second-order symbols range over sets of Data values (the field Sort
// is always types.Data for them, representing the element sort).
type Symbol struct {
	id    uint64
	order Order
	sort  types.Sort
	// hint is a human-readable suggestion used only for pretty-printing
	// (e.g. "a" for an address symbol, "f" for a flow symbol); it plays
	// no role in identity or equality.
	hint string
}

func (s Symbol) ID() uint64       { return s.id }
func (s Symbol) Order() Order     { return s.order }
func (s Symbol) Sort() types.Sort { return s.sort }
func (s Symbol) Hint() string     { return s.hint }

// IsSecondOrder reports whether this symbol denotes a flow (a set of
// Data values) rather than a single value.
func (s Symbol) IsSecondOrder() bool { return s.order == SecondOrder }

func (s Symbol) String() string {
	prefix := "v"
	if s.order == SecondOrder {
		prefix = "F"
	}
	if s.hint != "" {
		return fmt.Sprintf("%s%s%d", prefix, s.hint, s.id)
	}
	return fmt.Sprintf("%s%d", prefix, s.id)
}

// Equal is pointer-free identity comparison: two Symbols are the same
// iff they carry the same process-wide id. Symbols are never re-bound
// once allocated (spec.md §4.1, symbol renaming notes).
func (s Symbol) Equal(o Symbol) bool { return s.id == o.id }

// Relabel constructs a symbol carrying the same order/sort/hint as s
// but a caller-chosen id. It exists solely for logic/util.normalize's
// canonical renaming pass, which maps every symbol in a formula to a
// fresh sequence number in traversal order — those sequence numbers
// are local to one normalized formula and deliberately bypass the
// process-wide Pool, since normalize must be able to re-derive the
// same canonical ids on every call regardless of how many other
// symbols the Pool has allocated meanwhile.
func Relabel(s Symbol, id uint64) Symbol {
	return Symbol{id: id, order: s.order, sort: s.sort, hint: s.hint}
}

// Set is a small, allocation-light set of symbols keyed by id, used
// throughout the logic layer for "avoid" sets and free-symbol sets.
type Set struct {
	m map[uint64]Symbol
}

func NewSet(syms ...Symbol) *Set {
	s := &Set{m: make(map[uint64]Symbol, len(syms))}
	for _, sym := range syms {
		s.Add(sym)
	}
	return s
}

func (s *Set) Add(sym Symbol) { s.m[sym.id] = sym }

func (s *Set) AddAll(other *Set) {
	for _, sym := range other.m {
		s.Add(sym)
	}
}

func (s *Set) Contains(sym Symbol) bool {
	_, ok := s.m[sym.id]
	return ok
}

func (s *Set) Len() int { return len(s.m) }

func (s *Set) Slice() []Symbol {
	out := make([]Symbol, 0, len(s.m))
	for _, sym := range s.m {
		out = append(out, sym)
	}
	return out
}

func (s *Set) Clone() *Set {
	n := NewSet()
	n.AddAll(s)
	return n
}

// Pool is the process-wide, monotonically growing source of symbol
// ids. Per spec.md §5 ("Symbol pools are process-wide and
// monotonically growing; they are never garbage-collected") a Pool is
// never reset during a verification run; freshness is cheap because it
// is just an atomic-under-mutex counter bump.
//
// The pool is guarded by a deadlock-instrumented mutex rather than a
// plain sync.Mutex: any single verification traversal is sequential
// (spec.md §5), but callers that share a *Pool across goroutines get
// lock misuse reported instead of a silent hang.
type Pool struct {
	mu   deadlock.Mutex
	next uint64
}

func NewPool() *Pool {
	return &Pool{next: 1}
}

func (p *Pool) allocate(order Order, sort types.Sort, hint string) Symbol {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	return Symbol{id: id, order: order, sort: sort, hint: hint}
}

// Size reports how many symbols this pool has ever allocated, mostly
// useful for diagnostics and for bounding test fixtures.
func (p *Pool) Size() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next - 1
}
