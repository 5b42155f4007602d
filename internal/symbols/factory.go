package symbols

import "github.com/nyu-acsys/flowcert/internal/types"

// Factory is the per-request view of a Pool used during post-image
// computation (spec.md §4.2). It hands out symbols fresh with respect
// to a caller-supplied avoid set; callers are responsible for folding
// returned symbols into that set before the next request, per the
// contract in spec.md §4.2.
type Factory struct {
	pool *Pool
}

func NewFactory(pool *Pool) *Factory {
	return &Factory{pool: pool}
}

// FreshFO allocates a fresh first-order symbol of the given sort. The
// avoid set is accepted for symmetry with FreshSO and renameToAvoid,
// and to document the contract, but since the pool's counter never
// repeats, freshness against any avoid set is automatic.
func (f *Factory) FreshFO(sort types.Sort, avoid *Set) Symbol {
	return f.pool.allocate(FirstOrder, sort, "")
}

// FreshSO allocates a fresh second-order (flow) symbol.
func (f *Factory) FreshSO(avoid *Set) Symbol {
	return f.pool.allocate(SecondOrder, types.Data, "")
}

// FreshFOHint and FreshSOHint attach a human-readable hint used only
// by pretty-printing.
func (f *Factory) FreshFOHint(sort types.Sort, hint string) Symbol {
	return f.pool.allocate(FirstOrder, sort, hint)
}

func (f *Factory) FreshSOHint(hint string) Symbol {
	return f.pool.allocate(SecondOrder, types.Data, hint)
}
