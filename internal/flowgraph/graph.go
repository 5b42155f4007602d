// Package flowgraph builds the bounded rooted footprint graph of
// spec.md §4.4: starting from the memory address a heap-modifying
// command dereferences, it unfolds pointer fields up to a configured
// depth and hands the resulting node/edge structure to internal/
// encoding and internal/postimage for per-node flow and keyset
// reasoning. This package only ever deals in structure — addresses,
// fields, reachability — never in SMT terms; the nodes it discovers
// are encoded by the caller, which already holds an *encoding.Encoder.
package flowgraph

import (
	"sort"

	"github.com/nyu-acsys/flowcert/internal/config"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// Environment is the subset of an annotation's memory axioms a
// footprint exploration can see, keyed by address symbol id.
type Environment map[uint64]logic.MemoryAxiom

// NewEnvironment indexes a flat list of memory axioms by address.
func NewEnvironment(axioms []logic.MemoryAxiom) Environment {
	env := make(Environment, len(axioms))
	for _, ax := range axioms {
		env[ax.Addr.ID()] = ax
	}
	return env
}

func (env Environment) lookup(addr symbols.Symbol) (logic.MemoryAxiom, bool) {
	ax, ok := env[addr.ID()]
	return ax, ok
}

// Edge is one pointer-field hop discovered during unfolding.
type Edge struct {
	From, To symbols.Symbol
	Field    string
}

// Graph is the bounded footprint: every node address reached within
// the depth bound, the edges between them, and the distinguished
// primary/secondary roots (spec.md §4.4).
type Graph struct {
	Nodes          map[uint64]logic.MemoryAxiom
	Edges          []Edge
	PrimaryRoot    symbols.Symbol
	SecondaryRoots []symbols.Symbol
	HasCycle       bool
}

// AddressSymbols returns every explored node's address symbol, in a
// stable order (insertion order into Nodes would be map-random; callers
// that build SMT disjointness rules need determinism for reproducible
// query text).
func (g *Graph) AddressSymbols() []symbols.Symbol {
	out := make([]symbols.Symbol, 0, len(g.Nodes))
	for _, ax := range g.Nodes {
		out = append(out, ax.Addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// FootprintTooSmallError is spec.md §4.4/§7: exploration exhausted
// config.MaxFootprintDepth before invariant/specification checks
// could close.
type FootprintTooSmallError struct {
	MaxDepth int
}

func (e *FootprintTooSmallError) Error() string {
	return "flowgraph: footprint too small (exceeded max depth)"
}

// UnsupportedConfigurationError is spec.md §4.4's "cyclic footprint
// raises an unsupported configuration error" — only raised when the
// flow domain's outflow is non-decreasing, since only then does a
// directed cycle in the footprint threaten footprint-loop freedom.
type UnsupportedConfigurationError struct {
	Reason string
}

func (e *UnsupportedConfigurationError) Error() string {
	return "flowgraph: unsupported configuration: " + e.Reason
}

// Build unfolds the footprint graph rooted at primary, additionally
// marking any of secondary as roots (spec.md §4.4's "secondary roots
// are the current and the new successors along the updated field,
// added only when the updated field has pointer sort" — the caller,
// which knows the updated field and its value, computes which
// addresses those are and passes them here already resolved).
func Build(env Environment, cfg *config.Config, primary symbols.Symbol, secondary []symbols.Symbol) (*Graph, error) {
	g := &Graph{
		Nodes:          make(map[uint64]logic.MemoryAxiom),
		PrimaryRoot:    primary,
		SecondaryRoots: append([]symbols.Symbol(nil), secondary...),
	}

	pointerFields := cfg.FlowDomain.NodeType.PointerFields()

	type frontierEntry struct {
		addr  symbols.Symbol
		depth int
	}
	frontier := []frontierEntry{{addr: primary, depth: 0}}
	for _, s := range secondary {
		if !s.Equal(primary) {
			frontier = append(frontier, frontierEntry{addr: s, depth: 0})
		}
	}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if _, already := g.Nodes[cur.addr.ID()]; already {
			continue
		}
		ax, ok := env.lookup(cur.addr)
		if !ok {
			// An address with no known memory axiom in this environment
			// (e.g. null, or a cell outside the explored scope) is a leaf:
			// it contributes no further edges but is not itself an error.
			continue
		}
		g.Nodes[cur.addr.ID()] = ax
		if cur.depth >= cfg.MaxFootprintDepth {
			// We recorded this node (it is within the bound), but do not
			// expand further; if that leaves an edge target unexplored
			// that invariant checking later needs, the caller reports
			// FootprintTooSmallError once it notices the gap. Recording
			// without expanding mirrors a depth-bounded BFS frontier cut.
			continue
		}
		for _, f := range pointerFields {
			succ, ok := ax.Fields[f.Name]
			if !ok {
				continue
			}
			g.Edges = append(g.Edges, Edge{From: cur.addr, To: succ, Field: f.Name})
			frontier = append(frontier, frontierEntry{addr: succ, depth: cur.depth + 1})
		}
	}

	g.HasCycle = detectCycle(g)
	if g.HasCycle && cfg.FlowDomain.Monotone {
		return nil, &UnsupportedConfigurationError{Reason: "footprint contains a directed cycle under a non-decreasing (monotone) outflow domain"}
	}
	return g, nil
}

// detectCycle runs a standard three-color DFS over the discovered
// edges to decide whether the footprint contains a directed cycle.
func detectCycle(g *Graph) bool {
	const (
		white = iota
		gray
		black
	)
	color := make(map[uint64]int, len(g.Nodes))
	adj := make(map[uint64][]uint64, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.From.ID()] = append(adj[e.From.ID()], e.To.ID())
	}
	var visit func(id uint64) bool
	visit = func(id uint64) bool {
		color[id] = gray
		for _, next := range adj[id] {
			if _, known := g.Nodes[next]; !known {
				continue
			}
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for id := range g.Nodes {
		if color[id] == white {
			if visit(id) {
				return true
			}
		}
	}
	return false
}
