// Package config implements the spec.md §6 Configuration structure:
// footprint depth bound, flow-domain predicate templates, and the
// node/variable invariants a verified program must preserve.
//
// Per spec.md §6 every predicate template has the signature
// `(node, key) -> formula`; this package represents that literally as
// a Go closure over the current symbol/type context rather than a
// parallel substitution engine (spec.md §9's "closures over an opaque
// formula tree with numbered holes" design note is satisfied here by
// the closure's parameters themselves acting as the capture-avoiding
// substitution — there is no separate instantiation pass to get
// wrong). See DESIGN.md for this Open Question's resolution.
package config

import (
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/symbols"
	"github.com/nyu-acsys/flowcert/internal/types"
)

// NodeView is the read-only view of a heap node a predicate template
// is instantiated against: its address/flow symbols, its declared
// fields, and its record type.
type NodeView struct {
	Addr   symbols.Symbol
	Flow   symbols.Symbol
	Fields map[string]symbols.Symbol
	Type   *types.RecordType
}

// OutflowPredicate is `outflowContains(node, field, key) -> formula`
// (spec.md §6 "per pointer field a predicate template"); it answers
// "does node forward key along field".
type OutflowPredicate func(node NodeView, field string, key logic.Expr) logic.Formula

// ContainsKeyPredicate is `logicallyContainsKey(node, key) -> formula`
// (spec.md §6), the predicate that defines the logical set content.
type ContainsKeyPredicate func(node NodeView, key logic.Expr) logic.Formula

// NodeInvariant is `sharedNodeInvariant`/`localNodeInvariant` (spec.md
// §6): an invariant every cell of the given kind must satisfy.
type NodeInvariant func(node NodeView) logic.Formula

// VariableInvariant is `sharedVariableInvariant(var) -> formula`.
type VariableInvariant func(v logic.ProgramVar, val symbols.Symbol) logic.Formula

// FlowDomain bundles the per-data-structure predicate templates of
// spec.md §6.
type FlowDomain struct {
	NodeType  *types.RecordType
	// Monotone reports whether this data structure's outflow is
	// non-decreasing over time (spec.md §4.4's "outflow may be
	// non-decreasing" footprint-loop-freedom requirement references
	// this flag).
	Monotone bool
	// Outflow holds one predicate per pointer field name.
	Outflow map[string]OutflowPredicate
	Contains ContainsKeyPredicate
	// UniqueInflow is not read by any verification code; setting it
	// has no effect on any check.
	UniqueInflow bool
}

// Config is the top-level verification configuration (spec.md §6).
type Config struct {
	MaxFootprintDepth int
	FlowDomain        FlowDomain
	SharedNodeInvariant NodeInvariant
	LocalNodeInvariant  NodeInvariant
	SharedVariableInvariant VariableInvariant
	// StrictUnknown mirrors spec.md §4.3's "per configuration flag":
	// when true, an SMT UNKNOWN verdict raises SolverUnknownError;
	// when false it conservatively returns false from implies().
	StrictUnknown bool
	// RetryOnUnknown is not read by any verification code: an SMT
	// UNKNOWN result is never retried, and StrictUnknown alone decides
	// how it is handled.
	RetryOnUnknown bool
}

// Validate checks the configuration is complete and internally
// consistent (spec.md §7 ConfigurationError: "the provided config is
// incomplete or inconsistent").
func (c *Config) Validate() error {
	if c.MaxFootprintDepth <= 0 {
		return &ConfigurationError{Reason: "maxFootprintDepth must be positive"}
	}
	if c.FlowDomain.NodeType == nil {
		return &ConfigurationError{Reason: "flowDomain.NodeType is required"}
	}
	if c.FlowDomain.Contains == nil {
		return &ConfigurationError{Reason: "flowDomain.Contains (logicallyContainsKey) is required"}
	}
	for _, f := range c.FlowDomain.NodeType.PointerFields() {
		if _, ok := c.FlowDomain.Outflow[f.Name]; !ok {
			return &ConfigurationError{Reason: "missing outflow predicate for pointer field " + f.Name}
		}
	}
	if c.SharedNodeInvariant == nil || c.LocalNodeInvariant == nil {
		return &ConfigurationError{Reason: "sharedNodeInvariant and localNodeInvariant are both required"}
	}
	return nil
}

// ConfigurationError reports a missing-outflow / type-mismatch style
// misconfiguration (spec.md §7).
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Reason }
