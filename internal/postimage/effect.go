// Package postimage computes the strongest-postcondition semantics of
// a single primitive command (spec.md §4.5): assume, malloc, variable
// assignment, and dereference assignment. It is grounded on
// original_source's src/plankton/solver/post.cpp ("one function per
// command kind, each producing a new annotation plus zero or more
// interference effects") but expressed over this repo's own
// logic/config/encoding/flowgraph types rather than translated
// line-for-line.
package postimage

import "github.com/nyu-acsys/flowcert/internal/logic"

// Effect is spec.md §4.5 "Emitted effect": the memory axioms of one
// updated cell before and after a step, plus the separating
// conjunction of surrounding stack/flow knowledge another thread
// needs to check its own stability against it.
type Effect struct {
	Pre, Post logic.MemoryAxiom
	Context   logic.Formula
}
