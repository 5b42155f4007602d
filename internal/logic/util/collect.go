package util

import (
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// Collect returns the set of every symbol free in a formula
// (spec.md §4.1 "symbol collection").
func Collect(f logic.Formula) *symbols.Set {
	if f == nil {
		return symbols.NewSet()
	}
	return symbols.NewSet(f.FreeSymbols(nil)...)
}

// CollectAnnotation returns the set of every symbol free anywhere in
// an annotation (now, past, and future alike).
func CollectAnnotation(a logic.Annotation) *symbols.Set {
	return a.FreeSymbols()
}
