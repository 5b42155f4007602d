package util

import (
	"fmt"
	"strings"

	"github.com/nyu-acsys/flowcert/internal/logic"
)

// Print renders a formula using the same conjunct-per-line style the
// teacher's internal/ir printer uses for blocks (internal/ir/printer.go):
// a compact single-line form for small formulas, one conjunct per
// line once a SepConj grows past a handful of entries.
func Print(f logic.Formula) string {
	if f == nil {
		return "⊤"
	}
	conj := logic.Conjuncts(f)
	if len(conj) <= 3 {
		return f.String()
	}
	var sb strings.Builder
	for i, c := range conj {
		if i > 0 {
			sb.WriteString(" *\n  ")
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// PrintAnnotation renders the full (now, past, future) triple.
func PrintAnnotation(a logic.Annotation) string {
	var sb strings.Builder
	sb.WriteString("now:\n  ")
	sb.WriteString(Print(a.Now))
	for _, p := range a.Past {
		sb.WriteString(fmt.Sprintf("\npast:\n  %s", Print(p.Formula)))
	}
	for _, fu := range a.Future {
		sb.WriteString(fmt.Sprintf("\nfuture: [%s] %s [%s]", Print(fu.Pre), fu.CommandLabel, Print(fu.Post)))
	}
	return sb.String()
}
