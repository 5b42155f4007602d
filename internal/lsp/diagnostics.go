package lsp

import (
	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ConvertParseError transforms a grammar parse failure into an LSP
// diagnostic. The grammar reports one error per parse (it has no
// error-tolerant recovery mode for normal builds), so this always
// yields at most one diagnostic.
func ConvertParseError(err error) []protocol.Diagnostic {
	if err == nil {
		return nil
	}

	pe, ok := err.(participle.Error)
	if !ok {
		return []protocol.Diagnostic{{
			Range:    protocol.Range{},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("flowcert-parser"),
			Message:  err.Error(),
		}}
	}

	pos := pe.Position()
	line := uint32(0)
	if pos.Line > 0 {
		line = uint32(pos.Line - 1)
	}
	char := uint32(0)
	if pos.Column > 0 {
		char = uint32(pos.Column - 1)
	}

	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: char},
			End:   protocol.Position{Line: line, Character: char + 1},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("flowcert-parser"),
		Message:  pe.Message(),
	}}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
