// Package parser turns a grammar.Program (the participle-produced
// surface tree) into an internal/ast.Program: ParseFile, ParseSource
// and Build resolve nothing about types or bindings, they only
// restructure the parse tree into the shape the rest of the compiler
// walks (spec.md §6, SPEC_FULL.md §2 "internal/ast holds the
// participle-produced surface tree"). Lower then resolves names and
// types into an internal/program.Program.
package parser

import (
	"github.com/nyu-acsys/flowcert/grammar"
	"github.com/nyu-acsys/flowcert/internal/ast"
)

func ParseFile(path string) (*ast.Program, error) {
	program, err := grammar.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return Build(path, program), nil
}

func ParseSource(name, source string) (*ast.Program, error) {
	program, err := grammar.ParseSource(name, source)
	if err != nil {
		return nil, err
	}
	return Build(name, program), nil
}
