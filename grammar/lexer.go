package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// FlowLexer tokenizes the input program language (spec.md §6): record
// types, shared/local variable declarations, interface/macro
// functions, and every statement and expression form the verifier's
// program IR models. Order matters: longer operators must be tried
// before their single-character prefixes.
var FlowLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"DocComment", `///[^\n]*`, nil},
		{"Comment", `//[^\n]*`, nil},

		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},

		{"Operator", `(->|::|&&|\|\||==|!=|<=|>=|[=+\-*/<>!])`, nil},

		{"Punctuation", `[{}()\[\],;:.]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
