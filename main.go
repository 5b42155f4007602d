// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/nyu-acsys/flowcert/internal/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: flowcert <file.flow>")
		os.Exit(1)
	}

	path := os.Args[1]
	program, err := parser.ParseFile(path)
	if err != nil {
		// parser.ParseFile already reported a caret-style syntax error.
		os.Exit(1)
	}

	fmt.Printf("Parsed %d module(s) from %s:\n", len(program.Modules), path)
	for _, mod := range program.Modules {
		fmt.Print(mod.String())
	}

	color.Green("parsed %s", path)
}
