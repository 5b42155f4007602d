// SPDX-License-Identifier: Apache-2.0
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/nyu-acsys/flowcert/internal/lsp"
)

const lsName = "flowcert"

var (
	version = "0.0.1"
	handler protocol.Handler
)

func main() {
	commonlog.Configure(1, nil)

	flowHandler := lsp.NewFlowHandler()

	handler = protocol.Handler{
		Initialize:                     flowHandler.Initialize,
		Initialized:                    flowHandler.Initialized,
		Shutdown:                       flowHandler.Shutdown,
		SetTrace:                       flowHandler.SetTrace,
		TextDocumentDidOpen:            flowHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           flowHandler.TextDocumentDidClose,
		TextDocumentDidChange:          flowHandler.TextDocumentDidChange,
		TextDocumentCompletion:         flowHandler.TextDocumentCompletion,
		TextDocumentSemanticTokensFull: flowHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting flowcert LSP server...")

	if err := s.RunStdio(); err != nil {
		log.Println("Error starting flowcert LSP server:", err)
		os.Exit(1)
	}
}
