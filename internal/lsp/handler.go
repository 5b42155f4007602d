package lsp

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/nyu-acsys/flowcert/internal/ast"
	"github.com/nyu-acsys/flowcert/internal/parser"
)

// SemanticTokenTypes is the set of token kinds this server reports,
// advertised to the client during Initialize.
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"operator",
	"modifier",
}

// SemanticTokenModifiers is the set of token modifier bits this server reports.
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
	"static",
}

// FlowHandler implements the LSP server handlers for the linearizability
// verifier's input language: it parses on open/change and reports
// syntax diagnostics, and serves semantic tokens for the last parsed
// tree of each open document.
type FlowHandler struct {
	mu      sync.RWMutex
	content map[string]string
	trees   map[string]*ast.Program
}

// NewFlowHandler creates and returns a new FlowHandler instance.
func NewFlowHandler() *FlowHandler {
	return &FlowHandler{
		content: make(map[string]string),
		trees:   make(map[string]*ast.Program),
	}
}

func (h *FlowHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *FlowHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("flowcert LSP initialized")
	return nil
}

func (h *FlowHandler) Shutdown(ctx *glsp.Context) error {
	log.Println("flowcert LSP shutdown")
	return nil
}

// SetTrace is required by protocol.Handler; this server does not vary
// its logging by trace level.
func (h *FlowHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (h *FlowHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	diagnostics, err := h.updateTree(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("update tree: %w", err)
	}
	if diagnostics != nil {
		sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	}
	return nil
}

func (h *FlowHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("convert URI %s: %w", params.TextDocument.URI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.trees, path)
	return nil
}

func (h *FlowHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	diagnostics, err := h.updateTree(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("update tree: %w", err)
	}
	if diagnostics != nil {
		sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	}
	return nil
}

func (h *FlowHandler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (interface{}, error) {
	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        []protocol.CompletionItem{},
	}, nil
}

func (h *FlowHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, fmt.Errorf("convert URI %s: %w", params.TextDocument.URI, err)
	}

	program, err := h.getOrUpdateTree(ctx, path, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return &protocol.SemanticTokens{}, nil
	}

	tokens := collectSemanticTokens(program)

	var data []uint32
	var prevLine, prevStart uint32
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))
		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{Data: data}, nil
}

func (h *FlowHandler) getOrUpdateTree(ctx *glsp.Context, path string, rawURI protocol.DocumentUri) (*ast.Program, error) {
	h.mu.RLock()
	program, ok := h.trees[path]
	h.mu.RUnlock()
	if ok {
		return program, nil
	}

	diagnostics, err := h.updateTree(rawURI)
	if err != nil {
		return nil, err
	}
	if diagnostics != nil {
		sendDiagnosticNotification(ctx, rawURI, diagnostics)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.trees[path], nil
}

func (h *FlowHandler) updateTree(rawURI protocol.DocumentUri) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("convert URI %s: %w", rawURI, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	program, parseErr := parser.ParseSource(path, string(content))
	if parseErr != nil {
		return ConvertParseError(parseErr), nil
	}

	h.mu.Lock()
	h.content[path] = string(content)
	h.trees[path] = program
	h.mu.Unlock()

	return nil, nil
}

func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	diagnosticsJSON, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		log.Println("failed to marshal diagnostics:", err)
		return
	}
	log.Println("sending diagnostics:", string(diagnosticsJSON))

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
