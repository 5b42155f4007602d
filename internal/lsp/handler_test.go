package lsp_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/nyu-acsys/flowcert/internal/lsp"
)

func TestTextDocumentSemanticTokensFull(t *testing.T) {
	handler := lsp.NewFlowHandler()

	absPath, err := filepath.Abs(filepath.Join("testdata", "sorted_list.flow"))
	require.NoError(t, err, "failed to get absolute path")

	uri := "file://" + filepath.ToSlash(absPath)

	ctx := &glsp.Context{}
	params := &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}

	tokens, err := handler.TextDocumentSemanticTokensFull(ctx, params)
	require.NoError(t, err, "TextDocumentSemanticTokensFull returned error")
	require.NotNil(t, tokens, "returned tokens should not be nil")
	require.NotEmpty(t, tokens.Data, "returned token data should not be empty")

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err, "failed to decode semantic tokens")
	require.NotEmpty(t, decoded, "no semantic tokens decoded")

	tokenTypes := make(map[string]int)
	for _, token := range decoded {
		tokenTypes[token.Type]++
	}

	require.Greater(t, tokenTypes["namespace"], 0, "should have a namespace token for the module name")
	require.Greater(t, tokenTypes["type"], 0, "should have a type token for the struct name")
	require.Greater(t, tokenTypes["function"], 0, "should have function tokens for contains/push")
	require.Greater(t, tokenTypes["property"], 0, "should have property tokens for struct fields")
	require.Greater(t, tokenTypes["variable"], 0, "should have variable tokens for locals")

	t.Logf("generated %d semantic tokens with types: %v", len(decoded), tokenTypes)
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line + 1,
			Char:      char + 1,
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}
