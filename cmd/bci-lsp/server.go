package main

import (
	"strings"

	"bci/internal/lsp"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
)

const (
	lsName  = "bci-lsp"
	version = "0.1"
)

// server answers requests for .bca documents from an in-memory store; other
// documents get empty answers.
type server struct {
	store   *lsp.Store
	handler protocol.Handler
	log     commonlog.Logger
}

func newServer() *server {
	s := &server{store: lsp.NewStore(), log: commonlog.GetLogger("bci.lsp")}
	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentFormatting:         s.textDocumentFormatting,
		TextDocumentSemanticTokensFull: s.textDocumentSemanticTokensFull,
		TextDocumentDefinition:         s.textDocumentDefinition,
		TextDocumentDocumentSymbol:     s.textDocumentDocumentSymbol,
		TextDocumentCompletion:         s.textDocumentCompletion,
		TextDocumentHover:              s.textDocumentHover,
		TextDocumentRename:             s.textDocumentRename,
		TextDocumentReferences:         s.textDocumentReferences,
	}
	return s
}

// run serves stdio until the client disconnects.
func (s *server) run() error {
	return glspserver.NewServer(&s.handler, lsName, false).RunStdio()
}

func (s *server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Infof("initializing %s %s", lsName, version)

	caps := s.handler.CreateServerCapabilities()
	full := protocol.TextDocumentSyncKindFull
	caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &full,
	}
	caps.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: protocol.SemanticTokensLegend{
			TokenTypes: []string{
				string(protocol.SemanticTokenTypeKeyword),
				string(protocol.SemanticTokenTypeNumber),
				string(protocol.SemanticTokenTypeFunction),
				string(protocol.SemanticTokenTypeComment),
			},
			TokenModifiers: []string{string(protocol.SemanticTokenModifierDeclaration)},
		},
		Full: true,
	}
	caps.CompletionProvider = &protocol.CompletionOptions{}

	v := version
	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo:   &protocol.InitializeResultServerInfo{Name: lsName, Version: &v},
	}, nil
}

func (s *server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *server) shutdown(ctx *glsp.Context) error {
	return nil
}

func isAssembly(uri string) bool {
	return strings.HasSuffix(strings.ToLower(uri), ".bca")
}

// document returns the stored parse of uri if it is an assembly document.
func (s *server) document(uri protocol.DocumentUri) (*lsp.Document, bool) {
	if !isAssembly(string(uri)) {
		return nil, false
	}
	return s.store.Get(string(uri))
}

func (s *server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.publishDiagnostics(ctx, uri, s.store.Set(uri, params.TextDocument.Text))
	return nil
}

func (s *server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// full sync: the last change carries the whole text
	var text string
	switch change := params.ContentChanges[len(params.ContentChanges)-1].(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		text = change.Text
	case protocol.TextDocumentContentChangeEvent:
		text = change.Text
	default:
		return nil
	}
	uri := string(params.TextDocument.URI)
	s.publishDiagnostics(ctx, uri, s.store.Set(uri, text))
	return nil
}

func (s *server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.store.Delete(uri)
	s.publishDiagnostics(ctx, uri, nil)
	return nil
}

// publishDiagnostics clears the document's diagnostics when doc is nil or
// not assembly.
func (s *server) publishDiagnostics(ctx *glsp.Context, uri string, doc *lsp.Document) {
	diags := []protocol.Diagnostic{}
	if doc != nil && isAssembly(uri) {
		diags = lsp.Diagnostics(doc)
	}
	s.log.Debugf("%s: %d diagnostics", uri, len(diags))
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: diags,
	})
}

func (s *server) textDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return &protocol.SemanticTokens{Data: []uint32{}}, nil
	}
	return &protocol.SemanticTokens{Data: lsp.EncodeSemanticTokens(lsp.SemanticTokens(doc))}, nil
}

func (s *server) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	if locs := lsp.DefinitionAt(string(params.TextDocument.URI), doc, params.Position); len(locs) > 0 {
		return locs, nil
	}
	return nil, nil
}

func (s *server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return []protocol.DocumentSymbol{}, nil
	}
	return lsp.DocumentSymbols(doc), nil
}

func (s *server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	if items := lsp.CompletionItems(doc, params.Position); len(items) > 0 {
		return items, nil
	}
	return nil, nil
}

func (s *server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return lsp.HoverAt(doc, params.Position)
}

func (s *server) textDocumentRename(ctx *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return lsp.RenameAt(string(params.TextDocument.URI), doc, params.Position, params.NewName)
}

func (s *server) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return lsp.ReferencesAt(string(params.TextDocument.URI), doc, params.Position, params.Context.IncludeDeclaration), nil
}
