// Package lsp serves merged PHP declarations to editors over the Language
// Server Protocol. Hovering a class, method, property or function name shows
// its resolved types.
package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/hargabyte/apishape/internal/analyzer"
)

const lsName = "apishape"

// Server is the language server.
type Server struct {
	analyzer *analyzer.Analyzer
	handler  protocol.Handler
	server   *server.Server
	version  string
	log      commonlog.Logger

	mu   sync.Mutex
	docs map[string][]byte
}

// NewServer creates a language server answering from a.
func NewServer(a *analyzer.Analyzer, version string) *Server {
	ls := &Server{
		analyzer: a,
		version:  version,
		log:      commonlog.GetLogger("apishape.lsp"),
		docs:     make(map[string][]byte),
	}

	ls.handler = protocol.Handler{
		Initialize:            ls.initialize,
		Initialized:           ls.initialized,
		Shutdown:              ls.shutdown,
		SetTrace:              ls.setTrace,
		TextDocumentDidOpen:   ls.textDocumentDidOpen,
		TextDocumentDidChange: ls.textDocumentDidChange,
		TextDocumentDidClose:  ls.textDocumentDidClose,
		TextDocumentDidSave:   ls.textDocumentDidSave,
		TextDocumentHover:     ls.textDocumentHover,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

// RunStdio serves on stdin and stdout until the client disconnects.
func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.RootURI != nil && *params.RootURI != "" {
		if root, err := uriToPath(*params.RootURI); err == nil {
			ls.log.Infof("workspace root %s", root)
		}
	}

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(false),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	ls.analyzer.ClearCache()
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	ls.setDocument(path, []byte(params.TextDocument.Text))
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.setDocument(path, []byte(whole.Text))
		}
	}
	ls.analyzer.Invalidate(path)
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	ls.mu.Lock()
	delete(ls.docs, path)
	ls.mu.Unlock()
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	ls.analyzer.Invalidate(path)
	ls.log.Debugf("invalidated %s", path)
	return nil
}

func (ls *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}

	ls.mu.Lock()
	content := ls.docs[path]
	ls.mu.Unlock()
	if content == nil {
		return nil, nil
	}

	word := WordAt(content, int(params.Position.Line), int(params.Position.Character))
	if word == "" {
		return nil, nil
	}

	text := ls.Describe(path, word)
	if text == "" {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}, nil
}

// Describe returns hover markdown for word as it appears in the file at
// path, or "" when nothing matches. An open document is analyzed from its
// editor buffer, so unsaved edits are reflected.
func (ls *Server) Describe(path, word string) string {
	ls.mu.Lock()
	content, open := ls.docs[path]
	ls.mu.Unlock()

	var (
		result *analyzer.Result
		err    error
	)
	if open {
		result, err = ls.analyzer.AnalyzeSource(path, content)
	} else {
		result, err = ls.analyzer.Analyze(path)
	}
	if err != nil {
		ls.log.Warningf("hover %s: %s", path, err)
		return ""
	}
	if text := describeInFile(result.File, word); text != "" {
		return text
	}

	// Not declared here; try it as a class known elsewhere.
	name := strings.TrimPrefix(word, "$")
	if strings.HasPrefix(word, "$") || name == "" {
		return ""
	}
	if result.File != nil && result.File.Namespace != "" && !strings.HasPrefix(name, `\`) && !strings.Contains(name, `\`) {
		if r, err := ls.analyzer.Analyze(result.File.Namespace + `\` + name); err == nil && r.Class != nil {
			return describeClass(r.Class)
		}
	}
	if r, err := ls.analyzer.Analyze(name); err == nil && r.Class != nil {
		return describeClass(r.Class)
	}
	return ""
}

func (ls *Server) setDocument(path string, content []byte) {
	ls.mu.Lock()
	ls.docs[path] = content
	ls.mu.Unlock()
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
