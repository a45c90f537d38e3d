// Package server implements a language server for Minima scripts.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/minima"
	"github.com/chazu/minima/ast"
	"github.com/chazu/minima/eval"
	"github.com/chazu/minima/parser"
	"github.com/chazu/minima/runtime"
)

var log = commonlog.GetLogger("minima.server")

const lspName = "minima-lsp"

// Commands understood by workspace/executeCommand.
const (
	CommandRun       = "minima.run"
	CommandVariables = "minima.variables"
)

// DefaultRunTimeout bounds a minima.run when Options.RunTimeout is zero.
const DefaultRunTimeout = 30 * time.Second

// Recorder stores finished runs. *runlog.DB implements it.
type Recorder interface {
	Record(ctx context.Context, source string, res minima.Result) error
}

// Options configures the language server.
type Options struct {
	Template       bool          // treat every document as a template
	MaxTokenLength int           // 0 means unbounded
	RunTimeout     time.Duration // NewLSP turns 0 into DefaultRunTimeout; negative means no limit
	History        Recorder      // optional
}

// LspServer serves diagnostics, completion and hover for Minima documents,
// and runs them on request. Values from the last run of any document stay
// in a shared session so hover can show them.
type LspServer struct {
	opts   Options
	worker *Worker

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new language server.
func NewLSP(opts Options) *LspServer {
	if opts.RunTimeout == 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	s := &LspServer{
		opts:    opts,
		worker:  NewWorker(minima.NewSession(minima.WithOutput(nil))),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,

		WorkspaceExecuteCommand: s.workspaceExecuteCommand,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// Close stops the worker goroutine.
func (s *LspServer) Close() {
	s.worker.Stop()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("Minima LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandRun, CommandVariables},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publish(ctx, uri, s.diagnose(uri, text))
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publish(ctx, uri, s.diagnose(uri, whole.Text))
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	s.publish(ctx, uri, []protocol.Diagnostic{})
	return nil
}

func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	uri := params.TextDocument.URI
	result, err := s.worker.Do(func(sess *minima.Session) any {
		return s.complete(sess, uri, text, prefix)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(sess *minima.Session) any {
		return s.hover(sess, word)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (s *LspServer) workspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	switch params.Command {
	case CommandRun:
		if len(params.Arguments) == 0 {
			return nil, fmt.Errorf("%s: missing document URI", CommandRun)
		}
		uri, ok := params.Arguments[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s: document URI must be a string", CommandRun)
		}
		report, err := s.run(context.Background(), protocol.DocumentUri(uri))
		if err != nil {
			return nil, err
		}

		s.publish(ctx, protocol.DocumentUri(uri), report.Diagnostics)
		msgType := protocol.MessageTypeInfo
		if report.Err != "" {
			msgType = protocol.MessageTypeError
		}
		go ctx.Notify(protocol.ServerWindowShowMessage, protocol.ShowMessageParams{
			Type:    msgType,
			Message: report.Summary(),
		})
		return report, nil

	case CommandVariables:
		result, err := s.worker.Do(func(sess *minima.Session) any {
			return variableLines(sess.Symbols())
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("unknown command %q", params.Command)
}

// --- Analysis ---

func (s *LspServer) template(uri protocol.DocumentUri) bool {
	return s.opts.Template || strings.HasSuffix(string(uri), ".mit")
}

func (s *LspServer) parserOptions(uri protocol.DocumentUri) []parser.Option {
	var opts []parser.Option
	if s.template(uri) {
		opts = append(opts, parser.WithTemplate())
	}
	if s.opts.MaxTokenLength > 0 {
		opts = append(opts, parser.WithMaxTokenLength(s.opts.MaxTokenLength))
	}
	return opts
}

// diagnose parses text and reports the syntax error, if any.
func (s *LspServer) diagnose(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	tree, err := parser.Parse(text, s.parserOptions(uri)...)
	if err != nil {
		return []protocol.Diagnostic{errorDiagnostic(err)}
	}
	ast.Destroy(tree, nil)
	return nil
}

// RunReport describes one run of a document.
type RunReport struct {
	ID          string                `json:"id"`
	Status      int                   `json:"status"`
	Output      string                `json:"output"`
	Err         string                `json:"error,omitempty"`
	Duration    string                `json:"duration"`
	Diagnostics []protocol.Diagnostic `json:"-"`
}

// Summary renders the report as a one-line message.
func (r *RunReport) Summary() string {
	if r.Err != "" {
		return fmt.Sprintf("run %s failed with status %d: %s", r.ID, r.Status, r.Err)
	}
	return fmt.Sprintf("run %s finished with status %d in %s", r.ID, r.Status, r.Duration)
}

// run executes the open document uri in a fresh program, then copies its
// variables into the shared session. The program runs outside the worker
// so hover and completion keep answering while it runs.
func (s *LspServer) run(ctx context.Context, uri protocol.DocumentUri) (*RunReport, error) {
	text, ok := s.document(uri)
	if !ok {
		return nil, fmt.Errorf("document %s is not open", uri)
	}

	report, snap := s.execute(ctx, uri, text)
	if snap != nil {
		_, err := s.worker.Do(func(sess *minima.Session) any {
			if err := sess.Seed(snap); err != nil {
				log.Warningf("cannot keep variables of run %s: %s", report.ID, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

// execute runs text and returns its report along with a snapshot of its
// variables, or nil when none could be taken.
func (s *LspServer) execute(ctx context.Context, uri protocol.DocumentUri, text string) (*RunReport, *runtime.Snapshot) {
	var out bytes.Buffer
	opts := []minima.Option{minima.WithOutput(&out)}
	if s.template(uri) {
		opts = append(opts, minima.WithTemplate())
	}
	if s.opts.MaxTokenLength > 0 {
		opts = append(opts, minima.WithMaxTokenLength(s.opts.MaxTokenLength))
	}

	prog, err := minima.New(text, opts...)
	if err != nil {
		return &RunReport{
			Status:      int(runtime.ErrNativeFailure),
			Err:         err.Error(),
			Diagnostics: []protocol.Diagnostic{errorDiagnostic(err)},
		}, nil
	}
	defer prog.Close()

	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}
	res := prog.Run(ctx)

	report := &RunReport{
		ID:       res.ID.String(),
		Status:   res.Status,
		Output:   out.String(),
		Duration: res.Duration.String(),
	}
	if res.Err != nil {
		report.Err = res.Err.Error()
		report.Diagnostics = []protocol.Diagnostic{errorDiagnostic(res.Err)}
	}

	if s.opts.History != nil {
		if err := s.opts.History.Record(context.Background(), text, res); err != nil {
			log.Errorf("record run %s: %s", res.ID, err)
		}
	}

	snap, err := prog.Snapshot()
	if err != nil {
		log.Warningf("cannot keep variables of run %s: %s", res.ID, err)
		return report, nil
	}
	return report, snap
}

func (s *LspServer) complete(sess *minima.Session, uri protocol.DocumentUri, text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		labelCopy, detailCopy := label, detail
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	for _, kw := range parser.Keywords() {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}
	for _, fn := range sess.Symbols().Functions() {
		add(fn.Name, protocol.CompletionItemKindFunction, fn.Signature())
	}
	for _, v := range sess.Symbols().Variables() {
		add(v.Name, protocol.CompletionItemKindVariable, v.Value.Type().String())
	}

	// Identifiers named in the document, up to the first lexical error
	for _, tok := range parser.Tokenize(text, s.parserOptions(uri)...) {
		if tok.Type == parser.TokenIdentifier {
			add(tok.Literal, protocol.CompletionItemKindVariable, "identifier")
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func (s *LspServer) hover(sess *minima.Session, word string) *protocol.Hover {
	var b strings.Builder

	if fn, ok := sess.Symbols().Function(word); ok {
		fmt.Fprintf(&b, "```\n%s\n```", fn.Signature())
		if bi, ok := minima.LookupBuiltin(word); ok {
			fmt.Fprintf(&b, "\n\n---\n\n%s", bi.Doc)
		}
	} else if v, ok := sess.Symbols().Variable(word); ok {
		fmt.Fprintf(&b, "**%s** `%s`", v.Name, v.Value.Type())
		if arr := v.Value.Array(); arr != nil {
			fmt.Fprintf(&b, "\n\n```\n")
			if err := arr.Fprint(&b); err != nil {
				return nil
			}
			b.WriteString("```")
		} else {
			fmt.Fprintf(&b, " = `%s`", v.Value)
		}
	} else if isKeyword(word) {
		fmt.Fprintf(&b, "`%s` keyword", word)
	} else {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func isKeyword(word string) bool {
	for _, kw := range parser.Keywords() {
		if kw == word {
			return true
		}
	}
	return false
}

func variableLines(st *runtime.SymbolTable) []string {
	vars := st.Variables()
	lines := make([]string, 0, len(vars))
	for _, v := range vars {
		lines = append(lines, fmt.Sprintf("%s %s = %s", v.Value.Type(), v.Name, v.Value))
	}
	return lines
}

// --- Diagnostics ---

// errorDiagnostic places a syntax or run-time error in the source.
func errorDiagnostic(err error) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName
	d := protocol.Diagnostic{
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}

	var se *parser.SyntaxError
	var re *eval.Error
	switch {
	case errors.As(err, &se):
		d.Range = spanRange(ast.Span{Start: se.Pos})
	case errors.As(err, &re):
		d.Range = spanRange(re.Span)
		d.Message = re.Error()
	}
	return d
}

// spanRange converts a 1-based span to a 0-based LSP range. An empty span
// covers one character.
func spanRange(sp ast.Span) protocol.Range {
	start := toPosition(sp.Start)
	end := toPosition(sp.End)
	if sp.End.Line == 0 || end.Line < start.Line || (end.Line == start.Line && end.Character <= start.Character) {
		end = protocol.Position{Line: start.Line, Character: start.Character + 1}
	}
	return protocol.Range{Start: start, End: end}
}

func toPosition(p ast.Position) protocol.Position {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

// --- Text extraction helpers ---

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// cursorLine returns the line under pos and the clamped cursor column.
func cursorLine(text string, pos protocol.Position) (string, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
