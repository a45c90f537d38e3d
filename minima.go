// Package minima embeds the Minima scripting language: parse a source
// text once, register native functions, then run it.
//
//	prog, err := minima.New(`x = 2 + 3 * 5; print(x);`)
//	if err != nil {
//		return err
//	}
//	defer prog.Close()
//	res := prog.Run(ctx)
package minima

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/minima/ast"
	"github.com/chazu/minima/eval"
	"github.com/chazu/minima/parser"
	"github.com/chazu/minima/runtime"
)

var log = commonlog.GetLogger("minima")

// ErrClosed is returned when a closed program is used.
var ErrClosed = errors.New("minima: program is closed")

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Option configures a Program or Session.
type Option func(*options)

type options struct {
	template    bool
	out         io.Writer
	maxTokenLen int
	builtins    bool
}

func defaultOptions() options {
	return options{out: os.Stdout, builtins: true}
}

// WithTemplate parses the source as a template: text outside <? ?> is
// written to the output verbatim.
func WithTemplate() Option {
	return func(o *options) { o.template = true }
}

// WithOutput directs print and template text to w instead of stdout. A
// nil w discards the output.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w == nil {
			w = io.Discard
		}
		o.out = w
	}
}

// WithMaxTokenLength bounds identifier, number and string tokens.
func WithMaxTokenLength(n int) Option {
	return func(o *options) { o.maxTokenLen = n }
}

// WithoutBuiltins leaves the symbol table empty of native functions.
func WithoutBuiltins() Option {
	return func(o *options) { o.builtins = false }
}

func (o options) parserOptions() []parser.Option {
	var popts []parser.Option
	if o.template {
		popts = append(popts, parser.WithTemplate())
	}
	if o.maxTokenLen > 0 {
		popts = append(popts, parser.WithMaxTokenLength(o.maxTokenLen))
	}
	return popts
}

// ---------------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------------

// Program is a parsed Minima program with its own symbol table.
type Program struct {
	ID     uuid.UUID
	Source string

	tree    *ast.Program
	symbols *runtime.SymbolTable
	interp  *eval.Interpreter
	lastRun uuid.UUID
	closed  bool
}

// Result describes one run of a program. Each run gets its own ID.
//
// Status -1 is both the status of a cancelled run and of a program whose
// last value is the Int -1; Err tells them apart.
type Result struct {
	ID       uuid.UUID
	Status   int           // error code, last Int value, or 0
	Value    runtime.Value // value of the last statement
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Failed reports whether the run stopped on an error.
func (r Result) Failed() bool { return r.Err != nil }

// New parses src and prepares a program. Syntax errors are returned
// wrapping *parser.SyntaxError.
func New(src string, opts ...Option) (*Program, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	tree, err := parser.Parse(src, o.parserOptions()...)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	symbols := runtime.NewSymbolTable()
	if o.builtins {
		RegisterBuiltins(symbols, o.out)
	}

	return &Program{
		ID:      uuid.New(),
		Source:  src,
		tree:    tree,
		symbols: symbols,
		interp:  eval.New(symbols, o.out),
	}, nil
}

// AST returns the parsed syntax tree.
func (p *Program) AST() *ast.Program { return p.tree }

// Symbols returns the program's symbol table.
func (p *Program) Symbols() *runtime.SymbolTable { return p.symbols }

// Register adds a native function. params declares each parameter; a
// variadic function skips the count and type checks.
func (p *Program) Register(name string, fn runtime.NativeFunc, variadic bool, params ...runtime.Param) *runtime.Function {
	f := p.symbols.CreateFunction(fn, name, len(params), variadic)
	copy(f.Params, params)
	return f
}

// Run evaluates the program. Runs share the symbol table, so a second run
// sees the variables of the first.
func (p *Program) Run(ctx context.Context) Result {
	res := Result{ID: uuid.New(), Started: time.Now()}
	if p.closed {
		res.Err = ErrClosed
		res.Status = int(runtime.ErrNativeFailure)
		return res
	}
	p.lastRun = res.ID

	log.Debugf("run %s of program %s started", res.ID, p.ID)
	res.Value, res.Err = p.interp.Run(ctx, p.tree)
	res.Duration = time.Since(res.Started)
	res.Status = eval.Status(res.Value, res.Err)

	switch {
	case res.Err == nil:
		log.Infof("run %s finished with status %d in %s", res.ID, res.Status, res.Duration)
	case res.Status < 0:
		log.Warningf("run %s interrupted: %s", res.ID, res.Err)
	default:
		log.Errorf("%s (%s)", runtime.CodeOf(res.Err).Report(), res.Err)
	}
	return res
}

// Snapshot captures the program's global variables. The snapshot carries
// the ID of the last run, or the program ID before the first run.
func (p *Program) Snapshot() (*runtime.Snapshot, error) {
	if p.closed {
		return nil, ErrClosed
	}
	id := p.ID
	if p.lastRun != uuid.Nil {
		id = p.lastRun
	}
	return runtime.TakeSnapshot(p.symbols, id.String())
}

// Seed assigns the variables of a snapshot before the program runs.
func (p *Program) Seed(s *runtime.Snapshot) error {
	if p.closed {
		return ErrClosed
	}
	return s.Restore(p.symbols)
}

// Close releases the syntax tree and empties every array held by a
// variable. Closing twice is harmless.
func (p *Program) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	ast.Destroy(p.tree, nil)
	p.symbols.Destroy()
	return nil
}
