// Minima CLI - runs Minima scripts and templates, and hosts the REPL and
// language server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/minima"
	"github.com/chazu/minima/ast"
	"github.com/chazu/minima/manifest"
	"github.com/chazu/minima/parser"
	"github.com/chazu/minima/runlog"
	"github.com/chazu/minima/runtime"
	"github.com/chazu/minima/server"

	_ "github.com/tliron/commonlog/simple"
)

// exitUsage is returned for bad flags and unreadable or unparsable input.
const exitUsage = 1

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type config struct {
	template    bool
	interactive bool
	lsp         bool
	dumpAST     bool
	dumpTokens  bool
	snapshot    string
	seed        string
	record      bool
	verbosity   int
	logFile     string
	database    string
	timeout     time.Duration
	maxTokenLen int
	args        []string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "history" {
		return cmdHistory(args[1:], stdout, stderr)
	}

	cwd, _ := os.Getwd()
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if m == nil {
		m = manifest.Default(cwd)
	}

	cfg, err := parseFlags(args, m, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}
	configureLogging(cfg)

	if cfg.lsp {
		return serveLSP(cfg, stderr)
	}

	path := ""
	if len(cfg.args) > 0 {
		path = cfg.args[0]
	} else if entry := m.EntryPath(); entry != "" && !cfg.interactive {
		path = entry
	}

	if path == "" {
		return runREPL(cfg, m, stdout, stderr)
	}

	src, err := readSource(path, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	return runFile(cfg, src, stdout, stderr)
}

func parseFlags(args []string, m *manifest.Manifest, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("minima", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVar(&cfg.template, "t", m.Parser.Template, "Parse input as a template (text outside <? ?> is output verbatim)")
	fs.BoolVar(&cfg.interactive, "i", false, "Start interactive REPL")
	fs.BoolVar(&cfg.lsp, "lsp", false, "Start language server on stdio")
	fs.BoolVar(&cfg.dumpAST, "ast", false, "Print the syntax tree instead of running")
	fs.BoolVar(&cfg.dumpTokens, "tokens", false, "Print the token stream instead of running")
	fs.StringVar(&cfg.snapshot, "snapshot", "", "Write the global variables to `file` after the run")
	fs.StringVar(&cfg.seed, "seed", "", "Assign variables from a snapshot `file` (or run:<id> from history) before the run")
	fs.BoolVar(&cfg.record, "record", m.History.Record, "Record the run in the history database")
	fs.IntVar(&cfg.verbosity, "v", m.Log.Verbosity, "Log verbosity (0 = errors only)")
	fs.StringVar(&cfg.logFile, "log", m.LogFilePath(), "Log to `file` instead of stderr")
	fs.StringVar(&cfg.database, "db", m.DatabasePath(), "History database `path`")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "Abort the run after `duration`")
	fs.IntVar(&cfg.maxTokenLen, "max-token", m.Parser.MaxTokenLength, "Maximum identifier, number and string token length (0 = unbounded)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: minima [options] [file | -]\n")
		fmt.Fprintf(stderr, "       minima history [-n count] [-db path]\n\n")
		fmt.Fprintf(stderr, "Runs a Minima script. The exit status is the script's status:\n")
		fmt.Fprintf(stderr, "the run-time error code, or the last integer value assigned.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  minima fib.mi                 # Run a script\n")
		fmt.Fprintf(stderr, "  minima -t page.mit > out.html # Render a template\n")
		fmt.Fprintf(stderr, "  minima -i                     # Start REPL\n")
		fmt.Fprintf(stderr, "  minima -record fib.mi         # Run and keep it in the history\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.args = fs.Args()
	return cfg, nil
}

func configureLogging(cfg *config) {
	var path *string
	if cfg.logFile != "" {
		path = &cfg.logFile
	}
	commonlog.Configure(cfg.verbosity, path)
}

func (cfg *config) options(out io.Writer) []minima.Option {
	opts := []minima.Option{minima.WithOutput(out)}
	if cfg.template {
		opts = append(opts, minima.WithTemplate())
	}
	if cfg.maxTokenLen > 0 {
		opts = append(opts, minima.WithMaxTokenLength(cfg.maxTokenLen))
	}
	return opts
}

func (cfg *config) parserOptions() []parser.Option {
	var opts []parser.Option
	if cfg.template {
		opts = append(opts, parser.WithTemplate())
	}
	if cfg.maxTokenLen > 0 {
		opts = append(opts, parser.WithMaxTokenLength(cfg.maxTokenLen))
	}
	return opts
}

// readSource reads path, or stdin when path is "-".
func readSource(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func runFile(cfg *config, src string, stdout, stderr io.Writer) int {
	if cfg.dumpTokens {
		for _, tok := range parser.Tokenize(src, cfg.parserOptions()...) {
			fmt.Fprintf(stdout, "%d:%d\t%s\n", tok.Pos.Line, tok.Pos.Column, tok)
		}
		return 0
	}

	prog, err := minima.New(src, cfg.options(stdout)...)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	}
	defer prog.Close()

	if cfg.dumpAST {
		if err := ast.Fprint(stdout, prog.AST()); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		return 0
	}

	var db *runlog.DB
	if cfg.record || strings.HasPrefix(cfg.seed, "run:") {
		db, err = runlog.Open(cfg.database)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		defer db.Close()
	}

	if cfg.seed != "" {
		snap, err := loadSeed(cfg.seed, db)
		if err != nil {
			fmt.Fprintf(stderr, "Error: seed: %v\n", err)
			return exitUsage
		}
		if err := prog.Seed(snap); err != nil {
			fmt.Fprintf(stderr, "Error: seed: %v\n", err)
			return exitUsage
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	res := prog.Run(ctx)
	if res.Err != nil {
		if res.Status >= 0 {
			fmt.Fprintf(stderr, "%s\n", runtime.CodeOf(res.Err).Report())
		}
		fmt.Fprintf(stderr, "%v\n", res.Err)
	}

	if cfg.snapshot != "" || db != nil {
		snap, err := prog.Snapshot()
		if err != nil {
			fmt.Fprintf(stderr, "Error: snapshot: %v\n", err)
		} else {
			if cfg.snapshot != "" {
				if err := writeSnapshot(cfg.snapshot, snap); err != nil {
					fmt.Fprintf(stderr, "Error: snapshot: %v\n", err)
				}
			}
			if cfg.record {
				recordRun(db, src, res, snap, stderr)
			}
		}
	}

	return res.Status
}

func recordRun(db *runlog.DB, src string, res minima.Result, snap *runtime.Snapshot, stderr io.Writer) {
	ctx := context.Background()
	if err := db.Record(ctx, src, res); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return
	}
	if err := db.AttachSnapshot(ctx, res.ID, snap); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
}

func writeSnapshot(path string, snap *runtime.Snapshot) error {
	data, err := runtime.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// loadSeed reads a snapshot file, or the snapshot of a recorded run when
// ref has the form run:<id>.
func loadSeed(ref string, db *runlog.DB) (*runtime.Snapshot, error) {
	if id, ok := strings.CutPrefix(ref, "run:"); ok {
		runID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("bad run id %q: %w", id, err)
		}
		if db == nil {
			return nil, errors.New("run history is not open")
		}
		return db.Snapshot(context.Background(), runID)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, err
	}
	return runtime.UnmarshalSnapshot(data)
}

func serveLSP(cfg *config, stderr io.Writer) int {
	opts := server.Options{
		Template:       cfg.template,
		MaxTokenLength: cfg.maxTokenLen,
		RunTimeout:     cfg.timeout,
	}
	if cfg.record {
		db, err := runlog.Open(cfg.database)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		defer db.Close()
		opts.History = db
	}

	srv := server.NewLSP(opts)
	defer srv.Close()
	if err := srv.Run(); err != nil {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		return exitUsage
	}
	return 0
}

// cmdHistory lists recorded runs, newest first.
func cmdHistory(args []string, stdout, stderr io.Writer) int {
	cwd, _ := os.Getwd()
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if m == nil {
		m = manifest.Default(cwd)
	}

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	n := fs.Int("n", 10, "Number of runs to show")
	dbPath := fs.String("db", m.DatabasePath(), "History database `path`")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}

	db, err := runlog.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer db.Close()

	runs, err := db.Recent(context.Background(), *n)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %s  status %d  %s", r.ID, r.Started.Format(time.RFC3339), r.Status, r.Duration)
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Fprintln(stdout, line)
	}
	return 0
}
