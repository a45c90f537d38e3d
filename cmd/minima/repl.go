package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/minima"
	"github.com/chazu/minima/manifest"
	"github.com/chazu/minima/parser"
	"github.com/chazu/minima/runlog"
	"github.com/chazu/minima/runtime"
)

const promptCont = "... "

const banner = "Minima REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands."

// prompter reads one line of input; *liner.State implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
}

func runREPL(cfg *config, m *manifest.Manifest, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := m.HistoryFilePath()
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err != nil {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sess := minima.NewSession(cfg.options(stdout)...)
	if cfg.seed != "" {
		var db *runlog.DB
		if strings.HasPrefix(cfg.seed, "run:") {
			var err error
			if db, err = runlog.Open(cfg.database); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitUsage
			}
			defer db.Close()
		}
		snap, err := loadSeed(cfg.seed, db)
		if err == nil {
			err = sess.Seed(snap)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: seed: %v\n", err)
		}
	}

	for {
		code, ok := readInput(ln, m.REPL.Prompt, promptCont, cfg.parserOptions())
		if !ok {
			fmt.Fprintln(stdout)
			break
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(code, ":") {
			if quit := replCommand(sess, code, stdout, stderr); quit {
				break
			}
			continue
		}

		evalAndPrint(sess, code, stdout, stderr)
	}
	return 0
}

// readInput keeps prompting while the accumulated input is an incomplete
// statement. It returns false at end of input.
func readInput(p prompter, prompt, cont string, opts []parser.Option) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = p.Prompt(prompt)
		} else {
			line, err = p.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := parser.ParseExpression(src); err == nil {
			return src, true
		}
		if _, err := parser.Parse(src, opts...); parser.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}

// evalAndPrint evaluates code in the session. Interrupts cancel the
// evaluation, not the REPL.
func evalAndPrint(sess *minima.Session, code string, stdout, stderr io.Writer) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	v, err := sess.Eval(ctx, code)
	if err != nil {
		if !isSyntaxError(err) && ctx.Err() == nil {
			fmt.Fprintf(stderr, "%s\n", runtime.CodeOf(err).Report())
		}
		fmt.Fprintf(stderr, "%v\n", err)
		return
	}
	if !v.IsVoid() {
		fmt.Fprintf(stdout, "=> %s\n", formatValue(v))
	}
}

func isSyntaxError(err error) bool {
	var se *parser.SyntaxError
	return errors.As(err, &se)
}

func formatValue(v runtime.Value) string {
	switch v.Type() {
	case runtime.TypeString:
		return fmt.Sprintf("%q", v.Str())
	case runtime.TypeArray:
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", v)
		_ = v.Array().Fprint(&b)
		return strings.TrimRight(b.String(), "\n")
	}
	return v.String()
}

// replCommand handles REPL meta-commands. It reports whether to exit.
func replCommand(sess *minima.Session, line string, stdout, stderr io.Writer) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help", ":h", ":?":
		fmt.Fprintln(stdout, "REPL Commands:")
		fmt.Fprintln(stdout, "  :help, :h, :?     Show this help")
		fmt.Fprintln(stdout, "  :vars             List variables")
		fmt.Fprintln(stdout, "  :funcs            List native functions")
		fmt.Fprintln(stdout, "  :save FILE        Write variables to a snapshot file")
		fmt.Fprintln(stdout, "  :load FILE        Assign variables from a snapshot file")
		fmt.Fprintln(stdout, "  :quit, :q         Exit REPL")
	case ":vars":
		for _, v := range sess.Symbols().Variables() {
			fmt.Fprintf(stdout, "%-8s %s = %s\n", v.Value.Type(), v.Name, formatValue(v.Value))
		}
	case ":funcs":
		for _, fn := range sess.Symbols().Functions() {
			fmt.Fprintln(stdout, fn.Signature())
		}
	case ":save", ":load":
		if len(fields) != 2 {
			fmt.Fprintf(stderr, "usage: %s FILE\n", fields[0])
			return false
		}
		if err := snapshotCommand(sess, fields[0], fields[1]); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	default:
		fmt.Fprintf(stderr, "unknown command %s. Type :help for commands.\n", fields[0])
	}
	return false
}

func snapshotCommand(sess *minima.Session, cmd, path string) error {
	if cmd == ":load" {
		snap, err := loadSeed(path, nil)
		if err != nil {
			return err
		}
		return sess.Seed(snap)
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return err
	}
	return writeSnapshot(path, snap)
}
