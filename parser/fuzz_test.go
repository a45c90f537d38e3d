package parser

import (
	"testing"

	"github.com/chazu/minima/ast"
)

// ---------------------------------------------------------------------------
// FuzzParse: the parser never panics and never leaks nodes.
// ---------------------------------------------------------------------------

func FuzzParse(f *testing.F) {
	seeds := []string{
		`x = 1;`,
		`a = [1, [2.5, "s"], true];`,
		`a[0][1] = a[1][0] * -2;`,
		`if (x > 1 && y != 2 || !z) { print(x); } else print(y);`,
		`while (i < 10) { i = i + 1; if (i % 2 == 0) break; }`,
		`for (i = 0; i < array_size(a); i = i + 1) array_append(b, a[i]);`,
		`for (;;) break;`,
		`return; return 1 / 0;`,
		`<? x = 1; ?>text<? print(x); ?>`,
		`x = 1.2.3;`,
		`x = "unterminated`,
		`include "lib";`,
		`{ { { } } }`,
		`x = ((((1))));`,
		"# comment\nx = 1; # trailing",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		for _, opts := range [][]Option{nil, {WithTemplate()}} {
			p := New(input, opts...)
			prog, err := p.ParseProgram()
			if err != nil {
				if p.Nodes() != p.Released() {
					t.Fatalf("failed parse of %q built %d nodes, released %d", input, p.Nodes(), p.Released())
				}
				continue
			}
			if got := ast.Count(prog); got != p.Nodes() {
				t.Fatalf("parse of %q built %d nodes, tree has %d", input, p.Nodes(), got)
			}
		}
	})
}
