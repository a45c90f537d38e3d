package parser

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/chazu/minima/ast"
)

// sexpr renders an expression compactly for shape assertions.
func sexpr(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(n.Value, 10)
	case *ast.FloatLiteral:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case *ast.StringLiteral:
		return strconv.Quote(n.Value)
	case *ast.BoolLiteral:
		return strconv.FormatBool(n.Value)
	case *ast.LValue:
		var sb strings.Builder
		sb.WriteString(n.Name)
		for _, ix := range n.Indices {
			sb.WriteString("[" + sexpr(ix) + "]")
		}
		return sb.String()
	case *ast.Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = sexpr(a)
		}
		return n.Name + "(" + strings.Join(args, " ") + ")"
	case *ast.Unary:
		return fmt.Sprintf("(%s %s)", n.Op, sexpr(n.Operand))
	case *ast.Term:
		return fmt.Sprintf("(%s %s %s)", n.Op, sexpr(n.Left), sexpr(n.Right))
	case *ast.Sum:
		return fmt.Sprintf("(%s %s %s)", n.Op, sexpr(n.Left), sexpr(n.Right))
	case *ast.Comparison:
		return fmt.Sprintf("(%s %s %s)", n.Op, sexpr(n.Left), sexpr(n.Right))
	case *ast.Logical:
		return fmt.Sprintf("(%s %s %s)", n.Op, sexpr(n.Left), sexpr(n.Right))
	case *ast.ArrayLiteral:
		elems := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = sexpr(el)
		}
		return "[" + strings.Join(elems, " ") + "]"
	}
	return fmt.Sprintf("<%T>", e)
}

func parseOK(t *testing.T, input string, opts ...Option) *ast.Program {
	t.Helper()
	p := New(input, opts...)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", input, err)
	}
	if got := ast.Count(prog); got != p.Nodes() {
		t.Errorf("Parse(%q): tree has %d nodes, parser built %d", input, got, p.Nodes())
	}
	return prog
}

func TestParseExpressionPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"1 - 2 - 3", "(- (- 1 2) 3)"},
		{"8 / 4 % 3", "(% (/ 8 4) 3)"},
		{"1 < 2 == 1", "(== (< 1 2) 1)"},
		{"a || b && c", "(|| a (&& b c))"},
		{"a && b || c", "(|| (&& a b) c)"},
		{"x + 1 >= y * 2", "(>= (+ x 1) (* y 2))"},
		{"-a * 2", "(* (- a) 2)"},
		{"!done", "(! done)"},
		{"+3.5", "(+ 3.5)"},
		{"a[i + 1][0]", "a[(+ i 1)][0]"},
		{"array_size(a) - 1", "(- array_size(a) 1)"},
		{`f("s", true, g())`, `f("s" true g())`},
		{"1 != 2 && 3 <= 4", "(&& (!= 1 2) (<= 3 4))"},
	}

	for _, tc := range tests {
		e, err := ParseExpression(tc.input)
		if err != nil {
			t.Errorf("ParseExpression(%q) error: %v", tc.input, err)
			continue
		}
		if got := sexpr(e); got != tc.want {
			t.Errorf("ParseExpression(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		input  string
		target string
		value  string
	}{
		{"x = 1;", "x", "1"},
		{"a[0][1] = 5;", "a[0][1]", "5"},
		{`a = [1, [2, 3], "s"];`, "a", `[1 [2 3] "s"]`},
		{"a = [];", "a", "[]"},
		{"a = [[], [x + 1]];", "a", "[[] [(+ x 1)]]"},
		{"s = \"hi\";", "s", `"hi"`},
	}

	for _, tc := range tests {
		prog := parseOK(t, tc.input)
		if len(prog.Body) != 1 {
			t.Fatalf("Parse(%q): %d statements, want 1", tc.input, len(prog.Body))
		}
		assign, ok := prog.Body[0].(*ast.Assign)
		if !ok {
			t.Fatalf("Parse(%q): got %T, want *ast.Assign", tc.input, prog.Body[0])
		}
		if got := sexpr(assign.Target); got != tc.target {
			t.Errorf("Parse(%q) target = %s, want %s", tc.input, got, tc.target)
		}
		if got := sexpr(assign.Value); got != tc.value {
			t.Errorf("Parse(%q) value = %s, want %s", tc.input, got, tc.value)
		}
	}
}

func TestParseIfElse(t *testing.T) {
	prog := parseOK(t, "if (x > 1) y = 1; else { y = 2; z = 3; }")

	n, ok := prog.Body[0].(*ast.If)
	if !ok {
		t.Fatalf("got %T, want *ast.If", prog.Body[0])
	}
	if got := sexpr(n.Cond); got != "(> x 1)" {
		t.Errorf("cond = %s", got)
	}
	if _, ok := n.Then.(*ast.Assign); !ok {
		t.Errorf("then = %T, want *ast.Assign", n.Then)
	}
	els, ok := n.Else.(*ast.Block)
	if !ok {
		t.Fatalf("else = %T, want *ast.Block", n.Else)
	}
	if len(els.Stmts) != 2 {
		t.Errorf("else block has %d statements, want 2", len(els.Stmts))
	}
}

func TestParseIfWithoutElse(t *testing.T) {
	prog := parseOK(t, "if (ok) print(1); print(2);")
	if len(prog.Body) != 2 {
		t.Fatalf("%d statements, want 2", len(prog.Body))
	}
	if n := prog.Body[0].(*ast.If); n.Else != nil {
		t.Errorf("else = %T, want nil", n.Else)
	}
}

func TestParseWhile(t *testing.T) {
	prog := parseOK(t, "while (i < 10) { i = i + 1; if (i == 5) break; }")

	n, ok := prog.Body[0].(*ast.While)
	if !ok {
		t.Fatalf("got %T, want *ast.While", prog.Body[0])
	}
	body := n.Body.(*ast.Block)
	inner := body.Stmts[1].(*ast.If)
	if _, ok := inner.Then.(*ast.Break); !ok {
		t.Errorf("then = %T, want *ast.Break", inner.Then)
	}
}

func TestParseFor(t *testing.T) {
	prog := parseOK(t, "for (i = 0; i < 3; i = i + 1) print(i);")

	n, ok := prog.Body[0].(*ast.For)
	if !ok {
		t.Fatalf("got %T, want *ast.For", prog.Body[0])
	}
	if n.Init == nil || sexpr(n.Init.Value) != "0" {
		t.Errorf("init = %v", n.Init)
	}
	if got := sexpr(n.Cond); got != "(< i 3)" {
		t.Errorf("cond = %s", got)
	}
	if n.Update == nil || sexpr(n.Update.Value) != "(+ i 1)" {
		t.Errorf("update = %v", n.Update)
	}
	if _, ok := n.Body.(*ast.CallStmt); !ok {
		t.Errorf("body = %T, want *ast.CallStmt", n.Body)
	}
}

func TestParseForEmptyHeader(t *testing.T) {
	prog := parseOK(t, "for (;;) break;")
	n := prog.Body[0].(*ast.For)
	if n.Init != nil || n.Cond != nil || n.Update != nil {
		t.Errorf("header = %v %v %v, want all nil", n.Init, n.Cond, n.Update)
	}
}

func TestParseReturnAndCall(t *testing.T) {
	prog := parseOK(t, "return; return x * 2; print(1, 2);")
	if len(prog.Body) != 3 {
		t.Fatalf("%d statements, want 3", len(prog.Body))
	}
	if r := prog.Body[0].(*ast.Return); r.Value != nil {
		t.Errorf("bare return value = %T", r.Value)
	}
	if r := prog.Body[1].(*ast.Return); sexpr(r.Value) != "(* x 2)" {
		t.Errorf("return value = %s", sexpr(r.Value))
	}
	call := prog.Body[2].(*ast.CallStmt)
	if got := sexpr(call.Call); got != "print(1 2)" {
		t.Errorf("call = %s", got)
	}
}

func TestParseEmptyProgram(t *testing.T) {
	for _, input := range []string{"", "   ", "# only a comment\n", "{ }"} {
		prog := parseOK(t, input)
		if input == "{ }" {
			if len(prog.Body) != 1 {
				t.Errorf("Parse(%q): %d statements, want 1", input, len(prog.Body))
			}
			continue
		}
		if len(prog.Body) != 0 {
			t.Errorf("Parse(%q): %d statements, want 0", input, len(prog.Body))
		}
	}
}

func TestParseTemplate(t *testing.T) {
	p := New("<p><? x = 2; ?><b><? print(x); ?>", WithTemplate())
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("ParseTemplate error: %v", err)
	}

	want := []string{"*ast.Raw", "*ast.Assign", "*ast.Raw", "*ast.CallStmt"}
	if len(prog.Body) != len(want) {
		t.Fatalf("%d statements, want %d:\n%s", len(prog.Body), len(want), ast.String(prog))
	}
	for i, w := range want {
		if got := fmt.Sprintf("%T", prog.Body[i]); got != w {
			t.Errorf("stmt[%d] = %s, want %s", i, got, w)
		}
	}
	if raw := prog.Body[0].(*ast.Raw); raw.Text != "<p>" {
		t.Errorf("raw text = %q, want %q", raw.Text, "<p>")
	}
}

func TestParseTemplateBlockAcrossRaw(t *testing.T) {
	prog, err := ParseTemplate("<? if (x) { ?>yes<? } else { ?>no<? } ?>")
	if err != nil {
		t.Fatalf("ParseTemplate error: %v", err)
	}
	n := prog.Body[0].(*ast.If)
	then := n.Then.(*ast.Block)
	if raw, ok := then.Stmts[0].(*ast.Raw); !ok || raw.Text != "yes" {
		t.Errorf("then = %v", then.Stmts)
	}
}

func TestParseSpans(t *testing.T) {
	prog := parseOK(t, "x = 1;\nprint(x);")

	assign := prog.Body[0].(*ast.Assign)
	if s := assign.Span(); s.Start.Offset != 0 || s.End.Offset != 6 {
		t.Errorf("assign span = %d..%d, want 0..6", s.Start.Offset, s.End.Offset)
	}
	call := prog.Body[1].(*ast.CallStmt)
	if s := call.Span(); s.Start.Line != 2 || s.Start.Column != 1 || s.End.Column != 10 {
		t.Errorf("call span = %+v", s)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"x = 1", "syntax error at 1, 6: expecting 'Semicolon' but 'end of file' found"},
		{"x 1;", "syntax error at 1, 3: expecting 'Assignment operator' but 'Integer literal' found"},
		{"x = ;", "syntax error at 1, 5: expecting 'expression' but 'Semicolon' found"},
		{"x = 1.2.3;", `syntax error at 1, 5: malformed number literal "1.2.3"`},
		{"x = 99999999999999999999;", "syntax error at 1, 5: integer literal 99999999999999999999 out of range"},
		{"include lib;", "syntax error at 1, 1: include directives are not supported"},
		{"x = 1;;", "syntax error at 1, 7: unexpected Semicolon at start of statement"},
		{"if x) y = 1;", "syntax error at 1, 4: expecting 'Open parenthesis' but 'Identifier' found"},
		{"print(1, );", "syntax error at 1, 10: expecting 'expression' but 'Close parenthesis' found"},
		{"a[0 = 1;", "syntax error at 1, 5: expecting 'Close bracket' but 'Assignment operator' found"},
		{"x = --1;", "syntax error at 1, 6: expecting 'expression' but 'Minus sign' found"},
		{"break", "syntax error at 1, 6: expecting 'Semicolon' but 'end of file' found"},
		{"x = @;", "syntax error at 1, 5: unexpected character '@'"},
	}

	for _, tc := range tests {
		p := New(tc.input)
		prog, err := p.ParseProgram()
		if err == nil {
			t.Errorf("Parse(%q) = %s, want error", tc.input, ast.String(prog))
			continue
		}
		if err.Error() != tc.want {
			t.Errorf("Parse(%q) error = %q, want %q", tc.input, err.Error(), tc.want)
		}
		if p.Nodes() != p.Released() {
			t.Errorf("Parse(%q): built %d nodes, released %d", tc.input, p.Nodes(), p.Released())
		}
	}
}

func TestIsIncomplete(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"x = 1", true},
		{"if (x) {", true},
		{"while (i < 3) { i = i + 1;", true},
		{"print(", true},
		{"a = [1, 2", true},
		{"x = 1 1;", false},
		{"x = \"open", false},
		{"}", false},
	}

	for _, tc := range tests {
		_, err := Parse(tc.input)
		if err == nil {
			t.Errorf("Parse(%q): no error", tc.input)
			continue
		}
		if got := IsIncomplete(err); got != tc.want {
			t.Errorf("IsIncomplete(Parse(%q)) = %v, want %v (%v)", tc.input, got, tc.want, err)
		}
	}
}

func TestParseExpressionRejectsTrailing(t *testing.T) {
	p := New("1 + 2 3")
	if _, err := p.ParseExpression(); err == nil {
		t.Fatal("expected error for trailing tokens")
	}
	if p.Nodes() != p.Released() {
		t.Errorf("built %d nodes, released %d", p.Nodes(), p.Released())
	}
}

func TestParseDestroyReleasesEveryNode(t *testing.T) {
	src := `
a = [1, [2, 3]];
for (i = 0; i < array_size(a); i = i + 1) {
	if (a[i] == 1 || !false) print(a[i]); else { break; }
}
while (a[1][0] > 0) a[1][0] = a[1][0] - 1;
return -a[0];
`
	p := New(src)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	released := 0
	ast.Destroy(prog, func(ast.Node) { released++ })
	if released != p.Nodes() {
		t.Errorf("destroy released %d nodes, parser built %d", released, p.Nodes())
	}
}

func TestParseDeepNesting(t *testing.T) {
	depth := 500
	src := "x = " + strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth) + ";"
	prog := parseOK(t, src)
	if got := sexpr(prog.Body[0].(*ast.Assign).Value); got != "1" {
		t.Errorf("value = %s, want 1", got)
	}
}
