package ast

import (
	"strings"
	"testing"
)

// sample builds:
//
//	a = [1, [2, 3]];
//	for (i = 0; i < 3; i = i + 1) { if (a[0] == 1) { break; } else print(i); }
func sample() *Program {
	lit := func(v int64) *IntLiteral { return &IntLiteral{Value: v} }
	i := func() *LValue { return &LValue{Name: "i"} }

	assign := &Assign{
		Target: &LValue{Name: "a"},
		Value: &ArrayLiteral{Elements: []Expr{
			lit(1),
			&ArrayLiteral{Elements: []Expr{lit(2), lit(3)}},
		}},
	}
	loop := &For{
		Init:   &Assign{Target: i(), Value: lit(0)},
		Cond:   &Comparison{Op: OpLt, Left: i(), Right: lit(3)},
		Update: &Assign{Target: i(), Value: &Sum{Op: OpAdd, Left: i(), Right: lit(1)}},
		Body: &Block{Stmts: []Stmt{
			&If{
				Cond: &Comparison{Op: OpEq, Left: &LValue{Name: "a", Indices: []Expr{lit(0)}}, Right: lit(1)},
				Then: &Block{Stmts: []Stmt{&Break{}}},
				Else: &CallStmt{Call: &Call{Name: "print", Args: []Expr{i()}}},
			},
		}},
	}
	return &Program{Body: []Stmt{assign, loop}}
}

func TestCount(t *testing.T) {
	// Program, Assign(7), For, Init(3), Cond(3), Update(5), Block, If,
	// Cond(4), Then(2), Else(3)
	want := 1 + 7 + 1 + 3 + 3 + 5 + 1 + 1 + 4 + 2 + 3
	if got := Count(sample()); got != want {
		t.Errorf("Count = %d, want %d", got, want)
	}
}

func TestDestroyVisitsEachNodeOnce(t *testing.T) {
	prog := sample()
	reachable := Count(prog)

	seen := make(map[Node]int)
	var order []Node
	Destroy(prog, func(n Node) {
		seen[n]++
		order = append(order, n)
	})

	if len(order) != reachable {
		t.Fatalf("released %d nodes, want %d", len(order), reachable)
	}
	for n, c := range seen {
		if c != 1 {
			t.Errorf("%T released %d times", n, c)
		}
	}
	if order[len(order)-1] != Node(prog) {
		t.Errorf("last released = %T, want *Program", order[len(order)-1])
	}
}

func TestDestroyPostOrder(t *testing.T) {
	left := &IntLiteral{Value: 1}
	right := &IntLiteral{Value: 2}
	sum := &Sum{Op: OpAdd, Left: left, Right: right}

	var order []Node
	Destroy(sum, func(n Node) { order = append(order, n) })

	if len(order) != 3 {
		t.Fatalf("released %d nodes, want 3", len(order))
	}
	if order[0] != Node(left) || order[1] != Node(right) || order[2] != Node(sum) {
		t.Errorf("release order = %T %T %T, want children before parent", order[0], order[1], order[2])
	}
}

func TestDestroyTwiceOnlyVisitsRoot(t *testing.T) {
	prog := sample()
	Destroy(prog, nil)

	visits := 0
	Destroy(prog, func(Node) { visits++ })
	if visits != 1 {
		t.Errorf("second destroy visited %d nodes, want 1", visits)
	}
	if len(prog.Body) != 0 {
		t.Errorf("program body not cleared: %d statements", len(prog.Body))
	}
}

func TestDestroyLongStatementList(t *testing.T) {
	prog := &Program{}
	for i := 0; i < 100000; i++ {
		prog.Body = append(prog.Body, &Break{})
	}
	released := 0
	Destroy(prog, func(Node) { released++ })
	if released != 100001 {
		t.Errorf("released = %d, want 100001", released)
	}
}

func TestOperatorString(t *testing.T) {
	tests := []struct {
		op   Operator
		want string
	}{
		{OpMul, "*"},
		{OpMod, "%"},
		{OpLte, "<="},
		{OpNotEq, "!="},
		{OpOr, "||"},
		{OpNot, "!"},
		{Operator(99), "?"},
	}
	for _, tc := range tests {
		if got := tc.op.String(); got != tc.want {
			t.Errorf("Operator(%d).String() = %q, want %q", tc.op, got, tc.want)
		}
	}
}

func TestFprint(t *testing.T) {
	out := String(sample())
	for _, want := range []string{
		"Program",
		"  Assign",
		"    LValue a",
		"      Int 1",
		"  For",
		"        Comparison ==",
		"      Else",
		"        Call print",
		"Break",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
