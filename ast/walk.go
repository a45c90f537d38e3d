package ast

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

// Inspect traverses the tree rooted at node in pre-order. If fn returns
// false the children of that node are skipped.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Program:
		for _, s := range n.Body {
			Inspect(s, fn)
		}
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, fn)
		}
	case *Assign:
		Inspect(n.Target, fn)
		Inspect(n.Value, fn)
	case *If:
		Inspect(n.Cond, fn)
		Inspect(n.Then, fn)
		if n.Else != nil {
			Inspect(n.Else, fn)
		}
	case *While:
		Inspect(n.Cond, fn)
		Inspect(n.Body, fn)
	case *For:
		if n.Init != nil {
			Inspect(n.Init, fn)
		}
		if n.Cond != nil {
			Inspect(n.Cond, fn)
		}
		if n.Update != nil {
			Inspect(n.Update, fn)
		}
		Inspect(n.Body, fn)
	case *Return:
		if n.Value != nil {
			Inspect(n.Value, fn)
		}
	case *CallStmt:
		Inspect(n.Call, fn)
	case *Call:
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	case *LValue:
		for _, ix := range n.Indices {
			Inspect(ix, fn)
		}
	case *ArrayLiteral:
		for _, e := range n.Elements {
			Inspect(e, fn)
		}
	case *Unary:
		Inspect(n.Operand, fn)
	case *Term:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Sum:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Comparison:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Logical:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	}
}

// Count returns the number of nodes reachable from node.
func Count(node Node) int {
	total := 0
	Inspect(node, func(Node) bool {
		total++
		return true
	})
	return total
}

// ---------------------------------------------------------------------------
// Destruction
// ---------------------------------------------------------------------------

// Destroy releases the tree rooted at node. Each node frees its children
// before itself, and release (which may be nil) is called exactly once per
// node. Child links are cleared as they are released, so no node can be
// reached twice: destroying the same root again only visits the root.
func Destroy(node Node, release func(Node)) {
	if node == nil {
		return
	}
	switch n := node.(type) {
	case *Program:
		destroyStmts(n.Body, release)
		n.Body = nil
	case *Block:
		destroyStmts(n.Stmts, release)
		n.Stmts = nil
	case *Assign:
		if n.Target != nil {
			Destroy(n.Target, release)
		}
		destroyExpr(n.Value, release)
		n.Target, n.Value = nil, nil
	case *If:
		destroyExpr(n.Cond, release)
		destroyStmt(n.Then, release)
		destroyStmt(n.Else, release)
		n.Cond, n.Then, n.Else = nil, nil, nil
	case *While:
		destroyExpr(n.Cond, release)
		destroyStmt(n.Body, release)
		n.Cond, n.Body = nil, nil
	case *For:
		if n.Init != nil {
			Destroy(n.Init, release)
		}
		destroyExpr(n.Cond, release)
		if n.Update != nil {
			Destroy(n.Update, release)
		}
		destroyStmt(n.Body, release)
		n.Init, n.Cond, n.Update, n.Body = nil, nil, nil, nil
	case *Return:
		destroyExpr(n.Value, release)
		n.Value = nil
	case *CallStmt:
		if n.Call != nil {
			Destroy(n.Call, release)
		}
		n.Call = nil
	case *Call:
		destroyExprs(n.Args, release)
		n.Args = nil
	case *LValue:
		destroyExprs(n.Indices, release)
		n.Indices = nil
	case *ArrayLiteral:
		destroyExprs(n.Elements, release)
		n.Elements = nil
	case *Unary:
		destroyExpr(n.Operand, release)
		n.Operand = nil
	case *Term:
		destroyExpr(n.Left, release)
		destroyExpr(n.Right, release)
		n.Left, n.Right = nil, nil
	case *Sum:
		destroyExpr(n.Left, release)
		destroyExpr(n.Right, release)
		n.Left, n.Right = nil, nil
	case *Comparison:
		destroyExpr(n.Left, release)
		destroyExpr(n.Right, release)
		n.Left, n.Right = nil, nil
	case *Logical:
		destroyExpr(n.Left, release)
		destroyExpr(n.Right, release)
		n.Left, n.Right = nil, nil
	}
	if release != nil {
		release(node)
	}
}

func destroyExpr(e Expr, release func(Node)) {
	if e != nil {
		Destroy(e, release)
	}
}

func destroyStmt(s Stmt, release func(Node)) {
	if s != nil {
		Destroy(s, release)
	}
}

// Sibling lists are walked iteratively; only depth recurses.
func destroyStmts(list []Stmt, release func(Node)) {
	for i, s := range list {
		destroyStmt(s, release)
		list[i] = nil
	}
}

func destroyExprs(list []Expr, release func(Node)) {
	for i, e := range list {
		destroyExpr(e, release)
		list[i] = nil
	}
}
