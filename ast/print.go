package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented, S-expression style dump of node to w.
func Fprint(w io.Writer, node Node) error {
	p := &printer{w: w}
	p.print(node, 0)
	return p.err
}

// String renders node with Fprint.
func String(node Node) string {
	var sb strings.Builder
	_ = Fprint(&sb, node)
	return sb.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (p *printer) print(node Node, depth int) {
	switch n := node.(type) {
	case nil:
		p.line(depth, "<nil>")
	case *Program:
		p.line(depth, "Program")
		for _, s := range n.Body {
			p.print(s, depth+1)
		}
	case *Block:
		p.line(depth, "Block")
		for _, s := range n.Stmts {
			p.print(s, depth+1)
		}
	case *Assign:
		p.line(depth, "Assign")
		p.print(n.Target, depth+1)
		p.print(n.Value, depth+1)
	case *If:
		p.line(depth, "If")
		p.print(n.Cond, depth+1)
		p.print(n.Then, depth+1)
		if n.Else != nil {
			p.line(depth, "Else")
			p.print(n.Else, depth+1)
		}
	case *While:
		p.line(depth, "While")
		p.print(n.Cond, depth+1)
		p.print(n.Body, depth+1)
	case *For:
		p.line(depth, "For")
		if n.Init != nil {
			p.print(n.Init, depth+1)
		}
		if n.Cond != nil {
			p.print(n.Cond, depth+1)
		}
		if n.Update != nil {
			p.print(n.Update, depth+1)
		}
		p.print(n.Body, depth+1)
	case *Return:
		p.line(depth, "Return")
		if n.Value != nil {
			p.print(n.Value, depth+1)
		}
	case *CallStmt:
		p.print(n.Call, depth)
	case *Raw:
		p.line(depth, "Raw %q", n.Text)
	case *Break:
		p.line(depth, "Break")
	case *Call:
		p.line(depth, "Call %s", n.Name)
		for _, a := range n.Args {
			p.print(a, depth+1)
		}
	case *LValue:
		p.line(depth, "LValue %s", n.Name)
		for _, ix := range n.Indices {
			p.print(ix, depth+1)
		}
	case *ArrayLiteral:
		p.line(depth, "Array")
		for _, e := range n.Elements {
			p.print(e, depth+1)
		}
	case *Unary:
		p.line(depth, "Unary %s", n.Op)
		p.print(n.Operand, depth+1)
	case *Term:
		p.line(depth, "Term %s", n.Op)
		p.print(n.Left, depth+1)
		p.print(n.Right, depth+1)
	case *Sum:
		p.line(depth, "Sum %s", n.Op)
		p.print(n.Left, depth+1)
		p.print(n.Right, depth+1)
	case *Comparison:
		p.line(depth, "Comparison %s", n.Op)
		p.print(n.Left, depth+1)
		p.print(n.Right, depth+1)
	case *Logical:
		p.line(depth, "Logical %s", n.Op)
		p.print(n.Left, depth+1)
		p.print(n.Right, depth+1)
	case *IntLiteral:
		p.line(depth, "Int %d", n.Value)
	case *FloatLiteral:
		p.line(depth, "Float %s", strconv.FormatFloat(n.Value, 'g', -1, 64))
	case *StringLiteral:
		p.line(depth, "String %q", n.Value)
	case *BoolLiteral:
		p.line(depth, "Bool %t", n.Value)
	default:
		p.line(depth, "%T", node)
	}
}
