// Package parser turns Minima source text into an ast.Program.
package parser

import (
	"fmt"
	"strconv"

	"github.com/chazu/minima/ast"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Minima
// ---------------------------------------------------------------------------

// lookahead is the size of the prefetched token ring.
const lookahead = 2

// Parser parses Minima source code into an AST. The first syntax error
// aborts the parse; there is no recovery.
type Parser struct {
	lexer *Lexer
	ring  [lookahead]Token
	head  int
	count int
	last  Token // most recently consumed token

	allocated int
	released  int
}

// New creates a new parser for the given input.
func New(input string, opts ...Option) *Parser {
	return &Parser{lexer: NewLexer(input, opts...)}
}

// Parse parses a complete program.
func Parse(input string, opts ...Option) (*ast.Program, error) {
	return New(input, opts...).ParseProgram()
}

// ParseTemplate parses a program in template mode, where text outside
// <? ?> blocks becomes raw output statements.
func ParseTemplate(input string, opts ...Option) (*ast.Program, error) {
	return Parse(input, append(opts, WithTemplate())...)
}

// ParseExpression parses input as a single expression.
func ParseExpression(input string) (ast.Expr, error) {
	return New(input).ParseExpression()
}

// peek returns the k-th unconsumed token (k is 1 or 2).
func (p *Parser) peek(k int) Token {
	for p.count < k {
		p.ring[(p.head+p.count)%lookahead] = p.lexer.NextToken()
		p.count++
	}
	return p.ring[(p.head+k-1)%lookahead]
}

// next consumes and returns the next token.
func (p *Parser) next() Token {
	tok := p.peek(1)
	p.head = (p.head + 1) % lookahead
	p.count--
	p.last = tok
	return tok
}

// expect consumes the next token if it has type t.
func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.peek(1)
	if tok.Type != t {
		return tok, p.unexpected(tok, t.String())
	}
	return p.next(), nil
}

func (p *Parser) unexpected(tok Token, expected string) error {
	if tok.Type == TokenError {
		return &SyntaxError{Pos: tok.Pos, Found: TokenError, Msg: tok.Literal}
	}
	return &SyntaxError{Pos: tok.Pos, Expected: expected, Found: tok.Type}
}

func (p *Parser) errorf(tok Token, format string, args ...any) error {
	if tok.Type == TokenError {
		return p.unexpected(tok, "")
	}
	return &SyntaxError{Pos: tok.Pos, Found: tok.Type, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) spanFrom(start ast.Position) ast.Span {
	return ast.Span{Start: start, End: p.last.End}
}

func spanOf(left, right ast.Node) ast.Span {
	return ast.Span{Start: left.Span().Start, End: right.Span().End}
}

// ---------------------------------------------------------------------------
// Node lifecycle
// ---------------------------------------------------------------------------

// track counts a freshly built node.
func track[T ast.Node](p *Parser, n T) T {
	p.allocated++
	return n
}

// discard destroys subtrees the parser holds when a parse fails.
func (p *Parser) discard(nodes ...ast.Node) {
	for _, n := range nodes {
		if n != nil {
			ast.Destroy(n, p.release)
		}
	}
}

func (p *Parser) discardStmts(list []ast.Stmt) {
	for _, s := range list {
		p.discard(s)
	}
}

func (p *Parser) discardExprs(list []ast.Expr) {
	for _, e := range list {
		p.discard(e)
	}
}

func (p *Parser) release(ast.Node) { p.released++ }

// Nodes returns the number of AST nodes the parser has built.
func (p *Parser) Nodes() int { return p.allocated }

// Released returns the number of nodes the parser destroyed itself after
// a failed parse.
func (p *Parser) Released() int { return p.released }

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses statements until end of input.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	start := p.peek(1).Pos

	var body []ast.Stmt
	for p.peek(1).Type != TokenEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			p.discardStmts(body)
			log.Errorf("%s", err)
			return nil, err
		}
		if stmt != nil {
			body = append(body, stmt)
		}
	}

	end := p.peek(1).End
	return track(p, &ast.Program{SpanVal: ast.Span{Start: start, End: end}, Body: body}), nil
}

// ParseExpression parses one expression that must span the whole input.
func (p *Parser) ParseExpression() (ast.Expr, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(1); tok.Type != TokenEOF {
		p.discard(expr)
		return nil, p.unexpected(tok, TokenEOF.String())
	}
	return expr, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseStatement parses one statement. Template delimiters produce no
// statement and return nil, nil.
func (p *Parser) parseStatement() (ast.Stmt, error) {
	tok := p.peek(1)

	switch tok.Type {
	case TokenRaw:
		p.next()
		return track(p, &ast.Raw{SpanVal: tok.Span(), Text: tok.Literal}), nil

	case TokenOpenCode, TokenCloseCode:
		p.next()
		return nil, nil

	case TokenLBrace:
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return block, nil

	case TokenIdentifier:
		// IDENT ( is a call, IDENT = and IDENT [ are assignments.
		switch p.peek(2).Type {
		case TokenLParen:
			return p.parseCallStatement()
		case TokenAssign, TokenLBracket:
			return p.parseAssignStatement()
		}
		return nil, p.unexpected(p.peek(2), TokenAssign.String())

	case TokenIf:
		return p.parseIf()

	case TokenWhile:
		return p.parseWhile()

	case TokenFor:
		return p.parseFor()

	case TokenReturn:
		return p.parseReturn()

	case TokenBreak:
		return p.parseBreak()

	case TokenInclude:
		return nil, p.errorf(tok, "include directives are not supported")
	}

	return nil, p.errorf(tok, "unexpected %s at start of statement", tok.Type)
}

// parseBody parses the statement governed by if, else, while or for.
func (p *Parser) parseBody() (ast.Stmt, error) {
	for {
		stmt, err := p.parseStatement()
		if err != nil || stmt != nil {
			return stmt, err
		}
	}
}

// parseBlock parses { StatementList }.
func (p *Parser) parseBlock() (*ast.Block, error) {
	open, err := p.expect(TokenLBrace)
	if err != nil {
		return nil, err
	}

	var stmts []ast.Stmt
	for p.peek(1).Type != TokenRBrace {
		if tok := p.peek(1); tok.Type == TokenEOF {
			p.discardStmts(stmts)
			return nil, p.unexpected(tok, TokenRBrace.String())
		}
		stmt, err := p.parseStatement()
		if err != nil {
			p.discardStmts(stmts)
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.next() // }

	return track(p, &ast.Block{SpanVal: p.spanFrom(open.Pos), Stmts: stmts}), nil
}

func (p *Parser) parseCallStatement() (ast.Stmt, error) {
	call, err := p.parseCall()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		p.discard(call)
		return nil, err
	}
	return track(p, &ast.CallStmt{SpanVal: p.spanFrom(call.SpanVal.Start), Call: call}), nil
}

func (p *Parser) parseAssignStatement() (ast.Stmt, error) {
	assign, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		p.discard(assign)
		return nil, err
	}
	assign.SpanVal.End = p.last.End
	return assign, nil
}

// parseAssign parses lvalue = (Initializer | LogicalExpr), without the
// trailing semicolon so it can be reused in for headers.
func (p *Parser) parseAssign() (*ast.Assign, error) {
	target, err := p.parseLValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAssign); err != nil {
		p.discard(target)
		return nil, err
	}

	var value ast.Expr
	if p.peek(1).Type == TokenLBracket {
		value, err = p.parseArrayLiteral()
	} else {
		value, err = p.parseExpression()
	}
	if err != nil {
		p.discard(target)
		return nil, err
	}

	return track(p, &ast.Assign{SpanVal: p.spanFrom(target.SpanVal.Start), Target: target, Value: value}), nil
}

// parseCondition parses ( LogicalExpr ).
func (p *Parser) parseCondition() (ast.Expr, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		p.discard(cond)
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	kw := p.next()

	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBody()
	if err != nil {
		p.discard(cond)
		return nil, err
	}

	var els ast.Stmt
	if p.peek(1).Type == TokenElse {
		p.next()
		els, err = p.parseBody()
		if err != nil {
			p.discard(cond, then)
			return nil, err
		}
	}

	return track(p, &ast.If{SpanVal: p.spanFrom(kw.Pos), Cond: cond, Then: then, Else: els}), nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	kw := p.next()

	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		p.discard(cond)
		return nil, err
	}

	return track(p, &ast.While{SpanVal: p.spanFrom(kw.Pos), Cond: cond, Body: body}), nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	kw := p.next()

	var (
		init, update *ast.Assign
		cond         ast.Expr
		held         []ast.Node
	)
	fail := func(err error) (ast.Stmt, error) {
		p.discard(held...)
		return nil, err
	}

	if _, err := p.expect(TokenLParen); err != nil {
		return fail(err)
	}
	if p.peek(1).Type != TokenSemicolon {
		a, err := p.parseAssign()
		if err != nil {
			return fail(err)
		}
		init = a
		held = append(held, a)
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return fail(err)
	}
	if p.peek(1).Type != TokenSemicolon {
		c, err := p.parseExpression()
		if err != nil {
			return fail(err)
		}
		cond = c
		held = append(held, c)
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return fail(err)
	}
	if p.peek(1).Type != TokenRParen {
		a, err := p.parseAssign()
		if err != nil {
			return fail(err)
		}
		update = a
		held = append(held, a)
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return fail(err)
	}

	body, err := p.parseBody()
	if err != nil {
		return fail(err)
	}

	return track(p, &ast.For{
		SpanVal: p.spanFrom(kw.Pos),
		Init:    init,
		Cond:    cond,
		Update:  update,
		Body:    body,
	}), nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	kw := p.next()

	var value ast.Expr
	if p.peek(1).Type != TokenSemicolon {
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		value = v
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		p.discard(value)
		return nil, err
	}

	return track(p, &ast.Return{SpanVal: p.spanFrom(kw.Pos), Value: value}), nil
}

func (p *Parser) parseBreak() (ast.Stmt, error) {
	kw := p.next()
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return track(p, &ast.Break{SpanVal: p.spanFrom(kw.Pos)}), nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

var (
	termOps = map[TokenType]ast.Operator{
		TokenStar:    ast.OpMul,
		TokenSlash:   ast.OpDiv,
		TokenPercent: ast.OpMod,
	}
	sumOps = map[TokenType]ast.Operator{
		TokenPlus:  ast.OpAdd,
		TokenMinus: ast.OpSub,
	}
	comparisonOps = map[TokenType]ast.Operator{
		TokenLt:    ast.OpLt,
		TokenGt:    ast.OpGt,
		TokenLte:   ast.OpLte,
		TokenGte:   ast.OpGte,
		TokenEq:    ast.OpEq,
		TokenNotEq: ast.OpNotEq,
	}
	andOps   = map[TokenType]ast.Operator{TokenAnd: ast.OpAnd}
	orOps    = map[TokenType]ast.Operator{TokenOr: ast.OpOr}
	unaryOps = map[TokenType]ast.Operator{
		TokenPlus:  ast.OpPlus,
		TokenMinus: ast.OpMinus,
		TokenBang:  ast.OpNot,
	}
)

// parseExpression parses a LogicalExpr, the loosest-binding tier.
func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseLogicalOr()
}

// parseBinary parses operand (op operand)* with left associativity.
func (p *Parser) parseBinary(
	ops map[TokenType]ast.Operator,
	operand func() (ast.Expr, error),
	build func(op ast.Operator, left, right ast.Expr) ast.Expr,
) (ast.Expr, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.peek(1).Type]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := operand()
		if err != nil {
			p.discard(left)
			return nil, err
		}
		left = build(op, left, right)
	}
}

func (p *Parser) parseLogicalOr() (ast.Expr, error) {
	return p.parseBinary(orOps, p.parseLogicalAnd, func(op ast.Operator, l, r ast.Expr) ast.Expr {
		return track(p, &ast.Logical{SpanVal: spanOf(l, r), Op: op, Left: l, Right: r})
	})
}

func (p *Parser) parseLogicalAnd() (ast.Expr, error) {
	return p.parseBinary(andOps, p.parseComparison, func(op ast.Operator, l, r ast.Expr) ast.Expr {
		return track(p, &ast.Logical{SpanVal: spanOf(l, r), Op: op, Left: l, Right: r})
	})
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	return p.parseBinary(comparisonOps, p.parseSum, func(op ast.Operator, l, r ast.Expr) ast.Expr {
		return track(p, &ast.Comparison{SpanVal: spanOf(l, r), Op: op, Left: l, Right: r})
	})
}

func (p *Parser) parseSum() (ast.Expr, error) {
	return p.parseBinary(sumOps, p.parseTerm, func(op ast.Operator, l, r ast.Expr) ast.Expr {
		return track(p, &ast.Sum{SpanVal: spanOf(l, r), Op: op, Left: l, Right: r})
	})
}

func (p *Parser) parseTerm() (ast.Expr, error) {
	return p.parseBinary(termOps, p.parseUnary, func(op ast.Operator, l, r ast.Expr) ast.Expr {
		return track(p, &ast.Term{SpanVal: spanOf(l, r), Op: op, Left: l, Right: r})
	})
}

// parseUnary parses an optional single prefix operator and a factor.
func (p *Parser) parseUnary() (ast.Expr, error) {
	tok := p.peek(1)
	op, ok := unaryOps[tok.Type]
	if !ok {
		return p.parseFactor()
	}
	p.next()

	operand, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	return track(p, &ast.Unary{
		SpanVal: ast.Span{Start: tok.Pos, End: operand.Span().End},
		Op:      op,
		Operand: operand,
	}), nil
}

func (p *Parser) parseFactor() (ast.Expr, error) {
	tok := p.peek(1)

	switch tok.Type {
	case TokenLParen:
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			p.discard(expr)
			return nil, err
		}
		return expr, nil

	case TokenInt:
		p.next()
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, p.errorf(tok, "integer literal %s out of range", tok.Literal)
		}
		return track(p, &ast.IntLiteral{SpanVal: tok.Span(), Value: v}), nil

	case TokenFloat:
		p.next()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid float literal %s", tok.Literal)
		}
		return track(p, &ast.FloatLiteral{SpanVal: tok.Span(), Value: v}), nil

	case TokenString:
		p.next()
		return track(p, &ast.StringLiteral{SpanVal: tok.Span(), Value: tok.Literal}), nil

	case TokenBool:
		p.next()
		return track(p, &ast.BoolLiteral{SpanVal: tok.Span(), Value: tok.Literal == "true"}), nil

	case TokenIdentifier:
		if p.peek(2).Type == TokenLParen {
			call, err := p.parseCall()
			if err != nil {
				return nil, err
			}
			return call, nil
		}
		lv, err := p.parseLValue()
		if err != nil {
			return nil, err
		}
		return lv, nil
	}

	return nil, p.unexpected(tok, "expression")
}

// parseLValue parses IDENT ("[" LogicalExpr "]")*.
func (p *Parser) parseLValue() (*ast.LValue, error) {
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}

	var indices []ast.Expr
	for p.peek(1).Type == TokenLBracket {
		p.next()
		ix, err := p.parseExpression()
		if err != nil {
			p.discardExprs(indices)
			return nil, err
		}
		indices = append(indices, ix)
		if _, err := p.expect(TokenRBracket); err != nil {
			p.discardExprs(indices)
			return nil, err
		}
	}

	return track(p, &ast.LValue{SpanVal: p.spanFrom(name.Pos), Name: name.Literal, Indices: indices}), nil
}

// parseCall parses IDENT "(" [ArgList] ")".
func (p *Parser) parseCall() (*ast.Call, error) {
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var args []ast.Expr
	if p.peek(1).Type != TokenRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				p.discardExprs(args)
				return nil, err
			}
			args = append(args, arg)
			if p.peek(1).Type != TokenComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		p.discardExprs(args)
		return nil, err
	}

	return track(p, &ast.Call{SpanVal: p.spanFrom(name.Pos), Name: name.Literal, Args: args}), nil
}

// parseArrayLiteral parses "[" [Element ("," Element)*] "]" where an
// element is a nested initializer or an expression.
func (p *Parser) parseArrayLiteral() (ast.Expr, error) {
	open, err := p.expect(TokenLBracket)
	if err != nil {
		return nil, err
	}

	var elems []ast.Expr
	if p.peek(1).Type != TokenRBracket {
		for {
			var elem ast.Expr
			if p.peek(1).Type == TokenLBracket {
				elem, err = p.parseArrayLiteral()
			} else {
				elem, err = p.parseExpression()
			}
			if err != nil {
				p.discardExprs(elems)
				return nil, err
			}
			elems = append(elems, elem)
			if p.peek(1).Type != TokenComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		p.discardExprs(elems)
		return nil, err
	}

	return track(p, &ast.ArrayLiteral{SpanVal: p.spanFrom(open.Pos), Elements: elems}), nil
}
