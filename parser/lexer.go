package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tliron/commonlog"

	"github.com/chazu/minima/ast"
)

var log = commonlog.GetLogger("minima.parser")

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Minima source
// ---------------------------------------------------------------------------

// Option configures a Lexer or Parser.
type Option func(*config)

type config struct {
	template    bool
	maxTokenLen int
}

// WithTemplate starts lexing in template mode: text outside <? ?> is
// returned as TokenRaw.
func WithTemplate() Option {
	return func(c *config) { c.template = true }
}

// WithMaxTokenLength bounds the length of identifier, number and string
// tokens. Longer tokens become error tokens. Zero means unbounded.
func WithMaxTokenLength(n int) Option {
	return func(c *config) { c.maxTokenLen = n }
}

// Lexer tokenizes Minima source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)

	cfg config
	raw bool // outside a <? ?> code block
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string, opts ...Option) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	for _, opt := range opts {
		opt(&l.cfg)
	}
	l.raw = l.cfg.template
	l.readChar()
	if l.col == 0 {
		l.col = 1
	}
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		if l.ch != 0 {
			l.col++
		}
		l.ch = 0 // EOF
		l.pos = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the position of the current character.
func (l *Lexer) position() ast.Position {
	return ast.Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) token(t TokenType, literal string, pos ast.Position) Token {
	return Token{Type: t, Literal: literal, Pos: pos, End: l.position()}
}

func (l *Lexer) errorToken(pos ast.Position, format string, args ...any) Token {
	return l.token(TokenError, fmt.Sprintf(format, args...), pos)
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	if l.raw {
		return l.readRaw()
	}

	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == 0:
		return l.token(TokenEOF, "", pos)

	case l.ch == '"':
		return l.readString(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)

	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		return l.readNumber(pos)
	}

	if next := l.peekChar(); next != 0 {
		pair := string([]rune{l.ch, next})
		if t, ok := twoCharTokens[pair]; ok {
			l.readChar()
			l.readChar()
			if t == TokenCloseCode && l.cfg.template {
				l.raw = true
			}
			return l.token(t, pair, pos)
		}
	}

	if t, ok := oneCharTokens[l.ch]; ok {
		ch := l.ch
		l.readChar()
		return l.token(t, string(ch), pos)
	}

	ch := l.ch
	l.readChar()
	return l.errorToken(pos, "unexpected character '%c'", ch)
}

// skipWhitespaceAndComments skips whitespace and # line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\v' || l.ch == '\f' {
			l.readChar()
		}
		if l.ch != '#' {
			return
		}
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
	}
}

// readRaw reads template text up to the next <? or EOF.
func (l *Lexer) readRaw() Token {
	// Line breaks and tabs directly after a ?> are not part of the output.
	for l.ch == '\r' || l.ch == '\n' || l.ch == '\t' {
		l.readChar()
	}

	pos := l.position()
	start := l.pos
	for l.ch != 0 && !(l.ch == '<' && l.peekChar() == '?') {
		l.readChar()
	}
	if l.pos > start {
		return l.token(TokenRaw, l.input[start:l.pos], pos)
	}

	if l.ch == 0 {
		return l.token(TokenEOF, "", pos)
	}
	l.readChar() // <
	l.readChar() // ?
	l.raw = false
	return l.token(TokenOpenCode, "<?", pos)
}

// readString reads a double-quoted string literal, decoding escapes.
func (l *Lexer) readString(pos ast.Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			escPos := l.position()
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case 0:
				return l.errorToken(pos, "unterminated string")
			default:
				log.Warningf("line %d, column %d: unknown escape character '%c'", escPos.Line, escPos.Column, l.ch)
				sb.WriteRune(l.ch)
			}
			l.readChar()
		} else {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		if l.tooLong(sb.Len()) {
			l.skipPast('"')
			return l.errorToken(pos, "token too long (limit %d)", l.cfg.maxTokenLen)
		}
	}

	if l.ch != '"' {
		return l.errorToken(pos, "unterminated string")
	}
	l.readChar() // consume closing "

	return l.token(TokenString, sb.String(), pos)
}

// readNumber reads an integer or float literal. A dot anywhere in the run
// makes it a float; a second dot is malformed.
func (l *Lexer) readNumber(pos ast.Position) Token {
	start := l.pos
	dots := 0

	for isDigit(l.ch) || l.ch == '.' {
		if l.ch == '.' {
			dots++
		}
		l.readChar()
	}

	literal := l.input[start:l.pos]
	switch {
	case l.tooLong(len(literal)):
		return l.errorToken(pos, "token too long (limit %d)", l.cfg.maxTokenLen)
	case dots > 1:
		return l.errorToken(pos, "malformed number literal %q", literal)
	case dots == 1:
		return l.token(TokenFloat, literal, pos)
	}
	return l.token(TokenInt, literal, pos)
}

// readIdentifier reads an identifier, keyword or boolean literal.
func (l *Lexer) readIdentifier(pos ast.Position) Token {
	start := l.pos

	for isLetter(l.ch) || l.ch == '_' || l.ch == '.' {
		l.readChar()
	}

	literal := l.input[start:l.pos]
	if l.tooLong(len(literal)) {
		return l.errorToken(pos, "token too long (limit %d)", l.cfg.maxTokenLen)
	}
	if tokType, ok := keywords[literal]; ok {
		return l.token(tokType, literal, pos)
	}
	return l.token(TokenIdentifier, literal, pos)
}

func (l *Lexer) tooLong(n int) bool {
	return l.cfg.maxTokenLen > 0 && n > l.cfg.maxTokenLen
}

// skipPast advances beyond the next occurrence of delim, or to EOF.
func (l *Lexer) skipPast(delim rune) {
	for l.ch != delim && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
		}
		if l.ch != 0 {
			l.readChar()
		}
	}
	if l.ch == delim {
		l.readChar()
	}
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF or the first
// error token.
func Tokenize(input string, opts ...Option) []Token {
	l := NewLexer(input, opts...)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
