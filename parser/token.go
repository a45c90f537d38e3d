package parser

import (
	"fmt"

	"github.com/chazu/minima/ast"
)

// ---------------------------------------------------------------------------
// Token types for the Minima lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenError TokenType = iota
	TokenEOF
	TokenRaw // template text outside <? ?>

	// Template delimiters
	TokenOpenCode  // <?
	TokenCloseCode // ?>

	// Operators
	TokenAnd     // &&
	TokenOr      // ||
	TokenAssign  // =
	TokenEq      // ==
	TokenNotEq   // !=
	TokenLt      // <
	TokenLte     // <=
	TokenGt      // >
	TokenGte     // >=
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenPlus    // +
	TokenMinus   // -
	TokenBang    // !

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenComma     // ,
	TokenDot       // .
	TokenSemicolon // ;

	// Keywords
	TokenIf
	TokenElse
	TokenFor
	TokenWhile
	TokenReturn
	TokenInclude
	TokenBreak

	// Literals
	TokenIdentifier
	TokenInt
	TokenFloat
	TokenString
	TokenBool
)

// tokenNames are the human readable names used in diagnostics.
var tokenNames = map[TokenType]string{
	TokenError:      "Invalid",
	TokenEOF:        "end of file",
	TokenRaw:        "Raw text",
	TokenOpenCode:   "Code block open",
	TokenCloseCode:  "Code block close",
	TokenAnd:        "Logical AND operator",
	TokenOr:         "Logical OR operator",
	TokenAssign:     "Assignment operator",
	TokenEq:         "Equality operator",
	TokenNotEq:      "Inequality operator",
	TokenLt:         "Less-than operator",
	TokenLte:        "Less-than-or-equal operator",
	TokenGt:         "Greater-than operator",
	TokenGte:        "Greater-than-or-equal operator",
	TokenStar:       "Multiplication operator",
	TokenSlash:      "Division operator",
	TokenPercent:    "Modulo operator",
	TokenPlus:       "Plus sign",
	TokenMinus:      "Minus sign",
	TokenBang:       "Exclamation mark",
	TokenLParen:     "Open parenthesis",
	TokenRParen:     "Close parenthesis",
	TokenLBrace:     "Open brace",
	TokenRBrace:     "Close brace",
	TokenLBracket:   "Open bracket",
	TokenRBracket:   "Close bracket",
	TokenComma:      "Comma",
	TokenDot:        "Dot",
	TokenSemicolon:  "Semicolon",
	TokenIf:         "If statement",
	TokenElse:       "Else statement",
	TokenFor:        "For loop",
	TokenWhile:      "While loop",
	TokenReturn:     "Return statement",
	TokenInclude:    "Include directive",
	TokenBreak:      "Break statement",
	TokenIdentifier: "Identifier",
	TokenInt:        "Integer literal",
	TokenFloat:      "Floating-point literal",
	TokenString:     "String literal",
	TokenBool:       "Boolean literal",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// Token represents a lexical token. For TokenError the literal holds the
// error message; for TokenString it holds the decoded text.
type Token struct {
	Type    TokenType
	Literal string
	Pos     ast.Position // start position
	End     ast.Position // position just past the token
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Span returns the source range covered by the token.
func (t Token) Span() ast.Span {
	return ast.Span{Start: t.Pos, End: t.End}
}

// keywords maps reserved words to their token types.
var keywords = map[string]TokenType{
	"if":      TokenIf,
	"else":    TokenElse,
	"for":     TokenFor,
	"while":   TokenWhile,
	"return":  TokenReturn,
	"include": TokenInclude,
	"break":   TokenBreak,
	"true":    TokenBool,
	"false":   TokenBool,
}

// Keywords returns the reserved words of the language.
func Keywords() []string {
	return []string{"if", "else", "for", "while", "return", "include", "break", "true", "false"}
}

// Two-character operators are matched before their one-character prefixes.
var twoCharTokens = map[string]TokenType{
	"&&": TokenAnd,
	"||": TokenOr,
	"==": TokenEq,
	"!=": TokenNotEq,
	"<=": TokenLte,
	">=": TokenGte,
	"<?": TokenOpenCode,
	"?>": TokenCloseCode,
}

var oneCharTokens = map[rune]TokenType{
	'=': TokenAssign,
	'<': TokenLt,
	'>': TokenGt,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
	'+': TokenPlus,
	'-': TokenMinus,
	'!': TokenBang,
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'[': TokenLBracket,
	']': TokenRBracket,
	',': TokenComma,
	'.': TokenDot,
	';': TokenSemicolon,
}
