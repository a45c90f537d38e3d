package parser

import (
	"strings"
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) [ ] { } , . ; = == != < <= > >= * / % + - ! && ||`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenComma, ","},
		{TokenDot, "."},
		{TokenSemicolon, ";"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNotEq, "!="},
		{TokenLt, "<"},
		{TokenLte, "<="},
		{TokenGt, ">"},
		{TokenGte, ">="},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenBang, "!"},
		{TokenAnd, "&&"},
		{TokenOr, "||"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"if", TokenIf},
		{"else", TokenElse},
		{"for", TokenFor},
		{"while", TokenWhile},
		{"return", TokenReturn},
		{"include", TokenInclude},
		{"break", TokenBreak},
		{"true", TokenBool},
		{"false", TokenBool},
		{"iffy", TokenIdentifier},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.want {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.want)
		}
		if tok.Literal != tc.input {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.input)
		}
	}
}

func TestLexerIdentifiers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"foo", "foo"},
		{"foo_bar", "foo_bar"},
		{"_private", "_private"},
		{"array.size", "array.size"},
		{"x1", "x"}, // digits end an identifier
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != TokenIdentifier {
			t.Errorf("Lexer(%q): type = %v, want Identifier", tc.input, tok.Type)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		lit   string
	}{
		{"42", TokenInt, "42"},
		{"0", TokenInt, "0"},
		{"3.14", TokenFloat, "3.14"},
		{".5", TokenFloat, ".5"},
		{"1.", TokenFloat, "1."},
		{"1.2.3", TokenError, `malformed number literal "1.2.3"`},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.lit {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.lit)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{`"hello"`, TokenString, "hello"},
		{`""`, TokenString, ""},
		{`"a\nb"`, TokenString, "a\nb"},
		{`"tab\there"`, TokenString, "tab\there"},
		{`"cr\r"`, TokenString, "cr\r"},
		{`"back\\slash"`, TokenString, `back\slash`},
		{`"say \"hi\""`, TokenString, `say "hi"`},
		{`"\q"`, TokenString, "q"},
		{`"open`, TokenError, "unterminated string"},
		{`"trailing\`, TokenError, "unterminated string"},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerComments(t *testing.T) {
	l := NewLexer("# leading comment\nx = 1; # trailing\n# last")

	want := []TokenType{TokenIdentifier, TokenAssign, TokenInt, TokenSemicolon, TokenEOF}
	for i, typ := range want {
		tok := l.NextToken()
		if tok.Type != typ {
			t.Fatalf("token[%d] type = %v, want %v", i, tok.Type, typ)
		}
		if i == 0 && (tok.Pos.Line != 2 || tok.Pos.Column != 1) {
			t.Errorf("x at %d:%d, want 2:1", tok.Pos.Line, tok.Pos.Column)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	l := NewLexer("a = 1;\n  print(a);")

	expected := []struct {
		typ       TokenType
		line, col int
	}{
		{TokenIdentifier, 1, 1},
		{TokenAssign, 1, 3},
		{TokenInt, 1, 5},
		{TokenSemicolon, 1, 6},
		{TokenIdentifier, 2, 3},
		{TokenLParen, 2, 8},
		{TokenIdentifier, 2, 9},
		{TokenRParen, 2, 10},
		{TokenSemicolon, 2, 11},
	}

	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Fatalf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Pos.Line != exp.line || tok.Pos.Column != exp.col {
			t.Errorf("token[%d] %v at %d:%d, want %d:%d",
				i, tok.Type, tok.Pos.Line, tok.Pos.Column, exp.line, exp.col)
		}
	}
}

func TestLexerTokenEnd(t *testing.T) {
	tok := NewLexer("  counter ").NextToken()
	if tok.Pos.Offset != 2 || tok.End.Offset != 9 {
		t.Errorf("counter spans %d..%d, want 2..9", tok.Pos.Offset, tok.End.Offset)
	}
	if tok.End.Column != 10 {
		t.Errorf("end column = %d, want 10", tok.End.Column)
	}
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	tokens := Tokenize("x = @;")
	last := tokens[len(tokens)-1]
	if last.Type != TokenError {
		t.Fatalf("last token = %v, want error", last)
	}
	if last.Literal != "unexpected character '@'" {
		t.Errorf("message = %q", last.Literal)
	}
	if len(tokens) != 3 {
		t.Errorf("Tokenize returned %d tokens, want 3", len(tokens))
	}
}

func TestLexerTemplate(t *testing.T) {
	input := "<html>\n<? x = 1; ?>\n\tbody <? print(x); ?>"
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenRaw, "<html>\n"},
		{TokenOpenCode, "<?"},
		{TokenIdentifier, "x"},
		{TokenAssign, "="},
		{TokenInt, "1"},
		{TokenSemicolon, ";"},
		{TokenCloseCode, "?>"},
		{TokenRaw, "body "},
		{TokenOpenCode, "<?"},
		{TokenIdentifier, "print"},
		{TokenLParen, "("},
		{TokenIdentifier, "x"},
		{TokenRParen, ")"},
		{TokenSemicolon, ";"},
		{TokenCloseCode, "?>"},
		{TokenEOF, ""},
	}

	l := NewLexer(input, WithTemplate())
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Fatalf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerCodeDelimitersOutsideTemplate(t *testing.T) {
	tokens := Tokenize("?> x")
	if tokens[0].Type != TokenCloseCode || tokens[1].Type != TokenIdentifier {
		t.Errorf("tokens = %v, want CloseCode then Identifier", tokens)
	}
}

func TestLexerMaxTokenLength(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"abc", TokenIdentifier},
		{"abcd", TokenError},
		{"123", TokenInt},
		{"1234", TokenError},
		{`"abc"`, TokenString},
		{`"abcd"`, TokenError},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input, WithMaxTokenLength(3)).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Type == TokenError && !strings.Contains(tok.Literal, "too long") {
			t.Errorf("Lexer(%q): message = %q", tc.input, tok.Literal)
		}
	}
}

func TestLexerLongStringResumes(t *testing.T) {
	l := NewLexer(`"abcdef" x`, WithMaxTokenLength(2))
	if tok := l.NextToken(); tok.Type != TokenError {
		t.Fatalf("first token = %v, want error", tok)
	}
	if tok := l.NextToken(); tok.Type != TokenIdentifier || tok.Literal != "x" {
		t.Errorf("after long string = %v, want Identifier(x)", tok)
	}
}

func TestLexerEOFRepeats(t *testing.T) {
	l := NewLexer("")
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != TokenEOF {
			t.Fatalf("call %d: %v, want EOF", i, tok)
		}
	}
}

func TestTokenTypeString(t *testing.T) {
	if got := TokenSemicolon.String(); got != "Semicolon" {
		t.Errorf("TokenSemicolon.String() = %q", got)
	}
	if got := TokenType(999).String(); got != "Token(999)" {
		t.Errorf("TokenType(999).String() = %q", got)
	}
}
