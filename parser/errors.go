package parser

import (
	"errors"
	"fmt"

	"github.com/chazu/minima/ast"
)

// SyntaxError describes the structural mismatch that aborted a parse.
type SyntaxError struct {
	Pos      ast.Position
	Expected string    // what the parser wanted, empty when free-form
	Found    TokenType // what it got
	Msg      string    // lexer message for error tokens, or a free-form reason
}

func (e *SyntaxError) Error() string {
	switch {
	case e.Found == TokenError:
		return fmt.Sprintf("syntax error at %d, %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
	case e.Expected != "":
		return fmt.Sprintf("syntax error at %d, %d: expecting '%s' but '%s' found",
			e.Pos.Line, e.Pos.Column, e.Expected, e.Found)
	}
	return fmt.Sprintf("syntax error at %d, %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Incomplete reports whether the input ended before the construct did.
func (e *SyntaxError) Incomplete() bool {
	return e.Found == TokenEOF
}

// IsIncomplete reports whether err is a SyntaxError caused by running out
// of input, which an interactive caller can fix by reading more lines.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.Incomplete()
}
