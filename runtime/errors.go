package runtime

import (
	"errors"
	"fmt"
)

// ErrorCode is a Minima run-time error. Its numeric values and names are
// part of the embedding contract.
type ErrorCode int

const (
	Success ErrorCode = iota
	ErrNotImplemented
	ErrDivideByZero
	ErrUnsupportedOperation
	ErrUninitializedVariableAccess
	ErrArrayIndexType
	ErrArrayIndexOutOfBounds
	ErrIncorrectArgumentCount
	ErrIncorrectArgumentType
	ErrIndexingNonArrayType
	ErrUndefinedFunction
	ErrNativeFailure
)

var errorNames = [...]string{
	Success:                        "Operation completed successfully",
	ErrNotImplemented:              "Feature not implemented",
	ErrDivideByZero:                "Division by zero",
	ErrUnsupportedOperation:        "Operation is not supported",
	ErrUninitializedVariableAccess: "Attempted access to an uninitialized variable",
	ErrArrayIndexType:              "Array index must be integer",
	ErrArrayIndexOutOfBounds:       "Array index out of bounds",
	ErrIncorrectArgumentCount:      "Incorrect number of arguments for function",
	ErrIncorrectArgumentType:       "Incorrect argument type for function",
	ErrIndexingNonArrayType:        "Indexing non array type",
	ErrUndefinedFunction:           "Call to undefined function",
	ErrNativeFailure:               "Native function failed",
}

// Name returns the human readable description of the code.
func (c ErrorCode) Name() string {
	if int(c) >= 0 && int(c) < len(errorNames) {
		return errorNames[c]
	}
	return "Unknown error"
}

func (c ErrorCode) Error() string { return c.Name() }

// Report formats the code the way failed runs are logged.
func (c ErrorCode) Report() string {
	return fmt.Sprintf("Run-time error '%04d': %s.", int(c), c.Name())
}

// CodeOf extracts the ErrorCode carried by err. A nil error is Success and
// an error without a code is ErrNativeFailure.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ErrNativeFailure
}
