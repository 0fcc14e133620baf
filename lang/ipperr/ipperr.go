// Package ipperr defines the error taxonomy of the interpreter. Every
// failure - from command-line validation to run-time string operations - is
// classified with a Code that doubles as the process exit code.
package ipperr

import (
	"errors"
	"fmt"
)

// Code identifies a class of interpreter failure. The numeric value is the
// process exit code reported for that failure.
type Code int

const (
	// Ok is the zero Code, never carried by an error.
	Ok Code = 0

	// startup errors
	MissingParam Code = 10 // missing or invalid command-line parameters
	InFileOpen   Code = 11 // cannot open an input file
	OutFileOpen  Code = 12 // cannot open an output file

	// load errors
	WrongXML      Code = 31 // source document is not well-formed XML
	UnexpectedXML Code = 32 // well-formed but unexpected document structure
	Semantic      Code = 52 // static semantic error (also raised at run time for undefined labels)

	// run-time errors
	InvalidOp    Code = 53 // wrong operand type
	VarNotExist  Code = 54 // variable does not exist in an existing frame
	InvalidFrame Code = 55 // frame does not exist
	MissingValue Code = 56 // uninitialized variable, empty data stack or empty call stack
	WrongOpValue Code = 57 // wrong operand value (zero divisor, bad EXIT code)
	WrongString  Code = 58 // invalid string operation
)

var codeNames = map[Code]string{
	MissingParam:  "missing parameter",
	InFileOpen:    "cannot open input file",
	OutFileOpen:   "cannot open output file",
	WrongXML:      "malformed source document",
	UnexpectedXML: "unexpected document structure",
	Semantic:      "semantic error",
	InvalidOp:     "wrong operand type",
	VarNotExist:   "variable does not exist",
	InvalidFrame:  "frame does not exist",
	MissingValue:  "missing value",
	WrongOpValue:  "wrong operand value",
	WrongString:   "invalid string operation",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is an interpreter failure tagged with its Code.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Errorf creates an *Error with the provided code and formatted message.
func Errorf(code Code, format string, args ...interface{}) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code of err, or Ok if err is nil. Errors that do not
// wrap an *Error report the provided fallback code.
func CodeOf(err error, fallback Code) Code {
	if err == nil {
		return Ok
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fallback
}
