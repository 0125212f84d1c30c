package compiler

import (
	"errors"
	"fmt"
)

// Compile error codes.
const (
	// General errors (E001)
	ErrCodeGeneric = "E001" // unreadable file, unexpected I/O failure

	// Declaration errors (E201-E211)
	ErrCodeFileNotFound       = "E201" // rule or include file does not exist
	ErrCodeMalformedLine      = "E202" // unknown leading character
	ErrCodeMalformedRule      = "E203" // rule is not pattern<TAB>replacement
	ErrCodeDuplicateTokenizer = "E204" // second ":" declaration
	ErrCodeDuplicateInfo      = "E205" // second "@" declaration
	ErrCodeInvalidRegex       = "E206" // pattern does not compile
	ErrCodeIncludeCycle       = "E207" // file includes itself, directly or not
	ErrCodeUnknownGroup       = "E208" // ">n" names a group never defined
	ErrCodeUnterminatedGroup  = "E209" // "#n" without a closing "#"
	ErrCodeInvalidGroup       = "E210" // nested, duplicate or stray group markers
	ErrCodeRecursiveGroup     = "E211" // iterative group calls itself
)

// Warning codes.
const (
	WarnCodeNoTokenizer = "W001" // no ":" declaration in the whole load
)

// CompileError is a fatal problem found while loading a rule file.
//
// File and Line locate the offending declaration. Line is 0 when the error
// concerns a whole file (missing file, unterminated group).
type CompileError struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// AsCompileError extracts a *CompileError from err's chain.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// HasCode reports whether err is a CompileError with the given code.
func HasCode(err error, code string) bool {
	ce, ok := AsCompileError(err)
	return ok && ce.Code == code
}

// Warning is a non-fatal diagnostic returned alongside a compiled rule set.
type Warning struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.File != "" {
		return fmt.Sprintf("%s: %s: %s", w.File, w.Code, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

func errorf(code, file string, line int, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		File:    file,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}
