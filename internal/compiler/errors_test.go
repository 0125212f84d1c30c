package compiler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileError_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *CompileError
		expected string
	}{
		{"file and line", &CompileError{Code: "E203", File: "a.rpp", Line: 4, Message: "bad"}, "a.rpp:4: E203: bad"},
		{"file only", &CompileError{Code: "E201", File: "a.rpp", Message: "file not found"}, "a.rpp: E201: file not found"},
		{"bare", &CompileError{Code: "E001", Message: "boom"}, "E001: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestCompileError_Unwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := fmt.Errorf("load: %w", &CompileError{Code: ErrCodeGeneric, Message: "x", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, ErrCodeGeneric))
	assert.False(t, HasCode(err, ErrCodeInvalidRegex))
	assert.False(t, HasCode(cause, ErrCodeGeneric))
}

func TestWarning_String(t *testing.T) {
	w := Warning{Code: WarnCodeNoTokenizer, File: "main.rpp", Message: "no tokenizer"}
	assert.Equal(t, "main.rpp: W001: no tokenizer", w.String())
}
