package rule

import (
	"errors"
	"fmt"
)

// Skip reasons group parse failures for load statistics.
const (
	SkipUnsupportedOption  = "unsupported-option"
	SkipUnknownOption      = "unknown-option"
	SkipInvalidPattern     = "invalid-pattern"
	SkipInvalidRegexp      = "invalid-regexp"
	SkipInvalidDomain      = "invalid-domain"
	SkipUnsupportedSyntax  = "unsupported-syntax"
	SkipProcedural         = "procedural-cosmetic"
	SkipInvalidSelector    = "invalid-selector"
	SkipInvalidScriptlet   = "invalid-scriptlet"
	SkipGenericScriptlet   = "generic-scriptlet"
	SkipConflictingOptions = "conflicting-options"
	SkipDisabled           = "disabled"
	SkipLineTooLong        = "line-too-long"
)

var (
	// ErrUnsupported is wrapped by parse errors for syntax the engine deliberately ignores.
	ErrUnsupported = errors.New("unsupported syntax")
	// ErrMalformed is wrapped by parse errors for lines that cannot be parsed.
	ErrMalformed = errors.New("malformed rule")
)

// ParseError describes a single filter-list line that was not turned into a rule.
type ParseError struct {
	// Line is the raw line text.
	Line string
	// Reason is one of the Skip* constants.
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s: %v", e.Line, e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Unsupported returns a ParseError for a line using syntax the engine does not implement.
func Unsupported(line, reason string, err error) *ParseError {
	if err == nil {
		err = ErrUnsupported
	} else {
		err = fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return &ParseError{Line: line, Reason: reason, Err: err}
}

// Malformed returns a ParseError for a line that cannot be parsed.
func Malformed(line, reason string, err error) *ParseError {
	if err == nil {
		err = ErrMalformed
	} else {
		err = fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &ParseError{Line: line, Reason: reason, Err: err}
}
