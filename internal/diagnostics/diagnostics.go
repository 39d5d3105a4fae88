// Package diagnostics defines the structural failures a translation can
// report and renders them against the source they came from.
package diagnostics

import (
	"errors"
	"fmt"

	"github.com/bython-lang/bython/internal/position"
)

// DiagnosticLevel represents the severity level of a diagnostic
type DiagnosticLevel int

const (
	DiagnosticError DiagnosticLevel = iota
	DiagnosticWarning
)

func (dl DiagnosticLevel) String() string {
	switch dl {
	case DiagnosticError:
		return "error"
	case DiagnosticWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Code identifies a diagnostic kind for tooling.
type Code string

const (
	CodeUnbalancedBraces Code = "B001"
	CodeMalformedLiteral Code = "B002"
	CodeTokenization     Code = "B003"
)

// Diagnostic is a single positioned message.
type Diagnostic struct {
	Level   DiagnosticLevel
	Code    Code
	Message string
	Span    position.Span
}

// String formats the diagnostic as file:line:col: level[code]: message.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s[%s]: %s", d.Span.Start, d.Level, d.Code, d.Message)
}

// UnbalancedBracesError reports a block delimiter without a partner: a close
// brace with no open block in the forward direction, an unclosed block when
// strict checking is on, or an indentation stack underflow in the reverse
// direction.
type UnbalancedBracesError struct {
	Span     position.Span
	Unclosed bool // true when an open block was never closed
	Depth    int  // nesting depth at the point of failure
}

func (e *UnbalancedBracesError) Error() string {
	if e.Unclosed {
		return fmt.Sprintf("%s: unbalanced braces: block opened here is never closed (depth %d)", e.Span.Start, e.Depth)
	}
	return fmt.Sprintf("%s: unbalanced braces: closing brace without a matching open block", e.Span.Start)
}

// TokenizationError is returned when the scanner rejects the input.
type TokenizationError struct {
	Pos     position.Position
	Message string
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// MalformedLiteral builds the warning emitted when a brace literal candidate
// cannot be split into key/value pairs and is left untouched.
func MalformedLiteral(span position.Span, reason string) Diagnostic {
	return Diagnostic{
		Level:   DiagnosticWarning,
		Code:    CodeMalformedLiteral,
		Message: "brace literal left unchanged: " + reason,
		Span:    span,
	}
}

// FromError converts a structural error into a Diagnostic. The second return
// value is false for errors that carry no source position.
func FromError(err error) (Diagnostic, bool) {
	var ub *UnbalancedBracesError
	if errors.As(err, &ub) {
		msg := "closing brace without a matching open block"
		if ub.Unclosed {
			msg = "block is never closed"
		}
		return Diagnostic{Level: DiagnosticError, Code: CodeUnbalancedBraces, Message: msg, Span: ub.Span}, true
	}

	var te *TokenizationError
	if errors.As(err, &te) {
		end := te.Pos
		end.Column++
		end.Offset++
		return Diagnostic{
			Level:   DiagnosticError,
			Code:    CodeTokenization,
			Message: te.Message,
			Span:    position.Span{Start: te.Pos, End: end},
		}, true
	}

	return Diagnostic{}, false
}
