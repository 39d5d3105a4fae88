// Package translate converts between brace-delimited and indentation-based
// source. Forward and Reverse work on token streams; ToIndented and
// ToBraces run the whole pipeline on source text.
package translate

import (
	"fmt"

	"github.com/bython-lang/bython/internal/diagnostics"
	"github.com/bython-lang/bython/internal/format"
	"github.com/bython-lang/bython/internal/lexer"
	"github.com/bython-lang/bython/internal/literal"
)

// ToIndented translates brace-delimited source text.
func ToIndented(src string, cfg Config) (*Result, error) {
	src = format.Normalize(src)

	tokens, err := lexer.Tokenize(src, cfg.LexerOptions(false))
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	return Forward(tokens, cfg)
}

// ToBraces translates indentation-based source text. Dictionary literals
// are rewritten first when cfg.NormalizeLiterals is set; literals that
// cannot be rewritten are reported in Result.Diagnostics.
func ToBraces(src string, cfg Config) (*Result, error) {
	src = format.Normalize(src)

	var diags []diagnostics.Diagnostic
	if cfg.NormalizeLiterals {
		src, diags = literal.NormalizeFile(cfg.Filename, src)
	}

	tokens, err := lexer.Tokenize(src, cfg.LexerOptions(true))
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	res, err := Reverse(tokens, src, cfg)
	if err != nil {
		return nil, err
	}
	res.Diagnostics = append(res.Diagnostics, diags...)

	return res, nil
}
