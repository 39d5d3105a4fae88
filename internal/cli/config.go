package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/bython-lang/bython/internal/translate"
	"github.com/bython-lang/bython/internal/vfs"
)

// ConfigFileName is looked up in the input directory when -config is not
// given.
const ConfigFileName = "bython.json"

// formatStringSplitting is the first host version whose f-strings may nest
// quotes of the same kind.
var formatStringSplitting = semver.MustParse("3.12.0")

// ProjectConfig is the per-project configuration file.
type ProjectConfig struct {
	// Requires constrains the tool version, e.g. ">= 1.0, < 2".
	Requires string `json:"requires,omitempty"`
	// Target is the host language version the output is meant for.
	Target string `json:"target,omitempty"`
	// Header is none, full or legacy.
	Header string `json:"header,omitempty"`
	// Indent is the number of spaces per nesting level.
	Indent int `json:"indent,omitempty"`
	// Output is the directory translated trees are written to.
	Output string `json:"output,omitempty"`
	// EntryPoint names the output file of a single-file translation.
	EntryPoint string `json:"entry_point,omitempty"`
	// Jobs bounds concurrent file translations.
	Jobs int `json:"jobs,omitempty"`
	// Strict rejects blocks left open at end of input.
	Strict bool `json:"strict,omitempty"`
	// KeepLiterals leaves dictionary literals alone when adding braces.
	KeepLiterals bool `json:"keep_literals,omitempty"`
}

// DefaultProjectConfig returns the configuration used without a file.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Header:     "none",
		Indent:     4,
		Output:     ".bython",
		EntryPoint: "main.py",
	}
}

// LoadProjectConfig loads configuration from path. A missing file yields
// the defaults; fields absent from the file keep their default values.
func LoadProjectConfig(fsys vfs.FileSystem, path string) (*ProjectConfig, error) {
	config := DefaultProjectConfig()

	if path == "" {
		return config, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil // Default config if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

// Validate checks field values and the tool version constraint.
func (c *ProjectConfig) Validate() error {
	if c.Requires != "" {
		constraint, err := semver.NewConstraint(c.Requires)
		if err != nil {
			return fmt.Errorf("requires: %w", err)
		}
		if ok, reasons := constraint.Validate(ToolVersion()); !ok {
			msgs := make([]string, len(reasons))
			for i, r := range reasons {
				msgs[i] = r.Error()
			}
			return fmt.Errorf("bython %s does not satisfy %q: %s", Version, c.Requires, strings.Join(msgs, "; "))
		}
	}
	if c.Target != "" {
		if _, err := semver.NewVersion(c.Target); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}
	if _, err := translate.ParseHeader(c.Header); err != nil {
		return err
	}
	if c.Indent < 0 || c.Indent > 16 {
		return fmt.Errorf("indent must be between 1 and 16 (0 for the default), got %d", c.Indent)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	return nil
}

// SplitFormatStrings reports whether f-string replacement fields should be
// tokenized for the target version. Without a target they are.
func (c *ProjectConfig) SplitFormatStrings() bool {
	if c.Target == "" {
		return true
	}
	v, err := semver.NewVersion(c.Target)
	if err != nil {
		return true
	}
	return !v.LessThan(formatStringSplitting)
}

// TranslateConfig derives the engine configuration for one file.
func (c *ProjectConfig) TranslateConfig(filename string) translate.Config {
	cfg := translate.DefaultConfig()
	cfg.Filename = filename
	if h, err := translate.ParseHeader(c.Header); err == nil {
		cfg.Header = h
	}
	if c.Indent > 0 {
		cfg.IndentUnit = strings.Repeat(" ", c.Indent)
	}
	cfg.SplitFormatStrings = c.SplitFormatStrings()
	cfg.Strict = c.Strict
	cfg.NormalizeLiterals = !c.KeepLiterals
	return cfg
}

// SaveProjectConfig writes the configuration as indented JSON.
func (c *ProjectConfig) SaveProjectConfig(fsys vfs.FileSystem, path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fsys.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
