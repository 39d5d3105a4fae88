package format

import (
	"bufio"
	"fmt"
	"strings"
)

// DiffMode represents the type of diff output.
type DiffMode int

const (
	DiffModeUnified    DiffMode = iota // Unified diff format (default)
	DiffModeContext                    // Context diff format
	DiffModeSideBySide                 // Side-by-side diff format
)

// ParseDiffMode maps a flag value to a DiffMode.
func ParseDiffMode(s string) (DiffMode, error) {
	switch strings.ToLower(s) {
	case "", "unified", "u":
		return DiffModeUnified, nil
	case "context", "c":
		return DiffModeContext, nil
	case "side", "side-by-side", "y":
		return DiffModeSideBySide, nil
	}
	return DiffModeUnified, fmt.Errorf("unknown diff mode %q", s)
}

// DiffOptions controls diff generation.
type DiffOptions struct {
	Mode        DiffMode // Diff output format
	Context     int      // Number of context lines to show
	IgnoreSpace bool     // Ignore whitespace differences
	ShowNumbers bool     // Show line numbers
	TabWidth    int      // Tab display width
}

// DefaultDiffOptions returns default diff options.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		Mode:        DiffModeUnified,
		Context:     3,
		IgnoreSpace: false,
		ShowNumbers: true,
		TabWidth:    4,
	}
}

// DiffResult represents the result of a diff operation.
type DiffResult struct {
	Hunks      []Hunk
	Stats      DiffStat
	HasChanges bool
}

// Hunk represents a contiguous block of changes.
type Hunk struct {
	Header        string
	Lines         []Line
	OriginalStart int
	OriginalCount int
	ModifiedStart int
	ModifiedCount int
}

// Line represents a single line in a diff.
type Line struct {
	Content string
	Type    LineType
	Number  int
}

// LineType represents the type of a diff line.
type LineType int

const (
	LineTypeContext LineType = iota // Unchanged context line
	LineTypeAdded                   // Added line (+)
	LineTypeRemoved                 // Removed line (-)
)

// DiffStat contains statistics about changes.
type DiffStat struct {
	LinesAdded   int // Number of lines added
	LinesRemoved int // Number of lines removed
}

// DiffFormatter generates formatted diffs between a source file and its
// translation.
type DiffFormatter struct {
	options DiffOptions
}

// NewDiffFormatter creates a new diff formatter.
func NewDiffFormatter(options DiffOptions) *DiffFormatter {
	return &DiffFormatter{options: options}
}

// GenerateDiff creates a diff between original and modified text.
func (df *DiffFormatter) GenerateDiff(original, modified string) *DiffResult {
	originalLines := df.splitLines(original)
	modifiedLines := df.splitLines(modified)

	cmpOriginal, cmpModified := originalLines, modifiedLines
	if df.options.IgnoreSpace {
		cmpOriginal = df.normalizeWhitespace(originalLines)
		cmpModified = df.normalizeWhitespace(modifiedLines)
	}

	edits := computeEdits(cmpOriginal, cmpModified)
	hunks := df.generateHunks(edits, originalLines, modifiedLines)

	return &DiffResult{
		HasChanges: len(hunks) > 0,
		Hunks:      hunks,
		Stats:      df.calculateStats(hunks),
	}
}

// FormatDiff formats a diff result as a string. The labels name the two
// sides, normally the source file and the translated file.
func (df *DiffFormatter) FormatDiff(oldLabel, newLabel string, result *DiffResult) string {
	if !result.HasChanges {
		return ""
	}

	var output strings.Builder

	switch df.options.Mode {
	case DiffModeUnified:
		fmt.Fprintf(&output, "--- %s\n", oldLabel)
		fmt.Fprintf(&output, "+++ %s\n", newLabel)
	case DiffModeContext:
		fmt.Fprintf(&output, "*** %s\n", oldLabel)
		fmt.Fprintf(&output, "--- %s\n", newLabel)
	case DiffModeSideBySide:
		fmt.Fprintf(&output, "%-46s | %s\n", oldLabel, newLabel)
		output.WriteString(strings.Repeat("-", 93) + "\n")
	}

	for _, hunk := range result.Hunks {
		df.formatHunk(&output, hunk)
	}

	return output.String()
}

// splitLines splits text into lines without their line endings.
func (df *DiffFormatter) splitLines(text string) []string {
	if text == "" {
		return []string{}
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines []string

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	return lines
}

// normalizeWhitespace normalizes whitespace for comparison.
func (df *DiffFormatter) normalizeWhitespace(lines []string) []string {
	normalized := make([]string, len(lines))

	for i, line := range lines {
		expanded := strings.ReplaceAll(line, "\t", strings.Repeat(" ", df.options.TabWidth))
		normalized[i] = strings.TrimRight(expanded, " \t")
	}

	return normalized
}

// ChangeType represents the type of change.
type ChangeType int

const (
	ChangeTypeEqual ChangeType = iota
	ChangeTypeDelete
	ChangeTypeInsert
)

// edit is one step of the edit script; a and b are 0-based positions in the
// original and modified line lists.
type edit struct {
	op   ChangeType
	a, b int
}

// computeEdits returns a shortest edit script from the longest common
// subsequence of the two line lists.
func computeEdits(original, modified []string) []edit {
	n, m := len(original), len(modified)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if original[i] == modified[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	edits := make([]edit, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case original[i] == modified[j]:
			edits = append(edits, edit{ChangeTypeEqual, i, j})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			edits = append(edits, edit{ChangeTypeDelete, i, j})
			i++
		default:
			edits = append(edits, edit{ChangeTypeInsert, i, j})
			j++
		}
	}
	for ; i < n; i++ {
		edits = append(edits, edit{ChangeTypeDelete, i, j})
	}
	for ; j < m; j++ {
		edits = append(edits, edit{ChangeTypeInsert, i, j})
	}
	return edits
}

// generateHunks groups changes that lie within 2*Context lines of each
// other into hunks with surrounding context.
func (df *DiffFormatter) generateHunks(edits []edit, original, modified []string) []Hunk {
	context := max(0, df.options.Context)

	var hunks []Hunk

	i := 0
	for i < len(edits) {
		if edits[i].op == ChangeTypeEqual {
			i++
			continue
		}

		start := max(0, i-context)
		j := i
		for {
			for j < len(edits) && edits[j].op != ChangeTypeEqual {
				j++
			}
			k := j
			for k < len(edits) && edits[k].op == ChangeTypeEqual {
				k++
			}
			if k < len(edits) && k-j <= 2*context {
				j = k
				continue
			}
			break
		}
		end := min(len(edits), j+context)

		hunks = append(hunks, df.buildHunk(edits[start:end], original, modified))
		i = end
	}

	return hunks
}

func (df *DiffFormatter) buildHunk(edits []edit, original, modified []string) Hunk {
	hunk := Hunk{
		OriginalStart: edits[0].a + 1,
		ModifiedStart: edits[0].b + 1,
	}

	for _, e := range edits {
		switch e.op {
		case ChangeTypeEqual:
			hunk.Lines = append(hunk.Lines, Line{Type: LineTypeContext, Number: e.a + 1, Content: original[e.a]})
			hunk.OriginalCount++
			hunk.ModifiedCount++
		case ChangeTypeDelete:
			hunk.Lines = append(hunk.Lines, Line{Type: LineTypeRemoved, Number: e.a + 1, Content: original[e.a]})
			hunk.OriginalCount++
		case ChangeTypeInsert:
			hunk.Lines = append(hunk.Lines, Line{Type: LineTypeAdded, Number: e.b + 1, Content: modified[e.b]})
			hunk.ModifiedCount++
		}
	}

	// An empty side is addressed by the line before it.
	if hunk.OriginalCount == 0 {
		hunk.OriginalStart--
	}
	if hunk.ModifiedCount == 0 {
		hunk.ModifiedStart--
	}

	hunk.Header = fmt.Sprintf("@@ -%d,%d +%d,%d @@",
		hunk.OriginalStart, hunk.OriginalCount,
		hunk.ModifiedStart, hunk.ModifiedCount)

	return hunk
}

// formatHunk formats a single hunk.
func (df *DiffFormatter) formatHunk(output *strings.Builder, hunk Hunk) {
	switch df.options.Mode {
	case DiffModeUnified:
		df.formatUnifiedHunk(output, hunk)
	case DiffModeContext:
		df.formatContextHunk(output, hunk)
	case DiffModeSideBySide:
		df.formatSideBySideHunk(output, hunk)
	}
}

// formatUnifiedHunk formats a hunk in unified diff format.
func (df *DiffFormatter) formatUnifiedHunk(output *strings.Builder, hunk Hunk) {
	output.WriteString(hunk.Header + "\n")

	for _, line := range hunk.Lines {
		var prefix string

		switch line.Type {
		case LineTypeContext:
			prefix = " "
		case LineTypeAdded:
			prefix = "+"
		case LineTypeRemoved:
			prefix = "-"
		}

		if df.options.ShowNumbers {
			fmt.Fprintf(output, "%s%4d: %s\n", prefix, line.Number, line.Content)
		} else {
			fmt.Fprintf(output, "%s%s\n", prefix, line.Content)
		}
	}
}

// formatContextHunk formats a hunk in context diff format.
func (df *DiffFormatter) formatContextHunk(output *strings.Builder, hunk Hunk) {
	output.WriteString("***************\n")
	fmt.Fprintf(output, "*** %d,%d ****\n", hunk.OriginalStart, hunk.OriginalStart+hunk.OriginalCount-1)

	for _, line := range hunk.Lines {
		if line.Type == LineTypeRemoved || line.Type == LineTypeContext {
			prefix := " "
			if line.Type == LineTypeRemoved {
				prefix = "-"
			}

			fmt.Fprintf(output, "%s %s\n", prefix, line.Content)
		}
	}

	fmt.Fprintf(output, "--- %d,%d ----\n", hunk.ModifiedStart, hunk.ModifiedStart+hunk.ModifiedCount-1)

	for _, line := range hunk.Lines {
		if line.Type == LineTypeAdded || line.Type == LineTypeContext {
			prefix := " "
			if line.Type == LineTypeAdded {
				prefix = "+"
			}

			fmt.Fprintf(output, "%s %s\n", prefix, line.Content)
		}
	}
}

// formatSideBySideHunk formats a hunk in side-by-side format.
func (df *DiffFormatter) formatSideBySideHunk(output *strings.Builder, hunk Hunk) {
	const width = 46

	for _, line := range hunk.Lines {
		lineNum := ""
		if df.options.ShowNumbers {
			lineNum = fmt.Sprintf("%4d: ", line.Number)
		}

		content := truncate(line.Content, width-len(lineNum)-2)

		switch line.Type {
		case LineTypeContext:
			fmt.Fprintf(output, "%-*s | %s\n", width, lineNum+"  "+content, lineNum+"  "+content)
		case LineTypeRemoved:
			fmt.Fprintf(output, "%-*s |\n", width, lineNum+"- "+content)
		case LineTypeAdded:
			fmt.Fprintf(output, "%-*s | %s\n", width, "", lineNum+"+ "+content)
		}
	}
}

// calculateStats calculates statistics for the diff.
func (df *DiffFormatter) calculateStats(hunks []Hunk) DiffStat {
	var stats DiffStat

	for _, hunk := range hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case LineTypeAdded:
				stats.LinesAdded++
			case LineTypeRemoved:
				stats.LinesRemoved++
			}
		}
	}

	return stats
}

func truncate(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}

	if len(s) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return s[:maxLen]
	}

	return s[:maxLen-3] + "..."
}

// TranslationDiff renders the difference between a source file and its
// translation. It returns "" when the two are identical.
func TranslationDiff(srcName, dstName, source, translated string, opts DiffOptions) string {
	formatter := NewDiffFormatter(opts)
	result := formatter.GenerateDiff(source, translated)

	return formatter.FormatDiff(srcName, dstName, result)
}
