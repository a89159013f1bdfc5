package diag

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/width"
)

// Reporter accumulates diagnostic Entries for one compilation job and
// renders carat-pointer context snippets against a fixed source text. It is
// built once per job and passed by reference through every pipeline stage.
type Reporter struct {
	jobID      string
	source     string
	lineStarts []int // byte offset of the first byte of each line; lineStarts[0] == 0
	entries    []Entry
}

// NewReporter builds a Reporter over source, precomputing the line-start
// index used by Report to slice out context snippets.
func NewReporter(source string) *Reporter {
	r := &Reporter{
		jobID:      uuid.NewString(),
		source:     source,
		lineStarts: []int{0},
	}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			r.lineStarts = append(r.lineStarts, i+1)
		}
	}
	return r
}

// JobID returns the identifier attached to every Summary this Reporter
// produces, for correlating a diagnostic batch with a compile job.
func (r *Reporter) JobID() string {
	return r.jobID
}

// lineText returns the full text of the given 1-indexed line, without its
// trailing newline.
func (r *Reporter) lineText(line int) string {
	if line < 1 || line > len(r.lineStarts) {
		return ""
	}
	start := r.lineStarts[line-1]
	var end int
	if line < len(r.lineStarts) {
		end = r.lineStarts[line] - 1 // exclude the newline
	} else {
		end = len(r.source)
	}
	if end < start {
		end = start
	}
	return strings.TrimRight(r.source[start:end], "\r")
}

// snippet renders a two-line carat-pointer context block: the offending
// source line, then a line of spaces with a ^ under the reported column.
// Padding is measured in terminal display columns rather than runes, so a
// line mixing full-width CJK punctuation with ASCII still lines the carat
// up under the right character.
func (r *Reporter) snippet(line, column int) string {
	text := r.lineText(line)
	if text == "" && line < 1 {
		return ""
	}
	runeCount := 0
	for range text {
		runeCount++
	}
	col := column - 1
	if col < 0 {
		col = 0
	}
	if col > runeCount {
		col = runeCount
	}

	var pad strings.Builder
	i := 0
	for _, r := range text {
		if i >= col {
			break
		}
		if isWideRune(r) {
			pad.WriteString("  ")
		} else {
			pad.WriteByte(' ')
		}
		i++
	}
	return text + "\n" + pad.String() + "^"
}

// isWideRune reports whether r occupies two terminal columns.
func isWideRune(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	default:
		return false
	}
}

// Report records a diagnostic entry. If suggestion is empty, one is
// inferred from message via the substring rule table. file is the source
// name to attach to the entry (may be empty for a single-file compile).
func (r *Reporter) Report(level Level, message, file string, line, column int, suggestion string) Entry {
	if suggestion == "" {
		suggestion = inferSuggestion(message)
	}
	e := Entry{
		Level:      level,
		Message:    message,
		File:       file,
		Line:       line,
		Column:     column,
		Context:    r.snippet(line, column),
		Suggestion: suggestion,
	}
	r.entries = append(r.entries, e)
	return e
}

// Info, Warning, Error and Fatal are convenience wrappers around Report
// that fix the level and leave suggestion inference on.
func (r *Reporter) Info(message, file string, line, column int) Entry {
	return r.Report(LevelInfo, message, file, line, column, "")
}

func (r *Reporter) Warning(message, file string, line, column int) Entry {
	return r.Report(LevelWarning, message, file, line, column, "")
}

func (r *Reporter) Error(message, file string, line, column int) Entry {
	return r.Report(LevelError, message, file, line, column, "")
}

func (r *Reporter) Fatal(message, file string, line, column int) Entry {
	return r.Report(LevelFatal, message, file, line, column, "")
}

// Entries returns every entry recorded so far, in report order.
func (r *Reporter) Entries() []Entry {
	return r.entries
}

// Summarize tallies the recorded entries into a Summary.
func (r *Reporter) Summarize() Summary {
	s := Summary{JobID: r.jobID, Entries: r.entries}
	for _, e := range r.entries {
		switch e.Level {
		case LevelInfo:
			s.Info++
		case LevelWarning:
			s.Warning++
		case LevelError:
			s.Error++
		case LevelFatal:
			s.Fatal++
		}
	}
	return s
}
