// Package dslreport renders a completed diagnostic Summary as human-facing
// text: a pass-statistics table and a final counts-by-level line, in the
// same rosed table style internal/ictiobus/parse uses for its parse-table
// dumps.
package dslreport

import (
	"fmt"
	"strings"

	"github.com/dekarrin/dslc/internal/dsl/diag"
	"github.com/dekarrin/rosed"
	"github.com/dustin/go-humanize"
)

// tableOpts mirrors the options internal/ictiobus/parse/slr.go uses for its
// own table dumps: a header row, no trailing blank separator line.
var tableOpts = rosed.Options{
	TableHeaders:             true,
	NoTrailingLineSeparators: true,
}

// Diagnostics renders every entry in s as a width-80 table with columns
// Level, Location, Message, Suggestion, preceded by each entry's
// carat-pointer context snippet.
func Diagnostics(s diag.Summary) string {
	var sb strings.Builder
	for _, e := range s.Entries {
		if e.Context != "" {
			sb.WriteString(e.Context)
			sb.WriteString("\n")
		}
	}

	data := [][]string{{"Level", "Location", "Message", "Suggestion"}}
	for _, e := range s.Entries {
		loc := fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
		data = append(data, []string{e.Level.String(), loc, e.Message, e.Suggestion})
	}

	table := rosed.Edit(sb.String()).
		InsertTableOpts(0, data, 80, tableOpts).
		String()

	return table
}

// Summary renders the final counts-by-level line plus an artifact size in
// humanized form, e.g. "3 errors, 1 warning (artifact: 12 kB)".
func Summary(s diag.Summary, artifactBytes int64) string {
	var parts []string
	if s.Error > 0 {
		parts = append(parts, plural(s.Error, "error"))
	}
	if s.Warning > 0 {
		parts = append(parts, plural(s.Warning, "warning"))
	}
	if s.Fatal > 0 {
		parts = append(parts, plural(s.Fatal, "fatal error"))
	}
	if s.Info > 0 {
		parts = append(parts, plural(s.Info, "note"))
	}
	if len(parts) == 0 {
		parts = []string{"no diagnostics"}
	}

	line := strings.Join(parts, ", ")
	if artifactBytes > 0 {
		line += fmt.Sprintf(" (artifact: %s)", humanize.Bytes(uint64(artifactBytes)))
	}
	return line
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
