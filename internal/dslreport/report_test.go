package dslreport

import (
	"testing"

	"github.com/dekarrin/dslc/internal/dsl/diag"
	"github.com/stretchr/testify/assert"
)

func Test_Diagnostics_rendersTableWithHeaders(t *testing.T) {
	r := diag.NewReporter("let x = ;")
	r.Error("expected expression", "in.dsl", 1, 9)

	out := Diagnostics(r.Summarize())
	assert.Contains(t, out, "Level")
	assert.Contains(t, out, "Location")
	assert.Contains(t, out, "Message")
	assert.Contains(t, out, "Suggestion")
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "in.dsl:1:9")
	assert.Contains(t, out, "expected expression")
}

func Test_Summary_countsAndHumanizedSize(t *testing.T) {
	r := diag.NewReporter("source")
	r.Error("bad thing", "f", 1, 1)
	r.Error("bad thing 2", "f", 2, 1)
	r.Warning("minor thing", "f", 3, 1)

	out := Summary(r.Summarize(), 12*1024)
	assert.Contains(t, out, "2 errors")
	assert.Contains(t, out, "1 warning")
	assert.Contains(t, out, "artifact:")
}

func Test_Summary_noDiagnostics(t *testing.T) {
	r := diag.NewReporter("source")
	out := Summary(r.Summarize(), 0)
	assert.Equal(t, "no diagnostics", out)
}
