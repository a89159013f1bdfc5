package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Reporter_snippetPointsAtColumn(t *testing.T) {
	r := NewReporter("let x = 1\nlet y = ;\n")
	e := r.Error("expected expression", "in.dsl", 2, 9)

	assert.Equal(t, "let y = ;\n        ^", e.Context)
}

func Test_Reporter_suggestionInferredBySubstring(t *testing.T) {
	r := NewReporter(`Print "hi`)
	e := r.Error("unterminated string literal", "in.dsl", 1, 7)

	assert.Equal(t, "add a closing double quote", e.Suggestion)
}

func Test_Reporter_explicitSuggestionOverridesInference(t *testing.T) {
	r := NewReporter(`Print "hi`)
	e := r.Report(LevelError, "unterminated string literal", "in.dsl", 1, 7, "use a multi-line string instead")

	assert.Equal(t, "use a multi-line string instead", e.Suggestion)
}

func Test_Reporter_noMatchingRuleLeavesSuggestionEmpty(t *testing.T) {
	r := NewReporter("let x = 1")
	e := r.Warning("unused variable x", "in.dsl", 1, 5)

	assert.Empty(t, e.Suggestion)
}

func Test_Reporter_summarizeCountsByLevel(t *testing.T) {
	r := NewReporter("source")
	r.Info("note", "f", 1, 1)
	r.Warning("warn", "f", 1, 1)
	r.Error("err1", "f", 1, 1)
	r.Error("err2", "f", 1, 1)
	r.Fatal("boom", "f", 1, 1)

	s := r.Summarize()
	assert.Equal(t, 1, s.Info)
	assert.Equal(t, 1, s.Warning)
	assert.Equal(t, 2, s.Error)
	assert.Equal(t, 1, s.Fatal)
	assert.True(t, s.HasErrors())
	assert.Equal(t, 1, s.ExitCode())
}

func Test_Summary_exitCodeZeroWithoutErrors(t *testing.T) {
	r := NewReporter("source")
	r.Info("note", "f", 1, 1)
	r.Warning("warn", "f", 1, 1)

	s := r.Summarize()
	assert.False(t, s.HasErrors())
	assert.Equal(t, 0, s.ExitCode())
}

func Test_Reporter_jobIDStableAcrossReports(t *testing.T) {
	r := NewReporter("source")
	id := r.JobID()
	r.Info("note", "f", 1, 1)
	assert.Equal(t, id, r.JobID())
	assert.NotEmpty(t, id)
}
