package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_SourcingPrompts(t *testing.T) {
	query, err := Get("sourcing.json", "generate-search-query")
	require.NoError(t, err)
	assert.Contains(t, query, "{{.JobDescription}}")
	assert.Contains(t, query, "5-7 keywords")

	analyze, err := Get("sourcing.json", "analyze-candidate")
	require.NoError(t, err)
	assert.Contains(t, analyze, "{{.ProfileJSON}}")
	assert.Contains(t, analyze, "score_breakdown")
	// All six rubric criteria must be present
	for _, criterion := range []string{"education", "trajectory", "company", "skills", "location", "tenure"} {
		assert.Contains(t, analyze, criterion)
	}
}

func TestGet_MissingKey(t *testing.T) {
	_, err := Get("sourcing.json", "does-not-exist")
	assert.Error(t, err)
}

func TestGet_MissingFile(t *testing.T) {
	_, err := Get("nope.json", "generate-search-query")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, about {{.Role}}: {{.Name}} again"
	result := Format(template, map[string]string{
		"Name": "Jane",
		"Role": "ML Engineer",
	})
	assert.Equal(t, "Hello Jane, about ML Engineer: Jane again", result)
}

func TestFormat_UnknownPlaceholderLeftIntact(t *testing.T) {
	result := Format("Hi {{.Missing}}", map[string]string{"Name": "Jane"})
	assert.True(t, strings.Contains(result, "{{.Missing}}"))
}

func TestMustGet_PanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("sourcing.json", "does-not-exist")
	})
}
