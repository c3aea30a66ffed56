// Package query turns free-text job descriptions into compact search-engine queries.
package query

import (
	"context"
	"log"
	"strings"

	"github.com/synapse-ai/sourcing-agent/internal/llm"
	"github.com/synapse-ai/sourcing-agent/internal/prompts"
)

// fallbackTokenCount is how many leading tokens of the job description form
// the deterministic fallback query.
const fallbackTokenCount = 10

// Generator produces search queries from job descriptions, using the LLM
// with a deterministic fallback so the pipeline always has a usable query.
type Generator struct {
	client  llm.Client
	verbose bool
}

// NewGenerator creates a query generator backed by the given LLM client.
func NewGenerator(client llm.Client, verbose bool) *Generator {
	return &Generator{client: client, verbose: verbose}
}

// Generate distills a job description into a 5-7 keyword search query.
// On any LLM failure it falls back to the first ten tokens of the job
// description; it never returns an error.
func (g *Generator) Generate(ctx context.Context, jobDescription string) string {
	template := prompts.MustGet("sourcing.json", "generate-search-query")
	prompt := prompts.Format(template, map[string]string{
		"JobDescription": jobDescription,
	})

	text, err := g.client.GenerateContent(ctx, prompt, llm.TierLite)
	if err != nil {
		if g.verbose {
			log.Printf("[QUERY] generation failed, using fallback: %v", err)
		}
		return FallbackQuery(jobDescription)
	}

	cleaned := cleanQuery(text)
	if cleaned == "" {
		return FallbackQuery(jobDescription)
	}

	if g.verbose {
		log.Printf("[QUERY] generated search query: %s", cleaned)
	}
	return cleaned
}

// FallbackQuery returns the first ten whitespace-delimited tokens of the
// job description joined by single spaces.
func FallbackQuery(jobDescription string) string {
	tokens := strings.Fields(jobDescription)
	if len(tokens) > fallbackTokenCount {
		tokens = tokens[:fallbackTokenCount]
	}
	return strings.Join(tokens, " ")
}

// cleanQuery strips surrounding whitespace and any quotes the model wrapped
// the query in.
func cleanQuery(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, `"`, "")
	// Models occasionally return multi-line output; keep the first line.
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
