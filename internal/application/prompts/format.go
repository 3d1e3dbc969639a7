package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/updateme/engine/internal/core/domain/search"
)

// MaxFlattenedResults bounds how many hits are passed to the model.
const MaxFlattenedResults = 5

const maxFollowUps = 3

// FlattenResults renders backend results as plain text for a completion prompt.
// An empty string means nothing usable was found.
func FlattenResults(b search.Backend, results search.Results, max int) string {
	if max <= 0 {
		max = MaxFlattenedResults
	}
	switch b {
	case search.BackendTavily:
		return flattenTavily(results, max)
	default:
		return flattenSerpAPI(results, max)
	}
}

func flattenSerpAPI(results search.Results, max int) string {
	var sb strings.Builder
	if box, ok := results["answer_box"].(map[string]any); ok && len(box) > 0 {
		if b, err := json.MarshalIndent(box, "", "  "); err == nil {
			sb.WriteString("ANSWER BOX: ")
			sb.Write(b)
			sb.WriteString("\n\n")
		}
	}
	// news searches return news_results instead of organic_results
	hits := asList(results["organic_results"])
	if len(hits) == 0 {
		hits = asList(results["news_results"])
	}
	if len(hits) > 0 {
		sb.WriteString("TOP RESULTS:\n")
		for i, h := range limit(hits, max) {
			fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, field(h, "title", "No Title"), field(h, "snippet", "No Snippet"))
		}
	}
	return sb.String()
}

func flattenTavily(results search.Results, max int) string {
	var sb strings.Builder
	if answer, ok := results["answer"].(string); ok && answer != "" {
		fmt.Fprintf(&sb, "SUMMARY: %s\n\n", answer)
	}
	if hits := asList(results["results"]); len(hits) > 0 {
		sb.WriteString("TOP RESULTS:\n")
		for i, h := range limit(hits, max) {
			fmt.Fprintf(&sb, "%d. %s: %s\n\n", i+1, field(h, "title", "No Title"), field(h, "content", "No Content"))
		}
	}
	if qs := asList(results["follow_up_questions"]); len(qs) > 0 {
		sb.WriteString("\nRELATED QUESTIONS:\n")
		for _, q := range limit(qs, maxFollowUps) {
			fmt.Fprintf(&sb, "- %v\n", q)
		}
	}
	return sb.String()
}

func asList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []map[string]any:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	}
	return nil
}

func limit(l []any, n int) []any {
	if len(l) > n {
		return l[:n]
	}
	return l
}

func field(item any, key, def string) string {
	m, ok := item.(map[string]any)
	if !ok {
		return def
	}
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}
