package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/updateme/engine/internal/application/prompts"
	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/domain/completion"
	"github.com/updateme/engine/internal/core/ports"
)

var errNoKeyword = errors.New("no keyword in model reply")

// firstJSONObject matches the first {...} block in a free-form reply.
var firstJSONObject = regexp.MustCompile(`\{[\s\S]*?\}`)

func parseKeyword(raw string) (string, error) {
	var out struct {
		Keyword string `json:"keyword"`
		Query   string `json:"query"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("failed to decode keyword json: %w", err)
	}
	kw := strings.TrimSpace(out.Keyword)
	if kw == "" {
		kw = strings.TrimSpace(out.Query)
	}
	if kw == "" {
		return "", errNoKeyword
	}
	return kw, nil
}

// --- openai: function calling ------------------------------------------------

const webSearchToolPrompt = "Call the web_search tool with a concise, search-engine friendly query for the user's message."

var webSearchTool = completion.Tool{
	Name:        "web_search",
	Description: "Search the web for recent information.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	},
}

type openAIStrategy struct{ p *Provider }

// NewOpenAI extracts keywords through a web_search tool call and, without a
// search backend, answers the query directly.
func NewOpenAI(deps Deps) *Provider {
	p := newProvider(OpenAI, deps)
	p.strategy = openAIStrategy{p: p}
	return p
}

func (s openAIStrategy) extractKeyword(ctx context.Context, query string) (string, error) {
	resp, err := s.p.complete(ctx, "keyword", &completion.Request{
		SystemPrompt: webSearchToolPrompt,
		UserPrompt:   query,
		Tools:        []completion.Tool{webSearchTool},
	})
	if err != nil {
		return "", err
	}
	for _, call := range resp.ToolCalls {
		if call.Name == webSearchTool.Name {
			return parseKeyword(call.Arguments)
		}
	}
	return parseKeyword(resp.Content)
}

func (s openAIStrategy) searchUnavailable(ctx context.Context, query string, opts *ports.WebSearchOptions) ports.WebSearchResult {
	p := s.p
	tag := cache.WebSearchTag(p.name)
	key := p.deps.Cache.GenerateKey(query, tag, languageExtra(opts))
	v, err := p.memoize(ctx, key, tag, query, func(ctx context.Context) (cache.Payload, error) {
		resp, err := p.complete(ctx, "web_search", &completion.Request{
			UserPrompt: query,
			Tools:      []completion.Tool{webSearchTool},
		})
		if err != nil {
			return cache.Payload{}, err
		}
		if strings.TrimSpace(resp.Content) == "" {
			return cache.Payload{}, ErrNoResults
		}
		return cache.RecordPayload(resultRecord(ports.WebSearchResult{Content: resp.Content, Success: true})), nil
	})
	if err != nil {
		return failed(err)
	}
	return resultFromPayload(v)
}

func (s openAIStrategy) searchFailed(_ context.Context, _ string, _ *ports.WebSearchOptions, err error) ports.WebSearchResult {
	return failed(err)
}

// --- groq: free-text JSON extraction, simulated search fallback -------------

type groqStrategy struct{ p *Provider }

// NewGroq pulls the keyword out of a free-form reply and falls back to a
// model-only simulated search when no search backend is usable.
func NewGroq(deps Deps) *Provider {
	p := newProvider(Groq, deps)
	p.strategy = groqStrategy{p: p}
	return p
}

func (s groqStrategy) extractKeyword(ctx context.Context, query string) (string, error) {
	resp, err := s.p.complete(ctx, "keyword", &completion.Request{
		SystemPrompt: prompts.KeywordExtraction,
		UserPrompt:   query,
	})
	if err != nil {
		return "", err
	}
	m := firstJSONObject.FindString(resp.Content)
	if m == "" {
		return "", fmt.Errorf("no json object in reply %q", resp.Content)
	}
	return parseKeyword(m)
}

func (s groqStrategy) searchUnavailable(ctx context.Context, query string, opts *ports.WebSearchOptions) ports.WebSearchResult {
	return s.p.simulateSearch(ctx, query, opts)
}

func (s groqStrategy) searchFailed(ctx context.Context, query string, opts *ports.WebSearchOptions, err error) ports.WebSearchResult {
	if ctx.Err() != nil {
		return failed(err)
	}
	return s.p.simulateSearch(ctx, query, opts)
}

// --- deepseek: JSON response mode, search backend required -----------------

type deepSeekStrategy struct{ p *Provider }

// NewDeepSeek asks for a JSON-mode reply for keywords and refuses to search
// without a backend.
func NewDeepSeek(deps Deps) *Provider {
	p := newProvider(DeepSeek, deps)
	p.strategy = deepSeekStrategy{p: p}
	return p
}

func (s deepSeekStrategy) extractKeyword(ctx context.Context, query string) (string, error) {
	resp, err := s.p.complete(ctx, "keyword", &completion.Request{
		SystemPrompt: prompts.KeywordExtraction,
		UserPrompt:   query,
		JSONMode:     true,
	})
	if err != nil {
		return "", err
	}
	return parseKeyword(resp.Content)
}

func (s deepSeekStrategy) searchUnavailable(context.Context, string, *ports.WebSearchOptions) ports.WebSearchResult {
	return failed(ErrNoSearchProvider)
}

func (s deepSeekStrategy) searchFailed(_ context.Context, _ string, _ *ports.WebSearchOptions, err error) ports.WebSearchResult {
	return failed(err)
}
