package ports

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/updateme/engine/internal/core/domain/completion"
	"github.com/updateme/engine/internal/core/domain/search"
	"github.com/updateme/engine/internal/core/domain/subscriber"
)

// CompletionBackend is a raw chat completion API.
type CompletionBackend interface {
	Complete(ctx context.Context, req *completion.Request) (*completion.Response, error)
}

// SearchProvider wraps one web-search backend. Results are returned in the
// backend's native shape.
type SearchProvider interface {
	Backend() search.Backend
	// Tag is the cache tag for raw results of this backend.
	Tag() string
	Search(ctx context.Context, query string, userConfig *search.Config) fn.Result[search.Results]
}

// ContentOptions tunes a GenerateContent call.
type ContentOptions struct {
	SystemContent string
	// Temperature nil means completion.DefaultTemperature.
	Temperature *float32
}

// WebSearchOptions carries subscriber-specific settings into SearchWeb.
type WebSearchOptions struct {
	Language     subscriber.Language
	SearchConfig *search.Config
	ResultPrompt string
}

// WebSearchResult is the outcome of the compound search pipeline.
type WebSearchResult struct {
	Content       string         `json:"content"`
	Success       bool           `json:"success"`
	SearchResults search.Results `json:"search_results,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// CompletionProvider is one LLM-backed content generator.
type CompletionProvider interface {
	Name() string
	// GenerateContent returns the generated text, or a string starting with
	// "Error: " when generation failed.
	GenerateContent(ctx context.Context, prompt string, opts ContentOptions) string
	SearchWeb(ctx context.Context, query string, opts *WebSearchOptions) WebSearchResult
	// GenerateNewsSummary returns an email-ready summary. Degraded stages yield
	// static content inside Ok; Err means the provider could not run at all.
	GenerateNewsSummary(ctx context.Context, email string) fn.Result[string]
}

// ProviderRegistry resolves completion providers by name.
type ProviderRegistry interface {
	Get(name string) (CompletionProvider, bool)
	Default() string
	Names() []string
	// Candidates returns preferred first then the remaining providers in
	// registration order, without duplicates.
	Candidates(preferred string) []CompletionProvider
}
