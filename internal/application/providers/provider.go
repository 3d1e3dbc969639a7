// Package providers implements the completion providers: one shared
// generation pipeline with a per-vendor strategy for keyword extraction and
// for what to do when no search backend can answer.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/updateme/engine/internal/application/prompts"
	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/domain/completion"
	"github.com/updateme/engine/internal/core/domain/search"
	"github.com/updateme/engine/internal/core/domain/subscriber"
	"github.com/updateme/engine/internal/core/ports"
)

// Provider names.
const (
	OpenAI   = "openai"
	Groq     = "groq"
	DeepSeek = "deepseek"
)

var (
	ErrBackendUnavailable = errors.New("completion backend not configured")
	ErrNoSearchProvider   = errors.New("no search provider configured")
	ErrNoResults          = errors.New("no relevant search results found")
	ErrRateLimited        = errors.New("provider rate limit exceeded")
)

// Deps are the collaborators shared by every provider.
type Deps struct {
	Backend ports.CompletionBackend
	// Search may be nil; each variant decides how to answer without it.
	Search      ports.SearchProvider
	Cache       ports.CacheStore
	Subscribers ports.SubscriberRepository
	Limiter     ports.RateLimiterService
	Metrics     ports.EngineMetrics
	Logger      *logrus.Logger
	// FlightTimeout bounds a coalesced external computation, which runs
	// detached from any single caller's context. Defaults to two minutes.
	FlightTimeout time.Duration
}

const defaultFlightTimeout = 2 * time.Minute

// strategy is what differs between vendors.
type strategy interface {
	extractKeyword(ctx context.Context, query string) (string, error)
	searchUnavailable(ctx context.Context, query string, opts *ports.WebSearchOptions) ports.WebSearchResult
	searchFailed(ctx context.Context, query string, opts *ports.WebSearchOptions, err error) ports.WebSearchResult
}

// Provider is a completion provider. Build one with NewOpenAI, NewGroq or NewDeepSeek.
type Provider struct {
	name     string
	deps     Deps
	strategy strategy
	sf       singleflight.Group
}

var _ ports.CompletionProvider = (*Provider)(nil)

// New builds the provider registered under name.
func New(name string, deps Deps) (*Provider, error) {
	switch name {
	case OpenAI:
		return NewOpenAI(deps), nil
	case Groq:
		return NewGroq(deps), nil
	case DeepSeek:
		return NewDeepSeek(deps), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", name)
	}
}

func newProvider(name string, deps Deps) *Provider {
	if deps.Metrics == nil {
		deps.Metrics = ports.NoopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
		deps.Logger.SetOutput(io.Discard)
	}
	if deps.FlightTimeout <= 0 {
		deps.FlightTimeout = defaultFlightTimeout
	}
	return &Provider{name: name, deps: deps}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) log() *logrus.Entry {
	return p.deps.Logger.WithField("provider", p.name)
}

func (p *Provider) allow(ctx context.Context, subject string) error {
	if p.deps.Limiter == nil {
		return nil
	}
	allowed, _, _, err := p.deps.Limiter.Allow(ctx, subject)
	if err != nil {
		// fail open
		return nil
	}
	if !allowed {
		return fmt.Errorf("%s: %w", subject, ErrRateLimited)
	}
	return nil
}

// complete performs one external completion call.
func (p *Provider) complete(ctx context.Context, stage string, req *completion.Request) (*completion.Response, error) {
	if p.deps.Backend == nil {
		return nil, ErrBackendUnavailable
	}
	if err := p.allow(ctx, p.name); err != nil {
		p.deps.Metrics.ExternalCall(p.name, stage, err)
		return nil, err
	}
	resp, err := p.deps.Backend.Complete(ctx, req)
	p.deps.Metrics.ExternalCall(p.name, stage, err)
	if err != nil {
		p.log().WithField("stage", stage).WithError(err).Warn("completion call failed")
		return nil, fmt.Errorf("%s %s: %w", p.name, stage, err)
	}
	return resp, nil
}

func (p *Provider) cached(ctx context.Context, key, tag string) (cache.Payload, bool) {
	v, ok := p.deps.Cache.Get(ctx, key)
	p.deps.Metrics.CacheLookup(tag, ok)
	return v, ok
}

// flightPanic carries a panic out of a coalesced computation so it can be
// re-raised on the caller's goroutine.
type flightPanic struct{ value any }

func (f *flightPanic) Error() string { return fmt.Sprintf("panic: %v", f.value) }

// memoize returns the cached payload for key or runs compute once for all
// concurrent callers with the same key, saving a successful result.
// compute gets a context detached from ctx, bounded by FlightTimeout; a
// caller whose ctx ends stops waiting without failing the others.
func (p *Provider) memoize(ctx context.Context, key, tag, query string, compute func(context.Context) (cache.Payload, error)) (cache.Payload, error) {
	if v, ok := p.cached(ctx, key, tag); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return cache.Payload{}, err
	}
	ch := p.sf.DoChan(key, func() (_ any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &flightPanic{value: r}
			}
		}()
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.deps.FlightTimeout)
		defer cancel()
		if v, ok := p.deps.Cache.Get(fctx, key); ok {
			return v, nil
		}
		v, err := compute(fctx)
		if err != nil {
			return nil, err
		}
		p.deps.Cache.Save(fctx, key, v, tag, query, cache.DefaultTTLDays)
		return v, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return cache.Payload{}, ctx.Err()
	case res = <-ch:
	}
	if fp, ok := res.Err.(*flightPanic); ok {
		panic(fp.value)
	}
	if res.Err != nil {
		return cache.Payload{}, res.Err
	}
	v, ok := res.Val.(cache.Payload)
	if !ok {
		return cache.Payload{}, fmt.Errorf("unexpected type from singleflight result")
	}
	return v, nil
}

// GenerateContent returns generated text or "Error: <msg>".
func (p *Provider) GenerateContent(ctx context.Context, prompt string, opts ports.ContentOptions) string {
	text, err := p.generateContent(ctx, prompt, opts).Unpack()
	if err != nil {
		return "Error: " + err.Error()
	}
	return text
}

func (p *Provider) generateContent(ctx context.Context, prompt string, opts ports.ContentOptions) fn.Result[string] {
	temp := completion.DefaultTemperature
	if opts.Temperature != nil {
		temp = *opts.Temperature
	}
	tag := cache.ContentTag(p.name)
	key := p.deps.Cache.GenerateKey(prompt, tag, map[string]any{
		"system_content": opts.SystemContent,
		"temperature":    temp,
	})
	v, err := p.memoize(ctx, key, tag, prompt, func(ctx context.Context) (cache.Payload, error) {
		resp, err := p.complete(ctx, "content", &completion.Request{
			SystemPrompt: opts.SystemContent,
			UserPrompt:   prompt,
			Temperature:  &temp,
		})
		if err != nil {
			return cache.Payload{}, err
		}
		return cache.TextPayload(resp.Content), nil
	})
	if err != nil {
		return fn.Err[string](err)
	}
	return fn.Ok(v.AsText())
}

// SearchWeb runs keyword extraction, search, and result summarization,
// caching each stage.
func (p *Provider) SearchWeb(ctx context.Context, query string, opts *ports.WebSearchOptions) ports.WebSearchResult {
	opts = normalizeOptions(opts)
	if p.deps.Search == nil {
		return p.strategy.searchUnavailable(ctx, query, opts)
	}
	tag := cache.WebSearchTag(p.name)
	key := p.deps.Cache.GenerateKey(query, tag, cacheExtra(opts))
	v, err := p.memoize(ctx, key, tag, query, func(ctx context.Context) (cache.Payload, error) {
		res, err := p.compoundSearch(ctx, query, opts)
		if err != nil {
			return cache.Payload{}, err
		}
		return cache.RecordPayload(resultRecord(res)), nil
	})
	if err != nil {
		p.log().WithField("query", query).WithError(err).Warn("web search failed")
		return p.strategy.searchFailed(ctx, query, opts, err)
	}
	return resultFromPayload(v)
}

func (p *Provider) compoundSearch(ctx context.Context, query string, opts *ports.WebSearchOptions) (ports.WebSearchResult, error) {
	keyword, err := p.strategy.extractKeyword(ctx, query)
	if err != nil || keyword == "" {
		p.log().WithField("query", query).WithError(err).Debug("keyword extraction failed; using raw query")
		keyword = query
	}

	results, err := p.searchResults(ctx, keyword, opts.SearchConfig)
	if err != nil {
		return ports.WebSearchResult{}, err
	}

	flat := prompts.FlattenResults(p.deps.Search.Backend(), results, prompts.MaxFlattenedResults)
	if flat == "" {
		return ports.WebSearchResult{}, ErrNoResults
	}

	system := opts.ResultPrompt
	if system == "" {
		system = prompts.WebSearch(opts.Language)
	}
	resp, err := p.complete(ctx, "web_search", &completion.Request{
		SystemPrompt: prompts.WithResults(system, flat),
		UserPrompt:   query,
	})
	if err != nil {
		return ports.WebSearchResult{}, err
	}
	return ports.WebSearchResult{Content: resp.Content, Success: true, SearchResults: results}, nil
}

// searchResults returns backend results for keyword, from cache when possible.
func (p *Provider) searchResults(ctx context.Context, keyword string, cfg *search.Config) (search.Results, error) {
	sp := p.deps.Search
	tag := sp.Tag()
	var extra map[string]any
	if cfg != nil && !cfg.IsZero() {
		extra = map[string]any{"config": cfg}
	}
	key := p.deps.Cache.GenerateKey(keyword, tag, extra)
	v, err := p.memoize(ctx, key, tag, keyword, func(ctx context.Context) (cache.Payload, error) {
		if err := p.allow(ctx, string(sp.Backend())); err != nil {
			p.deps.Metrics.ExternalCall(string(sp.Backend()), "search", err)
			return cache.Payload{}, err
		}
		results, err := sp.Search(ctx, keyword, cfg).Unpack()
		p.deps.Metrics.ExternalCall(string(sp.Backend()), "search", err)
		if err != nil {
			return cache.Payload{}, err
		}
		return cache.RecordPayload(results), nil
	})
	if err != nil {
		return nil, err
	}
	return search.Results(v.Record), nil
}

// simulateSearch answers a query with the model alone.
func (p *Provider) simulateSearch(ctx context.Context, query string, opts *ports.WebSearchOptions) ports.WebSearchResult {
	tag := cache.SimulateSearchTag(p.name)
	key := p.deps.Cache.GenerateKey(query, tag, languageExtra(opts))
	v, err := p.memoize(ctx, key, tag, query, func(ctx context.Context) (cache.Payload, error) {
		resp, err := p.complete(ctx, "simulate_search", &completion.Request{
			SystemPrompt: prompts.WebSearch(opts.Language),
			UserPrompt:   prompts.SimulatedSearchQuery(query),
		})
		if err != nil {
			return cache.Payload{}, err
		}
		return cache.RecordPayload(resultRecord(ports.WebSearchResult{Content: resp.Content, Success: true})), nil
	})
	if err != nil {
		return failed(err)
	}
	return resultFromPayload(v)
}

// GenerateNewsSummary produces the weekly email body for email.
func (p *Provider) GenerateNewsSummary(ctx context.Context, email string) (res fn.Result[string]) {
	defer func() {
		if r := recover(); r != nil {
			p.log().WithField("panic", r).Error("news summary panicked")
			res = fn.Err[string](fmt.Errorf("%s: panic during news summary: %v", p.name, r))
		}
	}()
	if p.deps.Backend == nil {
		return fn.Err[string](fmt.Errorf("%s: %w", p.name, ErrBackendUnavailable))
	}

	username := subscriber.Username(email)
	opts := p.optionsFor(ctx, email)
	fallback := prompts.Fallback(username, opts.Language)

	sw := p.SearchWeb(ctx, prompts.NewsQuery, opts)
	if err := ctx.Err(); err != nil {
		return fn.Err[string](err)
	}
	if !sw.Success {
		p.log().WithField("email", email).WithField("error", sw.Error).Warn("search stage failed; using fallback content")
		return fn.Ok(fallback)
	}

	body, err := p.generateContent(ctx, sw.Content, ports.ContentOptions{
		SystemContent: prompts.NewsSummary(opts.Language),
	}).Unpack()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fn.Err[string](ctxErr)
	}
	if err != nil {
		p.log().WithField("email", email).WithError(err).Warn("summary stage failed; using fallback content")
		return fn.Ok(fallback)
	}

	p.saveNews(ctx, body, opts.Language)
	return fn.Ok(prompts.Email(username, body, opts.Language))
}

// saveNews keeps the raw body so the orchestrator can reuse it on later failures.
func (p *Provider) saveNews(ctx context.Context, body string, lang subscriber.Language) {
	tag := cache.NewsTag(p.name)
	key := p.deps.Cache.GenerateKey(prompts.NewsQuery, tag, map[string]any{"language": string(lang)})
	p.deps.Cache.Save(ctx, key, cache.RecordPayload(map[string]any{
		"content":  body,
		"language": string(lang),
	}), tag, prompts.NewsQuery, cache.DefaultTTLDays)
}

// optionsFor resolves the subscriber's language and search overrides.
func (p *Provider) optionsFor(ctx context.Context, email string) *ports.WebSearchOptions {
	opts := &ports.WebSearchOptions{Language: subscriber.DefaultLanguage}
	if p.deps.Subscribers == nil {
		return opts
	}
	sub, err := p.deps.Subscribers.GetByEmail(ctx, email)
	if err != nil || sub == nil {
		if err != nil && !errors.Is(err, ports.ErrSubscriberNotFound) {
			p.log().WithField("email", email).WithError(err).Warn("subscriber lookup failed; using defaults")
		}
		return opts
	}
	opts.Language = sub.Language.Normalize()
	if p.deps.Search != nil {
		b := p.deps.Search.Backend()
		opts.SearchConfig = sub.Preferences.SearchConfig(b)
		opts.ResultPrompt = sub.Preferences.ResultPrompt(b)
	}
	return opts
}

func normalizeOptions(opts *ports.WebSearchOptions) *ports.WebSearchOptions {
	if opts == nil {
		return &ports.WebSearchOptions{Language: subscriber.DefaultLanguage}
	}
	out := *opts
	out.Language = out.Language.Normalize()
	return &out
}

// cacheExtra keeps the plain (default language, no overrides) key identical to
// a key over query and tag alone.
func cacheExtra(opts *ports.WebSearchOptions) map[string]any {
	extra := languageExtra(opts)
	if opts.SearchConfig != nil && !opts.SearchConfig.IsZero() {
		if extra == nil {
			extra = map[string]any{}
		}
		extra["search_config"] = opts.SearchConfig
	}
	if opts.ResultPrompt != "" {
		if extra == nil {
			extra = map[string]any{}
		}
		extra["result_prompt"] = opts.ResultPrompt
	}
	return extra
}

func languageExtra(opts *ports.WebSearchOptions) map[string]any {
	if opts.Language == subscriber.DefaultLanguage {
		return nil
	}
	return map[string]any{"language": string(opts.Language)}
}

func failed(err error) ports.WebSearchResult {
	return ports.WebSearchResult{Success: false, Error: err.Error()}
}

func resultRecord(r ports.WebSearchResult) map[string]any {
	rec := map[string]any{"content": r.Content, "success": r.Success}
	if r.SearchResults != nil {
		rec["search_results"] = map[string]any(r.SearchResults)
	}
	return rec
}

func resultFromPayload(v cache.Payload) ports.WebSearchResult {
	if v.IsText() {
		return ports.WebSearchResult{Content: v.Text, Success: true}
	}
	res := ports.WebSearchResult{Success: true}
	res.Content, _ = v.Record["content"].(string)
	if ok, isBool := v.Record["success"].(bool); isBool {
		res.Success = ok
	}
	if sr, ok := v.Record["search_results"].(map[string]any); ok {
		res.SearchResults = search.Results(sr)
	}
	return res
}
