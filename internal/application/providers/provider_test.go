package providers_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"

	"github.com/updateme/engine/internal/application/prompts"
	"github.com/updateme/engine/internal/application/providers"
	"github.com/updateme/engine/internal/application/services"
	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/domain/completion"
	"github.com/updateme/engine/internal/core/domain/search"
	"github.com/updateme/engine/internal/core/domain/subscriber"
	"github.com/updateme/engine/internal/core/ports"
	tmocks "github.com/updateme/engine/test/mocks"
)

// scriptedBackend answers each pipeline stage with a recognizable reply.
func scriptedBackend() *tmocks.CompletionBackendMock {
	return &tmocks.CompletionBackendMock{CompleteFn: func(ctx context.Context, req *completion.Request) (*completion.Response, error) {
		switch {
		case req.SystemPrompt == prompts.KeywordExtraction && req.JSONMode:
			return &completion.Response{Content: `{"keyword": "ai news"}`}, nil
		case req.SystemPrompt == prompts.KeywordExtraction:
			return &completion.Response{Content: "Sure! {\"keyword\": \"ai news\"} hope it helps"}, nil
		case len(req.Tools) > 0 && req.SystemPrompt != "":
			return &completion.Response{ToolCalls: []completion.ToolCall{{Name: "web_search", Arguments: `{"query": "ai news"}`}}}, nil
		case len(req.Tools) > 0:
			return &completion.Response{Content: "direct answer"}, nil
		case strings.Contains(req.SystemPrompt, "Resultados de búsqueda:"):
			return &completion.Response{Content: "findings"}, nil
		case strings.HasPrefix(req.UserPrompt, prompts.SimulatedSearchQuery("")):
			return &completion.Response{Content: "simulated findings"}, nil
		case strings.HasPrefix(req.SystemPrompt, prompts.NewsSummary(subscriber.LanguageEN)) ||
			strings.HasPrefix(req.SystemPrompt, prompts.NewsSummary(subscriber.LanguageES)):
			return &completion.Response{Content: "weekly body"}, nil
		default:
			return &completion.Response{Content: "content"}, nil
		}
	}}
}

type fixture struct {
	backend *tmocks.CompletionBackendMock
	search  *tmocks.SearchProviderMock
	repo    *tmocks.MemoryCacheRepository
	deps    providers.Deps
}

func newFixture() *fixture {
	f := &fixture{
		backend: scriptedBackend(),
		search:  &tmocks.SearchProviderMock{},
		repo:    tmocks.NewMemoryCacheRepository(),
	}
	f.deps = providers.Deps{
		Backend: f.backend,
		Search:  f.search,
		Cache:   services.NewCacheService(f.repo, nil),
	}
	return f
}

func tags(entries []*cache.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ProviderType)
	}
	return out
}

func TestGroq_NewsSummaryPipeline(t *testing.T) {
	f := newFixture()
	p := providers.NewGroq(f.deps)
	ctx := context.Background()

	body, err := p.GenerateNewsSummary(ctx, "ana@example.com").Unpack()
	require.NoError(t, err)
	require.Equal(t, prompts.Email("ana", "weekly body", subscriber.LanguageES), body)
	require.Equal(t, 3, f.backend.Calls())
	require.Equal(t, 1, f.search.Calls())
	require.ElementsMatch(t, []string{"groq_web_search", "tavily_search", "groq_content", "groq_news"}, tags(f.repo.Entries()))

	// same day, same query: everything is served from cache
	again, err := p.GenerateNewsSummary(ctx, "ana@example.com").Unpack()
	require.NoError(t, err)
	require.Equal(t, body, again)
	require.Equal(t, 3, f.backend.Calls())
	require.Equal(t, 1, f.search.Calls())
}

func TestGroq_SimulatesSearchWhenBackendFails(t *testing.T) {
	f := newFixture()
	f.search.SearchFn = func(ctx context.Context, q string, cfg *search.Config) fn.Result[search.Results] {
		return fn.Err[search.Results](errors.New("quota exceeded"))
	}
	p := providers.NewGroq(f.deps)

	res := p.SearchWeb(context.Background(), "ai news", nil)
	require.True(t, res.Success)
	require.Equal(t, "simulated findings", res.Content)
}

func TestDeepSeek_FallbackWithoutSearch(t *testing.T) {
	f := newFixture()
	f.deps.Search = nil
	p := providers.NewDeepSeek(f.deps)

	body, err := p.GenerateNewsSummary(context.Background(), "ben@example.com").Unpack()
	require.NoError(t, err)
	require.Equal(t, prompts.Fallback("ben", subscriber.LanguageES), body)
	require.Zero(t, f.backend.Calls())

	res := p.SearchWeb(context.Background(), "q", nil)
	require.False(t, res.Success)
	require.Equal(t, providers.ErrNoSearchProvider.Error(), res.Error)
}

func TestDeepSeek_UsesJSONModeForKeywords(t *testing.T) {
	f := newFixture()
	p := providers.NewDeepSeek(f.deps)

	res := p.SearchWeb(context.Background(), "what happened in ai", nil)
	require.True(t, res.Success)
	require.True(t, f.backend.Requests[0].JSONMode)
}

func TestOpenAI_ToolCallKeywordAndDirectAnswer(t *testing.T) {
	f := newFixture()
	var searched string
	f.search.SearchFn = func(ctx context.Context, q string, cfg *search.Config) fn.Result[search.Results] {
		searched = q
		return fn.Ok(search.Results{"answer": "a", "results": []any{map[string]any{"title": "t", "content": "c"}}})
	}
	p := providers.NewOpenAI(f.deps)
	res := p.SearchWeb(context.Background(), "what happened in ai this week", nil)
	require.True(t, res.Success)
	require.Equal(t, "ai news", searched)

	f2 := newFixture()
	f2.deps.Search = nil
	direct := providers.NewOpenAI(f2.deps).SearchWeb(context.Background(), "q", nil)
	require.True(t, direct.Success)
	require.Equal(t, "direct answer", direct.Content)
}

func TestOpenAI_DirectAnswerWithoutContentFails(t *testing.T) {
	f := newFixture()
	f.deps.Search = nil
	f.backend.CompleteFn = func(ctx context.Context, req *completion.Request) (*completion.Response, error) {
		return &completion.Response{ToolCalls: []completion.ToolCall{{Name: "web_search", Arguments: `{"query": "q"}`}}}, nil
	}
	res := providers.NewOpenAI(f.deps).SearchWeb(context.Background(), "q", nil)
	require.False(t, res.Success)
	require.Equal(t, providers.ErrNoResults.Error(), res.Error)
	require.Empty(t, f.repo.Entries())
}

func TestSearchWeb_NoUsableResults(t *testing.T) {
	f := newFixture()
	f.search.SearchFn = func(ctx context.Context, q string, cfg *search.Config) fn.Result[search.Results] {
		return fn.Ok(search.Results{"results": []any{}})
	}
	res := providers.NewDeepSeek(f.deps).SearchWeb(context.Background(), "q", nil)
	require.False(t, res.Success)
	require.Equal(t, providers.ErrNoResults.Error(), res.Error)
	require.NotContains(t, tags(f.repo.Entries()), "deepseek_web_search", "failures are not cached")
}

func TestNewsSummary_UsesSubscriberPreferences(t *testing.T) {
	f := newFixture()
	max := 3
	f.deps.Subscribers = tmocks.SubscribersByEmail(&subscriber.Subscriber{
		ID:          uuid.New(),
		Email:       "cleo@example.com",
		Language:    subscriber.LanguageEN,
		Preferences: subscriber.Preferences{TavilyConfig: &search.Config{MaxResults: &max}},
	})
	var gotCfg *search.Config
	f.search.SearchFn = func(ctx context.Context, q string, cfg *search.Config) fn.Result[search.Results] {
		gotCfg = cfg
		return fn.Ok(search.Results{"results": []any{map[string]any{"title": "t", "content": "c"}}})
	}
	p := providers.NewGroq(f.deps)

	body, err := p.GenerateNewsSummary(context.Background(), "cleo@example.com").Unpack()
	require.NoError(t, err)
	require.Equal(t, prompts.Email("cleo", "weekly body", subscriber.LanguageEN), body)
	require.NotNil(t, gotCfg)
	require.Equal(t, 3, *gotCfg.MaxResults)
}

func TestNewsSummary_ErrWithoutBackend(t *testing.T) {
	f := newFixture()
	f.deps.Backend = nil
	res := providers.NewGroq(f.deps).GenerateNewsSummary(context.Background(), "a@example.com")
	require.True(t, res.IsErr())
}

func TestNewsSummary_ErrOnCancelledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := providers.NewGroq(f.deps).GenerateNewsSummary(ctx, "a@example.com")
	require.True(t, res.IsErr())
}

func TestNewsSummary_RecoversFromPanic(t *testing.T) {
	f := newFixture()
	f.backend.CompleteFn = func(ctx context.Context, req *completion.Request) (*completion.Response, error) {
		panic("boom")
	}
	res := providers.NewDeepSeek(f.deps).GenerateNewsSummary(context.Background(), "a@example.com")
	require.True(t, res.IsErr())
}

func TestNewsSummary_RateLimitedYieldsFallback(t *testing.T) {
	f := newFixture()
	f.deps.Limiter = &tmocks.RateLimiterMock{AllowFn: func(ctx context.Context, provider string) (bool, int, time.Time, error) {
		return false, 0, time.Now(), nil
	}}
	body, err := providers.NewGroq(f.deps).GenerateNewsSummary(context.Background(), "dora@example.com").Unpack()
	require.NoError(t, err)
	require.Equal(t, prompts.Fallback("dora", subscriber.LanguageES), body)
	require.Zero(t, f.backend.Calls())
	require.Zero(t, f.search.Calls())
}

func TestGenerateContent_ErrorPrefix(t *testing.T) {
	f := newFixture()
	f.backend.CompleteFn = func(ctx context.Context, req *completion.Request) (*completion.Response, error) {
		return nil, errors.New("503 service unavailable")
	}
	out := providers.NewGroq(f.deps).GenerateContent(context.Background(), "hi", ports.ContentOptions{})
	require.True(t, strings.HasPrefix(out, "Error: "), out)
}

func TestGenerateContent_CoalescesConcurrentCalls(t *testing.T) {
	f := newFixture()
	f.backend.CompleteFn = func(ctx context.Context, req *completion.Request) (*completion.Response, error) {
		time.Sleep(20 * time.Millisecond)
		return &completion.Response{Content: "shared"}, nil
	}
	p := providers.NewGroq(f.deps)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.GenerateContent(context.Background(), "same prompt", ports.ContentOptions{})
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Equal(t, "shared", r)
	}
	require.Equal(t, 1, f.backend.Calls())
}

func TestGenerateContent_CallerDeadlineDoesNotFailSharedCall(t *testing.T) {
	f := newFixture()
	entered := make(chan struct{})
	var once sync.Once
	f.backend.CompleteFn = func(ctx context.Context, req *completion.Request) (*completion.Response, error) {
		once.Do(func() { close(entered) })
		select {
		case <-time.After(150 * time.Millisecond):
			return &completion.Response{Content: "slow answer"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := providers.NewGroq(f.deps)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	shortOut := make(chan string, 1)
	go func() { shortOut <- p.GenerateContent(short, "same", ports.ContentOptions{}) }()

	<-entered
	patient := p.GenerateContent(context.Background(), "same", ports.ContentOptions{})

	require.Equal(t, "slow answer", patient)
	out := <-shortOut
	require.True(t, strings.HasPrefix(out, "Error: "), out)
	require.Contains(t, out, context.DeadlineExceeded.Error())
	require.Equal(t, 1, f.backend.Calls())
}

func TestGenerateContent_FlightTimeoutBoundsSharedCall(t *testing.T) {
	f := newFixture()
	f.deps.FlightTimeout = 20 * time.Millisecond
	f.backend.CompleteFn = func(ctx context.Context, req *completion.Request) (*completion.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	out := providers.NewGroq(f.deps).GenerateContent(context.Background(), "stuck", ports.ContentOptions{})
	require.Contains(t, out, context.DeadlineExceeded.Error())
}

func TestGenerateContent_TemperatureIsPartOfKey(t *testing.T) {
	f := newFixture()
	p := providers.NewGroq(f.deps)
	ctx := context.Background()

	p.GenerateContent(ctx, "prompt", ports.ContentOptions{})
	p.GenerateContent(ctx, "prompt", ports.ContentOptions{Temperature: completion.Temperature(0.2)})
	p.GenerateContent(ctx, "prompt", ports.ContentOptions{Temperature: completion.Temperature(completion.DefaultTemperature)})
	require.Equal(t, 2, f.backend.Calls())
}
