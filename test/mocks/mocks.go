package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/domain/completion"
	"github.com/updateme/engine/internal/core/domain/delivery"
	"github.com/updateme/engine/internal/core/domain/search"
	"github.com/updateme/engine/internal/core/domain/subscriber"
	"github.com/updateme/engine/internal/core/ports"
)

// MemoryCacheRepository is an in-memory ports.CacheRepository.
type MemoryCacheRepository struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{entries: make(map[string]*cache.Entry)}
}

func (m *MemoryCacheRepository) FindByKey(_ context.Context, key string) (*cache.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryCacheRepository) DeleteByKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.entries, key)
	return nil
}

func (m *MemoryCacheRepository) Insert(_ context.Context, e *cache.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, dup := m.entries[e.CacheKey]; dup {
		return fmt.Errorf("duplicate cache key %s", e.CacheKey)
	}
	cp := *e
	m.entries[e.CacheKey] = &cp
	return nil
}

func (m *MemoryCacheRepository) Replace(_ context.Context, e *cache.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *e
	m.entries[e.CacheKey] = &cp
	return nil
}

func (m *MemoryCacheRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for k, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryCacheRepository) FindByProviderAndDate(_ context.Context, providerType, date string) ([]*cache.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*cache.Entry
	for _, e := range m.entries {
		if e.ProviderType == providerType && e.CreatedDate == date {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryCacheRepository) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.entries)), nil
}

// Put stores e directly, bypassing Save.
func (m *MemoryCacheRepository) Put(e *cache.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries[e.CacheKey] = &cp
}

// Entries returns a snapshot of every stored entry.
func (m *MemoryCacheRepository) Entries() []*cache.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*cache.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// MemoryCache is an in-memory ports.Cache that ignores TTLs.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	TTLs map[string]time.Duration
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.TTLs[key] = ttl
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	delete(c.TTLs, key)
	return nil
}

// SubscriberRepositoryMock is a lightweight mock for SubscriberRepository
type SubscriberRepositoryMock struct {
	GetByEmailFn    func(ctx context.Context, email string) (*subscriber.Subscriber, error)
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*subscriber.Subscriber, error)
	ListDueFn       func(ctx context.Context, cutoff time.Time) ([]*subscriber.Subscriber, error)
	MarkEmailSentFn func(ctx context.Context, id uuid.UUID, at time.Time) error
}

func (m *SubscriberRepositoryMock) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, ports.ErrSubscriberNotFound
}
func (m *SubscriberRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (*subscriber.Subscriber, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, ports.ErrSubscriberNotFound
}
func (m *SubscriberRepositoryMock) ListDue(ctx context.Context, cutoff time.Time) ([]*subscriber.Subscriber, error) {
	if m.ListDueFn != nil {
		return m.ListDueFn(ctx, cutoff)
	}
	return nil, nil
}
func (m *SubscriberRepositoryMock) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.MarkEmailSentFn != nil {
		return m.MarkEmailSentFn(ctx, id, at)
	}
	return nil
}

// SubscribersByEmail returns a mock that serves subs by lower-cased email.
func SubscribersByEmail(subs ...*subscriber.Subscriber) *SubscriberRepositoryMock {
	byEmail := make(map[string]*subscriber.Subscriber, len(subs))
	for _, s := range subs {
		byEmail[strings.ToLower(s.Email)] = s
	}
	return &SubscriberRepositoryMock{GetByEmailFn: func(_ context.Context, email string) (*subscriber.Subscriber, error) {
		if s, ok := byEmail[strings.ToLower(email)]; ok {
			return s, nil
		}
		return nil, ports.ErrSubscriberNotFound
	}}
}

// DeliveryRepositoryMock is a lightweight mock for DeliveryRepository
type DeliveryRepositoryMock struct {
	CreateFn func(ctx context.Context, d *delivery.Delivery) error
	ListFn   func(ctx context.Context, f *delivery.Filter) ([]*delivery.Delivery, error)
	CountFn  func(ctx context.Context, f *delivery.Filter) (int, error)
}

func (m *DeliveryRepositoryMock) Create(ctx context.Context, d *delivery.Delivery) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, d)
	}
	return nil
}
func (m *DeliveryRepositoryMock) List(ctx context.Context, f *delivery.Filter) ([]*delivery.Delivery, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, f)
	}
	return nil, nil
}
func (m *DeliveryRepositoryMock) Count(ctx context.Context, f *delivery.Filter) (int, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx, f)
	}
	return 0, nil
}

// DeliveryLogServiceMock records every delivery it is given.
type DeliveryLogServiceMock struct {
	mu       sync.Mutex
	Recorded []*delivery.Delivery
	ListFn   func(ctx context.Context, f *delivery.Filter) ([]*delivery.Delivery, int, error)
}

func (m *DeliveryLogServiceMock) Record(_ context.Context, d *delivery.Delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded = append(m.Recorded, d)
}
func (m *DeliveryLogServiceMock) List(ctx context.Context, f *delivery.Filter) ([]*delivery.Delivery, int, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, f)
	}
	return nil, 0, nil
}

// SentEmail is one message captured by EmailSenderMock.
type SentEmail struct {
	To, Subject, Body string
}

// EmailSenderMock captures messages; SendFn may inject failures.
type EmailSenderMock struct {
	mu     sync.Mutex
	Sent   []SentEmail
	SendFn func(ctx context.Context, to, subject, body string) error
}

func (m *EmailSenderMock) Send(ctx context.Context, to, subject, body string) error {
	if m.SendFn != nil {
		if err := m.SendFn(ctx, to, subject, body); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a snapshot of the captured messages.
func (m *EmailSenderMock) Messages() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.Sent...)
}

// CompletionBackendMock is a lightweight mock for CompletionBackend
type CompletionBackendMock struct {
	mu         sync.Mutex
	Requests   []*completion.Request
	CompleteFn func(ctx context.Context, req *completion.Request) (*completion.Response, error)
}

func (m *CompletionBackendMock) Complete(ctx context.Context, req *completion.Request) (*completion.Response, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, req)
	}
	return &completion.Response{Content: "ok"}, nil
}

// Calls returns how many completions were requested.
func (m *CompletionBackendMock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// SearchProviderMock is a lightweight mock for SearchProvider
type SearchProviderMock struct {
	mu       sync.Mutex
	calls    int
	BackendV search.Backend
	SearchFn func(ctx context.Context, query string, cfg *search.Config) fn.Result[search.Results]
}

func (m *SearchProviderMock) Backend() search.Backend {
	if m.BackendV == "" {
		return search.BackendTavily
	}
	return m.BackendV
}
func (m *SearchProviderMock) Tag() string { return cache.SearchTag(string(m.Backend())) }
func (m *SearchProviderMock) Search(ctx context.Context, query string, cfg *search.Config) fn.Result[search.Results] {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, cfg)
	}
	return fn.Ok(search.Results{"results": []any{map[string]any{"title": "t", "url": "https://example.com", "content": "c"}}})
}

// Calls returns how many searches were issued.
func (m *SearchProviderMock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// CompletionProviderMock is a lightweight mock for CompletionProvider
type CompletionProviderMock struct {
	NameV                 string
	GenerateContentFn     func(ctx context.Context, prompt string, opts ports.ContentOptions) string
	SearchWebFn           func(ctx context.Context, query string, opts *ports.WebSearchOptions) ports.WebSearchResult
	GenerateNewsSummaryFn func(ctx context.Context, email string) fn.Result[string]
}

func (m *CompletionProviderMock) Name() string { return m.NameV }
func (m *CompletionProviderMock) GenerateContent(ctx context.Context, prompt string, opts ports.ContentOptions) string {
	if m.GenerateContentFn != nil {
		return m.GenerateContentFn(ctx, prompt, opts)
	}
	return ""
}
func (m *CompletionProviderMock) SearchWeb(ctx context.Context, query string, opts *ports.WebSearchOptions) ports.WebSearchResult {
	if m.SearchWebFn != nil {
		return m.SearchWebFn(ctx, query, opts)
	}
	return ports.WebSearchResult{}
}
func (m *CompletionProviderMock) GenerateNewsSummary(ctx context.Context, email string) fn.Result[string] {
	if m.GenerateNewsSummaryFn != nil {
		return m.GenerateNewsSummaryFn(ctx, email)
	}
	return fn.Err[string](fmt.Errorf("%s: not implemented", m.NameV))
}

// RateLimitRepositoryMock is a lightweight mock for RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, subject, window, keyPrefix, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}

// RateLimiterMock is a lightweight mock for RateLimiterService
type RateLimiterMock struct {
	AllowFn func(ctx context.Context, provider string) (bool, int, time.Time, error)
}

func (m *RateLimiterMock) Allow(ctx context.Context, provider string) (bool, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, provider)
	}
	return true, 1, time.Now(), nil
}

// SummaryServiceMock is a lightweight mock for SummaryService
type SummaryServiceMock struct {
	GenerateFn func(ctx context.Context, email string) *delivery.Summary
}

func (m *SummaryServiceMock) GenerateNewsSummary(ctx context.Context, email string) string {
	return m.GenerateNewsSummaryDetailed(ctx, email).Body
}
func (m *SummaryServiceMock) GenerateNewsSummaryDetailed(ctx context.Context, email string) *delivery.Summary {
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, email)
	}
	return &delivery.Summary{Body: "summary for " + email, Provider: "groq", Source: delivery.SourceProvider}
}

// NewsletterServiceMock is a lightweight mock for NewsletterService
type NewsletterServiceMock struct {
	ProcessPendingEmailsFn func(ctx context.Context, daysInterval int) (*ports.JobReport, error)
	SendFirstSummaryFn     func(ctx context.Context, email string) error
}

func (m *NewsletterServiceMock) ProcessPendingEmails(ctx context.Context, daysInterval int) (*ports.JobReport, error) {
	if m.ProcessPendingEmailsFn != nil {
		return m.ProcessPendingEmailsFn(ctx, daysInterval)
	}
	return &ports.JobReport{}, nil
}
func (m *NewsletterServiceMock) SendFirstSummary(ctx context.Context, email string) error {
	if m.SendFirstSummaryFn != nil {
		return m.SendFirstSummaryFn(ctx, email)
	}
	return nil
}

// OpsAuthServiceMock is a lightweight mock for OpsAuthService
type OpsAuthServiceMock struct {
	IssueTokenFn    func(subject string, ttl time.Duration) (string, error)
	ValidateTokenFn func(token string) (*ports.OpsClaims, error)
}

func (m *OpsAuthServiceMock) IssueToken(subject string, ttl time.Duration) (string, error) {
	if m.IssueTokenFn != nil {
		return m.IssueTokenFn(subject, ttl)
	}
	return "token", nil
}
func (m *OpsAuthServiceMock) ValidateToken(token string) (*ports.OpsClaims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(token)
	}
	return nil, fmt.Errorf("invalid token")
}
