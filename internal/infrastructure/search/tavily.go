package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/domain/search"
	"github.com/updateme/engine/internal/core/ports"
)

const defaultTavilyURL = "https://api.tavily.com/search"

// tavilyRequest is the JSON body accepted by the Tavily search endpoint.
type tavilyRequest struct {
	Query             string   `json:"query"`
	Topic             string   `json:"topic,omitempty"`
	SearchDepth       string   `json:"search_depth"`
	TimeRange         string   `json:"time_range,omitempty"`
	Days              int      `json:"days,omitempty"`
	MaxResults        int      `json:"max_results"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
}

// Tavily queries api.tavily.com.
type Tavily struct {
	cfg    Config
	client *http.Client
	logger *logrus.Logger
}

var _ ports.SearchProvider = (*Tavily)(nil)

func NewTavily(cfg Config, logger *logrus.Logger) *Tavily {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTavilyURL
	}
	return &Tavily{cfg: cfg, client: newHTTPClient(cfg.Timeout), logger: logger}
}

func (t *Tavily) Backend() search.Backend { return search.BackendTavily }

func (t *Tavily) Tag() string { return cache.SearchTag(string(search.BackendTavily)) }

func (t *Tavily) Search(ctx context.Context, query string, userConfig *search.Config) fn.Result[search.Results] {
	body, err := json.Marshal(tavilyBody(query, resolve(search.BackendTavily, t.cfg.Defaults, userConfig)))
	if err != nil {
		return fn.Err[search.Results](fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequest(http.MethodPost, t.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fn.Err[search.Results](fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	res, err := do(ctx, t.client, req, t.logger)
	if err != nil {
		return fn.Err[search.Results](fmt.Errorf("tavily: %w", err))
	}
	return fn.Ok(res)
}

// tavilyDepth maps configured depths onto the two levels Tavily knows.
func tavilyDepth(depth string) string {
	if depth == search.DepthBasic {
		return "basic"
	}
	return "advanced"
}

func tavilyBody(query string, c search.Config) tavilyRequest {
	return tavilyRequest{
		Query:             query,
		Topic:             search.StringValue(c.Topic, "news"),
		SearchDepth:       tavilyDepth(search.StringValue(c.SearchDepth, search.DepthModerate)),
		TimeRange:         search.StringValue(c.TimeRange, ""),
		Days:              search.IntValue(c.Days, 0),
		MaxResults:        search.IntValue(c.MaxResults, 5),
		IncludeAnswer:     true,
		IncludeRawContent: search.BoolValue(c.IncludeRawContent, false),
		IncludeDomains:    c.IncludeDomains,
		ExcludeDomains:    c.ExcludeDomains,
	}
}
