package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/domain/search"
	"github.com/updateme/engine/internal/core/ports"
)

const defaultSerpAPIURL = "https://serpapi.com/search.json"

var serpTimeRanges = map[string]string{
	search.RangeDay:   "qdr:d",
	search.RangeWeek:  "qdr:w",
	search.RangeMonth: "qdr:m",
	search.RangeYear:  "qdr:y",
}

// SerpAPI queries Google through serpapi.com.
type SerpAPI struct {
	cfg    Config
	client *http.Client
	logger *logrus.Logger
}

var _ ports.SearchProvider = (*SerpAPI)(nil)

func NewSerpAPI(cfg Config, logger *logrus.Logger) *SerpAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSerpAPIURL
	}
	return &SerpAPI{cfg: cfg, client: newHTTPClient(cfg.Timeout), logger: logger}
}

func (s *SerpAPI) Backend() search.Backend { return search.BackendSerpAPI }

func (s *SerpAPI) Tag() string { return cache.SearchTag(string(search.BackendSerpAPI)) }

func (s *SerpAPI) Search(ctx context.Context, query string, userConfig *search.Config) fn.Result[search.Results] {
	params := serpParams(query, resolve(search.BackendSerpAPI, s.cfg.Defaults, userConfig))
	params.Set("api_key", s.cfg.APIKey)

	req, err := http.NewRequest(http.MethodGet, s.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fn.Err[search.Results](fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	res, err := do(ctx, s.client, req, s.logger)
	if err != nil {
		return fn.Err[search.Results](fmt.Errorf("serpapi: %w", err))
	}
	return fn.Ok(res)
}

// serpParams translates merged options into serpapi query parameters.
// Domain filters become site: operators on the query itself.
func serpParams(query string, c search.Config) url.Values {
	q := strings.TrimSpace(query)
	if len(c.IncludeDomains) > 0 {
		sites := make([]string, 0, len(c.IncludeDomains))
		for _, d := range c.IncludeDomains {
			sites = append(sites, "site:"+d)
		}
		if len(sites) == 1 {
			q += " " + sites[0]
		} else {
			q += " (" + strings.Join(sites, " OR ") + ")"
		}
	}
	for _, d := range c.ExcludeDomains {
		q += " -site:" + d
	}

	v := url.Values{}
	v.Set("q", q)
	v.Set("num", strconv.Itoa(search.IntValue(c.MaxResults, 5)))
	if search.StringValue(c.SearchType, "") == "news" {
		v.Set("tbm", "nws")
	}
	if tbs, ok := serpTimeRanges[search.StringValue(c.TimeRange, "")]; ok {
		v.Set("tbs", tbs)
	}
	if safe := search.StringValue(c.SafeSearch, ""); safe != "" {
		v.Set("safe", safe)
	}
	return v
}
