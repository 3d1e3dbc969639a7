package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/updateme/engine/internal/core/domain/search"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func intp(v int) *int { return &v }
func strp(v string) *string { return &v }

func TestResolve_LayersOverride(t *testing.T) {
	merged := resolve(search.BackendTavily, search.Config{MaxResults: intp(8)}, &search.Config{Topic: strp("general")})
	require.Equal(t, 8, *merged.MaxResults)
	require.Equal(t, "general", *merged.Topic)
	require.Equal(t, 7, *merged.Days)

	plain := resolve(search.BackendSerpAPI, search.Config{}, nil)
	require.Equal(t, "news", *plain.SearchType)
}

func TestTavilyDepth(t *testing.T) {
	tests := map[string]string{
		search.DepthBasic:         "basic",
		search.DepthModerate:      "advanced",
		search.DepthAdvanced:      "advanced",
		search.DepthComprehensive: "advanced",
	}
	for in, want := range tests {
		if got := tavilyDepth(in); got != want {
			t.Fatalf("tavilyDepth(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSerpParams(t *testing.T) {
	c := resolve(search.BackendSerpAPI, search.Config{}, &search.Config{
		IncludeDomains: []string{"a.com", "b.com"},
		ExcludeDomains: []string{"c.com"},
		TimeRange:      strp(search.RangeMonth),
	})
	v := serpParams("  ai news ", c)
	require.Equal(t, "ai news (site:a.com OR site:b.com) -site:c.com", v.Get("q"))
	require.Equal(t, "5", v.Get("num"))
	require.Equal(t, "nws", v.Get("tbm"))
	require.Equal(t, "qdr:m", v.Get("tbs"))
	require.Equal(t, "off", v.Get("safe"))

	single := serpParams("go", search.Config{IncludeDomains: []string{"go.dev"}, SearchType: strp("search")})
	require.Equal(t, "go site:go.dev", single.Get("q"))
	require.Empty(t, single.Get("tbm"))
	require.Empty(t, single.Get("tbs"))
}

func TestTavily_Search(t *testing.T) {
	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer tv-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"x","results":[{"title":"t","content":"c"}]}`))
	}))
	defer srv.Close()

	tv := NewTavily(Config{APIKey: "tv-key", BaseURL: srv.URL}, quietLogger())
	res, err := tv.Search(context.Background(), "ai", &search.Config{MaxResults: intp(3), SearchDepth: strp(search.DepthBasic)}).Unpack()
	require.NoError(t, err)
	require.Equal(t, "x", res["answer"])

	require.Equal(t, "ai", got.Query)
	require.Equal(t, 3, got.MaxResults)
	require.Equal(t, "basic", got.SearchDepth)
	require.Equal(t, "news", got.Topic)
	require.True(t, got.IncludeAnswer)
	require.True(t, got.IncludeRawContent)
	require.Equal(t, 7, got.Days)
	require.Equal(t, "tavily_search", tv.Tag())
}

func TestSerpAPI_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "sp-key", r.URL.Query().Get("api_key"))
		require.Equal(t, "golang", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"news_results":[{"title":"n"}]}`))
	}))
	defer srv.Close()

	sp := NewSerpAPI(Config{APIKey: "sp-key", BaseURL: srv.URL}, quietLogger())
	res, err := sp.Search(context.Background(), "golang", nil).Unpack()
	require.NoError(t, err)
	require.Contains(t, res, "news_results")
	require.Equal(t, search.BackendSerpAPI, sp.Backend())
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"non 2xx", http.StatusUnauthorized, `{"detail":"bad key"}`, "unexpected status 401"},
		{"error field", http.StatusOK, `{"error":"Invalid API key"}`, "search backend error: Invalid API key"},
		{"not json", http.StatusOK, `<html>`, "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewSerpAPI(Config{BaseURL: srv.URL}, nil).Search(context.Background(), "q", nil).Unpack()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
			require.Contains(t, err.Error(), "serpapi: ")
		})
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewTavily(Config{BaseURL: srv.URL}, nil).Search(ctx, "q", nil)
	require.True(t, res.IsErr())
}
